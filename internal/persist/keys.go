package persist

import "github.com/gxo-labs/visacheck/pkg/visacheck/v1/selection"

// Storage keys for the persisted selection.
const (
	KeyNationality  = "selectedNationality"
	KeyDestination  = "selectedDestination"
	KeyMode         = "mode"
	KeyDestinations = "comparisonDestinations"
)

// KeyFor maps a persisted field to its storage key.
func KeyFor(field selection.Field) string {
	switch field {
	case selection.FieldNationality:
		return KeyNationality
	case selection.FieldDestination:
		return KeyDestination
	case selection.FieldMode:
		return KeyMode
	case selection.FieldDestinations:
		return KeyDestinations
	}
	return ""
}

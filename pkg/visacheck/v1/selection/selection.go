// Package selection defines the public selection state model: the traveler's
// nationality, chosen destination(s), mode and search text.
package selection

// Mode selects between resolving one destination and comparing several.
type Mode string

const (
	ModeSingle  Mode = "single"
	ModeCompare Mode = "compare"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeSingle || m == ModeCompare
}

// MaxCompareDestinations caps the comparison list.
const MaxCompareDestinations = 3

// State is a value snapshot of the selection. Empty strings mean "unset".
type State struct {
	Mode              Mode     `json:"mode"`
	NationalityCode   string   `json:"nationalityCode,omitempty"`
	DestinationCode   string   `json:"destinationCode,omitempty"`
	DestinationCodes  []string `json:"destinationCodes"`
	NationalitySearch string   `json:"nationalitySearch,omitempty"`
	DestinationSearch string   `json:"destinationSearch,omitempty"`
}

// Initial returns the state of a freshly mounted selection.
func Initial() State {
	return State{Mode: ModeSingle, DestinationCodes: []string{}}
}

// Persisted is the subset of State that survives restarts.
type Persisted struct {
	Mode             Mode
	NationalityCode  string
	DestinationCode  string
	DestinationCodes []string
}

// Persisted extracts the persisted subset of s.
func (s State) Persisted() Persisted {
	codes := make([]string, len(s.DestinationCodes))
	copy(codes, s.DestinationCodes)
	return Persisted{
		Mode:             s.Mode,
		NationalityCode:  s.NationalityCode,
		DestinationCode:  s.DestinationCode,
		DestinationCodes: codes,
	}
}

// Field names one persisted value.
type Field string

const (
	FieldNationality  Field = "nationality"
	FieldDestination  Field = "destination"
	FieldMode         Field = "mode"
	FieldDestinations Field = "destinations"
)

// Machine is the interactive surface of the selection state. Every transition
// validates its input and reports whether it was applied; rejected input
// leaves the state untouched and schedules no persistence writes.
type Machine interface {
	Snapshot() State
	Ready() bool

	SelectNationality(code string) bool
	ClearNationality() bool
	SelectDestination(code string) bool
	ClearDestination() bool
	SetMode(mode Mode) bool
	ToggleCompareDestination(code string) bool
	RemoveCompareDestination(code string) bool
	ClearCompareDestinations() bool
	SetNationalitySearch(text string) bool
	SetDestinationSearch(text string) bool
	Reset() bool
}

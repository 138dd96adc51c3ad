package rules

import "fmt"

// StatusKind discriminates the three outcomes of resolving a route.
type StatusKind int

const (
	// StatusEmpty means no destination has been chosen yet.
	StatusEmpty StatusKind = iota
	// StatusUnavailable means a destination was chosen but no requirement is known.
	StatusUnavailable
	// StatusAvailable means a requirement was found for the route.
	StatusAvailable
)

var statusKindNames = map[StatusKind]string{
	StatusEmpty:       "empty",
	StatusUnavailable: "unavailable",
	StatusAvailable:   "available",
}

func (k StatusKind) String() string {
	if name, ok := statusKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StatusKind(%d)", int(k))
}

// MarshalText renders the kind as its lowercase name for JSON and YAML output.
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Status is the resolved outcome for one (nationality, destination) pair.
// Message is set only for StatusUnavailable; Requirement only for StatusAvailable.
type Status struct {
	Kind        StatusKind       `json:"status"`
	Message     string           `json:"message,omitempty"`
	Requirement *VisaRequirement `json:"requirement,omitempty"`
}

// Available reports whether the status carries a requirement.
func (s Status) Available() bool {
	return s.Kind == StatusAvailable && s.Requirement != nil
}

// ComparisonRow is one destination of a side-by-side comparison.
// Name falls back to Code when the destination has no registered name.
type ComparisonRow struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Status Status `json:"result"`
}

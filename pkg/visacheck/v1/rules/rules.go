// Package rules defines the public visa rule model and the loader registry
// contract used by the rule store.
package rules

import (
	"context"
	"maps"
)

// VisaType is the closed category of entry requirement for a route.
type VisaType string

const (
	VisaFree      VisaType = "visa-free"
	VisaOnArrival VisaType = "visa-on-arrival"
	EVisa         VisaType = "e-visa"
	VisaRequired  VisaType = "visa-required"
	ETARequired   VisaType = "eta-required"
)

// VisaTypes lists every valid VisaType in display order.
var VisaTypes = []VisaType{VisaFree, VisaOnArrival, EVisa, ETARequired, VisaRequired}

// IsValid reports whether t is one of the known visa types.
func (t VisaType) IsValid() bool {
	switch t {
	case VisaFree, VisaOnArrival, EVisa, VisaRequired, ETARequired:
		return true
	}
	return false
}

// VisaRequirement describes what a traveler of one nationality needs to enter
// one destination. Values are immutable once loaded.
type VisaRequirement struct {
	Type      VisaType `yaml:"type" json:"type"`
	MaxStay   string   `yaml:"maxStay" json:"maxStay"`
	Cost      string   `yaml:"cost,omitempty" json:"cost,omitempty"`
	Notes     string   `yaml:"notes,omitempty" json:"notes,omitempty"`
	Source    string   `yaml:"source" json:"source"`
	SourceURL string   `yaml:"sourceUrl,omitempty" json:"sourceUrl,omitempty"`
}

// DestinationRules maps destination country codes to the requirement that
// applies for a single nationality.
type DestinationRules map[string]VisaRequirement

// Lookup returns the requirement for destination, if present.
// It is safe to call on a nil DestinationRules.
func (r DestinationRules) Lookup(destination string) (VisaRequirement, bool) {
	req, ok := r[destination]
	return req, ok
}

// Clone returns a shallow copy; VisaRequirement holds only value fields.
func (r DestinationRules) Clone() DestinationRules {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Loader materializes the rule table of one nationality. Loaders are invoked
// lazily, at most once per successful load, and must either return a complete
// table or an error.
type Loader func(ctx context.Context) (DestinationRules, error)

// Registry maps nationality codes to their Loader.
type Registry interface {
	// Register associates a nationality code with its loader.
	// Returns an error for empty codes, nil loaders or duplicate codes.
	Register(nationality string, loader Loader) error

	// Get retrieves the loader for a nationality code.
	// Returns a NationalityNotSupportedError if none is registered.
	Get(nationality string) (Loader, error)

	// List returns the registered nationality codes. Order is not guaranteed.
	List() []string
}

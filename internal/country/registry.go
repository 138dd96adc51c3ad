// Package country provides the authoritative country universe that every
// nationality and destination selection is validated against.
package country

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gxo-labs/visacheck/internal/config"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
)

// MaxSearchLength caps search input, in runes.
const MaxSearchLength = 100

//go:embed data/countries.yaml
var countriesYAML []byte

// Registry is the immutable, in-memory implementation of country.Registry.
type Registry struct {
	byName []country.Country
	names  map[string]string
}

var _ country.Registry = (*Registry)(nil)

// NewRegistry builds a registry from an explicit list. Empty codes, empty
// names and duplicate codes are rejected.
func NewRegistry(countries []country.Country) (*Registry, error) {
	if len(countries) == 0 {
		return nil, vcerrors.NewValidationError("country registry requires at least one country", nil)
	}
	r := &Registry{
		byName: make([]country.Country, 0, len(countries)),
		names:  make(map[string]string, len(countries)),
	}
	for i, c := range countries {
		if c.Code == "" || c.Name == "" {
			return nil, vcerrors.NewValidationError(fmt.Sprintf("country %d has an empty code or name", i), nil)
		}
		if _, dup := r.names[c.Code]; dup {
			return nil, vcerrors.NewValidationError(fmt.Sprintf("duplicate country code '%s'", c.Code), nil)
		}
		r.names[c.Code] = c.Name
		r.byName = append(r.byName, c)
	}
	sort.SliceStable(r.byName, func(i, j int) bool {
		return r.byName[i].Name < r.byName[j].Name
	})
	return r, nil
}

// LoadRegistry parses a country list document and builds a registry from it.
func LoadRegistry(listYAML []byte, filePathHint string) (*Registry, error) {
	list, err := config.LoadCountryList(listYAML, filePathHint)
	if err != nil {
		return nil, err
	}
	return NewRegistry(list.Countries)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry built from the bundled country list.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = LoadRegistry(countriesYAML, "embedded:countries.yaml")
	})
	return defaultRegistry, defaultErr
}

// MustDefault is Default for callers that treat a broken bundle as fatal.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(fmt.Sprintf("bundled country list is invalid: %v", err))
	}
	return r
}

func (r *Registry) List() []country.Country {
	out := make([]country.Country, len(r.byName))
	copy(out, r.byName)
	return out
}

func (r *Registry) IsValidCode(code string) bool {
	_, ok := r.names[code]
	return ok
}

func (r *Registry) NameFor(code string) (string, bool) {
	name, ok := r.names[code]
	return name, ok
}

// Search matches the sanitized query against codes and names.
func (r *Registry) Search(query string) []country.Country {
	return r.SearchExcluding(query, "")
}

// SearchExcluding is Search with one code left out, used for destination
// options that must not offer the selected nationality.
func (r *Registry) SearchExcluding(query, exclude string) []country.Country {
	q := strings.ToLower(SanitizeSearch(query))
	out := make([]country.Country, 0, len(r.byName))
	for _, c := range r.byName {
		if exclude != "" && c.Code == exclude {
			continue
		}
		if q == "" ||
			strings.Contains(strings.ToLower(c.Code), q) ||
			strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

// TruncateSearch limits raw search input to MaxSearchLength runes.
func TruncateSearch(input string) string {
	runes := []rune(input)
	if len(runes) > MaxSearchLength {
		return string(runes[:MaxSearchLength])
	}
	return input
}

// SanitizeSearch truncates then trims search input.
func SanitizeSearch(input string) string {
	return strings.TrimSpace(TruncateSearch(input))
}

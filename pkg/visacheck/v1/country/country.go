// Package country defines the public view of the country universe that every
// selection is validated against.
package country

// Country is one entry of the country universe. Codes are ISO-3166 alpha-2
// style identifiers and are unique within a Registry.
type Country struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Registry is the read-only, authoritative set of valid countries.
// Implementations are immutable after construction and safe for concurrent use.
type Registry interface {
	// List returns every country, ordered by name. The slice is a copy.
	List() []Country
	// IsValidCode reports whether code belongs to the registry.
	IsValidCode(code string) bool
	// NameFor returns the display name for code.
	NameFor(code string) (string, bool)
	// Search returns the countries whose code or name contains query,
	// case-insensitively. An empty query returns the full list.
	Search(query string) []Country
}

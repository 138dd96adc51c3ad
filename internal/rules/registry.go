package rules

import (
	"fmt"
	"sort"
	"sync"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
)

// StaticRegistry implements rules.Registry with a map of nationality code to
// loader. It is safe for concurrent use.
type StaticRegistry struct {
	loaders map[string]rules.Loader
	mu      sync.RWMutex
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{loaders: make(map[string]rules.Loader)}
}

// Register associates a nationality with its loader. Empty codes, nil loaders
// and duplicates are rejected.
func (r *StaticRegistry) Register(nationality string, loader rules.Loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nationality == "" {
		return vcerrors.NewConfigError("rules registration error: nationality cannot be empty", nil)
	}
	if loader == nil {
		return vcerrors.NewConfigError(fmt.Sprintf("rules registration error for '%s': loader cannot be nil", nationality), nil)
	}
	if _, exists := r.loaders[nationality]; exists {
		return vcerrors.NewConfigError(fmt.Sprintf("rules registration error: duplicate nationality '%s'", nationality), nil)
	}
	r.loaders[nationality] = loader
	return nil
}

// Get returns the loader for nationality or a NationalityNotSupportedError.
func (r *StaticRegistry) Get(nationality string) (rules.Loader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loader, exists := r.loaders[nationality]
	if !exists {
		return nil, vcerrors.NewNationalityNotSupportedError(nationality)
	}
	return loader, nil
}

// List returns the registered nationality codes in ascending order.
func (r *StaticRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.loaders))
	for code := range r.loaders {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

var (
	globalRegistry = NewStaticRegistry()

	_ rules.Registry = (*StaticRegistry)(nil)
)

// Register adds a loader to the default global registry. It is meant to be
// called from init functions and panics on error, since a bad registration
// is a programming mistake.
func Register(nationality string, loader rules.Loader) {
	if err := globalRegistry.Register(nationality, loader); err != nil {
		panic(fmt.Errorf("failed to register rules for '%s' globally: %w", nationality, err))
	}
}

// DefaultRegistry exposes the global registry populated by init-time
// registration (see the rules/data package).
var DefaultRegistry rules.Registry = globalRegistry

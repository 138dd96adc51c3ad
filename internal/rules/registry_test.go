package rules

import (
	"context"
	"testing"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyLoader(ctx context.Context) (rules.DestinationRules, error) {
	return rules.DestinationRules{}, nil
}

func TestStaticRegistry_Register(t *testing.T) {
	r := NewStaticRegistry()
	require.NoError(t, r.Register("US", emptyLoader))

	var cfgErr *vcerrors.ConfigError
	assert.ErrorAs(t, r.Register("US", emptyLoader), &cfgErr)
	assert.ErrorAs(t, r.Register("", emptyLoader), &cfgErr)
	assert.ErrorAs(t, r.Register("ZA", nil), &cfgErr)
}

func TestStaticRegistry_Get(t *testing.T) {
	r := NewStaticRegistry()
	require.NoError(t, r.Register("US", emptyLoader))

	loader, err := r.Get("US")
	require.NoError(t, err)
	assert.NotNil(t, loader)

	_, err = r.Get("XX")
	assert.True(t, vcerrors.IsNotSupported(err))
}

func TestStaticRegistry_ListSorted(t *testing.T) {
	r := NewStaticRegistry()
	for _, code := range []string{"ZA", "US", "DE"} {
		require.NoError(t, r.Register(code, emptyLoader))
	}
	assert.Equal(t, []string{"DE", "US", "ZA"}, r.List())
}

package data

import (
	"context"
	"testing"

	irules "github.com/gxo-labs/visacheck/internal/rules"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledTablesRegistered(t *testing.T) {
	assert.Equal(t, []string{"DE", "US", "ZA"}, irules.DefaultRegistry.List())
}

func TestBundledTablesLoad(t *testing.T) {
	ctx := context.Background()
	for _, code := range []string{"US", "ZA", "DE"} {
		t.Run(code, func(t *testing.T) {
			table, err := Loader(code)(ctx)
			require.NoError(t, err)
			assert.NotEmpty(t, table)
			th, ok := table.Lookup("TH")
			require.True(t, ok)
			assert.Equal(t, rules.VisaFree, th.Type)
		})
	}
}

func TestBundledTables_KnownRoutes(t *testing.T) {
	us, err := Loader("US")(context.Background())
	require.NoError(t, err)
	assert.Len(t, us, 15)
	assert.Equal(t, "60 days", us["TH"].MaxStay)
	assert.Equal(t, rules.ETARequired, us["GB"].Type)
	assert.Equal(t, "$20 USD", us["GB"].Cost)
	assert.Equal(t, rules.EVisa, us["VN"].Type)
	assert.Equal(t, rules.VisaOnArrival, us["ID"].Type)

	za, err := Loader("ZA")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30 days", za["TH"].MaxStay)
}

func TestLoader_MissingTable(t *testing.T) {
	_, err := Loader("GB")(context.Background())
	assert.Error(t, err)
}

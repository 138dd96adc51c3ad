package metrics_test

import (
	"testing"

	"github.com/gxo-labs/visacheck/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SharedRegistryReusesCollectors(t *testing.T) {
	provider := metrics.NewPrometheusRegistryProvider()
	first := metrics.New(provider.Registry())
	second := metrics.New(provider.Registry())

	first.RuleLoads.WithLabelValues("US", "success").Inc()
	second.RuleLoads.WithLabelValues("US", "success").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(first.RuleLoads.WithLabelValues("US", "success")))

	families, err := provider.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_NilRegistry(t *testing.T) {
	m := metrics.New(nil)
	require.NotNil(t, m)
	assert.NotPanics(t, func() { m.Hydrations.Inc() })
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/visacheck/internal/checker"
	"github.com/gxo-labs/visacheck/internal/logger"
	intMetrics "github.com/gxo-labs/visacheck/internal/metrics"
	visacheck "github.com/gxo-labs/visacheck/pkg/visacheck/v1"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	provider := intMetrics.NewPrometheusRegistryProvider()
	c, err := checker.NewChecker(logger.NewDiscardLogger(), visacheck.WithMetricsRegistryProvider(provider))
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return New(c, logger.NewDiscardLogger(), provider.Registry()).Router()
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newTestRouter(t), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestNationalities(t *testing.T) {
	_, body := get(t, newTestRouter(t), "/v1/nationalities")
	assert.ElementsMatch(t, []interface{}{"DE", "US", "ZA"}, body["nationalities"])
}

func TestCountries_SearchAndExclude(t *testing.T) {
	h := newTestRouter(t)
	_, body := get(t, h, "/v1/countries?q=thai")
	list := body["countries"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "TH", list[0].(map[string]interface{})["code"])

	_, body = get(t, h, "/v1/countries?q=thai&exclude=th")
	assert.Empty(t, body["countries"])
}

func TestVisa(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/v1/visa/us/th")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, "Visa Free", body["label"])
	req := body["requirement"].(map[string]interface{})
	assert.Equal(t, "60 days", req["maxStay"])

	_, body = get(t, h, "/v1/visa/XX/TH")
	assert.Equal(t, "unavailable", body["status"])
	assert.Equal(t, "No visa data available for this passport", body["message"])

	rec, _ = get(t, h, "/v1/visa/USA/TH")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompare(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/v1/compare/US?to=TH,jp,TH,US")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := body["destinations"].([]interface{})
	require.Len(t, rows, 2, "duplicates and the nationality are dropped")
	assert.Equal(t, "Japan", rows[1].(map[string]interface{})["name"])

	rec, _ = get(t, h, "/v1/compare/US?to=TH,JP,FR,MX")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, "/v1/compare/US")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	get(t, h, "/v1/visa/US/TH")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "visacheck_rule_loads_total")
}

func TestMetricsNotMountedWithoutRegistry(t *testing.T) {
	c, err := checker.NewChecker(logger.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	h := New(c, logger.NewDiscardLogger(), (*prometheus.Registry)(nil)).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

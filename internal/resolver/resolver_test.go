package resolver

import (
	"testing"

	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usTable = rules.DestinationRules{
	"TH": {Type: rules.VisaFree, MaxStay: "60 days", Source: "US State Department, Jan 2026"},
	"JP": {Type: rules.VisaFree, MaxStay: "90 days", Source: "MOFA"},
	"VN": {Type: rules.EVisa, MaxStay: "90 days", Cost: "$25 USD", Source: "Vietnam Immigration"},
}

type fakeNames map[string]string

func (f fakeNames) List() []country.Country { return nil }
func (f fakeNames) IsValidCode(code string) bool {
	_, ok := f[code]
	return ok
}
func (f fakeNames) NameFor(code string) (string, bool) {
	n, ok := f[code]
	return n, ok
}
func (f fakeNames) Search(string) []country.Country { return nil }

func TestResolveStatus(t *testing.T) {
	testCases := []struct {
		name        string
		table       rules.DestinationRules
		destination string
		wantKind    rules.StatusKind
		wantMessage string
	}{
		{"no destination", usTable, "", rules.StatusEmpty, ""},
		{"no destination and no table", nil, "", rules.StatusEmpty, ""},
		{"no table", nil, "TH", rules.StatusUnavailable, MessageNoPassportData},
		{"missing route", usTable, "ZZ", rules.StatusUnavailable, MessageNoRouteData},
		{"empty table", rules.DestinationRules{}, "TH", rules.StatusUnavailable, MessageNoRouteData},
		{"available", usTable, "TH", rules.StatusAvailable, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveStatus(tc.table, tc.destination)
			assert.Equal(t, tc.wantKind, got.Kind)
			assert.Equal(t, tc.wantMessage, got.Message)
			assert.Equal(t, tc.wantKind == rules.StatusAvailable, got.Available())
		})
	}
}

func TestResolveStatus_Requirement(t *testing.T) {
	got := ResolveStatus(usTable, "TH")
	require.NotNil(t, got.Requirement)
	assert.Equal(t, rules.VisaFree, got.Requirement.Type)
	assert.Equal(t, "60 days", got.Requirement.MaxStay)

	// The returned requirement is detached from the table.
	got.Requirement.MaxStay = "changed"
	assert.Equal(t, "60 days", usTable["TH"].MaxStay)
}

func TestResolveStatus_Deterministic(t *testing.T) {
	assert.Equal(t, ResolveStatus(usTable, "JP"), ResolveStatus(usTable, "JP"))
}

func TestCompare(t *testing.T) {
	names := fakeNames{"TH": "Thailand", "JP": "Japan"}
	rows := Compare(usTable, []string{"TH", "JP", "QQ"}, names)
	require.Len(t, rows, 3)

	assert.Equal(t, "Thailand", rows[0].Name)
	assert.True(t, rows[0].Status.Available())
	assert.Equal(t, "Japan", rows[1].Name)
	assert.Equal(t, "QQ", rows[2].Name)
	assert.Equal(t, MessageNoRouteData, rows[2].Status.Message)

	rows = Compare(nil, []string{"TH"}, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "TH", rows[0].Name)
	assert.Equal(t, MessageNoPassportData, rows[0].Status.Message)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Visa Free", Label(rules.VisaFree))
	assert.Equal(t, "Visa on Arrival", Label(rules.VisaOnArrival))
	assert.Equal(t, "E-Visa Required", Label(rules.EVisa))
	assert.Equal(t, "ETA Required", Label(rules.ETARequired))
	assert.Equal(t, "Visa Required", Label(rules.VisaRequired))
	assert.Equal(t, "Unknown Visa Type", Label("teleport"))
	for _, vt := range rules.VisaTypes {
		assert.NotEqual(t, "Unknown Visa Type", Label(vt))
	}
}

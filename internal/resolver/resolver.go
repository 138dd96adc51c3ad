// Package resolver turns a nationality's rule table and a destination into
// the status shown to a traveler. Everything here is pure.
package resolver

import (
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
)

// Messages attached to unavailable statuses.
const (
	MessageNoPassportData = "No visa data available for this passport"
	MessageNoRouteData    = "Visa information not available for this route"
)

// NoInformationText is the short notice shown in a comparison row without data.
const NoInformationText = "No visa information available"

// ResolveStatus derives the status for destination from table. A nil table
// means the nationality has no data at all.
func ResolveStatus(table rules.DestinationRules, destination string) rules.Status {
	if destination == "" {
		return rules.Status{Kind: rules.StatusEmpty}
	}
	if table == nil {
		return rules.Status{Kind: rules.StatusUnavailable, Message: MessageNoPassportData}
	}
	req, ok := table.Lookup(destination)
	if !ok {
		return rules.Status{Kind: rules.StatusUnavailable, Message: MessageNoRouteData}
	}
	return rules.Status{Kind: rules.StatusAvailable, Requirement: &req}
}

// Compare resolves each destination in order. Names come from names when
// known and fall back to the code.
func Compare(table rules.DestinationRules, destinations []string, names country.Registry) []rules.ComparisonRow {
	rows := make([]rules.ComparisonRow, 0, len(destinations))
	for _, code := range destinations {
		name := code
		if names != nil {
			if n, ok := names.NameFor(code); ok {
				name = n
			}
		}
		rows = append(rows, rules.ComparisonRow{
			Code:   code,
			Name:   name,
			Status: ResolveStatus(table, code),
		})
	}
	return rows
}

var labels = map[rules.VisaType]string{
	rules.VisaFree:      "Visa Free",
	rules.VisaOnArrival: "Visa on Arrival",
	rules.EVisa:         "E-Visa Required",
	rules.ETARequired:   "ETA Required",
	rules.VisaRequired:  "Visa Required",
}

// Label returns the display label for a visa type.
func Label(t rules.VisaType) string {
	if l, ok := labels[t]; ok {
		return l
	}
	return "Unknown Visa Type"
}

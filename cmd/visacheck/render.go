package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gxo-labs/visacheck/internal/resolver"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
)

type statusView struct {
	Nationality     string `json:"nationality"`
	NationalityName string `json:"nationalityName"`
	Destination     string `json:"destination"`
	DestinationName string `json:"destinationName"`
	rules.Status
}

func renderStatus(w io.Writer, v statusView) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) -> %s (%s)\n", v.NationalityName, v.Nationality, v.DestinationName, v.Destination)
	switch v.Kind {
	case rules.StatusEmpty:
		b.WriteString("Select a destination to see visa requirements.\n")
	case rules.StatusUnavailable:
		fmt.Fprintf(&b, "%s\n%s\n", resolver.NoInformationText, v.Message)
	case rules.StatusAvailable:
		writeRequirement(&b, *v.Requirement, "")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRequirement(b *strings.Builder, req rules.VisaRequirement, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, resolver.Label(req.Type))
	fmt.Fprintf(b, "%sMax stay: %s\n", indent, req.MaxStay)
	if req.Cost != "" {
		fmt.Fprintf(b, "%sCost: %s\n", indent, req.Cost)
	}
	if req.Notes != "" {
		fmt.Fprintf(b, "%sNotes: %s\n", indent, req.Notes)
	}
	source := req.Source
	if req.SourceURL != "" {
		source += " <" + req.SourceURL + ">"
	}
	fmt.Fprintf(b, "%sSource: %s\n", indent, source)
}

func renderComparison(w io.Writer, nationality, nationalityName string, rows []rules.ComparisonRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "No destinations to compare for %s (%s).\n", nationalityName, nationality)
		return err
	}
	fmt.Fprintf(w, "Comparing destinations for %s (%s)\n\n", nationalityName, nationality)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCOUNTRY\tREQUIREMENT\tMAX STAY\tCOST")
	for _, row := range rows {
		if !row.Status.Available() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t-\t-\n", row.Code, row.Name, resolver.NoInformationText)
			continue
		}
		req := row.Status.Requirement
		cost := req.Cost
		if cost == "" {
			cost = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Code, row.Name, resolver.Label(req.Type), req.MaxStay, cost)
	}
	return tw.Flush()
}

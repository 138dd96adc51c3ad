// Package data bundles the nationality rule tables shipped with visacheck and
// registers a loader for each of them in the default rules registry.
//
// Import it for its side effects:
//
//	import _ "github.com/gxo-labs/visacheck/internal/rules/data"
package data

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/gxo-labs/visacheck/internal/config"
	irules "github.com/gxo-labs/visacheck/internal/rules"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
)

//go:embed nationalities/*.yaml
var tables embed.FS

func init() {
	names, err := Nationalities()
	if err != nil {
		panic(fmt.Errorf("failed to list bundled rule tables: %w", err))
	}
	for _, code := range names {
		irules.Register(code, Loader(code))
	}
}

// Nationalities lists the codes of the bundled tables, derived from file names.
func Nationalities() ([]string, error) {
	entries, err := fs.ReadDir(tables, "nationalities")
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		codes = append(codes, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return codes, nil
}

// Loader returns a loader that parses the bundled table for code on first use.
// The table's declared nationality must match its file name.
func Loader(code string) rules.Loader {
	file := path.Join("nationalities", code+".yaml")
	return func(ctx context.Context) (rules.DestinationRules, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := tables.ReadFile(file)
		if err != nil {
			return nil, err
		}
		table, err := config.LoadRuleTable(content, "embedded:"+file)
		if err != nil {
			return nil, err
		}
		if table.Nationality != code {
			return nil, vcerrors.NewValidationError(
				fmt.Sprintf("bundled table '%s' declares nationality '%s'", file, table.Nationality), nil)
		}
		return table.Destinations, nil
	}
}

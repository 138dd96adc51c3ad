package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/gxo-labs/visacheck/internal/config"
	intCountry "github.com/gxo-labs/visacheck/internal/country"
	"github.com/gxo-labs/visacheck/internal/httpapi"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/selection"
)

func newFlagSet(a *app, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: visacheck %s\n\nFlags:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess, false
		}
		return ExitUsageError, false
	}
	return 0, true
}

func runCheck(a *app, args []string) int {
	fs := newFlagSet(a, "check", "check -nationality <code> -destination <code> [-json]")
	nationality := fs.String("nationality", "", "Passport nationality code, e.g. US (required)")
	destination := fs.String("destination", "", "Destination country code, e.g. TH (required)")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	nat, dest := normalizeCode(*nationality), normalizeCode(*destination)
	if nat == "" || dest == "" {
		fmt.Fprintln(a.stderr, "Error: -nationality and -destination are required")
		fs.Usage()
		return ExitUsageError
	}

	ctx := context.Background()
	c, _, cleanup, err := a.openChecker(ctx)
	if err != nil {
		return exitCodeFor(a, err)
	}
	defer cleanup()

	m := c.Selection()
	if m.Snapshot().Mode != selection.ModeSingle {
		m.SetMode(selection.ModeSingle)
	}
	if m.Snapshot().NationalityCode != nat && !m.SelectNationality(nat) {
		fmt.Fprintf(a.stderr, "Error: unknown nationality code %q\n", nat)
		return ExitUsageError
	}
	if !m.SelectDestination(dest) {
		fmt.Fprintf(a.stderr, "Error: unknown destination code %q\n", dest)
		return ExitUsageError
	}

	st := c.Status(ctx)
	view := statusView{
		Nationality:     nat,
		NationalityName: nameFor(c.Countries(), nat),
		Destination:     dest,
		DestinationName: nameFor(c.Countries(), dest),
		Status:          st,
	}
	return a.render(func(w io.Writer) error {
		if *asJSON {
			return writeJSON(w, view)
		}
		return renderStatus(w, view)
	})
}

func runCompare(a *app, args []string) int {
	fs := newFlagSet(a, "compare", "compare -nationality <code> [-json] <destination>...")
	nationality := fs.String("nationality", "", "Passport nationality code (required)")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	nat := normalizeCode(*nationality)
	if nat == "" || fs.NArg() == 0 {
		fmt.Fprintln(a.stderr, "Error: -nationality and at least one destination are required")
		fs.Usage()
		return ExitUsageError
	}

	ctx := context.Background()
	c, _, cleanup, err := a.openChecker(ctx)
	if err != nil {
		return exitCodeFor(a, err)
	}
	defer cleanup()

	m := c.Selection()
	m.SetMode(selection.ModeCompare)
	if m.Snapshot().NationalityCode != nat && !m.SelectNationality(nat) {
		fmt.Fprintf(a.stderr, "Error: unknown nationality code %q\n", nat)
		return ExitUsageError
	}
	m.ClearCompareDestinations()
	for _, arg := range fs.Args() {
		code := normalizeCode(arg)
		// Toggling an already listed code would remove it.
		if slices.Contains(m.Snapshot().DestinationCodes, code) {
			fmt.Fprintf(a.stderr, "Skipping %s: already listed\n", code)
			continue
		}
		if !m.ToggleCompareDestination(code) {
			fmt.Fprintf(a.stderr, "Skipping %s: not a valid comparison destination (at most %d, excluding the nationality)\n",
				code, selection.MaxCompareDestinations)
		}
	}

	rows := c.Comparison(ctx)
	return a.render(func(w io.Writer) error {
		if *asJSON {
			return writeJSON(w, rows)
		}
		return renderComparison(w, nat, nameFor(c.Countries(), nat), rows)
	})
}

func runNationalities(a *app, args []string) int {
	fs := newFlagSet(a, "nationalities", "nationalities")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	ctx := context.Background()
	c, _, cleanup, err := a.openChecker(ctx)
	if err != nil {
		return exitCodeFor(a, err)
	}
	defer cleanup()

	return a.render(func(w io.Writer) error {
		for _, code := range c.SupportedNationalities() {
			if _, err := fmt.Fprintf(w, "%s  %s\n", code, nameFor(c.Countries(), code)); err != nil {
				return err
			}
		}
		return nil
	})
}

func runCountries(a *app, args []string) int {
	fs := newFlagSet(a, "countries", "countries [-q <text>] [-exclude <code>]")
	query := fs.String("q", "", "Case-insensitive search on code or name")
	exclude := fs.String("exclude", "", "Leave this code out of the results")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	reg, err := intCountry.Default()
	if err != nil {
		return exitCodeFor(a, err)
	}
	matches := reg.SearchExcluding(intCountry.SanitizeSearch(*query), normalizeCode(*exclude))
	return a.render(func(w io.Writer) error {
		if len(matches) == 0 {
			_, err := fmt.Fprintln(w, "No countries found")
			return err
		}
		for _, c := range matches {
			if _, err := fmt.Fprintf(w, "%s  %s\n", c.Code, c.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func runValidate(a *app, args []string) int {
	fs := newFlagSet(a, "validate", "validate -file <path> [-kind rules|countries|settings]")
	file := fs.String("file", "", "Path of the YAML document to validate (required)")
	kind := fs.String("kind", "rules", "Document kind: rules, countries or settings")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *file == "" {
		fmt.Fprintln(a.stderr, "Error: -file flag is required for validation")
		fs.Usage()
		return ExitUsageError
	}

	a.log.Infof("Validating %s file: %s", *kind, *file)
	var err error
	switch *kind {
	case "rules":
		var table *config.RuleTable
		table, err = config.LoadRuleTableFromFile(*file)
		if err == nil {
			a.log.Infof("Rule table for %s defines %d destinations", table.Nationality, len(table.Destinations))
		}
	case "countries":
		var content []byte
		content, err = os.ReadFile(*file)
		if err == nil {
			_, err = intCountry.LoadRegistry(content, *file)
		}
	case "settings":
		_, err = config.LoadSettingsFromFile(*file)
	default:
		fmt.Fprintf(a.stderr, "Error: unknown -kind %q\n", *kind)
		return ExitUsageError
	}
	if err != nil {
		return exitCodeFor(a, err)
	}
	a.log.Infof("Validation successful: %s", filepath.Clean(*file))
	return ExitSuccess
}

func runServe(a *app, args []string) int {
	fs := newFlagSet(a, "serve", "serve [-addr host:port]")
	addr := fs.String("addr", a.settings.HTTP.Addr, "Listen address")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, metricsProvider, cleanup, err := a.openChecker(ctx)
	if err != nil {
		return exitCodeFor(a, err)
	}
	defer cleanup()

	srv := httpapi.New(c, a.log, metricsProvider.Registry()).NewServer(*addr)
	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("Listening on %s", *addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			a.log.Errorf("HTTP server failed: %v", err)
			return ExitFailure
		}
		return ExitSuccess
	case <-ctx.Done():
		a.log.Warnf("Received shutdown signal, stopping HTTP server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warnf("Error during HTTP shutdown: %v", err)
	}
	return ExitSuccess
}

type stateView struct {
	Mode         selection.Mode `yaml:"mode" json:"mode"`
	Nationality  string         `yaml:"nationality,omitempty" json:"nationality,omitempty"`
	Destination  string         `yaml:"destination,omitempty" json:"destination,omitempty"`
	Destinations []string       `yaml:"destinations,omitempty" json:"destinations,omitempty"`
}

func runState(a *app, args []string) int {
	fs := newFlagSet(a, "state", "state [-json]")
	asJSON := fs.Bool("json", false, "Print the selection as JSON instead of YAML")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	c, _, cleanup, err := a.openChecker(context.Background())
	if err != nil {
		return exitCodeFor(a, err)
	}
	defer cleanup()

	s := c.Selection().Snapshot()
	view := stateView{Mode: s.Mode, Nationality: s.NationalityCode, Destination: s.DestinationCode, Destinations: s.DestinationCodes}
	return a.render(func(w io.Writer) error {
		if *asJSON {
			return writeJSON(w, view)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	})
}

func runReset(a *app, args []string) int {
	fs := newFlagSet(a, "reset", "reset")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	c, _, cleanup, err := a.openChecker(context.Background())
	if err != nil {
		return exitCodeFor(a, err)
	}
	defer cleanup()

	c.Selection().Reset()
	fmt.Fprintln(a.stdout, "Selection cleared")
	return ExitSuccess
}

// render prints through the error boundary. A failed render shows the
// fallback notice and exits non-zero.
func (a *app) render(fn func(w io.Writer) error) int {
	if err := a.boundary.Render(a.stdout, fn); err != nil {
		a.log.Errorf("Failed to write output: %v", err)
		return ExitFailure
	}
	if a.boundary.Failed() {
		return ExitFailure
	}
	return ExitSuccess
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nameFor(reg country.Registry, code string) string {
	if name, ok := reg.NameFor(code); ok {
		return name
	}
	return code
}

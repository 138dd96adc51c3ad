package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	visacheck "github.com/gxo-labs/visacheck/pkg/visacheck/v1"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"

	"github.com/gxo-labs/visacheck/internal/boundary"
	"github.com/gxo-labs/visacheck/internal/checker"
	"github.com/gxo-labs/visacheck/internal/config"
	"github.com/gxo-labs/visacheck/internal/events"
	"github.com/gxo-labs/visacheck/internal/logger"
	"github.com/gxo-labs/visacheck/internal/metrics"
	"github.com/gxo-labs/visacheck/internal/storage"
	"github.com/gxo-labs/visacheck/internal/tracing"
)

const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitUsageError      = 2
	ExitSigIntBase      = 128
	ExitSigInt          = ExitSigIntBase + int(syscall.SIGINT)
	DefaultEventBusSize = 256
	shutdownTimeout     = 5 * time.Second
	configEnvVar        = "VISACHECK_CONFIG"
	stateFileEnvVar     = "VISACHECK_STATE_FILE"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every subcommand needs.
type app struct {
	settings *config.Settings
	log      vclog.Logger
	stdout   io.Writer
	stderr   io.Writer
	boundary *boundary.Boundary
}

type command struct {
	summary string
	run     func(a *app, args []string) int
}

var commands = map[string]command{
	"check":         {"Resolve the visa requirement for one route and remember the selection", runCheck},
	"compare":       {"Compare up to three destinations for one nationality", runCompare},
	"nationalities": {"List nationalities with bundled rule data", runNationalities},
	"countries":     {"List or search known countries", runCountries},
	"validate":      {"Validate a rule table, country list or settings file", runValidate},
	"serve":         {"Serve the lookup API over HTTP", runServe},
	"state":         {"Print the remembered selection", runState},
	"reset":         {"Forget the remembered selection", runReset},
}

func run(args []string, stdout, stderr io.Writer) int {
	globalFlags := flag.NewFlagSet("visacheck", flag.ContinueOnError)
	globalFlags.SetOutput(stderr)
	configPath := globalFlags.String("config", os.Getenv(configEnvVar), "Path to a settings YAML file (env "+configEnvVar+")")
	stateFile := globalFlags.String("state-file", os.Getenv(stateFileEnvVar), "Persist the selection to this YAML file, overriding the configured backend (env "+stateFileEnvVar+")")
	logLevel := globalFlags.String("log-level", "", "Log level (debug, info, warn, error); overrides the settings file")
	logFormat := globalFlags.String("log-format", "", "Log format (text, json); overrides the settings file")
	versionFlag := globalFlags.Bool("version", false, "Print version information and exit")
	globalFlags.Usage = func() { printUsage(stderr, globalFlags) }

	if err := globalFlags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsageError
	}
	if *versionFlag {
		printVersion(stdout)
		return ExitSuccess
	}

	rest := globalFlags.Args()
	if len(rest) == 0 {
		globalFlags.Usage()
		return ExitUsageError
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", rest[0])
		globalFlags.Usage()
		return ExitUsageError
	}

	settings, err := config.LoadSettingsFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
	if *logLevel != "" {
		settings.Log.Level = *logLevel
	}
	if *logFormat != "" {
		if *logFormat != "text" && *logFormat != "json" {
			fmt.Fprintln(stderr, "Error: -log-format must be 'text' or 'json'")
			return ExitUsageError
		}
		settings.Log.Format = *logFormat
	}
	if *stateFile != "" {
		settings.Storage = config.StorageSettings{
			Backend: config.BackendFile,
			File:    &config.FileSettings{Path: *stateFile},
		}
	}

	settings.ApplySecrets(os.LookupEnv)

	log := logger.NewLogger(settings.Log.Level, settings.Log.Format, stderr).With("visacheck_version", version)
	if log.IsEnabled(slog.LevelDebug) {
		if out, err := yaml.Marshal(settings.Redacted()); err == nil {
			log.Debugf("Effective settings:\n%s", out)
		}
	}
	a := &app{
		settings: settings,
		log:      log,
		stdout:   stdout,
		stderr:   stderr,
		boundary: boundary.New(log),
	}
	return cmd.run(a, rest[1:])
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: visacheck [global flags] <command> [flags...]\n\n")
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w, "\nGlobal flags:")
	fs.PrintDefaults()
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "visacheck version %s\n", version)
	fmt.Fprintf(w, "commit: %s\n", commit)
	fmt.Fprintf(w, "built: %s\n", buildDate)
	fmt.Fprintf(w, "go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// openChecker wires storage, events, metrics and tracing into a started
// checker. The returned cleanup flushes saves and releases everything.
func (a *app) openChecker(ctx context.Context) (*checker.Checker, *metrics.PrometheusRegistryProvider, func(), error) {
	backend, err := storage.Open(ctx, a.settings.Storage)
	if err != nil {
		return nil, nil, nil, err
	}

	eventBus := events.NewChannelEventBus(DefaultEventBusSize, a.log)
	metricsProvider := metrics.NewPrometheusRegistryProvider()
	tracerProvider, err := tracing.NewProviderFromEnv(ctx)
	if err != nil {
		a.log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider, _ = tracing.NewNoOpProvider()
	}

	listenerCtx, stopListener := context.WithCancel(ctx)
	listener := events.NewMetricsEventListener(eventBus, metrics.New(metricsProvider.Registry()), a.log)
	go listener.Start(listenerCtx)

	opts := []visacheck.CheckerOption{
		visacheck.WithStorageBackend(backend),
		visacheck.WithEventBus(eventBus),
		visacheck.WithMetricsRegistryProvider(metricsProvider),
		visacheck.WithTracerProvider(tracerProvider),
		visacheck.WithLoadPolicy(a.settings.Rules.LoadAttempts, a.settings.LoadDelayDuration()),
		visacheck.WithPreload(a.settings.Rules.Preload),
	}
	c, err := checker.NewChecker(a.log, opts...)
	if err != nil {
		stopListener()
		eventBus.Close()
		_ = backend.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.Close(shutdownCtx); err != nil {
			a.log.Warnf("Error closing checker: %v", err)
		}
		eventBus.Close()
		stopListener()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			a.log.Warnf("Error shutting down tracer provider: %v", err)
		}
	}

	if err := c.Start(ctx); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return c, metricsProvider, cleanup, nil
}

// normalizeCode upper-cases and trims a country code argument.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func exitCodeFor(a *app, err error) int {
	var cfgErr *vcerrors.ConfigError
	var valErr *vcerrors.ValidationError
	switch {
	case errors.As(err, &valErr):
		a.log.Errorf("Validation failed:\n%s", valErr.Error())
	case errors.As(err, &cfgErr):
		a.log.Errorf("Configuration error:\n%s", cfgErr.Error())
	case errors.Is(err, context.Canceled):
		a.log.Warnf("Interrupted.")
		return ExitSigInt
	default:
		a.log.Errorf("%v", err)
	}
	return ExitFailure
}

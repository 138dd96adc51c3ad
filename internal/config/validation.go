package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
)

var countryCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidateSettings performs the cross-field checks the schema cannot express.
func ValidateSettings(s *Settings) []error {
	var errs []error

	switch s.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if s.Storage.Redis == nil {
			errs = append(errs, vcerrors.NewValidationError("storage backend 'redis' requires a 'storage.redis' block", nil))
		}
	case BackendPostgres:
		if s.Storage.Postgres == nil {
			errs = append(errs, vcerrors.NewValidationError("storage backend 'postgres' requires a 'storage.postgres' block", nil))
		}
	case BackendFile:
		if s.Storage.File == nil || s.Storage.File.Path == "" {
			errs = append(errs, vcerrors.NewValidationError("storage backend 'file' requires 'storage.file.path'", nil))
		}
	default:
		errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("unknown storage backend '%s'", s.Storage.Backend), nil))
	}

	if s.Rules.LoadAttempts < 1 {
		errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("rules.load_attempts must be at least 1, got %d", s.Rules.LoadAttempts), nil))
	}
	if s.Rules.LoadDelay != "" {
		d, err := time.ParseDuration(s.Rules.LoadDelay)
		if err != nil {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("rules.load_delay '%s' is not a valid duration", s.Rules.LoadDelay), err))
		} else if d < 0 {
			errs = append(errs, vcerrors.NewValidationError("rules.load_delay cannot be negative", nil))
		}
	}
	return errs
}

// ValidateRuleTable checks destination codes and requirement fields. The
// nationality itself may not appear as a destination.
func ValidateRuleTable(t *RuleTable) []error {
	var errs []error
	if !countryCodeRegex.MatchString(t.Nationality) {
		errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("nationality '%s' is not a two-letter uppercase code", t.Nationality), nil))
	}

	destinations := make([]string, 0, len(t.Destinations))
	for code := range t.Destinations {
		destinations = append(destinations, code)
	}
	sort.Strings(destinations)

	for _, code := range destinations {
		req := t.Destinations[code]
		if !countryCodeRegex.MatchString(code) {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("destination '%s' is not a two-letter uppercase code", code), nil))
		}
		if code == t.Nationality {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("destination '%s' equals the table nationality", code), nil))
		}
		if !req.Type.IsValid() {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("destination '%s' has unknown visa type '%s'", code, req.Type), nil))
		}
		if strings.TrimSpace(req.MaxStay) == "" {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("destination '%s' is missing 'maxStay'", code), nil))
		}
		if strings.TrimSpace(req.Source) == "" {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("destination '%s' is missing 'source'", code), nil))
		}
	}
	return errs
}

// ValidateCountryList rejects malformed and duplicate codes.
func ValidateCountryList(l *CountryList) []error {
	var errs []error
	if len(l.Countries) == 0 {
		errs = append(errs, vcerrors.NewValidationError("country list must contain at least one country", nil))
	}
	seen := make(map[string]int, len(l.Countries))
	for i, c := range l.Countries {
		if !countryCodeRegex.MatchString(c.Code) {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("country %d: code '%s' is not a two-letter uppercase code", i, c.Code), nil))
		}
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("country %d ('%s'): name cannot be empty", i, c.Code), nil))
		}
		if prev, dup := seen[c.Code]; dup {
			errs = append(errs, vcerrors.NewValidationError(fmt.Sprintf("country %d: duplicate code '%s' (first at %d)", i, c.Code, prev), nil))
			continue
		}
		seen[c.Code] = i
	}
	return errs
}

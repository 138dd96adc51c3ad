package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint is the major version every settings file,
// rule table and country list must declare.
const SupportedSchemaVersionConstraint = "v1"

// RuleTable is the on-disk form of one nationality's rule data.
type RuleTable struct {
	SchemaVersion string                 `yaml:"schemaVersion"`
	Nationality   string                 `yaml:"nationality"`
	Destinations  rules.DestinationRules `yaml:"destinations"`
}

// CountryList is the on-disk form of the country universe.
type CountryList struct {
	SchemaVersion string            `yaml:"schemaVersion"`
	Countries     []country.Country `yaml:"countries"`
}

// LoadSettings validates settings YAML against the embedded schema, decodes it
// strictly, checks schema version compatibility and applies defaults.
func LoadSettings(settingsYAML []byte, filePathHint string) (*Settings, error) {
	if len(bytes.TrimSpace(settingsYAML)) == 0 {
		return nil, vcerrors.NewConfigError("settings content cannot be empty", nil)
	}
	if err := ValidateSettingsSchema(settingsYAML); err != nil {
		return nil, vcerrors.NewConfigError(fmt.Sprintf("settings '%s' failed schema validation", filePathHint), err)
	}

	var settings Settings
	if err := yamlUnmarshalStrict(settingsYAML, &settings); err != nil {
		return nil, vcerrors.NewConfigError(fmt.Sprintf("failed to parse settings YAML '%s'", filePathHint), err)
	}
	settings.FilePath = filePathHint

	if err := checkSchemaVersion(settings.SchemaVersion, "settings", filePathHint); err != nil {
		return nil, err
	}
	settings.applyDefaults()

	if errs := ValidateSettings(&settings); len(errs) > 0 {
		return nil, combineValidationErrors("settings", filePathHint, errs)
	}
	return &settings, nil
}

// LoadSettingsFromFile reads settings from disk. An empty path yields DefaultSettings.
func LoadSettingsFromFile(filePath string) (*Settings, error) {
	if filePath == "" {
		return DefaultSettings(), nil
	}
	content, absPath, err := readFile(filePath, "settings")
	if err != nil {
		return nil, err
	}
	return LoadSettings(content, absPath)
}

// LoadRuleTable parses and validates one nationality rule table document.
func LoadRuleTable(tableYAML []byte, filePathHint string) (*RuleTable, error) {
	if len(bytes.TrimSpace(tableYAML)) == 0 {
		return nil, vcerrors.NewConfigError("rule table content cannot be empty", nil)
	}
	if err := ValidateRuleTableSchema(tableYAML); err != nil {
		return nil, vcerrors.NewConfigError(fmt.Sprintf("rule table '%s' failed schema validation", filePathHint), err)
	}

	var table RuleTable
	if err := yamlUnmarshalStrict(tableYAML, &table); err != nil {
		return nil, vcerrors.NewConfigError(fmt.Sprintf("failed to parse rule table YAML '%s'", filePathHint), err)
	}
	if err := checkSchemaVersion(table.SchemaVersion, "rule table", filePathHint); err != nil {
		return nil, err
	}
	if errs := ValidateRuleTable(&table); len(errs) > 0 {
		return nil, combineValidationErrors("rule table", filePathHint, errs)
	}
	if table.Destinations == nil {
		table.Destinations = rules.DestinationRules{}
	}
	return &table, nil
}

// LoadRuleTableFromFile reads a rule table from disk.
func LoadRuleTableFromFile(filePath string) (*RuleTable, error) {
	content, absPath, err := readFile(filePath, "rule table")
	if err != nil {
		return nil, err
	}
	return LoadRuleTable(content, absPath)
}

// LoadCountryList parses and validates a country list document.
func LoadCountryList(listYAML []byte, filePathHint string) (*CountryList, error) {
	if len(bytes.TrimSpace(listYAML)) == 0 {
		return nil, vcerrors.NewConfigError("country list content cannot be empty", nil)
	}
	if err := ValidateCountryListSchema(listYAML); err != nil {
		return nil, vcerrors.NewConfigError(fmt.Sprintf("country list '%s' failed schema validation", filePathHint), err)
	}

	var list CountryList
	if err := yamlUnmarshalStrict(listYAML, &list); err != nil {
		return nil, vcerrors.NewConfigError(fmt.Sprintf("failed to parse country list YAML '%s'", filePathHint), err)
	}
	if err := checkSchemaVersion(list.SchemaVersion, "country list", filePathHint); err != nil {
		return nil, err
	}
	if errs := ValidateCountryList(&list); len(errs) > 0 {
		return nil, combineValidationErrors("country list", filePathHint, errs)
	}
	return &list, nil
}

func readFile(filePath, kind string) ([]byte, string, error) {
	if filePath == "" {
		return nil, "", vcerrors.NewConfigError(fmt.Sprintf("%s file path cannot be empty", kind), nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, "", vcerrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, "", vcerrors.NewConfigError(fmt.Sprintf("failed to read %s file '%s'", kind, absPath), err)
	}
	return content, absPath, nil
}

// checkSchemaVersion requires a valid semver whose major version matches
// SupportedSchemaVersionConstraint. A missing "v" prefix is tolerated.
func checkSchemaVersion(version, kind, filePathHint string) error {
	if version == "" {
		return vcerrors.NewValidationError(fmt.Sprintf("%s '%s' is missing required 'schemaVersion' field", kind, filePathHint), nil)
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return vcerrors.NewValidationError(fmt.Sprintf("%s '%s' has invalid 'schemaVersion' format: '%s'", kind, filePathHint, version), nil)
	}
	if semver.Major(v) != SupportedSchemaVersionConstraint {
		return vcerrors.NewValidationError(
			fmt.Sprintf("%s '%s' schemaVersion '%s' is not compatible with requirement '%s'",
				kind, filePathHint, version, SupportedSchemaVersionConstraint),
			nil,
		)
	}
	return nil
}

func combineValidationErrors(kind, filePathHint string, errs []error) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Error())
	}
	combined := fmt.Sprintf("%s '%s' has %d validation error(s):\n- %s",
		kind, filePathHint, len(messages), strings.Join(messages, "\n- "))
	return vcerrors.NewValidationError(combined, errs[0])
}

// yamlUnmarshalStrict decodes a single YAML document, rejecting unknown fields.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("YAML parsing error: empty document")
		}
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}

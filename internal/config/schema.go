package config

import (
	_ "embed" // Required for //go:embed directive
	"fmt"
	"sync"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/settings_v1.json
var settingsSchemaBytes []byte

//go:embed schemas/rules_v1.json
var rulesSchemaBytes []byte

//go:embed schemas/countries_v1.json
var countriesSchemaBytes []byte

// embeddedSchema compiles an embedded JSON schema once, on first use.
type embeddedSchema struct {
	name   string
	bytes  []byte
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

var (
	settingsSchema  = &embeddedSchema{name: "settings_v1.json", bytes: settingsSchemaBytes}
	rulesSchema     = &embeddedSchema{name: "rules_v1.json", bytes: rulesSchemaBytes}
	countriesSchema = &embeddedSchema{name: "countries_v1.json", bytes: countriesSchemaBytes}
)

func (s *embeddedSchema) load() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		if len(s.bytes) == 0 {
			s.err = vcerrors.NewConfigError(fmt.Sprintf("embedded schema '%s' is empty or not found", s.name), nil)
			return
		}
		s.schema, s.err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(s.bytes))
		if s.err != nil {
			s.err = vcerrors.NewConfigError(fmt.Sprintf("failed to compile embedded schema '%s'", s.name), s.err)
		}
	})
	return s.schema, s.err
}

// validate checks a YAML document against the schema. kind names the
// document in error messages ("settings", "rule table", "country list").
func (s *embeddedSchema) validate(documentYAML []byte, kind string) error {
	schema, err := s.load()
	if err != nil {
		return err
	}

	// gojsonschema works on generic JSON-like values; yaml.v3 decodes string
	// keyed mappings into map[string]interface{}, which it accepts.
	var doc interface{}
	if err := yaml.Unmarshal(documentYAML, &doc); err != nil {
		return vcerrors.NewConfigError(fmt.Sprintf("failed to parse %s YAML for schema validation", kind), err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return vcerrors.NewConfigError("schema validation process failed", err)
	}
	if !result.Valid() {
		errMsg := fmt.Sprintf("%s failed JSON schema validation:", kind)
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "(root)" || field == "" {
				field = desc.Context().String()
			}
			errMsg += fmt.Sprintf("\n  - Field '%s': %s", field, desc.Description())
		}
		return vcerrors.NewValidationError(errMsg, nil)
	}
	return nil
}

// ValidateSettingsSchema validates a settings document against the embedded schema.
func ValidateSettingsSchema(documentYAML []byte) error {
	return settingsSchema.validate(documentYAML, "settings")
}

// ValidateRuleTableSchema validates a rule table document against the embedded schema.
func ValidateRuleTableSchema(documentYAML []byte) error {
	return rulesSchema.validate(documentYAML, "rule table")
}

// ValidateCountryListSchema validates a country list document against the embedded schema.
func ValidateCountryListSchema(documentYAML []byte) error {
	return countriesSchema.validate(documentYAML, "country list")
}

// Package config reads the converter configuration file. Files are checked
// against an embedded CUE schema before unmarshalling, so typos in keys and
// wrong value types surface as schema errors with positions instead of
// silently-ignored settings.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config holds the file-configurable converter settings.
type Config struct {
	Table            string            `yaml:"table"`
	SelectRuleFields bool              `yaml:"select_rule_fields"`
	FieldMappings    map[string]string `yaml:"field_mappings"`
	Catalog          string            `yaml:"catalog"`
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(path, raw)
}

// Parse validates raw YAML configuration against the schema and unmarshals
// it. The filename is only used in error positions.
func Parse(filename string, raw []byte) (Config, error) {
	if err := validate(filename, raw); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func validate(filename string, raw []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("config schema defines no #Config")
	}

	file, err := cueyaml.Extract(filename, raw)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("building config value: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

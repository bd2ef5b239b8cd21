package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, err := Parse("config.yml", []byte(`
table: windows_events
select_rule_fields: true
field_mappings:
  Image: process.image
  CommandLine: process.command_line
catalog: ./catalog.db
`))
	require.NoError(t, err)
	assert.Equal(t, "windows_events", cfg.Table)
	assert.True(t, cfg.SelectRuleFields)
	assert.Equal(t, "process.image", cfg.FieldMappings["Image"])
	assert.Equal(t, "./catalog.db", cfg.Catalog)
}

func TestParsePartial(t *testing.T) {
	cfg, err := Parse("config.yml", []byte("table: logs\n"))
	require.NoError(t, err)
	assert.Equal(t, "logs", cfg.Table)
	assert.False(t, cfg.SelectRuleFields)
	assert.Empty(t, cfg.FieldMappings)
}

func TestParseRejectsUnknownKey(t *testing.T) {
	_, err := Parse("config.yml", []byte("tabel: logs\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestParseRejectsWrongType(t *testing.T) {
	_, err := Parse("config.yml", []byte("select_rule_fields: sometimes\n"))
	require.Error(t, err)
}

func TestParseRejectsEmptyTable(t *testing.T) {
	_, err := Parse("config.yml", []byte(`table: ""`+"\n"))
	require.Error(t, err)
}

func TestParseRejectsBrokenYAML(t *testing.T) {
	_, err := Parse("config.yml", []byte("table: [unclosed\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("table: logs\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "logs", cfg.Table)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

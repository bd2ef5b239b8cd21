package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliTestRule = `
title: Whoami Execution
id: 2050bfb0-e6a6-4d22-9ee2-b1b0b796ec28
status: test
level: low
logsource:
  category: process_creation
detection:
  selection:
    Image|endswith: \whoami.exe
  condition: selection
`

func writeTestRule(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rule.yml"), []byte(cliTestRule), 0o644))
	return dir
}

func TestConvertCommand(t *testing.T) {
	out, _, err := execute(t, "convert", writeTestRule(t))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM <TABLE_NAME> WHERE string::ends_with(Image,'\\whoami.exe');`+"\n", out)
}

func TestConvertCommandWithTable(t *testing.T) {
	out, _, err := execute(t, "convert", writeTestRule(t), "--table", "windows_events")
	require.NoError(t, err)
	assert.Contains(t, out, "FROM windows_events WHERE")
}

func TestConvertCommandJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "convert", writeTestRule(t))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestConvertCommandMissingPath(t *testing.T) {
	_, _, err := execute(t, "convert", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConvertCommandBrokenRule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("title: [unclosed"), 0o644))

	out, _, err := execute(t, "convert", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load")
}

func TestConvertCommandUnconvertibleRule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keywords.yml"), []byte(`
title: Keyword Rule
detection:
  keywords:
    - whoami
  condition: keywords
`), 0o644))

	_, _, err := execute(t, "convert", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestConvertCommandWithConfig(t *testing.T) {
	dir := writeTestRule(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("table: from_config\n"), 0o644))

	out, _, err := execute(t, "convert", dir, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "FROM from_config WHERE")

	// The flag wins over the config file.
	out, _, err = execute(t, "convert", dir, "--config", cfgPath, "--table", "from_flag")
	require.NoError(t, err)
	assert.Contains(t, out, "FROM from_flag WHERE")
}

func TestConvertCommandInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tabel: typo\n"), 0o644))

	_, _, err := execute(t, "convert", writeTestRule(t), "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConvertCommandOutputFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "queries.surql")
	_, _, err := execute(t, "convert", writeTestRule(t), "--output", outPath)
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "SELECT * FROM <TABLE_NAME> WHERE")
}

func TestConvertCommandOutputDir(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "queries")
	_, _, err := execute(t, "convert", writeTestRule(t), "--output-dir", outDir)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(outDir, "whoami_execution.surql"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "SELECT"))
}

func TestConvertCommandRecordsCatalog(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.db")
	_, _, err := execute(t, "convert", writeTestRule(t), "--catalog", catalogPath)
	require.NoError(t, err)

	out, _, err := execute(t, "catalog", "list", "--catalog", catalogPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Whoami Execution")
}

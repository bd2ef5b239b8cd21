package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRule = `
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

const untitledRule = `
detection:
  selection:
    Image: cmd.exe
  condition: selection
`

func writeRule(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSingleFile(t *testing.T) {
	path := writeRule(t, t.TempDir(), "rule.yml", validRule)

	result, errs := Load(path, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Rules, 1)
	assert.Equal(t, "Whoami Execution", result.Rules[0].Title)
	assert.Equal(t, path, result.Rules[0].Path)
	assert.Equal(t, 1, result.FileCount)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "b.yml", validRule)
	writeRule(t, dir, "a.yaml", validRule)
	writeRule(t, dir, "ignored.txt", "not a rule")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeRule(t, sub, "c.yml", validRule)

	result, errs := Load(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	assert.Equal(t, 3, result.FileCount)
	assert.Len(t, result.Rules, 3)
}

func TestLoadMissingPath(t *testing.T) {
	_, errs := Load(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
	require.Len(t, errs, 1)

	loadErr, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadEmptyDirectory(t *testing.T) {
	_, errs := Load(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)

	loadErr, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "broken.yml", "title: [unclosed")

	_, errs := Load(dir, LoadModeFailFast)
	require.Len(t, errs, 1)

	loadErr, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeParseFailed, loadErr.Code)
}

func TestLoadInvalidRule(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "untitled.yml", untitledRule)

	result, errs := Load(dir, LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.Empty(t, result.Rules)

	loadErr, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalid, loadErr.Code)
}

func TestLoadCollectAllKeepsGoodRules(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "bad.yml", untitledRule)
	writeRule(t, dir, "good.yml", validRule)

	result, errs := Load(dir, LoadModeCollectAll)
	assert.Len(t, errs, 1)
	assert.Len(t, result.Rules, 1)
}

func TestLoadFailFastStopsEarly(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "aaa_bad.yml", untitledRule)
	writeRule(t, dir, "zzz_good.yml", validRule)

	result, errs := Load(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
	assert.Empty(t, result.Rules)
}

func TestLoadCollectsWarnings(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "warned.yml", `
title: No Proper ID
id: not-a-uuid
level: severe
detection:
  selection:
    Image: cmd.exe
  condition: selection
`)

	result, errs := Load(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.Len(t, result.Rules, 1)
	require.Len(t, result.Warnings, 2)
	for _, w := range result.Warnings {
		assert.True(t, w.Warning)
		assert.NotEmpty(t, w.Path)
	}
}

package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		kind    stringKind
		payload string
	}{
		{"plain", "cmd.exe", kindPlain, "cmd.exe"},
		{"empty", "", kindPlain, ""},
		{"prefix", "cmd*", kindPrefix, "cmd"},
		{"suffix", "*cmd.exe", kindSuffix, "cmd.exe"},
		{"contains", "*whoami*", kindContains, "whoami"},
		{"interior wildcard", "a*b", kindPattern, "a*b"},
		{"question mark", "cmd?.exe", kindPattern, "cmd?.exe"},
		{"multiple stars", "*a*b*", kindPattern, "*a*b*"},
		{"bare star", "*", kindPattern, "*"},
		{"escaped star is literal", `cmd\*`, kindPlain, "cmd*"},
		{"escaped question mark is literal", `what\?`, kindPlain, "what?"},
		{"escaped backslash then wildcard", `C:\\*`, kindPrefix, `C:\`},
		{"lone backslash preserved", `a\b`, kindPlain, `a\b`},
		{"trailing backslash preserved", `a\`, kindPlain, `a\`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, payload := classify(tc.value)
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.payload, payload)
		})
	}
}

func TestWildcardToRegex(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"star", "a*b", "a.*b"},
		{"question mark", "a?b", "a.b"},
		{"regex metacharacters quoted", "a.b*c", `a\.b.*c`},
		{"slash escaped for delimited form", "a/b*", `a\/b.*`},
		{"escaped wildcard stays literal", `a\*b`, `a\*b`},
		{"backslashes quoted", `C:\\*`, `C:\\.*`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wildcardToRegex(tc.value))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
		ok    bool
	}{
		{"int", 4624, "4624", true},
		{"int64", int64(-7), "-7", true},
		{"uint64", uint64(42), "42", true},
		{"whole float", 10.0, "10", true},
		{"fractional float", 1.5, "1.5", true},
		{"numeric string", "1024", "1024", true},
		{"non-numeric string", "abc", "", false},
		{"bool", true, "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := formatNumber(tc.value)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseModifiers(t *testing.T) {
	t.Run("string match modifiers", func(t *testing.T) {
		m, err := parseModifiers([]string{"contains", "all"})
		assert.NoError(t, err)
		assert.True(t, m.contains)
		assert.True(t, m.all)
	})

	t.Run("comparison modifiers", func(t *testing.T) {
		for name := range map[string]struct{}{"lt": {}, "lte": {}, "gt": {}, "gte": {}} {
			m, err := parseModifiers([]string{name})
			assert.NoError(t, err)
			assert.True(t, m.hasCompare)
		}
	})

	t.Run("unsupported modifiers rejected", func(t *testing.T) {
		for _, name := range []string{"windash", "cased", "wide", "utf16le", "fieldref", "bogus"} {
			_, err := parseModifiers([]string{name})
			assert.Error(t, err, name)
		}
	})
}

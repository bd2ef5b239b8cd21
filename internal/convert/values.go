package convert

import (
	"regexp"
	"strconv"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/dialect"
)

type stringKind int

const (
	kindPlain stringKind = iota
	kindPrefix
	kindSuffix
	kindContains
	kindPattern
)

// wtoken is one run of a matched string: either a literal (possibly holding
// escape sequences that are not wildcard escapes) or a single wildcard.
type wtoken struct {
	wildcard rune // '*' or '?', zero for literals
	lit      string
}

// splitWildcards splits s at unescaped wildcards. Backslash escapes the
// wildcard characters and itself; any other backslash pair passes through
// untouched so regex conversion sees the original sequence.
func splitWildcards(s string) []wtoken {
	var toks []wtoken
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, wtoken{lit: lit.String()})
			lit.Reset()
		}
	}
	escaped := false
	for _, r := range s {
		if escaped {
			switch r {
			case '*', '?', '\\':
				lit.WriteRune(r)
			default:
				lit.WriteRune('\\')
				lit.WriteRune(r)
			}
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '*', '?':
			flush()
			toks = append(toks, wtoken{wildcard: r})
		default:
			lit.WriteRune(r)
		}
	}
	if escaped {
		lit.WriteRune('\\')
	}
	flush()
	return toks
}

// classify decides which match template a string value needs. The payload is
// the literal part for the plain, prefix, suffix and contains kinds; pattern
// values keep their wildcards and are converted to a regex by the caller.
func classify(s string) (stringKind, string) {
	toks := splitWildcards(s)

	wildcards := 0
	for _, t := range toks {
		if t.wildcard != 0 {
			wildcards++
		}
	}
	if wildcards == 0 {
		var b strings.Builder
		for _, t := range toks {
			b.WriteString(t.lit)
		}
		return kindPlain, b.String()
	}

	switch {
	case wildcards == 1 && toks[len(toks)-1].wildcard == '*' && len(toks) == 2:
		return kindPrefix, toks[0].lit
	case wildcards == 1 && toks[0].wildcard == '*' && len(toks) == 2:
		return kindSuffix, toks[1].lit
	case wildcards == 2 && len(toks) == 3 &&
		toks[0].wildcard == '*' && toks[2].wildcard == '*':
		return kindContains, toks[1].lit
	}
	return kindPattern, s
}

// wildcardToRegex converts a wildcard string to an anchor-free regular
// expression. Forward slashes are escaped so the result can sit inside a
// slash-delimited regex literal.
func wildcardToRegex(s string) string {
	var b strings.Builder
	for _, t := range splitWildcards(s) {
		switch t.wildcard {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			quoted := regexp.QuoteMeta(t.lit)
			b.WriteString(strings.ReplaceAll(quoted, "/", `\/`))
		}
	}
	return b.String()
}

func (c *Converter) renderValue(rule sigma.Rule, qField string, value interface{}, mods modifiers) (rendered, error) {
	switch {
	case mods.hasCompare:
		return c.renderCompare(rule, qField, value, mods.compare)
	case mods.re:
		return c.renderRegex(rule, qField, value)
	case mods.cidr:
		return c.renderCIDR(rule, qField, value)
	}

	switch v := value.(type) {
	case nil:
		if c.d.FieldNullExpression == "" {
			return rendered{}, c.errFor(rule, CodeMissingExpression, "dialect defines no null comparison expression")
		}
		return rendered{text: dialect.Expand(c.d.FieldNullExpression, "field", qField)}, nil
	case bool:
		return rendered{text: qField + c.d.EqToken + c.d.BoolValue(v)}, nil
	case string:
		return c.renderString(rule, qField, v, mods)
	default:
		num, ok := formatNumber(value)
		if !ok {
			return rendered{}, c.errForf(rule, CodeInvalidValue, "value %v has unsupported type %T", value, value)
		}
		return rendered{text: qField + c.d.EqToken + num}, nil
	}
}

func (c *Converter) renderString(rule sigma.Rule, qField, value string, mods modifiers) (rendered, error) {
	kind, payload := classify(value)

	// Match-mode modifiers select a template for the parsed value directly.
	// Wrapping the raw text in wildcard characters instead would corrupt
	// values ending in a backslash, which re-parses as an escaped wildcard.
	if mods.contains || mods.startswith || mods.endswith {
		if kind != kindPlain {
			return c.renderWildcardPattern(rule, qField, value, mods)
		}
		var tmpl string
		switch {
		case mods.contains:
			tmpl = c.d.ContainsExpression
		case mods.startswith:
			tmpl = c.d.StartsWithExpression
		case mods.endswith:
			tmpl = c.d.EndsWithExpression
		}
		if tmpl == "" {
			return c.renderWildcardPattern(rule, qField, value, mods)
		}
		return rendered{text: dialect.Expand(tmpl, "field", qField, "value", c.d.QuoteString(payload))}, nil
	}

	var tmpl string
	switch kind {
	case kindPlain:
		return rendered{text: qField + c.d.EqToken + c.d.QuoteString(payload)}, nil
	case kindPrefix:
		tmpl = c.d.StartsWithExpression
	case kindSuffix:
		tmpl = c.d.EndsWithExpression
	case kindContains:
		tmpl = c.d.ContainsExpression
	}
	if kind != kindPattern && tmpl != "" {
		return rendered{text: dialect.Expand(tmpl, "field", qField, "value", c.d.QuoteString(payload))}, nil
	}
	return c.renderWildcardPattern(rule, qField, value, modifiers{})
}

// renderWildcardPattern handles values whose wildcards have no dedicated
// template, turning them into a regular expression match. Match-mode
// modifiers widen the expression with unanchored ends.
func (c *Converter) renderWildcardPattern(rule sigma.Rule, qField, value string, mods modifiers) (rendered, error) {
	regex := wildcardToRegex(value)
	switch {
	case mods.contains:
		regex = ".*" + regex + ".*"
	case mods.startswith:
		regex = regex + ".*"
	case mods.endswith:
		regex = ".*" + regex
	}
	if c.d.WildcardMatchStrExpression != "" {
		return rendered{text: dialect.Expand(c.d.WildcardMatchStrExpression, "field", qField, "value", regex)}, nil
	}
	if c.d.WildcardMatchExpression != "" {
		return rendered{text: dialect.Expand(c.d.WildcardMatchExpression, "field", qField, "value", c.d.QuoteString(regex))}, nil
	}
	return rendered{}, c.errFor(rule, CodeMissingExpression, "dialect defines no wildcard match expression")
}

func (c *Converter) renderRegex(rule sigma.Rule, qField string, value interface{}) (rendered, error) {
	s, ok := value.(string)
	if !ok {
		return rendered{}, c.errForf(rule, CodeInvalidValue, "re modifier requires a string value, got %T", value)
	}
	if c.d.RegexExpression == "" {
		return rendered{}, c.errFor(rule, CodeMissingExpression, "dialect defines no regular expression match")
	}
	return rendered{text: dialect.Expand(c.d.RegexExpression, "field", qField, "regex", c.d.EscapeRegex(s))}, nil
}

func (c *Converter) renderCompare(rule sigma.Rule, qField string, value interface{}, op dialect.CompareOp) (rendered, error) {
	if c.d.CompareOpExpression == "" {
		return rendered{}, c.errFor(rule, CodeMissingExpression, "dialect defines no numeric comparison expression")
	}
	tok, ok := c.d.CompareToken(op)
	if !ok {
		return rendered{}, c.errForf(rule, CodeMissingExpression, "dialect defines no %s comparison operator", op)
	}
	num, ok := formatNumber(value)
	if !ok {
		return rendered{}, c.errForf(rule, CodeInvalidValue, "comparison value %v is not numeric", value)
	}
	return rendered{text: dialect.Expand(c.d.CompareOpExpression,
		"field", qField,
		"operator", tok,
		"value", num)}, nil
}

func (c *Converter) renderCIDR(rule sigma.Rule, qField string, value interface{}) (rendered, error) {
	s, ok := value.(string)
	if !ok {
		return rendered{}, c.errForf(rule, CodeInvalidValue, "cidr modifier requires a string value, got %T", value)
	}

	if c.d.CIDRExpression != "" {
		return rendered{text: dialect.Expand(c.d.CIDRExpression,
			"field", qField,
			"value", c.d.QuoteString(s))}, nil
	}

	patterns, err := expandCIDR(s)
	if err != nil {
		return rendered{}, c.errForf(rule, CodeInvalidValue, "invalid CIDR range %q: %v", s, err)
	}
	frags := make([]rendered, 0, len(patterns))
	for _, pattern := range patterns {
		frag, err := c.renderString(rule, qField, pattern, modifiers{})
		if err != nil {
			return rendered{}, err
		}
		frags = append(frags, frag)
	}
	return c.join(dialect.OpOr, frags), nil
}

// formatNumber renders numeric values without quotes. Strings are accepted
// when they already parse as a number.
func formatNumber(value interface{}) (string, bool) {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case string:
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v, true
		}
	}
	return "", false
}

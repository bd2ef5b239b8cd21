package convert

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/dialect"
)

// modifiers is the parsed form of a field matcher's modifier chain.
type modifiers struct {
	contains     bool
	startswith   bool
	endswith     bool
	re           bool
	cidr         bool
	base64       bool
	base64offset bool
	all          bool
	exists       bool
	compare      dialect.CompareOp
	hasCompare   bool
}

func parseModifiers(names []string) (modifiers, error) {
	var m modifiers
	for _, name := range names {
		switch name {
		case "contains":
			m.contains = true
		case "startswith":
			m.startswith = true
		case "endswith":
			m.endswith = true
		case "re":
			m.re = true
		case "cidr":
			m.cidr = true
		case "base64":
			m.base64 = true
		case "base64offset":
			m.base64offset = true
		case "all":
			m.all = true
		case "exists":
			m.exists = true
		case "lt":
			m.compare, m.hasCompare = dialect.CompareLT, true
		case "lte":
			m.compare, m.hasCompare = dialect.CompareLTE, true
		case "gt":
			m.compare, m.hasCompare = dialect.CompareGT, true
		case "gte":
			m.compare, m.hasCompare = dialect.CompareGTE, true
		default:
			return m, &ConversionError{
				Code:    CodeUnsupportedModifier,
				Message: fmt.Sprintf("modifier %q is not supported", name),
			}
		}
	}
	return m, nil
}

// renderSearch renders one named search: event-matcher groups are
// alternatives, field matchers within a group are conjoined, and keywords
// (when present) are conjoined with the matcher part.
func (c *Converter) renderSearch(rule sigma.Rule, search sigma.Search, st *state) (rendered, error) {
	var frags []rendered

	if len(search.Keywords) > 0 {
		kw, err := c.renderKeywords(rule, search.Keywords)
		if err != nil {
			return rendered{}, err
		}
		frags = append(frags, kw)
	}

	if len(search.EventMatchers) > 0 {
		groups := make([]rendered, 0, len(search.EventMatchers))
		for _, matcher := range search.EventMatchers {
			fields := make([]rendered, 0, len(matcher))
			for _, fm := range matcher {
				frag, err := c.renderFieldMatcher(rule, fm, st)
				if err != nil {
					return rendered{}, err
				}
				fields = append(fields, frag)
			}
			if len(fields) == 0 {
				continue
			}
			groups = append(groups, c.join(dialect.OpAnd, fields))
		}
		if len(groups) > 0 {
			frags = append(frags, c.join(dialect.OpOr, groups))
		}
	}

	if len(frags) == 0 {
		return rendered{}, c.errFor(rule, CodeEmptyCondition, "search defines neither keywords nor field matchers")
	}
	return c.join(dialect.OpAnd, frags), nil
}

// renderKeywords renders field-less values through the dialect's unbound
// templates. Dialects without them cannot express keyword searches.
func (c *Converter) renderKeywords(rule sigma.Rule, keywords []string) (rendered, error) {
	if c.d.UnboundValueStrExpression == "" {
		return rendered{}, c.errFor(rule, CodeUnboundValue,
			"dialect defines no expression for values not bound to a field")
	}
	frags := make([]rendered, 0, len(keywords))
	for _, kw := range keywords {
		frags = append(frags, rendered{
			text: dialect.Expand(c.d.UnboundValueStrExpression, "value", c.d.QuoteString(kw)),
		})
	}
	return c.join(dialect.OpOr, frags), nil
}

func (c *Converter) renderFieldMatcher(rule sigma.Rule, fm sigma.FieldMatcher, st *state) (rendered, error) {
	mods, err := parseModifiers(fm.Modifiers)
	if err != nil {
		var convErr *ConversionError
		if errors.As(err, &convErr) {
			convErr.RuleID = rule.ID
			convErr.RuleTitle = rule.Title
		}
		return rendered{}, err
	}

	field := fm.Field
	if mapped, ok := c.fieldMappings[field]; ok {
		field = mapped
	}
	qField := c.d.Field(field)

	if mods.exists {
		return c.renderExists(rule, qField, fm.Values)
	}

	values := fm.Values
	if len(values) == 0 {
		return rendered{}, c.errForf(rule, CodeInvalidValue, "field %q has no values", fm.Field)
	}

	if mods.base64 || mods.base64offset {
		values, err = encodeBase64Values(rule, values, mods.base64offset, c)
		if err != nil {
			return rendered{}, err
		}
	}

	if frag, ok := c.tryInList(qField, values, mods); ok {
		return frag, nil
	}

	op := dialect.OpOr
	if mods.all {
		op = dialect.OpAnd
	}
	frags := make([]rendered, 0, len(values))
	for _, value := range values {
		frag, err := c.renderValue(rule, qField, value, mods)
		if err != nil {
			return rendered{}, err
		}
		frags = append(frags, frag)
	}
	return c.join(op, frags), nil
}

func (c *Converter) renderExists(rule sigma.Rule, qField string, values []interface{}) (rendered, error) {
	if c.d.FieldExistsExpression == "" {
		return rendered{}, c.errFor(rule, CodeMissingExpression, "dialect defines no field existence expression")
	}

	want := true
	if len(values) > 0 {
		switch v := values[0].(type) {
		case bool:
			want = v
		case string:
			want = strings.EqualFold(v, "true")
		}
	}

	if want {
		return rendered{text: dialect.Expand(c.d.FieldExistsExpression, "field", qField)}, nil
	}
	if c.d.FieldNotExistsExpression != "" {
		return rendered{text: dialect.Expand(c.d.FieldNotExistsExpression, "field", qField)}, nil
	}
	return rendered{
		text: c.d.Token(dialect.OpNot) + c.d.TokenSeparator +
			c.d.Group(dialect.Expand(c.d.FieldExistsExpression, "field", qField)),
		conn:      dialect.OpNot,
		composite: true,
	}, nil
}

// tryInList collapses a multi-value match into the dialect's in-list form
// when the dialect enables it and every value is a plain scalar.
func (c *Converter) tryInList(qField string, values []interface{}, mods modifiers) (rendered, bool) {
	if len(values) < 2 || c.d.FieldInListExpression == "" {
		return rendered{}, false
	}
	if mods.contains || mods.startswith || mods.endswith || mods.re || mods.cidr || mods.hasCompare {
		return rendered{}, false
	}

	var op string
	switch {
	case mods.all && c.d.ConvertAndAsIn:
		op = c.d.AndInOperator
	case !mods.all && c.d.ConvertOrAsIn:
		op = c.d.OrInOperator
	default:
		return rendered{}, false
	}

	parts := make([]string, 0, len(values))
	for _, value := range values {
		switch v := value.(type) {
		case string:
			kind, payload := classify(v)
			switch {
			case kind == kindPlain:
				parts = append(parts, c.d.QuoteString(payload))
			case c.d.InExpressionsAllowWildcards:
				parts = append(parts, c.d.QuoteString(v))
			default:
				return rendered{}, false
			}
		default:
			num, ok := formatNumber(value)
			if !ok {
				return rendered{}, false
			}
			parts = append(parts, num)
		}
	}

	return rendered{
		text: dialect.Expand(c.d.FieldInListExpression,
			"field", qField,
			"op", op,
			"list", strings.Join(parts, c.d.ListSeparator)),
	}, true
}

// encodeBase64Values rewrites each string value into its base64 form, or the
// three shifted alignments when offset matching is requested.
func encodeBase64Values(rule sigma.Rule, values []interface{}, offsets bool, c *Converter) ([]interface{}, error) {
	out := make([]interface{}, 0, len(values))
	for _, value := range values {
		s, ok := value.(string)
		if !ok {
			return nil, c.errFor(rule, CodeInvalidValue, "base64 modifiers require string values")
		}
		if !offsets {
			out = append(out, base64.StdEncoding.EncodeToString([]byte(s)))
			continue
		}
		for _, variant := range base64OffsetVariants(s) {
			out = append(out, variant)
		}
	}
	return out, nil
}

var (
	base64StartOffsets = [3]int{0, 2, 3}
	base64EndTrims     = [3]int{0, 3, 2}
)

// base64OffsetVariants encodes s at each of the three byte alignments and
// strips the characters that depend on the surrounding stream, so every
// variant is a stable substring of any base64 text embedding s.
func base64OffsetVariants(s string) []string {
	out := make([]string, 0, 3)
	for shift := 0; shift < 3; shift++ {
		enc := base64.StdEncoding.EncodeToString([]byte(strings.Repeat(" ", shift) + s))
		end := len(enc) - base64EndTrims[(len(s)+shift)%3]
		out = append(out, enc[base64StartOffsets[shift]:end])
	}
	return out
}

package dialect

import (
	"regexp"
	"strings"
)

// BoolOp identifies a boolean connective in a condition tree.
type BoolOp int

const (
	OpNot BoolOp = iota
	OpAnd
	OpOr
)

// String returns the canonical name of the connective.
func (op BoolOp) String() string {
	switch op {
	case OpNot:
		return "NOT"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "UNKNOWN"
	}
}

// CompareOp identifies a numeric comparison operator.
type CompareOp int

const (
	CompareLT CompareOp = iota
	CompareLTE
	CompareGT
	CompareGTE
)

// String returns the conventional symbol for the comparison operator.
func (op CompareOp) String() string {
	switch op {
	case CompareLT:
		return "<"
	case CompareLTE:
		return "<="
	case CompareGT:
		return ">"
	case CompareGTE:
		return ">="
	default:
		return "?"
	}
}

// QueryContext carries the rule-level data a dialect may need during query
// finalization. It deliberately exposes only plain values so dialects stay
// decoupled from the rule model.
type QueryContext struct {
	RuleID    string
	RuleTitle string
	Fields    []string // rule's requested output fields, may be empty
	Index     int      // position of this query within the rule's conditions
}

// Dialect is the full declarative table for one target query language.
//
// Empty template strings mean "this dialect has no native form for the
// predicate kind"; the renderer either falls back (wildcards, CIDR) or
// reports a conversion error (unbound values).
type Dialect struct {
	Name string

	// Precedence lists the boolean connectives tightest-binding first.
	// The renderer generates grouping when a looser operand appears under
	// a tighter connective.
	Precedence [3]BoolOp

	// GroupExpression is the grouping template with an {expr} placeholder.
	GroupExpression string

	// Parenthesize forces explicit grouping whenever connectives of
	// different kinds nest, even where precedence alone would disambiguate.
	Parenthesize bool

	// Boolean operator tokens.
	TokenSeparator string
	OrToken        string
	AndToken       string
	NotToken       string
	EqToken        string

	// Field quoting. A field name is quoted when FieldQuotePattern matches,
	// inverted by FieldQuotePatternNegation. A nil pattern disables quoting.
	FieldQuote                string
	FieldQuotePattern         *regexp.Regexp
	FieldQuotePatternNegation bool

	// String value quoting and escaping. EscapeChar prefixes StrQuote,
	// itself, and every character listed in AddEscaped. Characters in
	// FilterChars are dropped from values entirely.
	StrQuote    string
	EscapeChar  string
	AddEscaped  string
	FilterChars string

	// Native wildcard tokens, when the dialect has them. Both empty means
	// wildcarded values are rendered through the wildcard match templates.
	WildcardMulti  string
	WildcardSingle string

	// BoolValues maps boolean literals to dialect tokens.
	BoolValues map[bool]string

	// String matching templates, {field} and {value} placeholders.
	// Falls back to the eq token when a template is empty.
	StartsWithExpression       string
	EndsWithExpression         string
	ContainsExpression         string
	WildcardMatchExpression    string
	WildcardMatchStrExpression string

	// Regular expressions, {field} and {regex} placeholders.
	RegexExpression string
	RegexEscapeChar string
	RegexEscape     []string

	// CIDRExpression renders native CIDR matching with {field}, {value},
	// {network} and {prefixlen} placeholders. Empty means the renderer
	// expands CIDR values into wildcard string matches instead.
	CIDRExpression string

	// Numeric comparisons, {field}, {operator} and {value} placeholders.
	CompareOpExpression string
	CompareOperators    map[CompareOp]string

	// Null and existence checks, {field} placeholder. An empty
	// FieldNotExistsExpression negates FieldExistsExpression with NOT.
	FieldNullExpression      string
	FieldExistsExpression    string
	FieldNotExistsExpression string

	// In-list conversion. When ConvertOrAsIn (resp. ConvertAndAsIn) is set,
	// a multi-value field match collapses into FieldInListExpression with
	// {field}, {op} and {list} placeholders.
	ConvertOrAsIn               bool
	ConvertAndAsIn              bool
	InExpressionsAllowWildcards bool
	FieldInListExpression       string
	OrInOperator                string
	AndInOperator               string
	ListSeparator               string

	// Unbound (field-less) value templates, {value} placeholder. Empty
	// templates make keyword-only rules a conversion error.
	UnboundValueStrExpression string
	UnboundValueNumExpression string

	// Deferred query joining: DeferredStart separates the main query from
	// deferred parts, DeferredSeparator joins multiple parts, and
	// DeferredOnlyQuery stands in when nothing but deferred parts remain.
	DeferredStart     string
	DeferredSeparator string
	DeferredOnlyQuery string

	// FinalizeQuery wraps a rendered condition into the dialect's complete
	// statement. When nil the rendered condition is the query.
	FinalizeQuery func(ctx QueryContext, condition string) (string, error)

	// EscapeAndQuoteField replaces the generic field quoting logic.
	EscapeAndQuoteField func(field string) string
}

// Token returns the dialect token for a boolean connective.
func (d *Dialect) Token(op BoolOp) string {
	switch op {
	case OpNot:
		return d.NotToken
	case OpAnd:
		return d.AndToken
	default:
		return d.OrToken
	}
}

// precedence returns the binding strength of a connective: higher binds
// tighter. Connectives missing from the table bind loosest.
func (d *Dialect) precedence(op BoolOp) int {
	for i, p := range d.Precedence {
		if p == op {
			return len(d.Precedence) - i
		}
	}
	return 0
}

// NeedsGrouping reports whether a child connective must be wrapped in the
// group expression when rendered as an operand of parent.
func (d *Dialect) NeedsGrouping(child, parent BoolOp) bool {
	if d.precedence(child) < d.precedence(parent) {
		return true
	}
	return d.Parenthesize && child != parent
}

// Group wraps an already-rendered expression in the grouping template.
func (d *Dialect) Group(expr string) string {
	return Expand(d.GroupExpression, "expr", expr)
}

// Field escapes and quotes a field name for output. The dialect override
// wins; otherwise the quote pattern decides.
func (d *Dialect) Field(name string) string {
	if d.EscapeAndQuoteField != nil {
		return d.EscapeAndQuoteField(name)
	}
	if d.FieldQuotePattern == nil || d.FieldQuote == "" {
		return name
	}
	quote := d.FieldQuotePattern.MatchString(name)
	if d.FieldQuotePatternNegation {
		quote = !quote
	}
	if quote {
		return d.FieldQuote + name + d.FieldQuote
	}
	return name
}

// EscapeString escapes a plain string value without quoting it.
func (d *Dialect) EscapeString(s string) string {
	if d.FilterChars != "" {
		s = strings.Map(func(r rune) rune {
			if strings.ContainsRune(d.FilterChars, r) {
				return -1
			}
			return r
		}, s)
	}
	if d.EscapeChar == "" {
		return s
	}
	escaped := d.StrQuote + d.EscapeChar + d.AddEscaped
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(escaped, r) {
			b.WriteString(d.EscapeChar)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QuoteString escapes and quotes a string value for output.
func (d *Dialect) QuoteString(s string) string {
	return d.StrQuote + d.EscapeString(s) + d.StrQuote
}

// BoolValue returns the dialect token for a boolean literal.
func (d *Dialect) BoolValue(v bool) string {
	if tok, ok := d.BoolValues[v]; ok {
		return tok
	}
	if v {
		return "true"
	}
	return "false"
}

// CompareToken returns the dialect token for a comparison operator.
func (d *Dialect) CompareToken(op CompareOp) (string, bool) {
	tok, ok := d.CompareOperators[op]
	return tok, ok
}

// EscapeRegex escapes a regular expression per the dialect's regex escaping
// rules. The pattern itself is passed through otherwise untouched.
func (d *Dialect) EscapeRegex(pattern string) string {
	if d.RegexEscapeChar == "" {
		return pattern
	}
	targets := append([]string{}, d.RegexEscape...)
	var b strings.Builder
	for _, r := range pattern {
		s := string(r)
		escape := false
		for _, t := range targets {
			if s == t {
				escape = true
				break
			}
		}
		if escape {
			b.WriteString(d.RegexEscapeChar)
		}
		b.WriteString(s)
	}
	return b.String()
}

// Expand substitutes {name} placeholders in a template. Arguments are
// name/value pairs; an odd trailing argument is ignored.
func Expand(template string, pairs ...string) string {
	if len(pairs) < 2 {
		return template
	}
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}

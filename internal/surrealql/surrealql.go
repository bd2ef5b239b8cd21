// Package surrealql supplies the SurrealQL (SurrealDB 2.0) dialect table.
//
// The package contains no traversal logic of its own: everything here is
// either a declarative token/template value consumed by internal/convert, or
// one of two small formatting overrides (statement finalization and field
// name normalization).
package surrealql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/dialect"
)

// DefaultTable is the placeholder target emitted when no table name has been
// configured. Queries built against it are templates, not executable
// statements, and callers are expected to substitute a real table.
const DefaultTable = "<TABLE_NAME>"

// Options control the finalized statement shape.
type Options struct {
	// Table is the record target of the generated SELECT.
	Table string

	// SelectRuleFields emits the rule's fields list alongside * in the
	// projection instead of the bare *.
	SelectRuleFields bool
}

// Option mutates Options.
type Option func(*Options)

// WithTable sets the SELECT target table.
func WithTable(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.Table = name
		}
	}
}

// WithRuleFields enables projecting the rule's fields list.
func WithRuleFields() Option {
	return func(o *Options) { o.SelectRuleFields = true }
}

// plainFieldPattern matches field names that can appear unquoted.
var plainFieldPattern = regexp.MustCompile(`^[a-zA-Z0-9_]*$`)

// New builds the SurrealQL dialect table.
func New(opts ...Option) *dialect.Dialect {
	o := Options{Table: DefaultTable}
	for _, opt := range opts {
		opt(&o)
	}

	return &dialect.Dialect{
		Name: "surrealql",

		Precedence:      [3]dialect.BoolOp{dialect.OpNot, dialect.OpAnd, dialect.OpOr},
		GroupExpression: "({expr})",
		Parenthesize:    true,

		TokenSeparator: " ",
		OrToken:        "OR",
		AndToken:       "AND",
		NotToken:       "NOT",
		EqToken:        "=",

		FieldQuote:                "'",
		FieldQuotePattern:         plainFieldPattern,
		FieldQuotePatternNegation: true,

		StrQuote:   "'",
		EscapeChar: `\`,
		AddEscaped: `\`,

		// SurrealQL has no wildcard tokens; wildcarded values go through
		// the string:: functions or the regex match form below.
		BoolValues: map[bool]string{true: "TRUE", false: "FALSE"},

		StartsWithExpression:       "string::starts_with({field},{value})",
		EndsWithExpression:         "string::ends_with({field},{value})",
		ContainsExpression:         "string::contains({field},{value})",
		WildcardMatchExpression:    "string::matches({field},{value})",
		WildcardMatchStrExpression: "{field}=/{value}/",

		RegexExpression: "{field}=/{regex}/",

		CompareOpExpression: "{field} {operator} {value}",
		CompareOperators: map[dialect.CompareOp]string{
			dialect.CompareLT:  "<",
			dialect.CompareLTE: "<=",
			dialect.CompareGT:  ">",
			dialect.CompareGTE: ">=",
		},

		FieldNullExpression:      "{field} IS NULL",
		FieldExistsExpression:    "{field} IS NOT NONE",
		FieldNotExistsExpression: "{field} IS NONE",

		// Declared for completeness; or/and-as-in conversion stays off.
		FieldInListExpression: "{field} {op} [{list}]",
		OrInOperator:          "IN",
		AndInOperator:         "CONTAINSALL",
		ListSeparator:         ", ",

		FinalizeQuery:       finalizer(o),
		EscapeAndQuoteField: EscapeField,
	}
}

// EscapeField normalizes a field name by replacing spaces with underscores.
// The transform is total: it never fails and leaves all other characters
// untouched.
func EscapeField(field string) string {
	return strings.ReplaceAll(field, " ", "_")
}

// finalizer builds the statement wrapper for the configured options.
func finalizer(o Options) func(ctx dialect.QueryContext, condition string) (string, error) {
	return func(ctx dialect.QueryContext, condition string) (string, error) {
		projection := "*"
		if o.SelectRuleFields && len(ctx.Fields) > 0 {
			projection = "*, " + strings.Join(ctx.Fields, ", ")
		}
		return fmt.Sprintf("SELECT %s FROM %s WHERE %s;", projection, o.Table, condition), nil
	}
}

package dialect

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports a gap or contradiction in a dialect table.
type ConfigError struct {
	Dialect string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dialect %s: %s: %s", e.Dialect, e.Field, e.Message)
}

// Validate checks that the dialect table is internally consistent enough to
// render queries. It returns all problems found, joined.
func (d *Dialect) Validate() error {
	var errs []error

	report := func(field, message string) {
		errs = append(errs, &ConfigError{Dialect: d.Name, Field: field, Message: message})
	}

	if d.Name == "" {
		report("Name", "dialect name is required")
	}
	if d.EqToken == "" {
		report("EqToken", "equality token is required")
	}
	if d.AndToken == "" || d.OrToken == "" || d.NotToken == "" {
		report("Tokens", "all three boolean connective tokens are required")
	}
	if d.GroupExpression == "" || !strings.Contains(d.GroupExpression, "{expr}") {
		report("GroupExpression", "grouping template must contain {expr}")
	}

	// The precedence table must name each connective exactly once.
	seen := map[BoolOp]bool{}
	for _, op := range d.Precedence {
		if seen[op] {
			report("Precedence", fmt.Sprintf("connective %s listed twice", op))
		}
		seen[op] = true
	}
	for _, op := range []BoolOp{OpNot, OpAnd, OpOr} {
		if !seen[op] {
			report("Precedence", fmt.Sprintf("connective %s missing", op))
		}
	}

	for field, tmpl := range map[string]string{
		"StartsWithExpression":       d.StartsWithExpression,
		"EndsWithExpression":         d.EndsWithExpression,
		"ContainsExpression":         d.ContainsExpression,
		"WildcardMatchExpression":    d.WildcardMatchExpression,
		"WildcardMatchStrExpression": d.WildcardMatchStrExpression,
	} {
		if tmpl != "" && !strings.Contains(tmpl, "{field}") {
			report(field, "template must contain {field}")
		}
		if tmpl != "" && !strings.Contains(tmpl, "{value}") {
			report(field, "template must contain {value}")
		}
	}
	if d.RegexExpression != "" && !strings.Contains(d.RegexExpression, "{regex}") {
		report("RegexExpression", "template must contain {regex}")
	}
	if d.CompareOpExpression != "" && !strings.Contains(d.CompareOpExpression, "{operator}") {
		report("CompareOpExpression", "template must contain {operator}")
	}
	if d.ConvertOrAsIn && (d.FieldInListExpression == "" || d.OrInOperator == "") {
		report("ConvertOrAsIn", "in-list template and OR operator required when OR-as-in is enabled")
	}
	if d.ConvertAndAsIn && (d.FieldInListExpression == "" || d.AndInOperator == "") {
		report("ConvertAndAsIn", "in-list template and AND operator required when AND-as-in is enabled")
	}
	if d.FieldInListExpression != "" && !strings.Contains(d.FieldInListExpression, "{list}") {
		report("FieldInListExpression", "template must contain {list}")
	}

	return errors.Join(errs...)
}

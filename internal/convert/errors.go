package convert

import "fmt"

// Code categorizes conversion errors.
type Code string

const (
	// CodeEmptyCondition indicates a rule without usable conditions.
	CodeEmptyCondition Code = "EMPTY_CONDITION"

	// CodeUnknownIdentifier indicates a condition referencing a search
	// that the rule does not define.
	CodeUnknownIdentifier Code = "UNKNOWN_IDENTIFIER"

	// CodeUnsupportedModifier indicates a field modifier the renderer
	// cannot express.
	CodeUnsupportedModifier Code = "UNSUPPORTED_MODIFIER"

	// CodeUnsupportedCondition indicates a condition construct outside the
	// supported tree grammar.
	CodeUnsupportedCondition Code = "UNSUPPORTED_CONDITION"

	// CodeUnboundValue indicates a keyword (field-less) value in a dialect
	// without unbound value templates.
	CodeUnboundValue Code = "UNBOUND_VALUE"

	// CodeAggregation indicates an aggregation condition; none are
	// convertible to a plain filter query.
	CodeAggregation Code = "AGGREGATION_UNSUPPORTED"

	// CodeInvalidValue indicates a value incompatible with its modifiers.
	CodeInvalidValue Code = "INVALID_VALUE"

	// CodeMissingExpression indicates the dialect declares no template for
	// a required predicate kind.
	CodeMissingExpression Code = "MISSING_EXPRESSION"
)

// ConversionError reports a rule that could not be converted, with enough
// context to locate the offending construct.
type ConversionError struct {
	Code      Code
	RuleID    string
	RuleTitle string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	switch {
	case e.RuleID != "":
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.RuleID)
	case e.RuleTitle != "":
		return fmt.Sprintf("%s: %s (rule=%q)", e.Code, e.Message, e.RuleTitle)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error, if any.
func (e *ConversionError) Unwrap() error { return e.Err }

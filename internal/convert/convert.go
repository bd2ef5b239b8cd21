package convert

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/dialect"
)

// Converter renders Sigma rules through one dialect table.
type Converter struct {
	d *dialect.Dialect

	// fieldMappings rewrites rule field names before dialect escaping.
	fieldMappings map[string]string
}

// Option configures a Converter.
type Option func(*Converter)

// WithFieldMappings installs field-name rewrites applied before conversion.
func WithFieldMappings(mappings map[string]string) Option {
	return func(c *Converter) { c.fieldMappings = mappings }
}

// New creates a Converter bound to a dialect.
func New(d *dialect.Dialect, opts ...Option) *Converter {
	c := &Converter{d: d}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rendered is one rendered subtree plus the shape information the parent
// needs to decide grouping.
type rendered struct {
	text      string
	conn      dialect.BoolOp
	composite bool // true when text joins multiple operands
}

// state accumulates per-condition conversion state, currently the deferred
// query parts appended after the main rendered condition.
type state struct {
	deferred []string
}

func (s *state) addDeferred(part string) {
	s.deferred = append(s.deferred, part)
}

// ConvertRule renders every condition of the rule, producing one query per
// condition in declaration order.
func (c *Converter) ConvertRule(rule sigma.Rule) ([]string, error) {
	if len(rule.Detection.Conditions) == 0 {
		return nil, c.errFor(rule, CodeEmptyCondition, "rule defines no condition")
	}

	queries := make([]string, 0, len(rule.Detection.Conditions))
	for i, cond := range rule.Detection.Conditions {
		query, err := c.convertCondition(rule, cond, i)
		if err != nil {
			return nil, err
		}
		queries = append(queries, query)
	}

	slog.Debug("rule converted",
		"rule_id", rule.ID,
		"title", rule.Title,
		"queries", len(queries))
	return queries, nil
}

// convertCondition renders a single condition and finalizes it through the
// dialect callback.
func (c *Converter) convertCondition(rule sigma.Rule, cond sigma.Condition, index int) (string, error) {
	if cond.Aggregation != nil {
		return "", c.errFor(rule, CodeAggregation, "aggregation conditions cannot be rendered as a filter query")
	}
	if cond.Search == nil {
		return "", c.errFor(rule, CodeEmptyCondition, "condition has no search expression")
	}

	st := &state{}
	frag, err := c.renderExpr(rule, cond.Search, st)
	if err != nil {
		return "", err
	}

	query := c.joinDeferred(frag.text, st)
	if query == "" {
		return "", c.errFor(rule, CodeEmptyCondition, "condition rendered to an empty query")
	}

	if c.d.FinalizeQuery != nil {
		ctx := dialect.QueryContext{
			RuleID:    rule.ID,
			RuleTitle: rule.Title,
			Fields:    ruleFields(rule),
			Index:     index,
		}
		query, err = c.d.FinalizeQuery(ctx, query)
		if err != nil {
			return "", &ConversionError{
				Code:      CodeUnsupportedCondition,
				RuleID:    rule.ID,
				RuleTitle: rule.Title,
				Message:   "query finalization failed",
				Err:       err,
			}
		}
	}

	return query, nil
}

// ruleFields extracts the rule's output fields list. The rule model keeps
// unrecognized top-level keys in AdditionalFields, so "fields:" arrives as a
// []interface{} there; non-string entries are skipped.
func ruleFields(rule sigma.Rule) []string {
	raw, ok := rule.AdditionalFields["fields"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			fields = append(fields, s)
		}
	}
	return fields
}

// joinDeferred appends collected deferred parts to the main query per the
// dialect's deferred configuration.
func (c *Converter) joinDeferred(query string, st *state) string {
	if len(st.deferred) == 0 {
		return query
	}
	joined := strings.Join(st.deferred, c.d.DeferredSeparator)
	if query == "" {
		return c.d.DeferredOnlyQuery + c.d.DeferredStart + joined
	}
	return query + c.d.DeferredStart + joined
}

// renderExpr walks one condition-tree node.
func (c *Converter) renderExpr(rule sigma.Rule, expr sigma.SearchExpr, st *state) (rendered, error) {
	switch node := expr.(type) {
	case sigma.SearchIdentifier:
		return c.renderIdentifier(rule, node.Name, st)
	case *sigma.SearchIdentifier:
		return c.renderIdentifier(rule, node.Name, st)

	case sigma.And:
		return c.renderConnective(rule, dialect.OpAnd, []sigma.SearchExpr(node), st)
	case sigma.Or:
		return c.renderConnective(rule, dialect.OpOr, []sigma.SearchExpr(node), st)

	case sigma.Not:
		return c.renderNot(rule, node.Expr, st)
	case *sigma.Not:
		return c.renderNot(rule, node.Expr, st)

	case sigma.AllOfThem:
		return c.renderOfNames(rule, dialect.OpAnd, c.searchNames(rule), st)
	case sigma.OneOfThem:
		return c.renderOfNames(rule, dialect.OpOr, c.searchNames(rule), st)

	case sigma.AllOfPattern:
		return c.renderOfPattern(rule, dialect.OpAnd, node.Pattern, st)
	case sigma.OneOfPattern:
		return c.renderOfPattern(rule, dialect.OpOr, node.Pattern, st)

	default:
		return rendered{}, c.errForf(rule, CodeUnsupportedCondition, "unsupported condition construct %T", expr)
	}
}

func (c *Converter) renderIdentifier(rule sigma.Rule, name string, st *state) (rendered, error) {
	search, ok := rule.Detection.Searches[name]
	if !ok {
		return rendered{}, c.errForf(rule, CodeUnknownIdentifier, "condition references undefined search %q", name)
	}
	return c.renderSearch(rule, search, st)
}

func (c *Converter) renderConnective(rule sigma.Rule, op dialect.BoolOp, args []sigma.SearchExpr, st *state) (rendered, error) {
	if len(args) == 0 {
		return rendered{}, c.errFor(rule, CodeEmptyCondition, "empty boolean group in condition")
	}

	frags := make([]rendered, 0, len(args))
	for _, arg := range args {
		frag, err := c.renderExpr(rule, arg, st)
		if err != nil {
			return rendered{}, err
		}
		frags = append(frags, frag)
	}
	return c.join(op, frags), nil
}

func (c *Converter) renderNot(rule sigma.Rule, arg sigma.SearchExpr, st *state) (rendered, error) {
	frag, err := c.renderExpr(rule, arg, st)
	if err != nil {
		return rendered{}, err
	}
	operand := frag.text
	if frag.composite {
		operand = c.d.Group(operand)
	}
	return rendered{
		text:      c.d.Token(dialect.OpNot) + c.d.TokenSeparator + operand,
		conn:      dialect.OpNot,
		composite: true,
	}, nil
}

// renderOfNames renders an all-of/one-of quantifier over explicit names.
func (c *Converter) renderOfNames(rule sigma.Rule, op dialect.BoolOp, names []string, st *state) (rendered, error) {
	if len(names) == 0 {
		return rendered{}, c.errFor(rule, CodeEmptyCondition, "quantifier matched no searches")
	}
	frags := make([]rendered, 0, len(names))
	for _, name := range names {
		frag, err := c.renderIdentifier(rule, name, st)
		if err != nil {
			return rendered{}, err
		}
		frags = append(frags, frag)
	}
	return c.join(op, frags), nil
}

func (c *Converter) renderOfPattern(rule sigma.Rule, op dialect.BoolOp, pattern string, st *state) (rendered, error) {
	var names []string
	for _, name := range c.searchNames(rule) {
		if ok, _ := path.Match(pattern, name); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return rendered{}, c.errForf(rule, CodeUnknownIdentifier, "quantifier pattern %q matched no searches", pattern)
	}
	return c.renderOfNames(rule, op, names, st)
}

// searchNames returns the rule's search identifiers in deterministic order.
func (c *Converter) searchNames(rule sigma.Rule) []string {
	names := make([]string, 0, len(rule.Detection.Searches))
	for name := range rule.Detection.Searches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// join combines operand fragments under one connective, grouping operands
// whose own connective binds looser than the parent.
func (c *Converter) join(op dialect.BoolOp, frags []rendered) rendered {
	if len(frags) == 1 {
		return frags[0]
	}
	sep := c.d.TokenSeparator + c.d.Token(op) + c.d.TokenSeparator
	parts := make([]string, 0, len(frags))
	for _, frag := range frags {
		parts = append(parts, c.embed(frag, op))
	}
	return rendered{
		text:      strings.Join(parts, sep),
		conn:      op,
		composite: true,
	}
}

// embed renders an operand for inclusion under a parent connective.
// NOT operands never need extra grouping: the NOT rendering already wraps
// composite arguments.
func (c *Converter) embed(frag rendered, parent dialect.BoolOp) string {
	if !frag.composite || frag.conn == dialect.OpNot {
		return frag.text
	}
	if c.d.NeedsGrouping(frag.conn, parent) {
		return c.d.Group(frag.text)
	}
	return frag.text
}

func (c *Converter) errFor(rule sigma.Rule, code Code, message string) error {
	return &ConversionError{
		Code:      code,
		RuleID:    rule.ID,
		RuleTitle: rule.Title,
		Message:   message,
	}
}

func (c *Converter) errForf(rule sigma.Rule, code Code, format string, args ...any) error {
	return c.errFor(rule, code, fmt.Sprintf(format, args...))
}

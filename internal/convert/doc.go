// Package convert renders parsed Sigma rules into target-language queries.
//
// The condition tree comes from sigma-go; this package walks it and emits
// text using only what the bound dialect table declares: connective tokens,
// predicate templates, escaping rules, and the precedence order that decides
// where explicit grouping is required. The walk itself is dialect-agnostic.
//
// One rule produces one query per condition. Constructs the dialect cannot
// express (keyword-only searches without unbound templates, aggregations,
// unsupported value modifiers) surface as ConversionError values carrying
// the rule identity and an error code.
package convert

// Package dialect defines the declarative configuration consumed by the
// query renderer to emit one target query language.
//
// A Dialect is pure data: operator tokens, format-string templates keyed by
// predicate kind, escaping and quoting characters, and the precedence order
// of the boolean connectives. It owns no traversal logic. The renderer in
// internal/convert walks a condition tree and consults the Dialect for every
// textual decision, so adding a new target language is a matter of filling
// in another table (see internal/surrealql for the shipped one).
//
// Two optional callbacks let a dialect override behavior that cannot be
// expressed as a template: FinalizeQuery wraps a rendered condition into the
// dialect's complete statement, and EscapeAndQuoteField replaces the generic
// field quoting logic.
package dialect

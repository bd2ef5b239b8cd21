// Package catalog provides durable storage of conversion results.
// Uses SQLite with WAL mode for concurrent read access.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Catalog records which rules were converted, when, and into which queries.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens a catalog database at the given path.
// Applies required pragmas and migrations automatically; the function is
// idempotent and safe to call on an existing catalog.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// No incremental migrations yet; version 1 is fully described by
	// schema.sql.

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Record is one rule conversion to be stored: the rule's identity plus every
// query it produced.
type Record struct {
	RuleID     string
	RuleTitle  string
	RulePath   string
	RuleSHA256 string
	Dialect    string
	Queries    []string
}

// Entry is one stored query row.
type Entry struct {
	ID          int64
	RuleID      string
	RuleTitle   string
	RulePath    string
	RuleSHA256  string
	Dialect     string
	QueryIndex  int
	Query       string
	ConvertedAt time.Time
}

// Store writes a conversion record, replacing earlier rows for the same rule
// content and dialect.
func (c *Catalog) Store(ctx context.Context, rec Record) error {
	if len(rec.Queries) == 0 {
		return fmt.Errorf("record for %q has no queries", rec.RuleTitle)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Drop rows beyond the new query count so a rule that shrank from three
	// conditions to two does not keep a stale third row.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversions WHERE rule_sha256 = ? AND dialect = ?`,
		rec.RuleSHA256, rec.Dialect,
	); err != nil {
		return fmt.Errorf("clear previous rows: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, query := range rec.Queries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversions
				(rule_id, rule_title, rule_path, rule_sha256, dialect, query_index, query, converted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RuleID, rec.RuleTitle, rec.RulePath, rec.RuleSHA256, rec.Dialect, i, query, now,
		); err != nil {
			return fmt.Errorf("insert query %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns all stored entries, newest conversions first, queries of one
// rule in index order.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	return c.query(ctx, `
		SELECT id, rule_id, rule_title, rule_path, rule_sha256, dialect, query_index, query, converted_at
		FROM conversions
		ORDER BY converted_at DESC, rule_sha256, query_index`)
}

// ByRule returns the stored entries for one rule UUID in index order.
func (c *Catalog) ByRule(ctx context.Context, ruleID string) ([]Entry, error) {
	return c.query(ctx, `
		SELECT id, rule_id, rule_title, rule_path, rule_sha256, dialect, query_index, query, converted_at
		FROM conversions
		WHERE rule_id = ?
		ORDER BY converted_at DESC, query_index`, ruleID)
}

func (c *Catalog) query(ctx context.Context, stmt string, args ...any) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var converted string
		if err := rows.Scan(&e.ID, &e.RuleID, &e.RuleTitle, &e.RulePath, &e.RuleSHA256,
			&e.Dialect, &e.QueryIndex, &e.Query, &converted); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.ConvertedAt, err = time.Parse(time.RFC3339Nano, converted); err != nil {
			return nil, fmt.Errorf("parse converted_at %q: %w", converted, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

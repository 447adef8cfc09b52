package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN enables foreign keys and a busy timeout on every pooled connection,
// not just the first one a PRAGMA would reach.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	if strings.Contains(config.Path, "?") {
		return config.Path + "&" + params
	}
	return config.Path + "?" + params
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) SupportsReturning() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// SQLite has a single writer; one connection avoids SQLITE_BUSY on
	// concurrent upserts and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return nil
}

func (d *SQLiteDialect) Extensions() []string {
	return nil
}

func (d *SQLiteDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS families (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS children (
			id TEXT PRIMARY KEY,
			family_id TEXT NOT NULL REFERENCES families(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			yob INTEGER,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_children_family ON children (family_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS rules (
			id TEXT PRIMARY KEY,
			family_id TEXT NOT NULL REFERENCES families(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			daily_minutes INTEGER NOT NULL CHECK (daily_minutes > 0),
			bedtime TEXT NOT NULL,
			whitelist TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (family_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS usage_events (
			id TEXT PRIMARY KEY,
			family_id TEXT NOT NULL REFERENCES families(id) ON DELETE CASCADE,
			child_id TEXT REFERENCES children(id) ON DELETE SET NULL,
			platform TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_events_family ON usage_events (family_id, created_at)`,
	}
}

func (d *SQLiteDialect) UpsertRuleQuery() string {
	return onConflictRuleUpsert + ruleReturning
}

func (d *SQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func (d *SQLiteDialect) IsForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

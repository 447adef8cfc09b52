package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	// PostgreSQL uses $1, $2, etc. instead of ?
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) SupportsReturning() bool {
	return true
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// PostgreSQL has foreign keys enabled by default, no pragma needed
	return nil
}

// Extensions enables gen_random_uuid() on servers older than 13. Some hosted
// tiers refuse CREATE EXTENSION, which Bootstrap tolerates.
func (d *PostgresDialect) Extensions() []string {
	return []string{`CREATE EXTENSION IF NOT EXISTS pgcrypto`}
}

func (d *PostgresDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS families (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS children (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			family_id UUID NOT NULL REFERENCES families(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			yob INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_children_family ON children (family_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS rules (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			family_id UUID NOT NULL REFERENCES families(id) ON DELETE CASCADE,
			platform TEXT NOT NULL,
			daily_minutes INTEGER NOT NULL CHECK (daily_minutes > 0),
			bedtime TEXT NOT NULL,
			whitelist JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (family_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS usage_events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			family_id UUID NOT NULL REFERENCES families(id) ON DELETE CASCADE,
			child_id UUID REFERENCES children(id) ON DELETE SET NULL,
			platform TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_events_family ON usage_events (family_id, created_at)`,
	}
}

func (d *PostgresDialect) UpsertRuleQuery() string {
	return onConflictRuleUpsert + ruleReturning
}

func (d *PostgresDialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (d *PostgresDialect) IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// Name returns a short identifier such as "postgres"
	Name() string

	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsReturning reports whether INSERT ... RETURNING can be used
	SupportsReturning() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// Extensions lists statements enabling optional store capabilities.
	// Failures are tolerated by Bootstrap.
	Extensions() []string

	// SchemaStatements returns idempotent DDL for every table and index
	SchemaStatements() []string

	// UpsertRuleQuery returns a single-statement insert-or-update for a rule
	// keyed on (family_id, platform). Arguments: id, family_id, platform,
	// daily_minutes, bedtime, whitelist, updated_at.
	UpsertRuleQuery() string

	// IsUniqueViolation reports whether err came from a unique constraint
	IsUniqueViolation(err error) bool

	// IsForeignKeyViolation reports whether err came from a foreign key constraint
	IsForeignKeyViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders not inside quotes
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

const ruleInsertColumns = `INSERT INTO rules (id, family_id, platform, daily_minutes, bedtime, whitelist, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

// onConflictRuleUpsert is shared by PostgreSQL and SQLite, which both accept
// the ON CONFLICT ... DO UPDATE form with the excluded pseudo-table.
const onConflictRuleUpsert = ruleInsertColumns + `
		ON CONFLICT (family_id, platform) DO UPDATE SET
			daily_minutes = excluded.daily_minutes,
			bedtime = excluded.bedtime,
			whitelist = excluded.whitelist,
			updated_at = excluded.updated_at`

// ruleReturning hands the stored row back from the upsert statement itself
const ruleReturning = `
		RETURNING id, platform, daily_minutes, bedtime, whitelist, updated_at`

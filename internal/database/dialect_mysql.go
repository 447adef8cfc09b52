package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string {
	return "mysql"
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN forces parseTime so DATETIME columns scan into time.Time
func (d *MySQLDialect) DSN(config DialectConfig) string {
	cfg, err := mysql.ParseDSN(config.URL)
	if err != nil {
		// Let sql.Open report the malformed DSN
		return config.URL
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	// MySQL uses ? placeholders like SQLite, no rewrite needed
	return query
}

func (d *MySQLDialect) SupportsReturning() bool {
	return false
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *MySQLDialect) Extensions() []string {
	return nil
}

func (d *MySQLDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS families (
			id CHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		)`,
		`CREATE TABLE IF NOT EXISTS children (
			id CHAR(36) PRIMARY KEY,
			family_id CHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			yob INT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_children_family (family_id, created_at),
			CONSTRAINT fk_children_family FOREIGN KEY (family_id) REFERENCES families(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS rules (
			id CHAR(36) PRIMARY KEY,
			family_id CHAR(36) NOT NULL,
			platform VARCHAR(64) NOT NULL,
			daily_minutes INT NOT NULL CHECK (daily_minutes > 0),
			bedtime VARCHAR(16) NOT NULL,
			whitelist JSON NOT NULL,
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY uq_rules_family_platform (family_id, platform),
			CONSTRAINT fk_rules_family FOREIGN KEY (family_id) REFERENCES families(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS usage_events (
			id CHAR(36) PRIMARY KEY,
			family_id CHAR(36) NOT NULL,
			child_id CHAR(36) NULL,
			platform VARCHAR(64) NOT NULL,
			kind VARCHAR(64) NOT NULL,
			payload JSON NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_usage_events_family (family_id, created_at),
			CONSTRAINT fk_usage_events_family FOREIGN KEY (family_id) REFERENCES families(id) ON DELETE CASCADE,
			CONSTRAINT fk_usage_events_child FOREIGN KEY (child_id) REFERENCES children(id) ON DELETE SET NULL
		)`,
	}
}

func (d *MySQLDialect) UpsertRuleQuery() string {
	return ruleInsertColumns + `
		ON DUPLICATE KEY UPDATE
			daily_minutes = VALUES(daily_minutes),
			bedtime = VALUES(bedtime),
			whitelist = VALUES(whitelist),
			updated_at = VALUES(updated_at)`
}

func (d *MySQLDialect) IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}

func (d *MySQLDialect) IsForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrNoReferencedRow
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"kidshield/internal/database"
	"kidshield/internal/models"
)

// BackupVersion is written into every export and checked on import
const BackupVersion = "1"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string         `json:"version"`
	ExportedAt   time.Time      `json:"exported_at"`
	DatabaseType string         `json:"database_type"`
	Families     []FamilyBackup `json:"families"`
	Children     []ChildBackup  `json:"children"`
	Rules        []RuleBackup   `json:"rules"`
	UsageEvents  []EventBackup  `json:"usage_events"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChildBackup represents a child record for backup
type ChildBackup struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	Name      string    `json:"name"`
	YOB       *int      `json:"yob"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleBackup represents a rule record for backup
type RuleBackup struct {
	ID           string          `json:"id"`
	FamilyID     string          `json:"family_id"`
	Platform     string          `json:"platform"`
	DailyMinutes int             `json:"daily_minutes"`
	Bedtime      string          `json:"bedtime"`
	Whitelist    json.RawMessage `json:"whitelist"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// EventBackup represents a usage event for backup
type EventBackup struct {
	ID        string          `json:"id"`
	FamilyID  string          `json:"family_id"`
	ChildID   *string         `json:"child_id"`
	Platform  string          `json:"platform"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger zerolog.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func queryAll[T any](ctx context.Context, db database.DBTX, query string, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Export writes every family, child, rule and usage event to w as JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
	}

	var err error
	backup.Families, err = queryAll(ctx, s.db,
		"SELECT id, email, password_hash, created_at FROM families ORDER BY created_at, id",
		func(row rowScanner) (FamilyBackup, error) {
			var f FamilyBackup
			err := row.Scan(&f.ID, &f.Email, &f.PasswordHash, &f.CreatedAt)
			return f, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}

	backup.Children, err = queryAll(ctx, s.db,
		"SELECT id, family_id, name, yob, created_at FROM children ORDER BY created_at, id",
		func(row rowScanner) (ChildBackup, error) {
			var (
				c   ChildBackup
				yob sql.NullInt64
			)
			if err := row.Scan(&c.ID, &c.FamilyID, &c.Name, &yob, &c.CreatedAt); err != nil {
				return c, err
			}
			if yob.Valid {
				v := int(yob.Int64)
				c.YOB = &v
			}
			return c, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to export children: %w", err)
	}

	backup.Rules, err = queryAll(ctx, s.db,
		"SELECT id, family_id, platform, daily_minutes, bedtime, whitelist, updated_at FROM rules ORDER BY family_id, platform",
		func(row rowScanner) (RuleBackup, error) {
			var (
				rb        RuleBackup
				whitelist []byte
			)
			err := row.Scan(&rb.ID, &rb.FamilyID, &rb.Platform, &rb.DailyMinutes, &rb.Bedtime, &whitelist, &rb.UpdatedAt)
			rb.Whitelist = models.StoredWhitelist(whitelist)
			return rb, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to export rules: %w", err)
	}

	backup.UsageEvents, err = queryAll(ctx, s.db,
		"SELECT id, family_id, child_id, platform, kind, payload, created_at FROM usage_events ORDER BY created_at, id",
		func(row rowScanner) (EventBackup, error) {
			var (
				e       EventBackup
				childID sql.NullString
				payload []byte
			)
			if err := row.Scan(&e.ID, &e.FamilyID, &childID, &e.Platform, &e.Kind, &payload, &e.CreatedAt); err != nil {
				return e, err
			}
			if childID.Valid {
				e.ChildID = &childID.String
			}
			e.Payload = normalizePayload(payload)
			return e, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to export usage events: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info().
		Int("families", len(backup.Families)).
		Int("children", len(backup.Children)).
		Int("rules", len(backup.Rules)).
		Int("usage_events", len(backup.UsageEvents)).
		Msg("database exported")
	return backup, nil
}

// Import restores a backup read from r in one transaction. With clearData
// every existing row is deleted first; otherwise rows whose ids already
// exist make the import fail and nothing is written.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clearData bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if clearData {
		// reverse order of dependencies
		for i := len(database.Tables) - 1; i >= 0; i-- {
			table := database.Tables[i]
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
		}
	}

	for _, f := range backup.Families {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO families (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
			f.ID, f.Email, f.PasswordHash, f.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to import family %s: %w", f.ID, err)
		}
	}

	for _, c := range backup.Children {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO children (id, family_id, name, yob, created_at) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.FamilyID, c.Name, c.YOB, c.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to import child %s: %w", c.ID, err)
		}
	}

	for _, rb := range backup.Rules {
		whitelist, err := models.NormalizeWhitelist(rb.Whitelist)
		if err != nil {
			return fmt.Errorf("failed to import rule %s: %w", rb.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO rules (id, family_id, platform, daily_minutes, bedtime, whitelist, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			rb.ID, rb.FamilyID, rb.Platform, rb.DailyMinutes, rb.Bedtime, string(whitelist), rb.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to import rule %s: %w", rb.ID, err)
		}
	}

	for _, e := range backup.UsageEvents {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO usage_events (id, family_id, child_id, platform, kind, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			e.ID, e.FamilyID, e.ChildID, e.Platform, e.Kind, string(normalizePayload(e.Payload)), e.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to import usage event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.logger.Info().
		Int("families", len(backup.Families)).
		Int("children", len(backup.Children)).
		Int("rules", len(backup.Rules)).
		Int("usage_events", len(backup.UsageEvents)).
		Bool("cleared", clearData).
		Msg("database imported")
	return nil
}

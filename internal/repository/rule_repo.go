package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kidshield/internal/database"
	"kidshield/internal/models"
)

const ruleColumns = "id, platform, daily_minutes, bedtime, whitelist, updated_at"

// RuleRepository handles database operations for per-platform rules
type RuleRepository struct {
	db database.DBTX
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db database.DBTX) *RuleRepository {
	return &RuleRepository{db: db}
}

// UpsertRule writes the rule for (familyID, platform) and returns the row as
// this call stored it. Concurrent writers for the same pair are serialized by
// the store's unique constraint; the row id survives updates. whitelist must already be a
// normalized JSON array.
func (r *RuleRepository) UpsertRule(ctx context.Context, familyID, platform string, dailyMinutes int, bedtime string, whitelist []byte) (*models.Rule, error) {
	dialect := r.db.GetDialect()
	args := []any{
		uuid.NewString(),
		familyID,
		platform,
		dailyMinutes,
		bedtime,
		string(whitelist),
		time.Now().UTC(),
	}

	if dialect.SupportsReturning() {
		rule, err := scanRule(r.db.QueryRowContext(ctx, dialect.UpsertRuleQuery(), args...))
		if err != nil {
			return nil, fmt.Errorf("failed to upsert rule: %w", classify(r.db, err))
		}
		rule.FamilyID = familyID
		return rule, nil
	}

	// Without RETURNING the read-back shares the write's transaction so it
	// sees this statement's row rather than a later writer's.
	if db, ok := r.db.(*database.DB); ok {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin rule upsert: %w", err)
		}
		defer tx.Rollback()

		rule, err := NewRuleRepository(tx).UpsertRule(ctx, familyID, platform, dailyMinutes, bedtime, whitelist)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit rule upsert: %w", err)
		}
		return rule, nil
	}

	if _, err := r.db.ExecContext(ctx, dialect.UpsertRuleQuery(), args...); err != nil {
		return nil, fmt.Errorf("failed to upsert rule: %w", classify(r.db, err))
	}

	rule, err := r.GetRule(ctx, familyID, platform)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("failed to upsert rule: row for %s vanished", platform)
	}
	return rule, nil
}

// GetRule retrieves the rule for a platform, or nil if the family has none
func (r *RuleRepository) GetRule(ctx context.Context, familyID, platform string) (*models.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM rules WHERE family_id = ? AND platform = ?"
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, familyID, platform))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	rule.FamilyID = familyID
	return rule, nil
}

// ListRules retrieves every rule of a family ordered by platform
func (r *RuleRepository) ListRules(ctx context.Context, familyID string) ([]models.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM rules WHERE family_id = ? ORDER BY platform ASC"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rules := []models.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.FamilyID = familyID
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var (
		rule      models.Rule
		whitelist []byte
	)
	if err := row.Scan(&rule.ID, &rule.Platform, &rule.DailyMinutes, &rule.Bedtime, &whitelist, database.Timestamp{Time: &rule.UpdatedAt}); err != nil {
		return nil, err
	}
	rule.Whitelist = models.StoredWhitelist(whitelist)
	return &rule, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidshield/internal/database"
	"kidshield/internal/models"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Bootstrap(context.Background(), zerolog.Nop()))
	return db
}

func createFamily(t *testing.T, db *database.DB, email string) *models.Family {
	t.Helper()
	family, err := NewFamilyRepository(db).CreateFamily(context.Background(), email, "hash")
	require.NoError(t, err)
	return family
}

func countRows(t *testing.T, db *database.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestFamilyRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewFamilyRepository(db)
	ctx := context.Background()

	created, err := repo.CreateFamily(ctx, "a@x.com", "hash")
	require.NoError(t, err)
	_, err = uuid.Parse(created.ID)
	assert.NoError(t, err)

	_, err = repo.CreateFamily(ctx, "a@x.com", "other")
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := repo.GetFamilyByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	missing, err := repo.GetFamilyByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChildRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewChildRepository(db)
	ctx := context.Background()
	family := createFamily(t, db, "a@x.com")
	other := createFamily(t, db, "b@x.com")

	yob := 2015
	mia, err := repo.CreateChild(ctx, family.ID, "Mia", &yob)
	require.NoError(t, err)
	leo, err := repo.CreateChild(ctx, family.ID, "Leo", nil)
	require.NoError(t, err)
	_, err = repo.CreateChild(ctx, other.ID, "Zed", nil)
	require.NoError(t, err)

	children, err := repo.ListChildren(ctx, family.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, mia.ID, children[0].ID)
	assert.Equal(t, 2015, *children[0].YOB)
	assert.Equal(t, leo.ID, children[1].ID)
	assert.Nil(t, children[1].YOB)

	got, err := repo.GetChild(ctx, family.ID, mia.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mia", got.Name)

	foreign, err := repo.GetChild(ctx, other.ID, mia.ID)
	require.NoError(t, err)
	assert.Nil(t, foreign)

	empty, err := repo.ListChildren(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = repo.CreateChild(ctx, uuid.NewString(), "Ghost", nil)
	assert.ErrorIs(t, err, ErrMissingReference)
}

func TestRuleUpsertKeepsOneRow(t *testing.T) {
	db := setupDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	family := createFamily(t, db, "a@x.com")

	first, err := repo.UpsertRule(ctx, family.ID, "roblox", 30, "20:30", []byte(`[]`))
	require.NoError(t, err)

	var last *models.Rule
	for i := 1; i <= 5; i++ {
		last, err = repo.UpsertRule(ctx, family.ID, "roblox", 30+i*10, fmt.Sprintf("2%d:00", i%4), []byte(fmt.Sprintf(`["app-%d"]`, i)))
		require.NoError(t, err)
		assert.Equal(t, first.ID, last.ID, "rule id must survive updates")
	}

	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM rules WHERE family_id = ? AND platform = ?", family.ID, "roblox"))

	stored, err := repo.GetRule(ctx, family.ID, "roblox")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 80, stored.DailyMinutes)
	assert.Equal(t, "21:00", stored.Bedtime)
	assert.JSONEq(t, `["app-5"]`, string(stored.Whitelist))
	assert.False(t, stored.UpdatedAt.Before(first.UpdatedAt))
}

// execOnlySQLite behaves like a store without RETURNING, forcing the
// transactional read-back path.
type execOnlySQLite struct {
	*database.SQLiteDialect
}

func (execOnlySQLite) SupportsReturning() bool { return false }

func (d execOnlySQLite) UpsertRuleQuery() string {
	query := d.SQLiteDialect.UpsertRuleQuery()
	return query[:strings.Index(query, "RETURNING")]
}

func TestRuleUpsertConcurrentWriters(t *testing.T) {
	returning := setupDB(t)
	readBack := &database.DB{DB: setupDB(t).DB, Dialect: execOnlySQLite{database.NewSQLiteDialect()}}

	for name, db := range map[string]*database.DB{"returning": returning, "read back": readBack} {
		t.Run(name, func(t *testing.T) {
			repo := NewRuleRepository(db)
			ctx := context.Background()
			family := createFamily(t, db, "a@x.com")

			const writers = 16
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(minutes int) {
					defer wg.Done()
					whitelist := fmt.Sprintf(`["app-%d"]`, minutes)
					rule, err := repo.UpsertRule(ctx, family.ID, "youtube", minutes, "21:00", []byte(whitelist))
					if err == nil && (rule.DailyMinutes != minutes || string(rule.Whitelist) != whitelist) {
						err = fmt.Errorf("writer %d got back %d minutes and %s", minutes, rule.DailyMinutes, rule.Whitelist)
					}
					errs <- err
				}(i + 1)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM rules WHERE family_id = ? AND platform = ?", family.ID, "youtube"))
		})
	}
}

func TestRuleUpsertReturnsStoredTimestamp(t *testing.T) {
	db := setupDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	family := createFamily(t, db, "a@x.com")

	before := time.Now().UTC().Add(-time.Second)
	rule, err := repo.UpsertRule(ctx, family.ID, "tiktok", 15, "20:00", []byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, family.ID, rule.FamilyID)
	assert.False(t, rule.UpdatedAt.Before(before), "updated_at %v should be recent", rule.UpdatedAt)

	stored, err := repo.GetRule(ctx, family.ID, "tiktok")
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(rule.UpdatedAt))
}

func TestListRulesIsPerFamily(t *testing.T) {
	db := setupDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	a := createFamily(t, db, "a@x.com")
	b := createFamily(t, db, "b@x.com")

	_, err := repo.UpsertRule(ctx, a.ID, "youtube", 60, "21:00", []byte(`["kids"]`))
	require.NoError(t, err)
	_, err = repo.UpsertRule(ctx, a.ID, "roblox", 30, "20:00", []byte(`[]`))
	require.NoError(t, err)
	_, err = repo.UpsertRule(ctx, b.ID, "roblox", 10, "19:00", []byte(`[]`))
	require.NoError(t, err)

	rules, err := repo.ListRules(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "roblox", rules[0].Platform)
	assert.Equal(t, "youtube", rules[1].Platform)

	none, err := repo.GetRule(ctx, b.ID, "youtube")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEventRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()
	family := createFamily(t, db, "a@x.com")
	child, err := NewChildRepository(db).CreateChild(ctx, family.ID, "Mia", nil)
	require.NoError(t, err)

	event := &models.UsageEvent{
		FamilyID: family.ID,
		ChildID:  &child.ID,
		Platform: "youtube",
		Kind:     "video_start",
		Payload:  json.RawMessage(`{"video":"abc","nested":{"n":1}}`),
	}
	require.NoError(t, repo.RecordEvent(ctx, event))
	assert.NotEmpty(t, event.ID)

	require.NoError(t, repo.RecordEvent(ctx, &models.UsageEvent{FamilyID: family.ID, Platform: "roblox", Kind: "session"}))

	var payload string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT payload FROM usage_events WHERE id = ?", event.ID).Scan(&payload))
	assert.JSONEq(t, `{"video":"abc","nested":{"n":1}}`, payload)

	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM usage_events WHERE child_id IS NULL"))

	err = repo.RecordEvent(ctx, &models.UsageEvent{FamilyID: uuid.NewString(), Platform: "x", Kind: "y"})
	assert.True(t, errors.Is(err, ErrMissingReference))
}

func TestDeleteCascades(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	family := createFamily(t, db, "a@x.com")
	children := NewChildRepository(db)
	events := NewEventRepository(db)

	mia, err := children.CreateChild(ctx, family.ID, "Mia", nil)
	require.NoError(t, err)
	_, err = NewRuleRepository(db).UpsertRule(ctx, family.ID, "roblox", 30, "20:30", []byte(`[]`))
	require.NoError(t, err)
	require.NoError(t, events.RecordEvent(ctx, &models.UsageEvent{FamilyID: family.ID, ChildID: &mia.ID, Platform: "roblox", Kind: "open"}))

	// Deleting a child keeps its events but clears the reference
	_, err = db.ExecContext(ctx, "DELETE FROM children WHERE id = ?", mia.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM usage_events WHERE family_id = ? AND child_id IS NULL", family.ID))

	// Deleting the family removes everything it owns
	_, err = children.CreateChild(ctx, family.ID, "Leo", nil)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "DELETE FROM families WHERE id = ?", family.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM children WHERE family_id = ?", family.ID))
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM rules WHERE family_id = ?", family.ID))
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM usage_events WHERE family_id = ?", family.ID))
}

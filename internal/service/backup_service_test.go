package service

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidshield/internal/database"
	"kidshield/internal/repository"
)

func seedBackupData(t *testing.T, s *services) {
	t.Helper()
	ctx := context.Background()
	familyID := registerFamily(t, s, "a@x.com")

	yob := 2015
	child, err := s.children.Create(ctx, familyID, CreateChildInput{Name: "Mia", YOB: &yob})
	require.NoError(t, err)
	_, err = s.children.Create(ctx, familyID, CreateChildInput{Name: "Leo"})
	require.NoError(t, err)

	_, err = s.rules.Upsert(ctx, familyID, UpsertRuleInput{
		Platform:     "roblox",
		DailyMinutes: 30,
		Bedtime:      "20:30",
		Whitelist:    json.RawMessage(`["lego"]`),
	})
	require.NoError(t, err)

	require.NoError(t, s.events.Record(ctx, familyID, RecordEventInput{
		Platform: "roblox",
		Kind:     "session_start",
		ChildID:  &child.ID,
		Payload:  json.RawMessage(`{"minutes":5}`),
	}))
	require.NoError(t, s.events.Record(ctx, familyID, RecordEventInput{Platform: "youtube", Kind: "open"}))
}

func TestBackupService_ExportImport(t *testing.T) {
	src := setupServices(t)
	seedBackupData(t, src)
	ctx := context.Background()

	var buf bytes.Buffer
	exported, err := NewBackupService(src.db, zerolog.Nop()).Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, BackupVersion, exported.Version)
	assert.Equal(t, "sqlite", exported.DatabaseType)
	assert.Len(t, exported.Families, 1)
	assert.Len(t, exported.Children, 2)
	assert.Len(t, exported.Rules, 1)
	assert.Len(t, exported.UsageEvents, 2)
	assert.JSONEq(t, `["lego"]`, string(exported.Rules[0].Whitelist))

	dst, err := database.OpenSQLite(filepath.Join(t.TempDir(), "restore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })
	require.NoError(t, dst.Bootstrap(ctx, zerolog.Nop()))

	restore := NewBackupService(dst, zerolog.Nop())
	require.NoError(t, restore.Import(ctx, bytes.NewReader(buf.Bytes()), false))

	var again bytes.Buffer
	reexported, err := restore.Export(ctx, &again)
	require.NoError(t, err)
	require.Len(t, reexported.Families, 1)
	assert.Equal(t, exported.Families[0].ID, reexported.Families[0].ID)
	assert.Equal(t, exported.Families[0].PasswordHash, reexported.Families[0].PasswordHash)
	assert.True(t, exported.Families[0].CreatedAt.Equal(reexported.Families[0].CreatedAt))
	require.Len(t, reexported.Children, 2)
	for i := range exported.Children {
		assert.Equal(t, exported.Children[i].ID, reexported.Children[i].ID)
		assert.Equal(t, exported.Children[i].YOB, reexported.Children[i].YOB)
	}
	require.Len(t, reexported.Rules, 1)
	assert.Equal(t, exported.Rules[0].ID, reexported.Rules[0].ID)
	assert.JSONEq(t, string(exported.Rules[0].Whitelist), string(reexported.Rules[0].Whitelist))
	require.Len(t, reexported.UsageEvents, 2)

	var childRefs int
	require.NoError(t, dst.QueryRowContext(ctx, "SELECT COUNT(*) FROM usage_events WHERE child_id IS NOT NULL").Scan(&childRefs))
	assert.Equal(t, 1, childRefs)

	// restored credentials still work
	restoredAuth := NewAuthService(repository.NewFamilyRepository(dst), src.tokens, zerolog.Nop())
	token, err := restoredAuth.Login(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	claims, err := restoredAuth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, exported.Families[0].ID, claims.FamilyID)
}

func TestBackupService_ImportConflictRollsBack(t *testing.T) {
	s := setupServices(t)
	seedBackupData(t, s)
	ctx := context.Background()
	backupService := NewBackupService(s.db, zerolog.Nop())

	var buf bytes.Buffer
	_, err := backupService.Export(ctx, &buf)
	require.NoError(t, err)

	// same ids already present
	err = backupService.Import(ctx, bytes.NewReader(buf.Bytes()), false)
	require.Error(t, err)

	var families int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families").Scan(&families))
	assert.Equal(t, 1, families)

	require.NoError(t, backupService.Import(ctx, bytes.NewReader(buf.Bytes()), true))
	var events int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usage_events").Scan(&events))
	assert.Equal(t, 2, events)
}

func TestBackupService_RejectsUnknownVersion(t *testing.T) {
	s := setupServices(t)
	err := NewBackupService(s.db, zerolog.Nop()).Import(context.Background(), bytes.NewReader([]byte(`{"version":"99"}`)), false)
	assert.ErrorContains(t, err, "unsupported backup version")
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// ============================================================================
// Audit Log Tests
// ============================================================================

func TestInsertAuditLog_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	entry := &models.AuditLogEntry{
		GuildID:      testGuild,
		ActionType:   "ban",
		ModeratorID:  models.NewNullSnowflake(testMod),
		TargetUserID: models.NewNullSnowflake(testUser),
		Details:      sql.NullString{String: "Reason: raiding", Valid: true},
	}
	require.NoError(t, db.InsertAuditLog(ctx, entry))
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	entries, err := db.ListAuditLogs(ctx, testGuild, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.ActionType, got.ActionType)
	assert.Equal(t, entry.ModeratorID, got.ModeratorID)
	assert.Equal(t, entry.TargetUserID, got.TargetUserID)
	assert.Equal(t, entry.Details, got.Details)
}

func TestInsertAuditLog_SystemActor(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	entry := &models.AuditLogEntry{GuildID: testGuild, ActionType: "auto_unmute"}
	require.NoError(t, db.InsertAuditLog(ctx, entry))

	entries, err := db.ListAuditLogs(ctx, testGuild, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].ModeratorID.Valid)
	assert.False(t, entries[0].TargetUserID.Valid)
	assert.False(t, entries[0].Details.Valid)
}

func TestListAuditLogs_NewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	actions := []string{"warn", "kick", "ban", "unban"}
	for _, action := range actions {
		require.NoError(t, db.InsertAuditLog(ctx, &models.AuditLogEntry{GuildID: testGuild, ActionType: action}))
	}
	require.NoError(t, db.InsertAuditLog(ctx, &models.AuditLogEntry{GuildID: otherGuild, ActionType: "purge"}))

	entries, err := db.ListAuditLogs(ctx, testGuild, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "unban", entries[0].ActionType)
	assert.Equal(t, "ban", entries[1].ActionType)
	assert.Equal(t, "kick", entries[2].ActionType)
	for _, e := range entries {
		assert.Equal(t, testGuild, e.GuildID)
	}
}

// ============================================================================
// Warning Tests
// ============================================================================

func TestWarnings_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	first := &models.Warning{GuildID: testGuild, UserID: testUser, ModeratorID: testMod, Reason: "spam"}
	second := &models.Warning{GuildID: testGuild, UserID: testUser, ModeratorID: testMod, Reason: "caps"}
	require.NoError(t, db.AddWarning(ctx, first))
	require.NoError(t, db.AddWarning(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	warnings, err := db.GetWarnings(ctx, testGuild, testUser)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Equal(t, "caps", warnings[0].Reason)

	// a warning id from another guild is not found
	removed, err := db.RemoveWarning(ctx, otherGuild, first.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = db.RemoveWarning(ctx, testGuild, first.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	warnings, err = db.GetWarnings(ctx, testGuild, testUser)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, second.ID, warnings[0].ID)
}

// ============================================================================
// Staff Note Tests
// ============================================================================

func TestStaffNotes_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	note := &models.StaffNote{GuildID: testGuild, UserID: testUser, StaffID: testMod, Note: "repeat offender"}
	require.NoError(t, db.AddStaffNote(ctx, note))
	assert.NotZero(t, note.ID)

	notes, err := db.GetStaffNotes(ctx, testGuild, testUser)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "repeat offender", notes[0].Note)
	assert.Equal(t, testMod, notes[0].StaffID)

	others, err := db.GetStaffNotes(ctx, otherGuild, testUser)
	require.NoError(t, err)
	assert.Empty(t, others)
}

// ============================================================================
// Mute Tests
// ============================================================================

func TestAddMute_UpsertReplacesExpiry(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	mute := &models.Mute{
		GuildID:     testGuild,
		UserID:      testUser,
		ModeratorID: testMod,
		ExpiresAt:   time.Now().Add(time.Hour),
		Reason:      sql.NullString{String: "spam", Valid: true},
	}
	require.NoError(t, db.AddMute(ctx, mute))
	firstID := mute.ID

	later := time.Now().Add(48 * time.Hour)
	again := &models.Mute{GuildID: testGuild, UserID: testUser, ModeratorID: testMod, ExpiresAt: later}
	require.NoError(t, db.AddMute(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := db.GetMute(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.WithinDuration(t, later, got.ExpiresAt, time.Second)
	assert.False(t, got.Reason.Valid)
}

func TestIsMuted(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testUser, ModeratorID: testMod, ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testMod, ModeratorID: testMod, ExpiresAt: time.Now().Add(-time.Minute),
	}))

	muted, err := db.IsMuted(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = db.IsMuted(ctx, testGuild, testMod)
	require.NoError(t, err)
	assert.False(t, muted, "expired mutes do not count")
}

func TestGetExpiredMutes(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testUser, ModeratorID: testMod, ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: otherGuild, UserID: testUser, ModeratorID: testMod, ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testMod, ModeratorID: testMod, ExpiresAt: time.Now().Add(time.Hour),
	}))

	expired, err := db.GetExpiredMutes(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, testGuild, expired[0].GuildID, "oldest expiry first")
	assert.Equal(t, otherGuild, expired[1].GuildID)
}

func TestRemoveMute(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testUser, ModeratorID: testMod, ExpiresAt: time.Now().Add(time.Hour),
	}))

	removed, err := db.RemoveMute(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.RemoveMute(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = db.GetMute(ctx, testGuild, testUser)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoveExpiredMute(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testUser, ModeratorID: testMod, ExpiresAt: time.Now().Add(-time.Minute),
	}))

	// Muting again renews the same row
	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testUser, ModeratorID: testMod, ExpiresAt: time.Now().Add(time.Hour),
	}))

	removed, err := db.RemoveExpiredMute(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.False(t, removed, "renewed mute is not expired")

	muted, err := db.IsMuted(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.True(t, muted)

	require.NoError(t, db.AddMute(ctx, &models.Mute{
		GuildID: testGuild, UserID: testMod, ModeratorID: testMod, ExpiresAt: time.Now().Add(-time.Minute),
	}))
	removed, err = db.RemoveExpiredMute(ctx, testGuild, testMod)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.RemoveExpiredMute(ctx, testGuild, testMod)
	require.NoError(t, err)
	assert.False(t, removed)
}

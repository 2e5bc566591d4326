package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// AssertAuditEntryEqual compares the caller-supplied fields of two audit entries.
// The id and timestamp are compared only when expected carries them.
func AssertAuditEntryEqual(t *testing.T, expected, actual *models.AuditLogEntry) {
	t.Helper()

	assert.Equal(t, expected.GuildID, actual.GuildID, "GuildID should match")
	assert.Equal(t, expected.ActionType, actual.ActionType, "ActionType should match")
	assert.Equal(t, expected.ModeratorID, actual.ModeratorID, "ModeratorID should match")
	assert.Equal(t, expected.TargetUserID, actual.TargetUserID, "TargetUserID should match")
	assert.Equal(t, expected.Details, actual.Details, "Details should match")

	if expected.ID != 0 {
		assert.Equal(t, expected.ID, actual.ID, "ID should match")
	}
	if !expected.CreatedAt.IsZero() {
		AssertTimeAlmostEqual(t, expected.CreatedAt, actual.CreatedAt, 2*time.Second)
	}
}

// AssertMemberEqual compares roster fields, ignoring ids and activity timestamps
func AssertMemberEqual(t *testing.T, expected, actual *models.Member) {
	t.Helper()

	assert.Equal(t, expected.GuildID, actual.GuildID, "GuildID should match")
	assert.Equal(t, expected.UserID, actual.UserID, "UserID should match")
	assert.Equal(t, expected.Username, actual.Username, "Username should match")
	assert.Equal(t, expected.ClanRank, actual.ClanRank, "ClanRank should match")
	assert.Equal(t, expected.HangarPower, actual.HangarPower, "HangarPower should match")
	assert.Equal(t, expected.League, actual.League, "League should match")
	assert.Equal(t, expected.IsInactive, actual.IsInactive, "IsInactive should match")
}

// AssertTimeAlmostEqual checks that two timestamps are within delta of each other.
func AssertTimeAlmostEqual(t *testing.T, expected, actual time.Time, delta time.Duration) {
	t.Helper()

	diff := expected.Sub(actual)
	if diff < 0 {
		diff = -diff
	}

	assert.True(t, diff <= delta,
		"Times should be within %v of each other. Expected: %v, Actual: %v, Diff: %v",
		delta, expected, actual, diff)
}

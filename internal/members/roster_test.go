package members

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

const (
	guild models.Snowflake = 1
	alice models.Snowflake = 10
	bob   models.Snowflake = 11
	carol models.Snowflake = 12
	roleA models.Snowflake = 100
	roleB models.Snowflake = 101
	roleC models.Snowflake = 102
)

func newTestRoster() (*Roster, *fakeStore) {
	store := newFakeStore()
	return NewRoster(store, zap.NewNop()), store
}

func addMember(s *fakeStore, id models.Snowflake, rank string, lastActive time.Time) {
	s.members[id] = &models.Member{
		GuildID:    guild,
		UserID:     id,
		Username:   "user",
		ClanRank:   sql.NullString{String: rank, Valid: rank != ""},
		LastActive: lastActive,
		JoinedAt:   lastActive,
	}
}

// ============================================================================
// Activity Tests
// ============================================================================

func TestTouchActivity(t *testing.T) {
	r, store := newTestRoster()
	addMember(store, alice, "", time.Now().Add(-30*24*time.Hour))
	store.members[alice].IsInactive = true

	touched, err := r.TouchActivity(context.Background(), guild, alice)
	require.NoError(t, err)
	assert.True(t, touched)
	assert.False(t, store.members[alice].IsInactive)

	touched, err = r.TouchActivity(context.Background(), guild, bob)
	require.NoError(t, err)
	assert.False(t, touched, "members off the roster are not created")
	assert.NotContains(t, store.members, bob)
}

func TestScanInactive_DefaultThreshold(t *testing.T) {
	r, store := newTestRoster()
	addMember(store, alice, "", time.Now().Add(-8*24*time.Hour))
	addMember(store, bob, "", time.Now().Add(-6*24*time.Hour))

	result, err := r.ScanInactive(context.Background(), guild)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultActivityThresholdDays, result.ThresholdDays)
	assert.Equal(t, []models.Snowflake{alice}, result.UserIDs)

	again, err := r.ScanInactive(context.Background(), guild)
	require.NoError(t, err)
	assert.Empty(t, again.UserIDs, "already flagged members are not reported twice")
}

func TestScanInactive_GuildThreshold(t *testing.T) {
	r, store := newTestRoster()
	store.configs[guild] = &models.GuildConfig{GuildID: guild, ActivityThresholdDays: 3}
	addMember(store, alice, "", time.Now().Add(-4*24*time.Hour))

	result, err := r.ScanInactive(context.Background(), guild)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ThresholdDays)
	assert.Equal(t, []models.Snowflake{alice}, result.UserIDs)
}

func TestScanInactive_StoreError(t *testing.T) {
	r, store := newTestRoster()
	store.err = errors.New("boom")

	_, err := r.ScanInactive(context.Background(), guild)
	assert.ErrorIs(t, err, store.err)
}

func TestSetThreshold(t *testing.T) {
	r, store := newTestRoster()

	require.NoError(t, r.SetThreshold(context.Background(), guild, 30))
	assert.Equal(t, 30, store.configs[guild].ActivityThresholdDays)

	for _, days := range []int{0, -1} {
		err := r.SetThreshold(context.Background(), guild, days)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "days", verr.Field)
	}
	assert.Equal(t, 30, store.configs[guild].ActivityThresholdDays)
}

// ============================================================================
// Rank Tests
// ============================================================================

func TestLinkRole(t *testing.T) {
	r, store := newTestRoster()

	require.NoError(t, r.LinkRole(context.Background(), guild, roleA, " R4 "))
	require.NoError(t, r.LinkRole(context.Background(), guild, roleA, "R5"))
	require.Len(t, store.mappings, 1)
	assert.Equal(t, "R5", store.mappings[0].ClanRank)

	err := r.LinkRole(context.Background(), guild, roleB, "  ")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAutoRank(t *testing.T) {
	tests := []struct {
		name        string
		autoRoles   *bool
		onRoster    bool
		before      []models.Snowflake
		after       []models.Snowflake
		wantRank    string
		wantUpserts int
	}{
		{"gained mapped role", models.Ptr(true), true, nil, []models.Snowflake{roleA}, "R4", 1},
		{"auto roles disabled", models.Ptr(false), true, nil, []models.Snowflake{roleA}, "", 0},
		{"no guild config", nil, true, nil, []models.Snowflake{roleA}, "", 0},
		{"member not on roster", models.Ptr(true), false, nil, []models.Snowflake{roleA}, "", 0},
		{"role already held", models.Ptr(true), true, []models.Snowflake{roleA}, []models.Snowflake{roleA}, "", 0},
		{"unmapped role", models.Ptr(true), true, nil, []models.Snowflake{roleC}, "", 0},
		{"last mapping wins", models.Ptr(true), true, nil, []models.Snowflake{roleB, roleA}, "R2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestRoster()
			if tt.autoRoles != nil {
				store.configs[guild] = &models.GuildConfig{GuildID: guild, AutoRolesEnabled: *tt.autoRoles}
			}
			store.mappings = []*models.RoleMapping{
				{GuildID: guild, DiscordRoleID: roleA, ClanRank: "R4"},
				{GuildID: guild, DiscordRoleID: roleB, ClanRank: "R2"},
			}
			if tt.onRoster {
				addMember(store, alice, "R1", time.Now())
			}

			rank, err := r.AutoRank(context.Background(), guild, alice, "alice#0001", tt.before, tt.after)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRank, rank)
			assert.Equal(t, tt.wantUpserts, store.upserts)
			if tt.wantRank != "" {
				assert.Equal(t, tt.wantRank, store.members[alice].ClanRank.String)
				assert.Equal(t, "alice#0001", store.members[alice].Username)
			}
		})
	}
}

func TestPlanRankSync(t *testing.T) {
	r, store := newTestRoster()
	store.mappings = []*models.RoleMapping{
		{GuildID: guild, DiscordRoleID: roleA, ClanRank: "R4"},
		{GuildID: guild, DiscordRoleID: roleB, ClanRank: "R4"},
		{GuildID: guild, DiscordRoleID: roleC, ClanRank: "R1"},
	}
	addMember(store, alice, "R4", time.Now())
	addMember(store, bob, "", time.Now())
	addMember(store, carol, "R1", time.Now())

	current := map[models.Snowflake][]models.Snowflake{
		alice: {roleB},
		bob:   {},
	}

	grants, err := r.PlanRankSync(context.Background(), guild, current)
	require.NoError(t, err)
	assert.Equal(t, []RoleGrant{{UserID: alice, RoleID: roleA, ClanRank: "R4"}}, grants,
		"unranked members and members who left the guild are skipped")
}

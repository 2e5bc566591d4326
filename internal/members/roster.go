// Package members maintains the clan roster stored for each guild.
package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/database"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// Store is the subset of the database the roster uses
type Store interface {
	GetGuildConfig(ctx context.Context, guildID models.Snowflake) (*models.GuildConfig, error)
	UpsertGuildConfig(ctx context.Context, guildID models.Snowflake, patch models.GuildConfigPatch) error
	UpsertMember(ctx context.Context, patch models.MemberPatch) error
	GetMember(ctx context.Context, guildID, userID models.Snowflake) (*models.Member, error)
	GetAllMembers(ctx context.Context, guildID models.Snowflake) ([]*models.Member, error)
	TouchMemberActivity(ctx context.Context, guildID, userID models.Snowflake) (bool, error)
	MarkInactiveMembers(ctx context.Context, guildID models.Snowflake, thresholdDays int) ([]models.Snowflake, error)
	AddRoleMapping(ctx context.Context, guildID, roleID models.Snowflake, clanRank string) error
	GetRoleMappings(ctx context.Context, guildID models.Snowflake) ([]*models.RoleMapping, error)
}

// Roster applies roster rules on top of the store
type Roster struct {
	store  Store
	logger *zap.Logger
}

// NewRoster creates a new roster service
func NewRoster(store Store, logger *zap.Logger) *Roster {
	return &Roster{
		store:  store,
		logger: logger,
	}
}

// TouchActivity marks a tracked member active now. Members that are not on
// the roster are ignored.
func (r *Roster) TouchActivity(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	touched, err := r.store.TouchMemberActivity(ctx, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to touch activity: %w", err)
	}
	return touched, nil
}

// ScanResult lists the members a scan newly flagged as inactive
type ScanResult struct {
	ThresholdDays int
	UserIDs       []models.Snowflake
}

// ScanInactive flags members idle longer than the guild threshold.
// Guilds without a config use DefaultActivityThresholdDays.
func (r *Roster) ScanInactive(ctx context.Context, guildID models.Snowflake) (ScanResult, error) {
	threshold := models.DefaultActivityThresholdDays

	cfg, err := r.store.GetGuildConfig(ctx, guildID)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		return ScanResult{}, fmt.Errorf("failed to read activity threshold: %w", err)
	case cfg.ActivityThresholdDays > 0:
		threshold = cfg.ActivityThresholdDays
	}

	ids, err := r.store.MarkInactiveMembers(ctx, guildID, threshold)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to mark inactive members: %w", err)
	}

	r.logger.Info("activity scan complete",
		zap.String("guild_id", guildID.String()),
		zap.Int("threshold_days", threshold),
		zap.Int("inactive", len(ids)),
	)

	return ScanResult{ThresholdDays: threshold, UserIDs: ids}, nil
}

// SetThreshold changes the number of idle days before a member counts as inactive
func (r *Roster) SetThreshold(ctx context.Context, guildID models.Snowflake, days int) error {
	if days < 1 {
		return &models.ValidationError{Field: "days", Reason: "threshold must be at least 1 day"}
	}
	if err := r.store.UpsertGuildConfig(ctx, guildID, models.GuildConfigPatch{ActivityThresholdDays: models.Ptr(days)}); err != nil {
		return fmt.Errorf("failed to set activity threshold: %w", err)
	}
	return nil
}

// LinkRole maps a platform role to a clan rank, replacing any previous rank
func (r *Roster) LinkRole(ctx context.Context, guildID, roleID models.Snowflake, clanRank string) error {
	clanRank = strings.TrimSpace(clanRank)
	if clanRank == "" {
		return &models.ValidationError{Field: "clan_rank", Reason: "must not be empty"}
	}
	if err := r.store.AddRoleMapping(ctx, guildID, roleID, clanRank); err != nil {
		return fmt.Errorf("failed to link role: %w", err)
	}
	return nil
}

// AutoRank updates the stored rank of a member who just gained a mapped role.
// It does nothing unless auto-roles are enabled and the member is on the roster.
// When several mapped roles are gained at once the last mapping wins.
// Returns the applied rank, or "" when nothing changed.
func (r *Roster) AutoRank(ctx context.Context, guildID, userID models.Snowflake, username string, before, after []models.Snowflake) (string, error) {
	cfg, err := r.store.GetGuildConfig(ctx, guildID)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read auto-roles toggle: %w", err)
	}
	if !cfg.AutoRolesEnabled {
		return "", nil
	}

	gained := roleDiff(before, after)
	if len(gained) == 0 {
		return "", nil
	}

	mappings, err := r.store.GetRoleMappings(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("failed to load role mappings: %w", err)
	}

	var rank string
	for _, m := range mappings {
		if gained[m.DiscordRoleID] {
			rank = m.ClanRank
		}
	}
	if rank == "" {
		return "", nil
	}

	if _, err := r.store.GetMember(ctx, guildID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load member: %w", err)
	}

	patch := models.MemberPatch{
		GuildID:  guildID,
		UserID:   userID,
		Username: username,
		ClanRank: &sql.NullString{String: rank, Valid: true},
	}
	if err := r.store.UpsertMember(ctx, patch); err != nil {
		return "", fmt.Errorf("failed to apply rank: %w", err)
	}

	r.logger.Info("auto rank applied",
		zap.String("guild_id", guildID.String()),
		zap.String("user_id", userID.String()),
		zap.String("clan_rank", rank),
	)

	return rank, nil
}

// RoleGrant is a mapped role a member should hold for their stored rank
type RoleGrant struct {
	UserID   models.Snowflake
	RoleID   models.Snowflake
	ClanRank string
}

// PlanRankSync lists the mapped roles each ranked member lacks.
// current holds the live roles of members still in the guild; roster members
// missing from it are skipped.
func (r *Roster) PlanRankSync(ctx context.Context, guildID models.Snowflake, current map[models.Snowflake][]models.Snowflake) ([]RoleGrant, error) {
	mappings, err := r.store.GetRoleMappings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role mappings: %w", err)
	}
	roster, err := r.store.GetAllMembers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	var grants []RoleGrant
	for _, m := range roster {
		roles, present := current[m.UserID]
		if !present || !m.ClanRank.Valid || m.ClanRank.String == "" {
			continue
		}
		held := toSet(roles)
		for _, mapping := range mappings {
			if mapping.ClanRank == m.ClanRank.String && !held[mapping.DiscordRoleID] {
				grants = append(grants, RoleGrant{UserID: m.UserID, RoleID: mapping.DiscordRoleID, ClanRank: mapping.ClanRank})
			}
		}
	}
	return grants, nil
}

func roleDiff(before, after []models.Snowflake) map[models.Snowflake]bool {
	had := toSet(before)
	gained := make(map[models.Snowflake]bool)
	for _, id := range after {
		if !had[id] {
			gained[id] = true
		}
	}
	return gained
}

func toSet(ids []models.Snowflake) map[models.Snowflake]bool {
	set := make(map[models.Snowflake]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

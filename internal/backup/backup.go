// Package backup snapshots and restores a guild's configuration and roster.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/database"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// Store is the subset of the database used for snapshots
type Store interface {
	GetGuildConfig(ctx context.Context, guildID models.Snowflake) (*models.GuildConfig, error)
	UpsertGuildConfig(ctx context.Context, guildID models.Snowflake, patch models.GuildConfigPatch) error
	GetAllMembers(ctx context.Context, guildID models.Snowflake) ([]*models.Member, error)
	UpsertMember(ctx context.Context, patch models.MemberPatch) error
	GetRoleMappings(ctx context.Context, guildID models.Snowflake) ([]*models.RoleMapping, error)
	AddRoleMapping(ctx context.Context, guildID, roleID models.Snowflake, clanRank string) error
	InsertBackup(ctx context.Context, b *models.Backup) error
	GetBackup(ctx context.Context, backupID int64, guildID models.Snowflake) (*models.Backup, error)
	ListBackups(ctx context.Context, guildID models.Snowflake) ([]*models.Backup, error)
}

// ErrNotFound is returned when a backup id does not exist in the guild
var ErrNotFound = errors.New("backup not found")

// Service creates and restores snapshots
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new backup service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Create snapshots the guild config, roster and role mappings and stores the
// snapshot. The reads are separate queries, not one consistent transaction.
func (s *Service) Create(ctx context.Context, guildID, createdBy models.Snowflake) (*models.Backup, error) {
	data := &models.BackupData{Timestamp: s.now().UTC()}

	cfg, err := s.store.GetGuildConfig(ctx, guildID)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to snapshot config: %w", err)
	default:
		data.Config = cfg
	}

	members, err := s.store.GetAllMembers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot members: %w", err)
	}
	data.Members = make([]models.Member, 0, len(members))
	for _, m := range members {
		data.Members = append(data.Members, *m)
	}

	mappings, err := s.store.GetRoleMappings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot role mappings: %w", err)
	}
	data.RoleMappings = make([]models.RoleMapping, 0, len(mappings))
	for _, m := range mappings {
		data.RoleMappings = append(data.RoleMappings, *m)
	}

	b := &models.Backup{GuildID: guildID, Data: data, CreatedBy: createdBy}
	if err := s.store.InsertBackup(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to store backup: %w", err)
	}

	s.logger.Info("backup created",
		zap.String("guild_id", guildID.String()),
		zap.Int64("backup_id", b.ID),
		zap.Int("members", len(data.Members)),
		zap.Int("role_mappings", len(data.RoleMappings)),
	)

	return b, nil
}

// Get loads one backup of the guild with its snapshot
func (s *Service) Get(ctx context.Context, guildID models.Snowflake, backupID int64) (*models.Backup, error) {
	b, err := s.store.GetBackup(ctx, backupID, guildID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load backup %d: %w", backupID, err)
	}
	return b, nil
}

// List returns backup metadata for the guild, newest first
func (s *Service) List(ctx context.Context, guildID models.Snowflake) ([]*models.Backup, error) {
	backups, err := s.store.ListBackups(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return backups, nil
}

// RestoreResult counts what a restore wrote back
type RestoreResult struct {
	Backup       *models.Backup
	Config       bool
	Members      int
	RoleMappings int
}

// Restore writes a snapshot back through upserts. The config is rewritten in
// full; mappings and members are merged, so rows created after the snapshot
// are kept.
func (s *Service) Restore(ctx context.Context, guildID models.Snowflake, backupID int64) (RestoreResult, error) {
	b, err := s.Get(ctx, guildID, backupID)
	if err != nil {
		return RestoreResult{}, err
	}
	result := RestoreResult{Backup: b}
	if b.Data == nil {
		return result, nil
	}

	if b.Data.Config != nil {
		if err := s.store.UpsertGuildConfig(ctx, guildID, models.PatchFromConfig(b.Data.Config)); err != nil {
			return result, fmt.Errorf("failed to restore config: %w", err)
		}
		result.Config = true
	}

	for _, m := range b.Data.RoleMappings {
		if err := s.store.AddRoleMapping(ctx, guildID, m.DiscordRoleID, m.ClanRank); err != nil {
			return result, fmt.Errorf("failed to restore role mapping %s: %w", m.DiscordRoleID, err)
		}
		result.RoleMappings++
	}

	for _, m := range b.Data.Members {
		patch := models.MemberPatch{
			GuildID:     guildID,
			UserID:      m.UserID,
			Username:    m.Username,
			ClanRank:    models.Ptr(m.ClanRank),
			HangarPower: models.Ptr(m.HangarPower),
			League:      models.Ptr(m.League),
		}
		if err := s.store.UpsertMember(ctx, patch); err != nil {
			return result, fmt.Errorf("failed to restore member %s: %w", m.UserID, err)
		}
		result.Members++
	}

	s.logger.Info("backup restored",
		zap.String("guild_id", guildID.String()),
		zap.Int64("backup_id", backupID),
		zap.Int("members", result.Members),
		zap.Int("role_mappings", result.RoleMappings),
	)

	return result, nil
}

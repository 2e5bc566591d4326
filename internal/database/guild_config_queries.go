package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const guildConfigColumns = `guild_id, audit_log_enabled, auto_roles_enabled, activity_threshold_days,
	clan_tag, clan_requirements_league, clan_requirements_power, logging_channel_id,
	announcement_role_id, created_at, updated_at`

func scanGuildConfig(row rowScanner) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	err := row.Scan(
		&cfg.GuildID,
		&cfg.AuditLogEnabled,
		&cfg.AutoRolesEnabled,
		&cfg.ActivityThresholdDays,
		&cfg.ClanTag,
		&cfg.ClanRequirementsLeague,
		&cfg.ClanRequirementsPower,
		&cfg.LoggingChannelID,
		&cfg.AnnouncementRoleID,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetGuildConfig retrieves the configuration row of a guild.
// Returns ErrNotFound when the guild has never been configured.
func (db *DB) GetGuildConfig(ctx context.Context, guildID models.Snowflake) (*models.GuildConfig, error) {
	query := `SELECT ` + guildConfigColumns + ` FROM guild_configs WHERE guild_id = $1`

	cfg, err := scanGuildConfig(db.QueryRowContext(ctx, query, guildID))
	if err != nil {
		return nil, fmt.Errorf("failed to get guild config: %w", dbErr(err))
	}

	return cfg, nil
}

// UpsertGuildConfig creates the configuration row if needed and merges the
// columns present in the patch. Columns absent from the patch are never touched.
func (db *DB) UpsertGuildConfig(ctx context.Context, guildID models.Snowflake, patch models.GuildConfigPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	cols := patch.Columns()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	values := map[string]interface{}{"guild_id": guildID}
	updates := make([]string, 0, len(names)+1)
	for _, name := range names {
		values[name] = cols[name]
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
	}
	updates = append(updates, "updated_at = NOW()")

	query, args, err := db.sb.
		Insert("guild_configs").
		SetMap(values).
		Suffix("ON CONFLICT (guild_id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build guild config upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert guild config: %w", dbErr(err))
	}

	return nil
}

// EnsureGuildConfig inserts a default configuration row unless one already exists.
// Returns true when a row was created.
func (db *DB) EnsureGuildConfig(ctx context.Context, guildID models.Snowflake) (bool, error) {
	query := `INSERT INTO guild_configs (guild_id) VALUES ($1) ON CONFLICT (guild_id) DO NOTHING`

	result, err := db.ExecContext(ctx, query, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to ensure guild config: %w", dbErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

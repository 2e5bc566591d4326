package database

import (
	"context"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// AddRoleMapping links a role to a clan rank; linking the role again replaces the rank
func (db *DB) AddRoleMapping(ctx context.Context, guildID, roleID models.Snowflake, clanRank string) error {
	query := `
		INSERT INTO role_mappings (guild_id, discord_role_id, clan_rank)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, discord_role_id) DO UPDATE
		SET clan_rank = EXCLUDED.clan_rank
	`

	if _, err := db.ExecContext(ctx, query, guildID, roleID, clanRank); err != nil {
		return fmt.Errorf("failed to add role mapping: %w", dbErr(err))
	}

	return nil
}

// GetRoleMappings lists the role to rank links of a guild
func (db *DB) GetRoleMappings(ctx context.Context, guildID models.Snowflake) ([]*models.RoleMapping, error) {
	query := `
		SELECT id, guild_id, discord_role_id, clan_rank, created_at
		FROM role_mappings
		WHERE guild_id = $1
		ORDER BY id ASC
	`

	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role mappings: %w", dbErr(err))
	}
	defer rows.Close()

	var mappings []*models.RoleMapping
	for rows.Next() {
		var rm models.RoleMapping
		if err := rows.Scan(&rm.ID, &rm.GuildID, &rm.DiscordRoleID, &rm.ClanRank, &rm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role mapping: %w", err)
		}
		mappings = append(mappings, &rm)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role mappings: %w", dbErr(err))
	}

	return mappings, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// AddPermission requires roleID for commandName. Adding an existing rule is a no-op.
func (db *DB) AddPermission(ctx context.Context, guildID models.Snowflake, commandName string, roleID models.Snowflake) error {
	query := `
		INSERT INTO permissions (guild_id, command_name, required_role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, command_name, required_role_id) DO NOTHING
	`

	if _, err := db.ExecContext(ctx, query, guildID, commandName, roleID); err != nil {
		return fmt.Errorf("failed to add permission: %w", dbErr(err))
	}

	return nil
}

// RemovePermission drops a single rule. Returns false when it did not exist.
func (db *DB) RemovePermission(ctx context.Context, guildID models.Snowflake, commandName string, roleID models.Snowflake) (bool, error) {
	query := `DELETE FROM permissions WHERE guild_id = $1 AND command_name = $2 AND required_role_id = $3`

	result, err := db.ExecContext(ctx, query, guildID, commandName, roleID)
	if err != nil {
		return false, fmt.Errorf("failed to remove permission: %w", dbErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetRequiredRoles returns the roles any of which grants commandName.
// An empty result means the command is unrestricted.
func (db *DB) GetRequiredRoles(ctx context.Context, guildID models.Snowflake, commandName string) ([]models.Snowflake, error) {
	query := `SELECT required_role_id FROM permissions WHERE guild_id = $1 AND command_name = $2`

	rows, err := db.QueryContext(ctx, query, guildID, commandName)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", dbErr(err))
	}
	defer rows.Close()

	var roles []models.Snowflake
	for rows.Next() {
		var role models.Snowflake
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		roles = append(roles, role)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", dbErr(err))
	}

	return roles, nil
}

// ListPermissions returns every rule of a guild ordered by command
func (db *DB) ListPermissions(ctx context.Context, guildID models.Snowflake) ([]*models.PermissionRule, error) {
	query := `
		SELECT id, guild_id, command_name, required_role_id, created_at
		FROM permissions
		WHERE guild_id = $1
		ORDER BY command_name ASC, id ASC
	`

	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", dbErr(err))
	}
	defer rows.Close()

	var rules []*models.PermissionRule
	for rows.Next() {
		var rule models.PermissionRule
		if err := rows.Scan(&rule.ID, &rule.GuildID, &rule.CommandName, &rule.RequiredRoleID, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		rules = append(rules, &rule)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", dbErr(err))
	}

	return rules, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// AddWarning records a warning and fills in its ID and CreatedAt
func (db *DB) AddWarning(ctx context.Context, w *models.Warning) error {
	query := `
		INSERT INTO warnings (guild_id, user_id, moderator_id, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := db.QueryRowContext(ctx, query, w.GuildID, w.UserID, w.ModeratorID, w.Reason).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add warning: %w", dbErr(err))
	}

	return nil
}

// GetWarnings lists the warnings of a member, newest first
func (db *DB) GetWarnings(ctx context.Context, guildID, userID models.Snowflake) ([]*models.Warning, error) {
	query := `
		SELECT id, guild_id, user_id, moderator_id, reason, created_at
		FROM warnings
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := db.QueryContext(ctx, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query warnings: %w", dbErr(err))
	}
	defer rows.Close()

	var warnings []*models.Warning
	for rows.Next() {
		var w models.Warning
		if err := rows.Scan(&w.ID, &w.GuildID, &w.UserID, &w.ModeratorID, &w.Reason, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		warnings = append(warnings, &w)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating warnings: %w", dbErr(err))
	}

	return warnings, nil
}

// RemoveWarning deletes a warning by id within a guild.
// Returns false when no such warning exists in that guild.
func (db *DB) RemoveWarning(ctx context.Context, guildID models.Snowflake, warningID int64) (bool, error) {
	query := `DELETE FROM warnings WHERE guild_id = $1 AND id = $2`

	result, err := db.ExecContext(ctx, query, guildID, warningID)
	if err != nil {
		return false, fmt.Errorf("failed to remove warning: %w", dbErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// InsertAuditLog appends an entry and fills in its ID and CreatedAt
func (db *DB) InsertAuditLog(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (guild_id, moderator_id, action_type, target_user_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := db.QueryRowContext(
		ctx,
		query,
		entry.GuildID,
		entry.ModeratorID,
		entry.ActionType,
		entry.TargetUserID,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", dbErr(err))
	}

	return nil
}

// ListAuditLogs returns up to limit entries for a guild, newest first
func (db *DB) ListAuditLogs(ctx context.Context, guildID models.Snowflake, limit int) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT id, guild_id, action_type, moderator_id, target_user_id, details, created_at
		FROM audit_logs
		WHERE guild_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := db.QueryContext(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", dbErr(err))
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var entry models.AuditLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.GuildID,
			&entry.ActionType,
			&entry.ModeratorID,
			&entry.TargetUserID,
			&entry.Details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", dbErr(err))
	}

	return entries, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// AddToBlacklist blacklists a user. Re-adding an entry only replaces its reason.
func (db *DB) AddToBlacklist(ctx context.Context, guildID, userID, addedBy models.Snowflake, reason sql.NullString) error {
	query := `
		INSERT INTO blacklist (guild_id, user_id, added_by, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET reason = EXCLUDED.reason
	`

	if _, err := db.ExecContext(ctx, query, guildID, userID, addedBy, reason); err != nil {
		return fmt.Errorf("failed to add to blacklist: %w", dbErr(err))
	}

	return nil
}

// RemoveFromBlacklist lifts a blacklist entry. Returns false when the user was not blacklisted.
func (db *DB) RemoveFromBlacklist(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	query := `DELETE FROM blacklist WHERE guild_id = $1 AND user_id = $2`

	result, err := db.ExecContext(ctx, query, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove from blacklist: %w", dbErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// IsBlacklisted checks if a user is blacklisted in a guild
func (db *DB) IsBlacklisted(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM blacklist WHERE guild_id = $1 AND user_id = $2)`

	var exists bool
	if err := db.QueryRowContext(ctx, query, guildID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", dbErr(err))
	}

	return exists, nil
}

// GetBlacklistEntry retrieves a single entry, ErrNotFound when absent
func (db *DB) GetBlacklistEntry(ctx context.Context, guildID, userID models.Snowflake) (*models.BlacklistEntry, error) {
	query := `
		SELECT id, guild_id, user_id, added_by, reason, created_at
		FROM blacklist
		WHERE guild_id = $1 AND user_id = $2
	`

	entry, err := scanBlacklistEntry(db.QueryRowContext(ctx, query, guildID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get blacklist entry: %w", dbErr(err))
	}

	return entry, nil
}

// GetBlacklist lists a guild's blacklist, most recent first
func (db *DB) GetBlacklist(ctx context.Context, guildID models.Snowflake) ([]*models.BlacklistEntry, error) {
	query := `
		SELECT id, guild_id, user_id, added_by, reason, created_at
		FROM blacklist
		WHERE guild_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", dbErr(err))
	}
	defer rows.Close()

	var entries []*models.BlacklistEntry
	for rows.Next() {
		entry, err := scanBlacklistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist: %w", dbErr(err))
	}

	return entries, nil
}

func scanBlacklistEntry(row rowScanner) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	if err := row.Scan(&entry.ID, &entry.GuildID, &entry.UserID, &entry.AddedBy, &entry.Reason, &entry.CreatedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

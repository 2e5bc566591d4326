package database

import (
	"context"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// AddMute records an active mute. A member has at most one mute; muting again
// replaces the expiry and reason.
func (db *DB) AddMute(ctx context.Context, m *models.Mute) error {
	query := `
		INSERT INTO mutes (guild_id, user_id, moderator_id, expires_at, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET expires_at = EXCLUDED.expires_at,
		    reason = EXCLUDED.reason
		RETURNING id, created_at
	`

	err := db.QueryRowContext(ctx, query, m.GuildID, m.UserID, m.ModeratorID, m.ExpiresAt, m.Reason).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add mute: %w", dbErr(err))
	}

	return nil
}

// RemoveMute deletes the mute of a member. Returns false when none was active.
func (db *DB) RemoveMute(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	query := `DELETE FROM mutes WHERE guild_id = $1 AND user_id = $2`

	result, err := db.ExecContext(ctx, query, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove mute: %w", dbErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// RemoveExpiredMute deletes the mute of a member only while it is still
// expired. Returns false when the row is gone or was re-muted in the meantime.
func (db *DB) RemoveExpiredMute(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	query := `DELETE FROM mutes WHERE guild_id = $1 AND user_id = $2 AND expires_at <= NOW()`

	result, err := db.ExecContext(ctx, query, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove expired mute: %w", dbErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetMute retrieves the active mute of a member, ErrNotFound when there is none
func (db *DB) GetMute(ctx context.Context, guildID, userID models.Snowflake) (*models.Mute, error) {
	query := `
		SELECT id, guild_id, user_id, moderator_id, expires_at, reason, created_at
		FROM mutes
		WHERE guild_id = $1 AND user_id = $2
	`

	m, err := scanMute(db.QueryRowContext(ctx, query, guildID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get mute: %w", dbErr(err))
	}

	return m, nil
}

// IsMuted checks if a member has a mute that has not yet expired
func (db *DB) IsMuted(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM mutes WHERE guild_id = $1 AND user_id = $2 AND expires_at > NOW())`

	var muted bool
	if err := db.QueryRowContext(ctx, query, guildID, userID).Scan(&muted); err != nil {
		return false, fmt.Errorf("failed to check mute: %w", dbErr(err))
	}

	return muted, nil
}

// GetExpiredMutes returns every mute whose expiry has passed, across all guilds
func (db *DB) GetExpiredMutes(ctx context.Context) ([]*models.Mute, error) {
	query := `
		SELECT id, guild_id, user_id, moderator_id, expires_at, reason, created_at
		FROM mutes
		WHERE expires_at <= NOW()
		ORDER BY expires_at ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired mutes: %w", dbErr(err))
	}
	defer rows.Close()

	var mutes []*models.Mute
	for rows.Next() {
		m, err := scanMute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mute: %w", err)
		}
		mutes = append(mutes, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mutes: %w", dbErr(err))
	}

	return mutes, nil
}

func scanMute(row rowScanner) (*models.Mute, error) {
	var m models.Mute
	if err := row.Scan(&m.ID, &m.GuildID, &m.UserID, &m.ModeratorID, &m.ExpiresAt, &m.Reason, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

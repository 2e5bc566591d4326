package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// InsertBackup stores a snapshot and fills in its ID and CreatedAt
func (db *DB) InsertBackup(ctx context.Context, b *models.Backup) error {
	if b.Data == nil {
		return &models.ValidationError{Field: "backup_data", Reason: "must not be empty"}
	}

	payload, err := json.Marshal(b.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal backup data: %w", err)
	}

	query := `
		INSERT INTO backups (guild_id, backup_data, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err = db.QueryRowContext(ctx, query, b.GuildID, string(payload), b.CreatedBy).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert backup: %w", dbErr(err))
	}

	return nil
}

// GetBackup retrieves a snapshot with its data. The guild must match, so a
// backup id from another guild reports ErrNotFound.
func (db *DB) GetBackup(ctx context.Context, backupID int64, guildID models.Snowflake) (*models.Backup, error) {
	query := `
		SELECT id, guild_id, backup_data, created_by, created_at
		FROM backups
		WHERE id = $1 AND guild_id = $2
	`

	var b models.Backup
	var payload []byte
	err := db.QueryRowContext(ctx, query, backupID, guildID).Scan(&b.ID, &b.GuildID, &payload, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get backup: %w", dbErr(err))
	}

	var data models.BackupData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to decode backup data: %w", err)
	}
	b.Data = &data

	return &b, nil
}

// ListBackups returns backup metadata for a guild, newest first. Data is left nil.
func (db *DB) ListBackups(ctx context.Context, guildID models.Snowflake) ([]*models.Backup, error) {
	query := `
		SELECT id, guild_id, created_by, created_at
		FROM backups
		WHERE guild_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", dbErr(err))
	}
	defer rows.Close()

	var backups []*models.Backup
	for rows.Next() {
		var b models.Backup
		if err := rows.Scan(&b.ID, &b.GuildID, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		backups = append(backups, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backups: %w", dbErr(err))
	}

	return backups, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// AddStaffNote stores a note and fills in its ID and CreatedAt
func (db *DB) AddStaffNote(ctx context.Context, n *models.StaffNote) error {
	query := `
		INSERT INTO staff_notes (guild_id, user_id, staff_id, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := db.QueryRowContext(ctx, query, n.GuildID, n.UserID, n.StaffID, n.Note).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add staff note: %w", dbErr(err))
	}

	return nil
}

// GetStaffNotes lists the notes about a member, newest first
func (db *DB) GetStaffNotes(ctx context.Context, guildID, userID models.Snowflake) ([]*models.StaffNote, error) {
	query := `
		SELECT id, guild_id, user_id, staff_id, note, created_at
		FROM staff_notes
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := db.QueryContext(ctx, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff notes: %w", dbErr(err))
	}
	defer rows.Close()

	var notes []*models.StaffNote
	for rows.Next() {
		var n models.StaffNote
		if err := rows.Scan(&n.ID, &n.GuildID, &n.UserID, &n.StaffID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff note: %w", err)
		}
		notes = append(notes, &n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staff notes: %w", dbErr(err))
	}

	return notes, nil
}

package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

const memberColumns = `id, guild_id, user_id, username, clan_rank, hangar_power, league, last_active, is_inactive, joined_at`

func scanMember(row rowScanner) (*models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.ID,
		&m.GuildID,
		&m.UserID,
		&m.Username,
		&m.ClanRank,
		&m.HangarPower,
		&m.League,
		&m.LastActive,
		&m.IsInactive,
		&m.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMember inserts or updates a roster row. The username is always
// refreshed; optional columns are only written when present in the patch.
func (db *DB) UpsertMember(ctx context.Context, patch models.MemberPatch) error {
	if patch.HangarPower != nil && patch.HangarPower.Valid && patch.HangarPower.Int64 < 0 {
		return &models.ValidationError{Field: "hangar_power", Reason: "must not be negative"}
	}

	cols := patch.Columns()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	values := map[string]interface{}{
		"guild_id": patch.GuildID,
		"user_id":  patch.UserID,
		"username": patch.Username,
	}
	updates := []string{"username = EXCLUDED.username"}
	for _, name := range names {
		values[name] = cols[name]
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
	}

	query, args, err := db.sb.
		Insert("members").
		SetMap(values).
		Suffix("ON CONFLICT (guild_id, user_id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build member upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert member: %w", dbErr(err))
	}

	return nil
}

// GetMember retrieves a roster row, ErrNotFound when the user is not on the roster
func (db *DB) GetMember(ctx context.Context, guildID, userID models.Snowflake) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE guild_id = $1 AND user_id = $2`

	m, err := scanMember(db.QueryRowContext(ctx, query, guildID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", dbErr(err))
	}

	return m, nil
}

// GetAllMembers returns the whole roster of a guild ordered by join date
func (db *DB) GetAllMembers(ctx context.Context, guildID models.Snowflake) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE guild_id = $1 ORDER BY joined_at ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", dbErr(err))
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", dbErr(err))
	}

	return members, nil
}

// TouchMemberActivity refreshes last_active and clears the inactive flag.
// Users that are not on the roster are ignored; returns whether a row was updated.
func (db *DB) TouchMemberActivity(ctx context.Context, guildID, userID models.Snowflake) (bool, error) {
	query := `
		UPDATE members
		SET last_active = NOW(), is_inactive = FALSE
		WHERE guild_id = $1 AND user_id = $2
	`

	result, err := db.ExecContext(ctx, query, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update member activity: %w", dbErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// MarkInactiveMembers flags members whose last activity is older than
// thresholdDays and returns the ids of the newly flagged members.
func (db *DB) MarkInactiveMembers(ctx context.Context, guildID models.Snowflake, thresholdDays int) ([]models.Snowflake, error) {
	if thresholdDays < 1 {
		return nil, &models.ValidationError{Field: "activity_threshold_days", Reason: fmt.Sprintf("must be a positive number, got %d", thresholdDays)}
	}

	query := `
		UPDATE members
		SET is_inactive = TRUE
		WHERE guild_id = $1
		  AND is_inactive = FALSE
		  AND last_active < NOW() - make_interval(days => $2)
		RETURNING user_id
	`

	rows, err := db.QueryContext(ctx, query, guildID, thresholdDays)
	if err != nil {
		return nil, fmt.Errorf("failed to mark inactive members: %w", dbErr(err))
	}
	defer rows.Close()

	var ids []models.Snowflake
	for rows.Next() {
		var id models.Snowflake
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inactive members: %w", dbErr(err))
	}

	return ids, nil
}

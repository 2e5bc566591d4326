// Package audit records guild administrative actions in the append-only audit log.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/database"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

const (
	// DefaultQueryLimit is used when the caller does not ask for a limit
	DefaultQueryLimit = 20
	// MaxQueryLimit bounds the public log query
	MaxQueryLimit = 50
)

// Store is the subset of the database the trail uses
type Store interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLogEntry) error
	ListAuditLogs(ctx context.Context, guildID models.Snowflake, limit int) ([]*models.AuditLogEntry, error)
	GetGuildConfig(ctx context.Context, guildID models.Snowflake) (*models.GuildConfig, error)
}

// Entry is an action to record. A zero ModeratorID marks a system action and
// empty Details are stored as NULL.
type Entry struct {
	GuildID      models.Snowflake
	Action       Action
	ModeratorID  models.NullSnowflake
	TargetUserID models.NullSnowflake
	Details      string
}

// Trail appends to and reads the audit log
type Trail struct {
	store  Store
	logger *zap.Logger
}

// NewTrail creates a new audit trail
func NewTrail(store Store, logger *zap.Logger) *Trail {
	return &Trail{
		store:  store,
		logger: logger,
	}
}

// Record appends an entry unconditionally and returns its id.
// The store assigns created_at.
func (t *Trail) Record(ctx context.Context, e Entry) (int64, error) {
	if e.Action == "" {
		return 0, &models.ValidationError{Field: "action_type", Reason: "must not be empty"}
	}

	row := &models.AuditLogEntry{
		GuildID:      e.GuildID,
		ActionType:   string(e.Action),
		ModeratorID:  e.ModeratorID,
		TargetUserID: e.TargetUserID,
		Details:      sql.NullString{String: e.Details, Valid: e.Details != ""},
	}
	if err := t.store.InsertAuditLog(ctx, row); err != nil {
		return 0, fmt.Errorf("failed to record %s: %w", e.Action, err)
	}

	t.logger.Debug("audit entry recorded",
		zap.String("guild_id", e.GuildID.String()),
		zap.String("action", string(e.Action)),
		zap.Int64("entry_id", row.ID),
	)

	return row.ID, nil
}

// Track records e if its class allows it under the guild's toggle.
// Security actions are always recorded. Routine actions are recorded only when
// audit_log_enabled is set; a guild without a config row counts as disabled.
// Returns whether an entry was written.
func (t *Trail) Track(ctx context.Context, e Entry) (bool, error) {
	if ClassOf(e.Action) == Routine {
		enabled, err := t.enabled(ctx, e.GuildID)
		if err != nil {
			return false, err
		}
		if !enabled {
			return false, nil
		}
	}

	if _, err := t.Record(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Trail) enabled(ctx context.Context, guildID models.Snowflake) (bool, error) {
	cfg, err := t.store.GetGuildConfig(ctx, guildID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read audit toggle: %w", err)
	}
	return cfg.AuditLogEnabled, nil
}

// Query returns up to limit entries for a guild, newest first.
// Policy bounds are the caller's concern; any positive limit is accepted.
func (t *Trail) Query(ctx context.Context, guildID models.Snowflake, limit int) ([]*models.AuditLogEntry, error) {
	if limit < 1 {
		return nil, &models.ValidationError{Field: "limit", Reason: "must be positive"}
	}

	entries, err := t.store.ListAuditLogs(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return entries, nil
}

// CheckLimit enforces the [1, MaxQueryLimit] bound of the public log command
func CheckLimit(limit int) error {
	if limit < 1 || limit > MaxQueryLimit {
		return &models.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxQueryLimit)}
	}
	return nil
}

// Moderator wraps an actor id for Entry.ModeratorID
func Moderator(id models.Snowflake) models.NullSnowflake {
	return models.NewNullSnowflake(id)
}

// System is the ModeratorID of actions taken by the bot itself
var System = models.NullSnowflake{}

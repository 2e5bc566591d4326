package models

import (
	"database/sql"
	"time"
)

// PermissionRule grants a command to holders of one role. A command may have many rules.
type PermissionRule struct {
	ID             int64     `json:"id"`
	GuildID        Snowflake `json:"guild_id"`
	CommandName    string    `json:"command_name"`
	RequiredRoleID Snowflake `json:"required_role_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// BlacklistEntry denies every command to a user in a guild
type BlacklistEntry struct {
	ID        int64          `json:"id"`
	GuildID   Snowflake      `json:"guild_id"`
	UserID    Snowflake      `json:"user_id"`
	AddedBy   Snowflake      `json:"added_by"`
	Reason    sql.NullString `json:"reason"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditLogEntry is an immutable record of an administrative action.
// A NULL ModeratorID means the action was taken by the system.
type AuditLogEntry struct {
	ID           int64          `json:"id"`
	GuildID      Snowflake      `json:"guild_id"`
	ActionType   string         `json:"action_type"`
	ModeratorID  NullSnowflake  `json:"moderator_id"`
	TargetUserID NullSnowflake  `json:"target_user_id"`
	Details      sql.NullString `json:"details"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Warning is a moderator warning issued to a member
type Warning struct {
	ID          int64     `json:"id"`
	GuildID     Snowflake `json:"guild_id"`
	UserID      Snowflake `json:"user_id"`
	ModeratorID Snowflake `json:"moderator_id"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// StaffNote is a private note left by staff about a member
type StaffNote struct {
	ID        int64     `json:"id"`
	GuildID   Snowflake `json:"guild_id"`
	UserID    Snowflake `json:"user_id"`
	StaffID   Snowflake `json:"staff_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// Mute is an active timed mute, at most one per member
type Mute struct {
	ID          int64          `json:"id"`
	GuildID     Snowflake      `json:"guild_id"`
	UserID      Snowflake      `json:"user_id"`
	ModeratorID Snowflake      `json:"moderator_id"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Reason      sql.NullString `json:"reason"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IsExpired checks if the mute has run out
func (m *Mute) IsExpired() bool {
	return !time.Now().Before(m.ExpiresAt)
}

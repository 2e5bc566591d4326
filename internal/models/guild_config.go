package models

import (
	"database/sql"
	"fmt"
	"time"
)

// DefaultActivityThresholdDays is used when a guild has not configured a threshold
const DefaultActivityThresholdDays = 7

// GuildConfig is the single configuration row of a guild
type GuildConfig struct {
	GuildID                Snowflake      `json:"guild_id"`
	AuditLogEnabled        bool           `json:"audit_log_enabled"`
	AutoRolesEnabled       bool           `json:"auto_roles_enabled"`
	ActivityThresholdDays  int            `json:"activity_threshold_days"`
	ClanTag                sql.NullString `json:"clan_tag"`
	ClanRequirementsLeague sql.NullString `json:"clan_requirements_league"`
	ClanRequirementsPower  sql.NullInt64  `json:"clan_requirements_power"`
	LoggingChannelID       NullSnowflake  `json:"logging_channel_id"`
	AnnouncementRoleID     NullSnowflake  `json:"announcement_role_id"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// GuildConfigPatch is a partial update of a GuildConfig.
//
// A nil field leaves the column unchanged. A non-nil field is written as-is, so a
// pointer to an invalid sql.NullString / NullSnowflake clears the column.
type GuildConfigPatch struct {
	AuditLogEnabled        *bool
	AutoRolesEnabled       *bool
	ActivityThresholdDays  *int
	ClanTag                *sql.NullString
	ClanRequirementsLeague *sql.NullString
	ClanRequirementsPower  *sql.NullInt64
	LoggingChannelID       *NullSnowflake
	AnnouncementRoleID     *NullSnowflake
}

// JoinGuildConfigPatch is applied whenever the bot joins a guild. A rejoin
// turns audit logging back on and restores the default threshold; every
// other column keeps its stored value.
func JoinGuildConfigPatch() GuildConfigPatch {
	return GuildConfigPatch{
		AuditLogEnabled:       Ptr(true),
		ActivityThresholdDays: Ptr(DefaultActivityThresholdDays),
	}
}

// DefaultGuildConfigPatch sets every column back to its default, used by setup and reset
func DefaultGuildConfigPatch() GuildConfigPatch {
	return GuildConfigPatch{
		AuditLogEnabled:        Ptr(true),
		AutoRolesEnabled:       Ptr(false),
		ActivityThresholdDays:  Ptr(DefaultActivityThresholdDays),
		ClanTag:                &sql.NullString{},
		ClanRequirementsLeague: &sql.NullString{},
		ClanRequirementsPower:  &sql.NullInt64{},
		LoggingChannelID:       &NullSnowflake{},
		AnnouncementRoleID:     &NullSnowflake{},
	}
}

// PatchFromConfig builds a patch that rewrites every column to the values of cfg
func PatchFromConfig(cfg *GuildConfig) GuildConfigPatch {
	return GuildConfigPatch{
		AuditLogEnabled:        Ptr(cfg.AuditLogEnabled),
		AutoRolesEnabled:       Ptr(cfg.AutoRolesEnabled),
		ActivityThresholdDays:  Ptr(cfg.ActivityThresholdDays),
		ClanTag:                Ptr(cfg.ClanTag),
		ClanRequirementsLeague: Ptr(cfg.ClanRequirementsLeague),
		ClanRequirementsPower:  Ptr(cfg.ClanRequirementsPower),
		LoggingChannelID:       Ptr(cfg.LoggingChannelID),
		AnnouncementRoleID:     Ptr(cfg.AnnouncementRoleID),
	}
}

// IsEmpty reports whether the patch changes nothing
func (p GuildConfigPatch) IsEmpty() bool {
	return p.AuditLogEnabled == nil &&
		p.AutoRolesEnabled == nil &&
		p.ActivityThresholdDays == nil &&
		p.ClanTag == nil &&
		p.ClanRequirementsLeague == nil &&
		p.ClanRequirementsPower == nil &&
		p.LoggingChannelID == nil &&
		p.AnnouncementRoleID == nil
}

// Validate rejects values the store must never see
func (p GuildConfigPatch) Validate() error {
	if p.ActivityThresholdDays != nil && *p.ActivityThresholdDays < 1 {
		return &ValidationError{Field: "activity_threshold_days", Reason: fmt.Sprintf("must be a positive number, got %d", *p.ActivityThresholdDays)}
	}
	if p.ClanRequirementsPower != nil && p.ClanRequirementsPower.Valid && p.ClanRequirementsPower.Int64 < 0 {
		return &ValidationError{Field: "clan_requirements_power", Reason: "must not be negative"}
	}
	return nil
}

// Columns returns the column/value pairs present in the patch
func (p GuildConfigPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.AuditLogEnabled != nil {
		cols["audit_log_enabled"] = *p.AuditLogEnabled
	}
	if p.AutoRolesEnabled != nil {
		cols["auto_roles_enabled"] = *p.AutoRolesEnabled
	}
	if p.ActivityThresholdDays != nil {
		cols["activity_threshold_days"] = *p.ActivityThresholdDays
	}
	if p.ClanTag != nil {
		cols["clan_tag"] = *p.ClanTag
	}
	if p.ClanRequirementsLeague != nil {
		cols["clan_requirements_league"] = *p.ClanRequirementsLeague
	}
	if p.ClanRequirementsPower != nil {
		cols["clan_requirements_power"] = *p.ClanRequirementsPower
	}
	if p.LoggingChannelID != nil {
		cols["logging_channel_id"] = *p.LoggingChannelID
	}
	if p.AnnouncementRoleID != nil {
		cols["announcement_role_id"] = *p.AnnouncementRoleID
	}
	return cols
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

package models

import (
	"database/sql"
	"time"
)

// Member is a roster row for a guild member
type Member struct {
	ID          int64          `json:"id"`
	GuildID     Snowflake      `json:"guild_id"`
	UserID      Snowflake      `json:"user_id"`
	Username    string         `json:"username"`
	ClanRank    sql.NullString `json:"clan_rank"`
	HangarPower sql.NullInt64  `json:"hangar_power"`
	League      sql.NullString `json:"league"`
	LastActive  time.Time      `json:"last_active"`
	IsInactive  bool           `json:"is_inactive"`
	JoinedAt    time.Time      `json:"joined_at"`
}

// MemberPatch upserts a roster row. Username is always written; nil optional
// fields are left unchanged on update and default on insert.
type MemberPatch struct {
	GuildID     Snowflake
	UserID      Snowflake
	Username    string
	ClanRank    *sql.NullString
	HangarPower *sql.NullInt64
	League      *sql.NullString
}

// Columns returns the optional column/value pairs present in the patch
func (p MemberPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.ClanRank != nil {
		cols["clan_rank"] = *p.ClanRank
	}
	if p.HangarPower != nil {
		cols["hangar_power"] = *p.HangarPower
	}
	if p.League != nil {
		cols["league"] = *p.League
	}
	return cols
}

// RoleMapping links a platform role to a clan rank
type RoleMapping struct {
	ID            int64     `json:"id"`
	GuildID       Snowflake `json:"guild_id"`
	DiscordRoleID Snowflake `json:"discord_role_id"`
	ClanRank      string    `json:"clan_rank"`
	CreatedAt     time.Time `json:"created_at"`
}

package models

import "time"

// Backup is an immutable point-in-time snapshot of a guild
type Backup struct {
	ID        int64       `json:"id"`
	GuildID   Snowflake   `json:"guild_id"`
	Data      *BackupData `json:"backup_data,omitempty"`
	CreatedBy Snowflake   `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// BackupData is the JSON document stored in backups.backup_data
type BackupData struct {
	Config       *GuildConfig  `json:"config"`
	Members      []Member      `json:"members"`
	RoleMappings []RoleMapping `json:"role_mappings"`
	Timestamp    time.Time     `json:"timestamp"`
}

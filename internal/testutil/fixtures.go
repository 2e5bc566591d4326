package testutil

import (
	"database/sql"
	"time"

	"github.com/parsascontentcorner/clanwarden/internal/config"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// Well-known ids used across packages
const (
	TestGuildID     models.Snowflake = 100000000000000001
	TestUserID      models.Snowflake = 200000000000000002
	TestModeratorID models.Snowflake = 300000000000000003
	TestRoleID      models.Snowflake = 400000000000000004
	TestChannelID   models.Snowflake = 500000000000000005
)

// GenerateGuildConfig creates a fully populated guild configuration
func GenerateGuildConfig(guildID models.Snowflake) *models.GuildConfig {
	return &models.GuildConfig{
		GuildID:                guildID,
		AuditLogEnabled:        true,
		AutoRolesEnabled:       true,
		ActivityThresholdDays:  14,
		ClanTag:                sql.NullString{String: "WRDN", Valid: true},
		ClanRequirementsLeague: sql.NullString{String: "Gold", Valid: true},
		ClanRequirementsPower:  sql.NullInt64{Int64: 5000, Valid: true},
		LoggingChannelID:       models.NewNullSnowflake(TestChannelID),
		AnnouncementRoleID:     models.NewNullSnowflake(TestRoleID),
	}
}

// GenerateMemberPatch creates a roster upsert with every optional field set
func GenerateMemberPatch(guildID, userID models.Snowflake, username string) models.MemberPatch {
	return models.MemberPatch{
		GuildID:     guildID,
		UserID:      userID,
		Username:    username,
		ClanRank:    &sql.NullString{String: "R2", Valid: true},
		HangarPower: &sql.NullInt64{Int64: 1500, Valid: true},
		League:      &sql.NullString{String: "Silver", Valid: true},
	}
}

// GenerateMember creates a roster row as returned by the store
func GenerateMember(guildID, userID models.Snowflake, username string) *models.Member {
	now := time.Now().UTC()
	return &models.Member{
		GuildID:     guildID,
		UserID:      userID,
		Username:    username,
		ClanRank:    sql.NullString{String: "R2", Valid: true},
		HangarPower: sql.NullInt64{Int64: 1500, Valid: true},
		League:      sql.NullString{String: "Silver", Valid: true},
		LastActive:  now,
		JoinedAt:    now,
	}
}

// GenerateMute creates a mute expiring after d; a negative d is already expired
func GenerateMute(guildID, userID models.Snowflake, d time.Duration) *models.Mute {
	return &models.Mute{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: TestModeratorID,
		ExpiresAt:   time.Now().UTC().Add(d),
		Reason:      sql.NullString{String: "test mute", Valid: true},
	}
}

// GenerateTestConfig creates a test configuration with valid values.
func GenerateTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			HealthPort: "8080",
			GRPCPort:   "50051",
			Env:        "test",
		},
		Discord: config.DiscordConfig{
			BotToken: "test_bot_token",
			AppID:    "600000000000000006",
		},
		Database: config.DatabaseConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "testuser",
			Password:     "testpass",
			Name:         "testdb",
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		},
		Moderation: config.ModerationConfig{
			MuteSweepInterval: 5 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			CommandsPerSecond: 1,
			Burst:             5,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "console",
		},
	}
}

package commands

import (
	"context"
	"errors"
	"time"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

var (
	// ErrForbidden is returned by a Platform when the bot lacks the permission
	ErrForbidden = errors.New("missing platform permission")
	// ErrPlatformNotFound is returned by a Platform for unknown users, messages or bans
	ErrPlatformNotFound = errors.New("platform resource not found")
)

// Platform performs the actions a command decides on
type Platform interface {
	TimeoutMember(ctx context.Context, guildID, userID models.Snowflake, until time.Time, reason string) error
	ClearTimeout(ctx context.Context, guildID, userID models.Snowflake) error
	KickMember(ctx context.Context, guildID, userID models.Snowflake, reason string) error
	BanMember(ctx context.Context, guildID, userID models.Snowflake, reason string) error
	UnbanMember(ctx context.Context, guildID, userID models.Snowflake) error
	FetchUser(ctx context.Context, userID models.Snowflake) (*User, error)
	SendDirectMessage(ctx context.Context, userID models.Snowflake, content string) error
	SendMessage(ctx context.Context, channelID models.Snowflake, msg Message) error
	// PurgeMessages deletes up to limit recent messages and returns how many were deleted
	PurgeMessages(ctx context.Context, channelID models.Snowflake, limit int, botsOnly bool) (int, error)
	SetChannelLocked(ctx context.Context, guildID, channelID models.Snowflake, locked bool) error
	SetSlowmode(ctx context.Context, channelID models.Snowflake, seconds int) error
	AddRole(ctx context.Context, guildID, userID, roleID models.Snowflake) error
	// GuildMemberRoles returns the live roles of every member of the guild
	GuildMemberRoles(ctx context.Context, guildID models.Snowflake) (map[models.Snowflake][]models.Snowflake, error)
	ChannelExists(ctx context.Context, guildID, channelID models.Snowflake) (bool, error)
	MemberProfile(ctx context.Context, guildID, userID models.Snowflake) (*MemberProfile, error)
	FetchAttachment(ctx context.Context, url string) ([]byte, error)
	Info() BotInfo
}

// Message is a message the bot posts in a channel
type Message struct {
	Content string
	Embed   *Embed
	// ReplyTo references a message in the same channel
	ReplyTo models.NullSnowflake
}

// Embed is a rich message block
type Embed struct {
	Title       string
	Description string
	Author      string
	Footer      string
	Color       int
	Fields      []EmbedField
}

// EmbedField is one name/value pair of an Embed
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

const (
	colorBlue   = 0x3498db
	colorGold   = 0xf1c40f
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
)

// User is a platform account
type User struct {
	ID       models.Snowflake
	Username string
	Bot      bool
}

// MemberProfile is what a profile scan shows about a guild member
type MemberProfile struct {
	UserID        models.Snowflake
	Username      string
	DisplayName   string
	Bot           bool
	CreatedAt     time.Time
	JoinedAt      time.Time
	BoostingSince *time.Time
	TimedOutUntil *time.Time
}

// BotInfo describes the running bot session
type BotInfo struct {
	Ready   bool
	Name    string
	ID      models.Snowflake
	Guilds  int
	Members int
	Latency time.Duration
}

// Package bot connects the command router and the roster to a Discord
// gateway session.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/commands"
	"github.com/parsascontentcorner/clanwarden/internal/config"
	"github.com/parsascontentcorner/clanwarden/internal/members"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

const (
	commandTimeout = 30 * time.Second
	eventTimeout   = 10 * time.Second
	userAgent      = "clanwarden (https://github.com/parsascontentcorner/clanwarden)"
)

var (
	// ErrConfig is returned when the bot token is missing
	ErrConfig = errors.New("discord bot token is required")
	// ErrOpen is returned when the gateway connection fails
	ErrOpen = errors.New("failed to open discord session")
)

// Handler answers a decoded command invocation
type Handler interface {
	Handle(ctx context.Context, inv *commands.Invocation) commands.Response
}

// GuildStore creates the default configuration of newly joined guilds
type GuildStore interface {
	EnsureGuildConfig(ctx context.Context, guildID models.Snowflake) (bool, error)
	UpsertGuildConfig(ctx context.Context, guildID models.Snowflake, patch models.GuildConfigPatch) error
}

// Tracker records routine audit entries
type Tracker interface {
	Track(ctx context.Context, e audit.Entry) (bool, error)
}

// Deps are the collaborators of a Bot
type Deps struct {
	Handler Handler
	Guilds  GuildStore
	Roster  *members.Roster
	Audit   Tracker
	Logger  *zap.Logger
}

// Bot owns the gateway session and dispatches its events
type Bot struct {
	session        *discordgo.Session
	handler        Handler
	guilds         GuildStore
	roster         *members.Roster
	audit          Tracker
	logger         *zap.Logger
	appID          string
	commandGuildID string
	isReady        atomic.Bool

	// guild ids the gateway already delivered or listed in READY
	known sync.Map
}

// NewSession creates a gateway session with the intents the bot needs
func NewSession(cfg *config.DiscordConfig) (*discordgo.Session, error) {
	if cfg.BotToken == "" {
		return nil, ErrConfig
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.UserAgent = userAgent
	session.Identify.Intents |= discordgo.IntentsGuilds
	session.Identify.Intents |= discordgo.IntentsGuildMessages
	session.Identify.Intents |= discordgo.IntentMessageContent
	session.Identify.Intents |= discordgo.IntentGuildMembers
	return session, nil
}

// New creates a bot and registers its event handlers on the session
func New(session *discordgo.Session, cfg *config.DiscordConfig, deps Deps) *Bot {
	b := &Bot{
		session:        session,
		handler:        deps.Handler,
		guilds:         deps.Guilds,
		roster:         deps.Roster,
		audit:          deps.Audit,
		logger:         deps.Logger,
		appID:          cfg.AppID,
		commandGuildID: cfg.CommandGuildID,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onConnect)
	session.AddHandler(b.onDisconnect)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onGuildDelete)
	session.AddHandler(b.onGuildMemberUpdate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	return b
}

// Start opens the gateway connection
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return errors.Join(err, ErrOpen)
	}
	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	b.isReady.Store(false)
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

// Ready reports whether the gateway connection is up
func (b *Bot) Ready() bool {
	return b.isReady.Load()
}

// RegisterCommands overwrites the registered slash commands. Commands are
// registered globally unless a command guild is configured.
func (b *Bot) RegisterCommands() error {
	appID := b.appID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}

	defs := Definitions()
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.commandGuildID, defs)
	if err != nil {
		return fmt.Errorf("failed to register slash commands: %w", err)
	}

	b.logger.Info("registered slash commands",
		zap.Int("count", len(registered)),
		zap.Int("routes", len(routeKeys(defs))),
		zap.String("guild_id", b.commandGuildID),
	)
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord state changed",
		zap.String("state", "ready"),
		zap.String("username", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
	for _, g := range r.Guilds {
		b.known.Store(g.ID, struct{}{})
	}
	if err := b.RegisterCommands(); err != nil {
		b.logger.Error("failed to register slash commands", zap.Error(err))
	}
}

func (b *Bot) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	b.isReady.Store(true)
	b.logger.Info("discord state changed", zap.String("state", "connected"))
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.isReady.Store(false)
	b.logger.Info("discord state changed", zap.String("state", "disconnected"))
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	guildID, err := models.ParseSnowflake(g.ID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	// GUILD_CREATE also replays every guild on connect; only unseen ids are joins
	if _, seen := b.known.LoadOrStore(g.ID, struct{}{}); seen {
		if _, err := b.guilds.EnsureGuildConfig(ctx, guildID); err != nil {
			b.logger.Error("failed to initialize guild config", zap.String("guild_id", g.ID), zap.Error(err))
		}
		return
	}

	if err := b.guilds.UpsertGuildConfig(ctx, guildID, models.JoinGuildConfigPatch()); err != nil {
		b.logger.Error("failed to apply guild join defaults", zap.String("guild_id", g.ID), zap.Error(err))
		return
	}
	b.logger.Info("joined guild", zap.String("guild_id", g.ID), zap.String("name", g.Name))
}

// onGuildDelete forgets guilds the bot left so a rejoin counts as a join.
// Outages also send GUILD_DELETE, flagged unavailable.
func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	b.known.Delete(g.ID)
	b.logger.Info("left guild", zap.String("guild_id", g.ID))
}

// onGuildMemberUpdate applies the rank linked to any role the member gained.
// Updates without a cached previous state carry no role diff and are ignored.
func (b *Bot) onGuildMemberUpdate(_ *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.Member == nil || m.User == nil || m.BeforeUpdate == nil {
		return
	}

	guildID, err := models.ParseSnowflake(m.GuildID)
	if err != nil {
		return
	}
	userID, err := models.ParseSnowflake(m.User.ID)
	if err != nil {
		return
	}
	before, _ := models.ParseSnowflakes(m.BeforeUpdate.Roles)
	after, _ := models.ParseSnowflakes(m.Roles)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	rank, err := b.roster.AutoRank(ctx, guildID, userID, m.User.Username, before, after)
	if err != nil {
		b.logger.Error("failed to apply auto rank",
			zap.String("guild_id", m.GuildID),
			zap.String("user_id", m.User.ID),
			zap.Error(err),
		)
		return
	}
	if rank == "" {
		return
	}

	if _, err := b.audit.Track(ctx, audit.Entry{
		GuildID:      guildID,
		Action:       audit.ActionAutoRank,
		ModeratorID:  audit.System,
		TargetUserID: models.NewNullSnowflake(userID),
		Details:      "Rank set to " + rank,
	}); err != nil {
		b.logger.Warn("failed to record audit entry", zap.String("action", string(audit.ActionAutoRank)), zap.Error(err))
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}

	guildID, err := models.ParseSnowflake(m.GuildID)
	if err != nil {
		return
	}
	userID, err := models.ParseSnowflake(m.Author.ID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if _, err := b.roster.TouchActivity(ctx, guildID, userID); err != nil {
		b.logger.Warn("failed to record activity",
			zap.String("guild_id", m.GuildID),
			zap.String("user_id", m.Author.ID),
			zap.Error(err),
		)
	}
}

// onInteractionCreate defers an ephemeral reply, runs the command and edits
// the reply with the result.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	requestID := uuid.NewString()
	inv, ok := b.toInvocation(i, requestID)
	if !ok {
		respond(s, i, "This command can only be used in a server.", b.logger)
		return
	}

	deferred := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}
	if err := s.InteractionRespond(i.Interaction, deferred); err != nil {
		b.logger.Error("failed to defer interaction", zap.String("request_id", requestID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	resp := b.handler.Handle(ctx, inv)
	if _, err := s.InteractionResponseEdit(i.Interaction, responseEdit(resp), discordgo.WithContext(ctx)); err != nil {
		b.logger.Error("failed to send command response",
			zap.String("request_id", requestID),
			zap.String("command", inv.Key()),
			zap.Error(err),
		)
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, logger *zap.Logger) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		logger.Error("failed to respond to interaction", zap.Error(err))
	}
}

func responseEdit(resp commands.Response) *discordgo.WebhookEdit {
	edit := &discordgo.WebhookEdit{}
	if resp.Content != "" {
		edit.Content = &resp.Content
	}
	if resp.Embed != nil {
		embeds := []*discordgo.MessageEmbed{renderEmbed(resp.Embed)}
		edit.Embeds = &embeds
	}
	if resp.File != nil {
		edit.Files = []*discordgo.File{{
			Name:        resp.File.Name,
			ContentType: resp.File.ContentType,
			Reader:      bytes.NewReader(resp.File.Data),
		}}
	}
	return edit
}

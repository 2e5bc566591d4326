package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/leighmacdonald/discordgo-embed"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/commands"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

const (
	// bulk deletes only accept messages younger than two weeks
	bulkDeleteMaxAge   = 14 * 24 * time.Hour
	guildMembersPage   = 1000
	maxAttachmentBytes = 8 << 20
)

// Platform performs command actions through the Discord REST API
type Platform struct {
	session *discordgo.Session
	logger  *zap.Logger
	now     func() time.Time
}

// NewPlatform creates a platform bound to a session
func NewPlatform(session *discordgo.Session, logger *zap.Logger) *Platform {
	return &Platform{
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

var _ commands.Platform = (*Platform)(nil)

// mapError translates Discord REST failures into the command errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", commands.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", commands.ErrPlatformNotFound, err)
		}
	}
	return err
}

func reasonOption(reason string) []discordgo.RequestOption {
	if reason == "" {
		return nil
	}
	return []discordgo.RequestOption{discordgo.WithAuditLogReason(reason)}
}

func (p *Platform) opts(ctx context.Context, extra ...discordgo.RequestOption) []discordgo.RequestOption {
	return append([]discordgo.RequestOption{discordgo.WithContext(ctx)}, extra...)
}

// TimeoutMember applies a native timeout until the given time
func (p *Platform) TimeoutMember(ctx context.Context, guildID, userID models.Snowflake, until time.Time, reason string) error {
	return mapError(p.session.GuildMemberTimeout(guildID.String(), userID.String(), &until, p.opts(ctx, reasonOption(reason)...)...))
}

// ClearTimeout lifts a native timeout
func (p *Platform) ClearTimeout(ctx context.Context, guildID, userID models.Snowflake) error {
	return mapError(p.session.GuildMemberTimeout(guildID.String(), userID.String(), nil, p.opts(ctx)...))
}

// KickMember removes a member from the guild
func (p *Platform) KickMember(ctx context.Context, guildID, userID models.Snowflake, reason string) error {
	return mapError(p.session.GuildMemberDeleteWithReason(guildID.String(), userID.String(), reason, p.opts(ctx)...))
}

// BanMember bans a member without deleting their messages
func (p *Platform) BanMember(ctx context.Context, guildID, userID models.Snowflake, reason string) error {
	return mapError(p.session.GuildBanCreateWithReason(guildID.String(), userID.String(), reason, 0, p.opts(ctx)...))
}

// UnbanMember lifts a ban
func (p *Platform) UnbanMember(ctx context.Context, guildID, userID models.Snowflake) error {
	return mapError(p.session.GuildBanDelete(guildID.String(), userID.String(), p.opts(ctx)...))
}

// FetchUser looks up an account by id
func (p *Platform) FetchUser(ctx context.Context, userID models.Snowflake) (*commands.User, error) {
	u, err := p.session.User(userID.String(), p.opts(ctx)...)
	if err != nil {
		return nil, mapError(err)
	}
	return &commands.User{ID: userID, Username: u.Username, Bot: u.Bot}, nil
}

// SendDirectMessage opens a DM channel with a user and posts content to it
func (p *Platform) SendDirectMessage(ctx context.Context, userID models.Snowflake, content string) error {
	channel, err := p.session.UserChannelCreate(userID.String(), p.opts(ctx)...)
	if err != nil {
		return mapError(err)
	}
	_, err = p.session.ChannelMessageSend(channel.ID, content, p.opts(ctx)...)
	return mapError(err)
}

// SendMessage posts a message in a channel
func (p *Platform) SendMessage(ctx context.Context, channelID models.Snowflake, msg commands.Message) error {
	send := &discordgo.MessageSend{
		Content: msg.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeRoles, discordgo.AllowedMentionTypeUsers},
		},
	}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{renderEmbed(msg.Embed)}
	}
	if msg.ReplyTo.Valid {
		send.Reference = &discordgo.MessageReference{
			MessageID: msg.ReplyTo.Snowflake.String(),
			ChannelID: channelID.String(),
		}
	}

	_, err := p.session.ChannelMessageSendComplex(channelID.String(), send, p.opts(ctx)...)
	return mapError(err)
}

// PurgeMessages deletes recent messages. Messages older than two weeks are
// skipped because the bulk endpoint rejects them.
func (p *Platform) PurgeMessages(ctx context.Context, channelID models.Snowflake, limit int, botsOnly bool) (int, error) {
	msgs, err := p.session.ChannelMessages(channelID.String(), limit, "", "", "", p.opts(ctx)...)
	if err != nil {
		return 0, mapError(err)
	}

	cutoff := p.now().Add(-bulkDeleteMaxAge)
	var ids []string
	for _, m := range msgs {
		if botsOnly && (m.Author == nil || !m.Author.Bot) {
			continue
		}
		if m.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, m.ID)
	}

	switch len(ids) {
	case 0:
		return 0, nil
	case 1:
		if err := p.session.ChannelMessageDelete(channelID.String(), ids[0], p.opts(ctx)...); err != nil {
			return 0, mapError(err)
		}
	default:
		if err := p.session.ChannelMessagesBulkDelete(channelID.String(), ids, p.opts(ctx)...); err != nil {
			return 0, mapError(err)
		}
	}
	return len(ids), nil
}

// SetChannelLocked denies or restores Send Messages for @everyone
func (p *Platform) SetChannelLocked(ctx context.Context, guildID, channelID models.Snowflake, locked bool) error {
	var deny int64
	if locked {
		deny = discordgo.PermissionSendMessages
	}
	// the @everyone role shares the guild id
	return mapError(p.session.ChannelPermissionSet(channelID.String(), guildID.String(),
		discordgo.PermissionOverwriteTypeRole, 0, deny, p.opts(ctx)...))
}

// SetSlowmode sets the per-user message delay of a channel
func (p *Platform) SetSlowmode(ctx context.Context, channelID models.Snowflake, seconds int) error {
	_, err := p.session.ChannelEdit(channelID.String(), &discordgo.ChannelEdit{RateLimitPerUser: &seconds}, p.opts(ctx)...)
	return mapError(err)
}

// AddRole grants a role to a member
func (p *Platform) AddRole(ctx context.Context, guildID, userID, roleID models.Snowflake) error {
	return mapError(p.session.GuildMemberRoleAdd(guildID.String(), userID.String(), roleID.String(), p.opts(ctx)...))
}

// GuildMemberRoles pages through the member list of a guild
func (p *Platform) GuildMemberRoles(ctx context.Context, guildID models.Snowflake) (map[models.Snowflake][]models.Snowflake, error) {
	out := make(map[models.Snowflake][]models.Snowflake)
	after := ""
	for {
		page, err := p.session.GuildMembers(guildID.String(), after, guildMembersPage, p.opts(ctx)...)
		if err != nil {
			return nil, mapError(err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			after = m.User.ID
			id, err := models.ParseSnowflake(m.User.ID)
			if err != nil {
				continue
			}
			roles, err := models.ParseSnowflakes(m.Roles)
			if err != nil {
				p.logger.Warn("skipping member with malformed roles",
					zap.String("guild_id", guildID.String()),
					zap.String("user_id", m.User.ID),
				)
				continue
			}
			out[id] = roles
		}
		if len(page) < guildMembersPage {
			return out, nil
		}
	}
}

// ChannelExists reports whether a channel exists in the guild
func (p *Platform) ChannelExists(ctx context.Context, guildID, channelID models.Snowflake) (bool, error) {
	ch, err := p.session.Channel(channelID.String(), p.opts(ctx)...)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, commands.ErrPlatformNotFound) || errors.Is(err, commands.ErrForbidden) {
			return false, nil
		}
		return false, err
	}
	return ch.GuildID == guildID.String(), nil
}

// MemberProfile loads a member and their account details
func (p *Platform) MemberProfile(ctx context.Context, guildID, userID models.Snowflake) (*commands.MemberProfile, error) {
	m, err := p.session.GuildMember(guildID.String(), userID.String(), p.opts(ctx)...)
	if err != nil {
		return nil, mapError(err)
	}
	if m.User == nil {
		return nil, commands.ErrPlatformNotFound
	}

	created, err := discordgo.SnowflakeTimestamp(m.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode account age: %w", err)
	}

	display := m.Nick
	if display == "" {
		display = m.User.GlobalName
	}
	if display == "" {
		display = m.User.Username
	}

	return &commands.MemberProfile{
		UserID:        userID,
		Username:      m.User.Username,
		DisplayName:   display,
		Bot:           m.User.Bot,
		CreatedAt:     created,
		JoinedAt:      m.JoinedAt,
		BoostingSince: m.PremiumSince,
		TimedOutUntil: m.CommunicationDisabledUntil,
	}, nil
}

// FetchAttachment downloads an uploaded file through the session's client
func (p *Platform) FetchAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment request: %w", err)
	}

	resp, err := p.session.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("failed to close attachment body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if len(data) > maxAttachmentBytes {
		return nil, &models.ValidationError{Field: "file", Reason: "file is larger than 8 MB"}
	}
	return data, nil
}

// Info reports the session state
func (p *Platform) Info() commands.BotInfo {
	info := commands.BotInfo{Latency: p.session.HeartbeatLatency()}
	state := p.session.State
	if state == nil {
		return info
	}

	state.RLock()
	defer state.RUnlock()
	if state.User != nil {
		info.Ready = true
		info.Name = state.User.Username
		info.ID, _ = models.ParseSnowflake(state.User.ID)
	}
	info.Guilds = len(state.Guilds)
	for _, g := range state.Guilds {
		info.Members += g.MemberCount
	}
	return info
}

func renderEmbed(e *commands.Embed) *discordgo.MessageEmbed {
	out := embed.NewEmbed().
		SetColor(e.Color)
	if e.Title != "" {
		out.SetTitle(e.Title)
	}
	if e.Description != "" {
		out.SetDescription(e.Description)
	}
	if e.Author != "" {
		out.SetAuthor(e.Author)
	}
	if e.Footer != "" {
		out.SetFooter(e.Footer)
	}
	for _, f := range e.Fields {
		out.AddField(f.Name, f.Value)
		if f.Inline {
			out.MakeFieldInline()
		}
	}
	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return out.Truncate().MessageEmbed
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// echo posts a message as the bot, optionally as a reply to a message in
// the same channel.
func (r *Router) echo(ctx context.Context, inv *Invocation) (Response, error) {
	text, err := requiredString(inv, "message")
	if err != nil {
		return Response{}, err
	}
	format, _ := inv.String("format")
	if format == "" {
		format = "plain"
	}

	var msg Message
	switch format {
	case "plain":
		msg.Content = text
	case "code":
		msg.Content = "```\n" + text + "\n```"
	case "embed":
		msg.Embed = &Embed{Description: text, Color: colorBlue, Footer: "Sent by " + inv.ActorName}
	default:
		return Response{}, &models.ValidationError{Field: "format", Reason: "must be plain, code or embed"}
	}

	rawReply, hasReply := inv.String("reply")
	rawReply = strings.TrimSpace(rawReply)
	hasReply = hasReply && rawReply != ""
	if hasReply {
		id, err := models.ParseSnowflake(rawReply)
		if err != nil {
			return reply("Invalid message ID provided."), nil
		}
		msg.ReplyTo = models.NewNullSnowflake(id)
	}

	if err := r.platform.SendMessage(ctx, inv.ChannelID, msg); err != nil {
		switch {
		case errors.Is(err, ErrPlatformNotFound):
			return reply("Invalid message ID provided."), nil
		case errors.Is(err, ErrForbidden):
			return reply("I don't have permission to send messages in this channel."), nil
		}
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionEcho, models.NullSnowflake{}, fmt.Sprintf("Format: %s, Reply: %s", format, strconv.FormatBool(hasReply)))
	return reply("Message sent successfully!"), nil
}

func (r *Router) ping(_ context.Context, _ *Invocation) (Response, error) {
	return reply("🏓 Pong! Latency: %dms", r.platform.Info().Latency.Milliseconds()), nil
}

func (r *Router) botInfo(_ context.Context, _ *Invocation) (Response, error) {
	info := r.platform.Info()
	return Response{Embed: &Embed{
		Title:  "Bot Information",
		Color:  colorBlue,
		Footer: "Clan Management Bot",
		Fields: []EmbedField{
			{Name: "Bot Name", Value: info.Name, Inline: true},
			{Name: "Servers", Value: strconv.Itoa(info.Guilds), Inline: true},
			{Name: "Latency", Value: fmt.Sprintf("%dms", info.Latency.Milliseconds()), Inline: true},
		},
	}}, nil
}

var helpCategories = []EmbedField{
	{
		Name:  "🛠️ Utility Commands",
		Value: "`/echo` `/ping` `/botinfo` `/help`",
	},
	{
		Name: "⚙️ Administrative Commands",
		Value: "`/setup` `/reset-bot` `/config view` `/config set` `/clan set-tag` `/clan set-requirements` " +
			"`/clan message` `/backup` `/restore` `/listbackups` `/logs` `/permissions set` `/permissions remove` " +
			"`/permissions list` `/blacklist add` `/blacklist remove` `/blacklist list` `/audit-log` `/auto-roles`",
	},
	{
		Name: "🛡️ Moderation Commands",
		Value: "`/warn` `/warnings` `/remove-warning` `/mute` `/unmute` `/kick` `/ban` `/unban` " +
			"`/purge` `/note` `/notes` `/verify` `/report` `/clean-bots` `/raid-shield` " +
			"`/lock-channel` `/unlock-channel` `/slowmode` `/scan-profile`",
	},
	{
		Name: "👥 Member Management",
		Value: "`/role-link` `/sync-ranks` `/import-members` `/export-members` " +
			"`/activity-threshold` `/force-activity-scan`",
	},
}

func (r *Router) help(_ context.Context, _ *Invocation) (Response, error) {
	return Response{Embed: &Embed{
		Title:       "📚 Command Help",
		Description: "Here are all available commands organized by category:",
		Color:       colorBlue,
		Footer:      "Use /command_name to execute a command",
		Fields:      helpCategories,
	}}, nil
}

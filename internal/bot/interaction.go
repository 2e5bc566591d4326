package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/parsascontentcorner/clanwarden/internal/commands"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// toInvocation decodes a slash command interaction. It returns false for
// events outside a guild.
func (b *Bot) toInvocation(i *discordgo.InteractionCreate, requestID string) (*commands.Invocation, bool) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return nil, false
	}

	guildID, err := models.ParseSnowflake(i.GuildID)
	if err != nil {
		return nil, false
	}
	actorID, err := models.ParseSnowflake(i.Member.User.ID)
	if err != nil {
		return nil, false
	}
	channelID, _ := models.ParseSnowflake(i.ChannelID)
	roles, _ := models.ParseSnowflakes(i.Member.Roles)

	data := i.ApplicationCommandData()
	inv := &commands.Invocation{
		RequestID:       requestID,
		GuildID:         guildID,
		ChannelID:       channelID,
		ActorID:         actorID,
		ActorName:       i.Member.User.Username,
		IsAdministrator: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
		RoleIDs:         roles,
		Name:            data.Name,
		Options:         make(map[string]interface{}),
	}
	if g, err := b.session.State.Guild(i.GuildID); err == nil {
		inv.GuildName = g.Name
	}
	if ch, err := b.session.State.Channel(i.ChannelID); err == nil {
		inv.ChannelName = ch.Name
	}

	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		inv.Sub = opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		if v, ok := optionValue(o, data.Resolved); ok {
			inv.Options[o.Name] = v
		}
	}
	return inv, true
}

func optionValue(o *discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) (interface{}, bool) {
	switch o.Type {
	case discordgo.ApplicationCommandOptionString:
		return o.StringValue(), true
	case discordgo.ApplicationCommandOptionInteger:
		return o.IntValue(), true
	case discordgo.ApplicationCommandOptionBoolean:
		return o.BoolValue(), true
	case discordgo.ApplicationCommandOptionUser,
		discordgo.ApplicationCommandOptionRole,
		discordgo.ApplicationCommandOptionChannel,
		discordgo.ApplicationCommandOptionMentionable:
		id, ok := o.Value.(string)
		if !ok {
			return nil, false
		}
		s, err := models.ParseSnowflake(id)
		return s, err == nil
	case discordgo.ApplicationCommandOptionAttachment:
		id, ok := o.Value.(string)
		if !ok || resolved == nil {
			return nil, false
		}
		a, ok := resolved.Attachments[id]
		if !ok {
			return nil, false
		}
		return commands.Attachment{Filename: a.Filename, URL: a.URL, Size: a.Size}, true
	}
	return nil, false
}

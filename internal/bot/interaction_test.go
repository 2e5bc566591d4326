package bot

import (
	"io"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/commands"
	"github.com/parsascontentcorner/clanwarden/internal/config"
	"github.com/parsascontentcorner/clanwarden/internal/models"
	"github.com/parsascontentcorner/clanwarden/internal/testutil"
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	session, err := discordgo.New("Bot test-token")
	require.NoError(t, err)
	require.NoError(t, session.State.GuildAdd(&discordgo.Guild{ID: "100", Name: "Warden HQ"}))
	require.NoError(t, session.State.ChannelAdd(&discordgo.Channel{ID: "300", GuildID: "100", Name: "general"}))
	return New(session, &config.DiscordConfig{BotToken: "test-token"}, Deps{Logger: zap.NewNop()})
}

func interaction(data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "100",
		ChannelID: "300",
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "200", Username: "mod"},
			Roles:       []string{"400", "401"},
			Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages,
		},
		Data: data,
	}}
}

func TestToInvocation_TopLevelOptions(t *testing.T) {
	b := newTestBot(t)
	i := interaction(discordgo.ApplicationCommandInteractionData{
		Name: "mute",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "201"},
			{Name: "duration", Type: discordgo.ApplicationCommandOptionString, Value: "10m"},
		},
	})

	inv, ok := b.toInvocation(i, "req-7")
	require.True(t, ok)
	assert.Equal(t, "req-7", inv.RequestID)
	assert.Equal(t, models.Snowflake(100), inv.GuildID)
	assert.Equal(t, "Warden HQ", inv.GuildName)
	assert.Equal(t, models.Snowflake(300), inv.ChannelID)
	assert.Equal(t, "general", inv.ChannelName)
	assert.Equal(t, models.Snowflake(200), inv.ActorID)
	assert.Equal(t, "mod", inv.ActorName)
	assert.True(t, inv.IsAdministrator)
	assert.Equal(t, []models.Snowflake{400, 401}, inv.RoleIDs)
	assert.Equal(t, "mute", inv.Key())

	user, ok := inv.Snowflake("user")
	require.True(t, ok)
	assert.Equal(t, models.Snowflake(201), user)
	d, ok := inv.String("duration")
	require.True(t, ok)
	assert.Equal(t, "10m", d)
}

func TestToInvocation_Subcommand(t *testing.T) {
	b := newTestBot(t)
	i := interaction(discordgo.ApplicationCommandInteractionData{
		Name: "config",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "set",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "option", Type: discordgo.ApplicationCommandOptionString, Value: "activity_threshold"},
				{Name: "value", Type: discordgo.ApplicationCommandOptionString, Value: "30"},
			},
		}},
	})
	i.Member.Permissions = discordgo.PermissionSendMessages

	inv, ok := b.toInvocation(i, "req-8")
	require.True(t, ok)
	assert.Equal(t, "config set", inv.Key())
	assert.False(t, inv.IsAdministrator)
	v, _ := inv.String("option")
	assert.Equal(t, "activity_threshold", v)
}

func TestToInvocation_TypedValues(t *testing.T) {
	b := newTestBot(t)
	i := interaction(discordgo.ApplicationCommandInteractionData{
		Name: "import-members",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "days", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(14)},
			{Name: "confirm", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
			{Name: "role", Type: discordgo.ApplicationCommandOptionRole, Value: "402"},
			{Name: "file", Type: discordgo.ApplicationCommandOptionAttachment, Value: "900"},
			{Name: "broken", Type: discordgo.ApplicationCommandOptionUser, Value: "not-an-id"},
		},
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Attachments: map[string]*discordgo.MessageAttachment{
				"900": {ID: "900", Filename: "roster.csv", URL: "https://cdn/roster.csv", Size: 512},
			},
		},
	})

	inv, ok := b.toInvocation(i, "req-9")
	require.True(t, ok)

	days, ok := inv.Int("days")
	require.True(t, ok)
	assert.Equal(t, int64(14), days)
	confirm, ok := inv.Bool("confirm")
	require.True(t, ok)
	assert.True(t, confirm)
	r, ok := inv.Snowflake("role")
	require.True(t, ok)
	assert.Equal(t, models.Snowflake(402), r)
	file, ok := inv.Attachment("file")
	require.True(t, ok)
	assert.Equal(t, commands.Attachment{Filename: "roster.csv", URL: "https://cdn/roster.csv", Size: 512}, file)

	_, ok = inv.Options["broken"]
	assert.False(t, ok)
}

func TestToInvocation_RequiresGuild(t *testing.T) {
	b := newTestBot(t)
	i := interaction(discordgo.ApplicationCommandInteractionData{Name: "ping"})
	i.GuildID = ""
	i.Member = nil
	i.User = &discordgo.User{ID: "200"}

	_, ok := b.toInvocation(i, "req-10")
	assert.False(t, ok)
}

func TestResponseEdit(t *testing.T) {
	t.Run("content only", func(t *testing.T) {
		edit := responseEdit(commands.Response{Content: "done"})
		require.NotNil(t, edit.Content)
		assert.Equal(t, "done", *edit.Content)
		assert.Nil(t, edit.Embeds)
		assert.Empty(t, edit.Files)
	})

	t.Run("embed and file", func(t *testing.T) {
		edit := responseEdit(commands.Response{
			Embed: &commands.Embed{Title: "Bot Information", Color: 0x3498db, Fields: []commands.EmbedField{{Name: "Servers", Value: "2", Inline: true}}},
			File:  &commands.File{Name: "members.csv", ContentType: "text/csv", Data: []byte("user_id\n1\n")},
		})
		assert.Nil(t, edit.Content)
		require.NotNil(t, edit.Embeds)
		require.Len(t, *edit.Embeds, 1)
		e := (*edit.Embeds)[0]
		assert.Equal(t, "Bot Information", e.Title)
		require.Len(t, e.Fields, 1)
		assert.True(t, e.Fields[0].Inline)

		require.Len(t, edit.Files, 1)
		assert.Equal(t, "members.csv", edit.Files[0].Name)
		data, err := io.ReadAll(edit.Files[0].Reader)
		require.NoError(t, err)
		assert.Equal(t, "user_id\n1\n", string(data))
	})
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(&config.DiscordConfig{})
	assert.ErrorIs(t, err, ErrConfig)

	cfg := testutil.GenerateTestConfig()
	session, err := NewSession(&cfg.Discord)
	require.NoError(t, err)
	assert.Equal(t, "Bot test_bot_token", session.Token)
	assert.NotZero(t, session.Identify.Intents&discordgo.IntentGuildMembers)
	assert.NotZero(t, session.Identify.Intents&discordgo.IntentMessageContent)
}

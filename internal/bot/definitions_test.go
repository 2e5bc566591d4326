package bot

import (
	"regexp"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/commands"
)

var commandName = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

func TestDefinitions_MatchRouter(t *testing.T) {
	router := commands.NewRouter(commands.Deps{Logger: zap.NewNop()})
	assert.ElementsMatch(t, router.Routes(), routeKeys(Definitions()))
}

func TestDefinitions_AreValid(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range Definitions() {
		t.Run(def.Name, func(t *testing.T) {
			assert.Regexp(t, commandName, def.Name)
			assert.False(t, seen[def.Name], "duplicate command")
			seen[def.Name] = true

			assert.NotEmpty(t, def.Description)
			assert.LessOrEqual(t, len(def.Description), 100)
			require.NotNil(t, def.DMPermission)
			assert.False(t, *def.DMPermission)

			checkOptions(t, def.Options)
			for _, o := range def.Options {
				if o.Type == discordgo.ApplicationCommandOptionSubCommand {
					checkOptions(t, o.Options)
				}
			}
		})
	}
}

// checkOptions asserts the platform rules for one option list
func checkOptions(t *testing.T, opts []*discordgo.ApplicationCommandOption) {
	t.Helper()
	optional := false
	for _, o := range opts {
		assert.Regexp(t, commandName, o.Name)
		assert.LessOrEqual(t, len(o.Description), 100, o.Name)
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			continue
		}
		if !o.Required {
			optional = true
			continue
		}
		assert.False(t, optional, "required option %q follows an optional one", o.Name)
	}
}

func TestDefinitions_AdminDefaults(t *testing.T) {
	for _, def := range Definitions() {
		switch def.Name {
		case "permissions", "blacklist":
			require.NotNil(t, def.DefaultMemberPermissions, def.Name)
			assert.Equal(t, int64(discordgo.PermissionAdministrator), *def.DefaultMemberPermissions)
		default:
			assert.Nil(t, def.DefaultMemberPermissions, def.Name)
		}
	}
}

func TestRouteKeys(t *testing.T) {
	defs := []*discordgo.ApplicationCommand{
		{Name: "ping"},
		{Name: "config", Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "view"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set"},
		}},
		{Name: "warn", Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user"},
		}},
	}
	assert.Equal(t, []string{"ping", "config view", "config set", "warn"}, routeKeys(defs))
}

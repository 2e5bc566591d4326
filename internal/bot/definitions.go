package bot

import (
	"github.com/bwmarrin/discordgo"
)

func optUser(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func optRole(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

func optString(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func optInt(name, description string, required bool, lo, hi float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
		MinValue:    &lo,
		MaxValue:    hi,
	}
}

func optChoice(name, description string, choices ...string) *discordgo.ApplicationCommandOption {
	opt := optString(name, description, true)
	for _, c := range choices {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: c, Value: c})
	}
	return opt
}

func subCommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// Definitions returns every slash command the bot registers
//
//nolint:funlen
func Definitions() []*discordgo.ApplicationCommand {
	dmPerms := false
	adminPerms := int64(discordgo.PermissionAdministrator)

	guildOnly := func(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
		return &discordgo.ApplicationCommand{
			Name:         name,
			Description:  description,
			DMPermission: &dmPerms,
			Options:      options,
		}
	}
	adminOnly := func(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
		cmd := guildOnly(name, description, options...)
		cmd.DefaultMemberPermissions = &adminPerms
		return cmd
	}
	toggle := optChoice("action", "Enable or disable", "enable", "disable")

	return []*discordgo.ApplicationCommand{
		// admin
		guildOnly("setup", "Initialize the bot configuration for this server"),
		guildOnly("config", "View or change the bot configuration",
			subCommand("view", "Show the current configuration"),
			subCommand("set", "Change one configuration option",
				optChoice("option", "Option to change", "audit_log", "auto_roles", "activity_threshold", "logging_channel", "announcement_role"),
				optString("value", "New value; use none to clear a channel or role", true),
			),
		),
		guildOnly("clan", "Manage clan settings",
			subCommand("set-tag", "Set the clan tag", optString("tag", "Clan tag", true)),
			subCommand("set-requirements", "Set the clan entry requirements",
				optString("league", "Minimum league", true),
				optInt("minimum_hangar_power", "Minimum hangar power", true, 0, 1e12),
			),
			subCommand("message", "Send a clan announcement", optString("content", "Announcement text", true)),
		),
		guildOnly("backup", "Create a backup of the configuration and roster"),
		guildOnly("restore", "Restore a backup", optInt("backup_id", "Backup ID", true, 1, 1e15)),
		guildOnly("listbackups", "List the backups of this server"),
		guildOnly("logs", "Show recent audit log entries", optInt("limit", "Number of entries (1-50)", false, 1, 50)),
		adminOnly("permissions", "Manage command permissions",
			subCommand("set", "Require a role for a command",
				optString("command", "Command name", true),
				optRole("role", "Required role"),
			),
			subCommand("remove", "Stop requiring a role for a command",
				optString("command", "Command name", true),
				optRole("role", "Role to remove"),
			),
			subCommand("list", "List command permissions"),
		),
		adminOnly("blacklist", "Manage the command blacklist",
			subCommand("add", "Block a user from using commands",
				optUser("user", "User to blacklist", true),
				optString("reason", "Reason", false),
			),
			subCommand("remove", "Remove a user from the blacklist", optUser("user", "User to remove", true)),
			subCommand("list", "List blacklisted users"),
		),
		guildOnly("reset-bot", "Reset the bot configuration to defaults",
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "confirm",
				Description: "Set to true to confirm the reset",
			},
		),
		guildOnly("audit-log", "Enable or disable routine audit logging", toggle),
		guildOnly("auto-roles", "Enable or disable automatic rank updates", toggle),

		// moderation
		guildOnly("warn", "Warn a member",
			optUser("user", "Member to warn", true),
			optString("reason", "Reason", true),
		),
		guildOnly("warnings", "Show the warnings of a member", optUser("user", "Member", true)),
		guildOnly("remove-warning", "Remove a warning",
			optUser("user", "Member", true),
			optInt("warning_id", "Warning ID", true, 1, 1e15),
		),
		guildOnly("mute", "Time out a member",
			optUser("user", "Member to mute", true),
			optString("duration", "Duration such as 10m, 2h or 1d (max 28d)", true),
			optString("reason", "Reason", false),
		),
		guildOnly("unmute", "Remove a member's timeout", optUser("user", "Member to unmute", true)),
		guildOnly("kick", "Kick a member",
			optUser("user", "Member to kick", true),
			optString("reason", "Reason", false),
		),
		guildOnly("ban", "Ban a member",
			optUser("user", "Member to ban", true),
			optString("reason", "Reason", false),
		),
		guildOnly("unban", "Unban a user", optString("user_id", "ID of the banned user", true)),
		guildOnly("purge", "Delete recent messages in this channel", optInt("amount", "Number of messages (1-100)", true, 1, 100)),
		guildOnly("note", "Add a staff note to a member",
			optUser("user", "Member", true),
			optString("note", "Note text", true),
		),
		guildOnly("notes", "Show the staff notes of a member", optUser("user", "Member", true)),
		guildOnly("verify", "Mark a member as verified", optUser("user", "Member to verify", true)),
		guildOnly("report", "Report a message to staff", optString("message_link", "Link to the message", true)),
		guildOnly("clean-bots", "Delete recent bot messages in this channel", optInt("amount", "Number of messages to scan (1-100)", false, 1, 100)),
		guildOnly("raid-shield", "Toggle the raid shield", toggle),
		guildOnly("lock-channel", "Stop everyone from sending messages in this channel"),
		guildOnly("unlock-channel", "Let everyone send messages in this channel again"),
		guildOnly("slowmode", "Set the slowmode delay of this channel", optInt("seconds", "Delay in seconds (0-21600)", true, 0, 21600)),
		guildOnly("scan-profile", "Show a profile summary of a member", optUser("user", "Member to scan", true)),

		// roster
		guildOnly("role-link", "Link a role to a clan rank",
			optRole("role", "Role to link"),
			optString("clan_rank", "Clan rank", true),
		),
		guildOnly("sync-ranks", "Grant every member the roles linked to their rank"),
		guildOnly("import-members", "Import the roster from a CSV or Excel file",
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "file",
				Description: "CSV or .xlsx file with user_id and username columns",
				Required:    true,
			},
		),
		guildOnly("export-members", "Export the roster as a CSV file"),
		guildOnly("activity-threshold", "Set the number of idle days before a member is inactive", optInt("days", "Days", true, 1, 3650)),
		guildOnly("force-activity-scan", "Flag inactive members now"),

		// utility
		guildOnly("echo", "Send a message as the bot",
			optString("message", "The text to send", true),
			optString("reply", "Message ID to reply to", false),
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "format",
				Description: "How to format the message",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "plain", Value: "plain"},
					{Name: "code", Value: "code"},
					{Name: "embed", Value: "embed"},
				},
			},
		),
		guildOnly("ping", "Check the bot's latency"),
		guildOnly("botinfo", "Show information about the bot"),
		guildOnly("help", "List every command"),
	}
}

// routeKeys flattens the definitions into "name" and "name sub" keys
func routeKeys(defs []*discordgo.ApplicationCommand) []string {
	var keys []string
	for _, d := range defs {
		var subs []string
		for _, o := range d.Options {
			if o.Type == discordgo.ApplicationCommandOptionSubCommand {
				subs = append(subs, d.Name+" "+o.Name)
			}
		}
		if len(subs) == 0 {
			keys = append(keys, d.Name)
			continue
		}
		keys = append(keys, subs...)
	}
	return keys
}

package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/backup"
	"github.com/parsascontentcorner/clanwarden/internal/database"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

const (
	timeLayout     = "2006-01-02 15:04"
	timeLayoutFull = "2006-01-02 15:04:05"
	maxListed      = 10
)

var actionTitle = cases.Title(language.English)

func (r *Router) setup(ctx context.Context, inv *Invocation) (Response, error) {
	patch := models.GuildConfigPatch{
		AuditLogEnabled:       models.Ptr(true),
		AutoRolesEnabled:      models.Ptr(false),
		ActivityThresholdDays: models.Ptr(models.DefaultActivityThresholdDays),
	}
	if err := r.store.UpsertGuildConfig(ctx, inv.GuildID, patch); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionSetup, models.NullSnowflake{}, "Bot initialized")
	return reply("✅ Bot setup complete! Default configuration has been initialized.\n" +
		"Use `/config view` to see current settings."), nil
}

func (r *Router) configView(ctx context.Context, inv *Invocation) (Response, error) {
	cfg, err := r.store.GetGuildConfig(ctx, inv.GuildID)
	if errors.Is(err, database.ErrNotFound) {
		return reply("No configuration found. Run `/setup` first."), nil
	}
	if err != nil {
		return Response{}, err
	}

	var b strings.Builder
	b.WriteString("⚙️ **Bot Configuration**\n")
	fmt.Fprintf(&b, "**Clan Tag:** %s\n", orNotSet(cfg.ClanTag.String, cfg.ClanTag.Valid))
	fmt.Fprintf(&b, "**Activity Threshold:** %d days\n", cfg.ActivityThresholdDays)
	fmt.Fprintf(&b, "**Audit Logging:** %s\n", statusMark(cfg.AuditLogEnabled))
	fmt.Fprintf(&b, "**Auto Roles:** %s\n", statusMark(cfg.AutoRolesEnabled))
	fmt.Fprintf(&b, "**Logging Channel:** %s\n", orNotSet(channelMention(cfg.LoggingChannelID.Snowflake), cfg.LoggingChannelID.Valid))
	fmt.Fprintf(&b, "**Announcement Role:** %s", orNotSet(roleMention(cfg.AnnouncementRoleID.Snowflake), cfg.AnnouncementRoleID.Valid))
	if cfg.ClanRequirementsLeague.Valid {
		power := "N/A"
		if cfg.ClanRequirementsPower.Valid {
			power = strconv.FormatInt(cfg.ClanRequirementsPower.Int64, 10)
		}
		fmt.Fprintf(&b, "\n**Clan Requirements:** League: %s, Power: %s", cfg.ClanRequirementsLeague.String, power)
	}
	return reply(b.String()), nil
}

// configSet changes one option. "none" clears the channel and role options.
func (r *Router) configSet(ctx context.Context, inv *Invocation) (Response, error) {
	option, err := requiredString(inv, "option")
	if err != nil {
		return Response{}, err
	}
	value, err := requiredString(inv, "value")
	if err != nil {
		return Response{}, err
	}

	var (
		patch models.GuildConfigPatch
		msg   string
	)
	switch option {
	case "audit_log":
		enabled := parseSwitch(value)
		patch.AuditLogEnabled = models.Ptr(enabled)
		msg = fmt.Sprintf("✅ Audit logging %s.", enabledWord(enabled))
	case "auto_roles":
		enabled := parseSwitch(value)
		patch.AutoRolesEnabled = models.Ptr(enabled)
		msg = fmt.Sprintf("✅ Auto roles %s.", enabledWord(enabled))
	case "activity_threshold":
		days, convErr := strconv.Atoi(value)
		if convErr != nil || days < 1 {
			return reply("❌ Invalid value. Please provide a positive number."), nil
		}
		patch.ActivityThresholdDays = models.Ptr(days)
		msg = fmt.Sprintf("✅ Activity threshold set to %d days.", days)
	case "logging_channel":
		if isNone(value) {
			patch.LoggingChannelID = &models.NullSnowflake{}
			msg = "✅ Logging channel cleared."
			break
		}
		channelID, parseErr := models.ParseSnowflake(strings.Trim(value, "<>#"))
		if parseErr != nil {
			return reply("❌ Invalid channel ID or mention."), nil
		}
		exists, existsErr := r.platform.ChannelExists(ctx, inv.GuildID, channelID)
		if existsErr != nil {
			return Response{}, existsErr
		}
		if !exists {
			return reply("❌ Channel not found."), nil
		}
		patch.LoggingChannelID = models.Ptr(models.NewNullSnowflake(channelID))
		msg = fmt.Sprintf("✅ Logging channel set to %s.", channelMention(channelID))
	case "announcement_role":
		if isNone(value) {
			patch.AnnouncementRoleID = &models.NullSnowflake{}
			msg = "✅ Announcement role cleared."
			break
		}
		roleID, parseErr := models.ParseSnowflake(strings.Trim(value, "<>@&"))
		if parseErr != nil {
			return reply("❌ Invalid role ID or mention."), nil
		}
		patch.AnnouncementRoleID = models.Ptr(models.NewNullSnowflake(roleID))
		msg = fmt.Sprintf("✅ Announcement role set to %s.", roleMention(roleID))
	default:
		return Response{}, &models.ValidationError{Field: "option", Reason: fmt.Sprintf("unknown option %q", option)}
	}

	if err := r.store.UpsertGuildConfig(ctx, inv.GuildID, patch); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionConfigChange, models.NullSnowflake{}, fmt.Sprintf("Changed %s to %s", option, value))
	return reply(msg), nil
}

func (r *Router) clanSetTag(ctx context.Context, inv *Invocation) (Response, error) {
	tag, err := requiredString(inv, "tag")
	if err != nil {
		return Response{}, err
	}
	patch := models.GuildConfigPatch{ClanTag: &sql.NullString{String: tag, Valid: true}}
	if err := r.store.UpsertGuildConfig(ctx, inv.GuildID, patch); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionClanTagChange, models.NullSnowflake{}, "Tag set to "+tag)
	return reply("✅ Clan tag set to: **%s**", tag), nil
}

func (r *Router) clanSetRequirements(ctx context.Context, inv *Invocation) (Response, error) {
	league, err := requiredString(inv, "league")
	if err != nil {
		return Response{}, err
	}
	power, err := requiredInt(inv, "minimum_hangar_power")
	if err != nil {
		return Response{}, err
	}
	patch := models.GuildConfigPatch{
		ClanRequirementsLeague: &sql.NullString{String: league, Valid: true},
		ClanRequirementsPower:  &sql.NullInt64{Int64: power, Valid: true},
	}
	if err := r.store.UpsertGuildConfig(ctx, inv.GuildID, patch); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionClanRequirementsChange, models.NullSnowflake{}, fmt.Sprintf("League: %s, Power: %d", league, power))
	return reply("✅ Clan requirements set:\nLeague: **%s**\nMinimum Power: **%d**", league, power), nil
}

func (r *Router) clanMessage(ctx context.Context, inv *Invocation) (Response, error) {
	content, err := requiredString(inv, "content")
	if err != nil {
		return Response{}, err
	}

	cfg, err := r.store.GetGuildConfig(ctx, inv.GuildID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return Response{}, err
	}

	msg := Message{Embed: &Embed{
		Title:       "📢 Clan Announcement",
		Description: content,
		Author:      inv.ActorName,
		Color:       colorGold,
	}}
	if cfg != nil {
		if cfg.ClanTag.Valid && cfg.ClanTag.String != "" {
			msg.Embed.Footer = "Clan: " + cfg.ClanTag.String
		}
		if cfg.AnnouncementRoleID.Valid {
			msg.Content = roleMention(cfg.AnnouncementRoleID.Snowflake)
		}
	}

	if err := r.platform.SendMessage(ctx, inv.ChannelID, msg); err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to send messages in this channel."), nil
		}
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionClanAnnouncement, models.NullSnowflake{}, "Announcement sent")
	return reply("✅ Announcement sent!"), nil
}

func (r *Router) createBackup(ctx context.Context, inv *Invocation) (Response, error) {
	b, err := r.backups.Create(ctx, inv.GuildID, inv.ActorID)
	if err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionBackupCreated, models.NullSnowflake{}, fmt.Sprintf("Backup ID: %d", b.ID))
	return reply("✅ Backup created successfully!\nBackup ID: **%d**\nUse `/restore %d` to restore this backup.", b.ID, b.ID), nil
}

func (r *Router) restoreBackup(ctx context.Context, inv *Invocation) (Response, error) {
	id, err := requiredInt(inv, "backup_id")
	if err != nil {
		return Response{}, err
	}

	result, err := r.backups.Restore(ctx, inv.GuildID, id)
	if errors.Is(err, backup.ErrNotFound) {
		return reply("❌ Backup not found."), nil
	}
	if err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionBackupRestored, models.NullSnowflake{}, fmt.Sprintf("Backup ID: %d", id))
	return reply("✅ Backup restored successfully!\nRestored data from: %s\nConfiguration: %s, members: %d, role mappings: %d",
		result.Backup.CreatedAt.UTC().Format(timeLayoutFull), restoredWord(result.Config), result.Members, result.RoleMappings), nil
}

func (r *Router) listBackups(ctx context.Context, inv *Invocation) (Response, error) {
	backups, err := r.backups.List(ctx, inv.GuildID)
	if err != nil {
		return Response{}, err
	}
	if len(backups) == 0 {
		return reply("❌ No backups found."), nil
	}

	var b strings.Builder
	b.WriteString("💾 **Available Backups**\n")
	for i, bk := range backups {
		if i == maxListed {
			break
		}
		fmt.Fprintf(&b, "**Backup #%d** by %s at %s (`/restore %d`)\n",
			bk.ID, userMention(bk.CreatedBy), bk.CreatedAt.UTC().Format(timeLayoutFull), bk.ID)
	}
	fmt.Fprintf(&b, "Total backups: %d", len(backups))
	return reply(b.String()), nil
}

func (r *Router) logs(ctx context.Context, inv *Invocation) (Response, error) {
	limit := int64(audit.DefaultQueryLimit)
	if v, ok := inv.Int("limit"); ok {
		limit = v
	}
	if err := audit.CheckLimit(int(limit)); err != nil {
		return Response{}, err
	}

	entries, err := r.audit.Query(ctx, inv.GuildID, int(limit))
	if err != nil {
		return Response{}, err
	}
	if len(entries) == 0 {
		return reply("❌ No audit logs found."), nil
	}

	var b strings.Builder
	b.WriteString("📋 **Audit Logs**\n")
	for _, e := range entries {
		actor := "System"
		if e.ModeratorID.Valid {
			actor = userMention(e.ModeratorID.Snowflake)
		}
		fmt.Fprintf(&b, "**%s** by %s", actionTitle.String(strings.ReplaceAll(e.ActionType, "_", " ")), actor)
		if e.TargetUserID.Valid {
			fmt.Fprintf(&b, " → %s", userMention(e.TargetUserID.Snowflake))
		}
		if e.Details.Valid && e.Details.String != "" {
			fmt.Fprintf(&b, ": *%s*", e.Details.String)
		}
		fmt.Fprintf(&b, " (%s)\n", e.CreatedAt.UTC().Format(timeLayout))
	}
	fmt.Fprintf(&b, "Showing %d recent log(s)", len(entries))
	return reply(b.String()), nil
}

func (r *Router) permissionsSet(ctx context.Context, inv *Invocation) (Response, error) {
	command, err := requiredString(inv, "command")
	if err != nil {
		return Response{}, err
	}
	roleID, err := requiredSnowflake(inv, "role")
	if err != nil {
		return Response{}, err
	}

	if err := r.store.AddPermission(ctx, inv.GuildID, command, roleID); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionPermissionSet, models.NullSnowflake{}, fmt.Sprintf("Command: %s, Role: %s", command, roleID))

	msg := fmt.Sprintf("✅ Command `%s` now requires role: %s", command, roleMention(roleID))
	if !r.isPermissionKey(command) {
		msg += fmt.Sprintf("\n⚠️ `%s` is not a known command, so this rule has no effect.", command)
	}
	return reply(msg), nil
}

func (r *Router) permissionsRemove(ctx context.Context, inv *Invocation) (Response, error) {
	command, err := requiredString(inv, "command")
	if err != nil {
		return Response{}, err
	}
	roleID, err := requiredSnowflake(inv, "role")
	if err != nil {
		return Response{}, err
	}

	removed, err := r.store.RemovePermission(ctx, inv.GuildID, command, roleID)
	if err != nil {
		return Response{}, err
	}
	if !removed {
		return reply("❌ Command `%s` does not require %s.", command, roleMention(roleID)), nil
	}

	r.track(ctx, inv, audit.ActionPermissionDrop, models.NullSnowflake{}, fmt.Sprintf("Command: %s, Role: %s", command, roleID))
	return reply("✅ Command `%s` no longer requires %s.", command, roleMention(roleID)), nil
}

func (r *Router) permissionsList(ctx context.Context, inv *Invocation) (Response, error) {
	rules, err := r.store.ListPermissions(ctx, inv.GuildID)
	if err != nil {
		return Response{}, err
	}
	if len(rules) == 0 {
		return reply("No command restrictions are configured. Every command is open to non-blacklisted members."), nil
	}

	var (
		order  []string
		byName = make(map[string][]string)
	)
	for _, rule := range rules {
		if _, ok := byName[rule.CommandName]; !ok {
			order = append(order, rule.CommandName)
		}
		byName[rule.CommandName] = append(byName[rule.CommandName], roleMention(rule.RequiredRoleID))
	}

	var b strings.Builder
	b.WriteString("🔐 **Command Permissions**")
	for _, name := range order {
		fmt.Fprintf(&b, "\n`%s`: %s", name, strings.Join(byName[name], ", "))
	}
	return reply(b.String()), nil
}

func (r *Router) blacklistAdd(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}
	reason, _ := inv.String("reason")
	reason = strings.TrimSpace(reason)

	_, err = r.store.GetBlacklistEntry(ctx, inv.GuildID, userID)
	existed := err == nil
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return Response{}, err
	}

	if err := r.store.AddToBlacklist(ctx, inv.GuildID, userID, inv.ActorID, sql.NullString{String: reason, Valid: reason != ""}); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionBlacklistAdd, models.NewNullSnowflake(userID), reason)
	if existed {
		return reply("✅ Blacklist reason updated for %s.", userMention(userID)), nil
	}
	return reply("✅ %s has been blacklisted.", userMention(userID)), nil
}

func (r *Router) blacklistRemove(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}

	removed, err := r.store.RemoveFromBlacklist(ctx, inv.GuildID, userID)
	if err != nil {
		return Response{}, err
	}
	if !removed {
		return reply("❌ %s is not blacklisted.", userMention(userID)), nil
	}

	r.track(ctx, inv, audit.ActionBlacklistRemove, models.NewNullSnowflake(userID), "")
	return reply("✅ %s has been removed from the blacklist.", userMention(userID)), nil
}

func (r *Router) blacklistList(ctx context.Context, inv *Invocation) (Response, error) {
	entries, err := r.store.GetBlacklist(ctx, inv.GuildID)
	if err != nil {
		return Response{}, err
	}
	if len(entries) == 0 {
		return reply("The blacklist is empty."), nil
	}

	var b strings.Builder
	b.WriteString("⛔ **Blacklist**")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s by %s", userMention(e.UserID), userMention(e.AddedBy))
		if e.Reason.Valid {
			fmt.Fprintf(&b, ": %s", e.Reason.String)
		}
	}
	return reply(b.String()), nil
}

func (r *Router) resetBot(ctx context.Context, inv *Invocation) (Response, error) {
	if confirm, _ := inv.Bool("confirm"); !confirm {
		return reply("⚠️ **WARNING**: This will reset ALL bot configuration for this server!\n" +
			"This action cannot be undone. Run `/reset-bot confirm:true` to proceed."), nil
	}

	if err := r.store.UpsertGuildConfig(ctx, inv.GuildID, models.DefaultGuildConfigPatch()); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionResetBot, models.NullSnowflake{}, "All data reset to defaults")
	return reply("✅ Bot data has been reset to defaults."), nil
}

func (r *Router) auditLogToggle(ctx context.Context, inv *Invocation) (Response, error) {
	enabled, err := toggleOption(inv)
	if err != nil {
		return Response{}, err
	}
	if err := r.store.UpsertGuildConfig(ctx, inv.GuildID, models.GuildConfigPatch{AuditLogEnabled: models.Ptr(enabled)}); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionAuditLogToggle, models.NullSnowflake{}, "Audit logging "+enabledWord(enabled))
	return reply("✅ Audit logging %s.", enabledWord(enabled)), nil
}

func (r *Router) autoRolesToggle(ctx context.Context, inv *Invocation) (Response, error) {
	enabled, err := toggleOption(inv)
	if err != nil {
		return Response{}, err
	}
	if err := r.store.UpsertGuildConfig(ctx, inv.GuildID, models.GuildConfigPatch{AutoRolesEnabled: models.Ptr(enabled)}); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionAutoRolesToggle, models.NullSnowflake{}, "Auto roles "+enabledWord(enabled))
	return reply("✅ Auto roles %s.", enabledWord(enabled)), nil
}

func parseSwitch(v string) bool {
	switch strings.ToLower(v) {
	case "true", "enable", "yes", "on":
		return true
	}
	return false
}

func isNone(v string) bool {
	switch strings.ToLower(v) {
	case "none", "clear", "off":
		return true
	}
	return false
}

func statusMark(enabled bool) string {
	if enabled {
		return "✅ Enabled"
	}
	return "❌ Disabled"
}

func orNotSet(v string, valid bool) string {
	if !valid || v == "" {
		return "Not set"
	}
	return v
}

func restoredWord(v bool) string {
	if v {
		return "restored"
	}
	return "none in backup"
}

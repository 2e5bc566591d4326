package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/database"
	"github.com/parsascontentcorner/clanwarden/internal/models"
	"github.com/parsascontentcorner/clanwarden/internal/moderation"
)

const (
	maxPurge         = 100
	defaultCleanBots = 50
	maxSlowmode      = 21600
	dateLayout       = "2006-01-02"
)

func (r *Router) warn(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}
	reason, err := requiredString(inv, "reason")
	if err != nil {
		return Response{}, err
	}

	w := &models.Warning{GuildID: inv.GuildID, UserID: userID, ModeratorID: inv.ActorID, Reason: reason}
	if err := r.store.AddWarning(ctx, w); err != nil {
		return Response{}, err
	}

	dm := fmt.Sprintf("⚠️ You have been warned in **%s**\n**Reason:** %s\n**Warning ID:** %d", inv.GuildName, reason, w.ID)
	if err := r.platform.SendDirectMessage(ctx, userID, dm); err != nil {
		r.logger.Debug("warning not delivered by direct message",
			zap.String("guild_id", inv.GuildID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	r.track(ctx, inv, audit.ActionWarn, models.NewNullSnowflake(userID), "Reason: "+reason)
	return reply("✅ %s has been warned.\n**Warning ID:** %d", userMention(userID), w.ID), nil
}

func (r *Router) warnings(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}

	list, err := r.store.GetWarnings(ctx, inv.GuildID, userID)
	if err != nil {
		return Response{}, err
	}
	if len(list) == 0 {
		return reply("%s has no warnings.", userMention(userID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ **Warnings for** %s", userMention(userID))
	for i, w := range list {
		if i == maxListed {
			break
		}
		fmt.Fprintf(&b, "\n**Warning #%d** by %s (%s): %s",
			w.ID, userMention(w.ModeratorID), w.CreatedAt.UTC().Format(timeLayout), w.Reason)
	}
	fmt.Fprintf(&b, "\nTotal warnings: %d", len(list))
	return reply(b.String()), nil
}

func (r *Router) removeWarning(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}
	warningID, err := requiredInt(inv, "warning_id")
	if err != nil {
		return Response{}, err
	}

	removed, err := r.store.RemoveWarning(ctx, inv.GuildID, warningID)
	if err != nil {
		return Response{}, err
	}
	if !removed {
		return reply("❌ Warning #%d not found.", warningID), nil
	}

	r.track(ctx, inv, audit.ActionWarningRemoved, models.NewNullSnowflake(userID), fmt.Sprintf("Warning ID: %d", warningID))
	return reply("✅ Warning #%d has been removed from %s.", warningID, userMention(userID)), nil
}

// mute times the member out on the platform first and only then stores the
// mute, so a refused timeout leaves no row for the sweep to chase.
func (r *Router) mute(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}
	raw, _ := inv.String("duration")
	d, err := moderation.ParseMuteDuration(raw)
	if err != nil {
		return Response{}, err
	}
	reason, _ := inv.String("reason")

	wasMuted, err := r.store.IsMuted(ctx, inv.GuildID, userID)
	if err != nil {
		return Response{}, err
	}

	until := r.now().UTC().Add(d)
	if err := r.platform.TimeoutMember(ctx, inv.GuildID, userID, until, reason); err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to timeout this user."), nil
		}
		return Response{}, err
	}

	m := &models.Mute{
		GuildID:     inv.GuildID,
		UserID:      userID,
		ModeratorID: inv.ActorID,
		ExpiresAt:   until,
		Reason:      sql.NullString{String: reason, Valid: reason != ""},
	}
	if err := r.store.AddMute(ctx, m); err != nil {
		return Response{}, err
	}

	length := moderation.FormatDuration(d)
	r.track(ctx, inv, audit.ActionMute, models.NewNullSnowflake(userID), fmt.Sprintf("Duration: %s, Reason: %s", length, reasonOrDefault(reason)))
	if wasMuted {
		return reply("✅ %s was already muted; the mute now ends in %s.", userMention(userID), length), nil
	}
	return reply("✅ %s has been muted for %s.", userMention(userID), length), nil
}

func (r *Router) unmute(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}

	if err := r.platform.ClearTimeout(ctx, inv.GuildID, userID); err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to remove timeout from this user."), nil
		}
		return Response{}, err
	}
	if _, err := r.store.RemoveMute(ctx, inv.GuildID, userID); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionUnmute, models.NewNullSnowflake(userID), "")
	return reply("✅ %s has been unmuted.", userMention(userID)), nil
}

func (r *Router) kick(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}
	reason, _ := inv.String("reason")

	if err := r.platform.KickMember(ctx, inv.GuildID, userID, reason); err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to kick this user."), nil
		}
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionKick, models.NewNullSnowflake(userID), "Reason: "+reasonOrDefault(reason))
	return reply("✅ %s has been kicked.\n**Reason:** %s", userMention(userID), reasonOrDefault(reason)), nil
}

func (r *Router) ban(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}
	reason, _ := inv.String("reason")

	if err := r.platform.BanMember(ctx, inv.GuildID, userID, reason); err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to ban this user."), nil
		}
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionBan, models.NewNullSnowflake(userID), "Reason: "+reasonOrDefault(reason))
	return reply("✅ %s has been banned.\n**Reason:** %s", userMention(userID), reasonOrDefault(reason)), nil
}

func (r *Router) unban(ctx context.Context, inv *Invocation) (Response, error) {
	raw, _ := inv.String("user_id")
	userID, err := models.ParseSnowflake(strings.TrimSpace(raw))
	if err != nil {
		return reply("❌ Invalid user ID."), nil
	}

	user, err := r.platform.FetchUser(ctx, userID)
	if err == nil {
		err = r.platform.UnbanMember(ctx, inv.GuildID, userID)
	}
	switch {
	case errors.Is(err, ErrPlatformNotFound):
		return reply("❌ User not found or not banned."), nil
	case errors.Is(err, ErrForbidden):
		return reply("❌ I don't have permission to unban users."), nil
	case err != nil:
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionUnban, models.NewNullSnowflake(userID), "")
	return reply("✅ %s has been unbanned.", user.Username), nil
}

func (r *Router) purge(ctx context.Context, inv *Invocation) (Response, error) {
	amount, _ := inv.Int("amount")
	if amount < 1 || amount > maxPurge {
		return Response{}, &models.ValidationError{Field: "amount", Reason: fmt.Sprintf("must be between 1 and %d", maxPurge)}
	}

	deleted, err := r.platform.PurgeMessages(ctx, inv.ChannelID, int(amount), false)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to delete messages."), nil
		}
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionPurge, models.NullSnowflake{}, fmt.Sprintf("Deleted %d messages", deleted))
	return reply("✅ Deleted %d message(s).", deleted), nil
}

func (r *Router) note(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}
	text, err := requiredString(inv, "note")
	if err != nil {
		return Response{}, err
	}

	n := &models.StaffNote{GuildID: inv.GuildID, UserID: userID, StaffID: inv.ActorID, Note: text}
	if err := r.store.AddStaffNote(ctx, n); err != nil {
		return Response{}, err
	}
	return reply("✅ Note added for %s.", userMention(userID)), nil
}

func (r *Router) notes(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}

	list, err := r.store.GetStaffNotes(ctx, inv.GuildID, userID)
	if err != nil {
		return Response{}, err
	}
	if len(list) == 0 {
		return reply("%s has no staff notes.", userMention(userID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 **Staff Notes for** %s", userMention(userID))
	for i, n := range list {
		if i == maxListed {
			break
		}
		fmt.Fprintf(&b, "\n**Note #%d** by %s (%s): %s",
			n.ID, userMention(n.StaffID), n.CreatedAt.UTC().Format(timeLayout), n.Note)
	}
	fmt.Fprintf(&b, "\nTotal notes: %d", len(list))
	return reply(b.String()), nil
}

func (r *Router) verify(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionVerify, models.NewNullSnowflake(userID), "User verified")
	return reply("✅ %s has been verified!", userMention(userID)), nil
}

// report forwards a message link to the guild's logging channel. It is open
// to every member.
func (r *Router) report(ctx context.Context, inv *Invocation) (Response, error) {
	link, err := requiredString(inv, "message_link")
	if err != nil {
		return Response{}, err
	}

	cfg, err := r.store.GetGuildConfig(ctx, inv.GuildID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return Response{}, err
	}
	if cfg == nil || !cfg.LoggingChannelID.Valid {
		return reply("❌ No logging channel configured. Ask an admin to set one with `/config set logging_channel`."), nil
	}

	channelID := cfg.LoggingChannelID.Snowflake
	exists, err := r.platform.ChannelExists(ctx, inv.GuildID, channelID)
	if err != nil {
		return Response{}, err
	}
	if !exists {
		return reply("❌ Logging channel not found."), nil
	}

	msg := Message{Embed: &Embed{
		Title: "📋 Message Reported",
		Color: colorRed,
		Fields: []EmbedField{
			{Name: "Reported By", Value: userMention(inv.ActorID), Inline: true},
			{Name: "Message Link", Value: link},
		},
	}}
	if err := r.platform.SendMessage(ctx, channelID, msg); err != nil {
		return Response{}, err
	}
	return reply("✅ Message has been reported to staff."), nil
}

func (r *Router) cleanBots(ctx context.Context, inv *Invocation) (Response, error) {
	amount := int64(defaultCleanBots)
	if v, ok := inv.Int("amount"); ok {
		amount = v
	}
	if amount < 1 || amount > maxPurge {
		return Response{}, &models.ValidationError{Field: "amount", Reason: fmt.Sprintf("must be between 1 and %d", maxPurge)}
	}

	deleted, err := r.platform.PurgeMessages(ctx, inv.ChannelID, int(amount), true)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to delete messages."), nil
		}
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionCleanBots, models.NullSnowflake{}, fmt.Sprintf("Deleted %d bot messages", deleted))
	return reply("✅ Deleted %d bot message(s).", deleted), nil
}

// raidShield only records the toggle; no platform state changes.
func (r *Router) raidShield(ctx context.Context, inv *Invocation) (Response, error) {
	enabled, err := toggleOption(inv)
	if err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionRaidShield, models.NullSnowflake{}, "Raid shield "+enabledWord(enabled))
	if enabled {
		return reply("🛡️ Raid shield enabled.\nServer is now in lockdown mode."), nil
	}
	return reply("🛡️ Raid shield disabled.\nServer is back to normal."), nil
}

func (r *Router) lockChannel(ctx context.Context, inv *Invocation) (Response, error) {
	return r.setLocked(ctx, inv, true)
}

func (r *Router) unlockChannel(ctx context.Context, inv *Invocation) (Response, error) {
	return r.setLocked(ctx, inv, false)
}

func (r *Router) setLocked(ctx context.Context, inv *Invocation, locked bool) (Response, error) {
	if err := r.platform.SetChannelLocked(ctx, inv.GuildID, inv.ChannelID, locked); err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to manage channel permissions."), nil
		}
		return Response{}, err
	}

	if locked {
		r.track(ctx, inv, audit.ActionLockChannel, models.NullSnowflake{}, "Locked "+channelLabel(inv))
		return reply("🔒 Channel locked. Only moderators can send messages."), nil
	}
	r.track(ctx, inv, audit.ActionUnlockChannel, models.NullSnowflake{}, "Unlocked "+channelLabel(inv))
	return reply("🔓 Channel unlocked. Everyone can send messages again."), nil
}

func (r *Router) slowmode(ctx context.Context, inv *Invocation) (Response, error) {
	seconds, err := requiredInt(inv, "seconds")
	if err != nil {
		return Response{}, err
	}
	if seconds < 0 || seconds > maxSlowmode {
		return Response{}, &models.ValidationError{Field: "seconds", Reason: fmt.Sprintf("slowmode delay must be between 0 and %d seconds (6 hours)", maxSlowmode)}
	}

	if err := r.platform.SetSlowmode(ctx, inv.ChannelID, int(seconds)); err != nil {
		if errors.Is(err, ErrForbidden) {
			return reply("❌ I don't have permission to edit this channel."), nil
		}
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionSlowmode, models.NullSnowflake{}, fmt.Sprintf("Set slowmode to %ds in %s", seconds, channelLabel(inv)))
	if seconds == 0 {
		return reply("✅ Slowmode disabled."), nil
	}
	return reply("✅ Slowmode set to %d second(s).", seconds), nil
}

func (r *Router) scanProfile(ctx context.Context, inv *Invocation) (Response, error) {
	userID, err := requiredSnowflake(inv, "user")
	if err != nil {
		return Response{}, err
	}

	p, err := r.platform.MemberProfile(ctx, inv.GuildID, userID)
	if errors.Is(err, ErrPlatformNotFound) {
		return reply("❌ %s is not a member of this server.", userMention(userID)), nil
	}
	if err != nil {
		return Response{}, err
	}

	warnings, err := r.store.GetWarnings(ctx, inv.GuildID, userID)
	if err != nil {
		return Response{}, err
	}
	stored, err := r.store.GetMute(ctx, inv.GuildID, userID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return Response{}, err
	}

	joined := "Unknown"
	if !p.JoinedAt.IsZero() {
		joined = p.JoinedAt.UTC().Format(dateLayout)
	}

	var flags []string
	if p.Bot {
		flags = append(flags, "🤖 Bot Account")
	}
	if p.BoostingSince != nil {
		flags = append(flags, "💎 Server Booster")
	}
	now := r.now()
	switch {
	case p.TimedOutUntil != nil && p.TimedOutUntil.After(now):
		flags = append(flags, "⏰ Currently Muted until "+p.TimedOutUntil.UTC().Format(timeLayout))
	case stored != nil && stored.ExpiresAt.After(now):
		flags = append(flags, "⏰ Mute recorded until "+stored.ExpiresAt.UTC().Format(timeLayout))
	}
	status := "No special flags"
	if len(flags) > 0 {
		status = strings.Join(flags, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **Profile Scan:** %s\n", p.Username)
	fmt.Fprintf(&b, "**Username:** %s\n", p.Username)
	fmt.Fprintf(&b, "**Display Name:** %s\n", p.DisplayName)
	fmt.Fprintf(&b, "**User ID:** %s\n", p.UserID)
	fmt.Fprintf(&b, "**Account Created:** %s\n", p.CreatedAt.UTC().Format(dateLayout))
	fmt.Fprintf(&b, "**Joined Server:** %s\n", joined)
	fmt.Fprintf(&b, "**Warnings:** %d\n", len(warnings))
	fmt.Fprintf(&b, "**Status:** %s", status)
	return reply(b.String()), nil
}

func channelLabel(inv *Invocation) string {
	if inv.ChannelName != "" {
		return "#" + inv.ChannelName
	}
	return channelMention(inv.ChannelID)
}

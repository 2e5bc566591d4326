package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/access"
	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/backup"
	"github.com/parsascontentcorner/clanwarden/internal/members"
	"github.com/parsascontentcorner/clanwarden/internal/models"
	"github.com/parsascontentcorner/clanwarden/internal/ratelimit"
)

const (
	msgNoPermission = "You don't have permission to use this command."
	msgUnknown      = "Unknown command."
	msgFailure      = "❌ Something went wrong. Reference: `%s`"
)

// Store is the subset of the database the handlers use directly
type Store interface {
	GetGuildConfig(ctx context.Context, guildID models.Snowflake) (*models.GuildConfig, error)
	UpsertGuildConfig(ctx context.Context, guildID models.Snowflake, patch models.GuildConfigPatch) error

	AddPermission(ctx context.Context, guildID models.Snowflake, commandName string, roleID models.Snowflake) error
	RemovePermission(ctx context.Context, guildID models.Snowflake, commandName string, roleID models.Snowflake) (bool, error)
	ListPermissions(ctx context.Context, guildID models.Snowflake) ([]*models.PermissionRule, error)

	AddToBlacklist(ctx context.Context, guildID, userID, addedBy models.Snowflake, reason sql.NullString) error
	RemoveFromBlacklist(ctx context.Context, guildID, userID models.Snowflake) (bool, error)
	GetBlacklistEntry(ctx context.Context, guildID, userID models.Snowflake) (*models.BlacklistEntry, error)
	GetBlacklist(ctx context.Context, guildID models.Snowflake) ([]*models.BlacklistEntry, error)

	AddWarning(ctx context.Context, w *models.Warning) error
	GetWarnings(ctx context.Context, guildID, userID models.Snowflake) ([]*models.Warning, error)
	RemoveWarning(ctx context.Context, guildID models.Snowflake, warningID int64) (bool, error)

	AddStaffNote(ctx context.Context, n *models.StaffNote) error
	GetStaffNotes(ctx context.Context, guildID, userID models.Snowflake) ([]*models.StaffNote, error)

	AddMute(ctx context.Context, m *models.Mute) error
	RemoveMute(ctx context.Context, guildID, userID models.Snowflake) (bool, error)
	GetMute(ctx context.Context, guildID, userID models.Snowflake) (*models.Mute, error)
	IsMuted(ctx context.Context, guildID, userID models.Snowflake) (bool, error)
}

// Authorizer decides whether an invocation may run
type Authorizer interface {
	Authorize(ctx context.Context, req access.Request) (access.Decision, error)
}

// Auditor writes and reads the audit log
type Auditor interface {
	Track(ctx context.Context, e audit.Entry) (bool, error)
	Query(ctx context.Context, guildID models.Snowflake, limit int) ([]*models.AuditLogEntry, error)
}

// Limiter throttles invocations per member
type Limiter interface {
	Allow(key ratelimit.Key) (bool, time.Duration)
}

// Deps are the collaborators of a Router. Limiter may be nil.
type Deps struct {
	Store    Store
	Access   Authorizer
	Audit    Auditor
	Roster   *members.Roster
	Backups  *backup.Service
	Platform Platform
	Limiter  Limiter
	Logger   *zap.Logger
}

// HandlerFunc executes an authorized invocation
type HandlerFunc func(ctx context.Context, inv *Invocation) (Response, error)

type route struct {
	// permission is the rule key checked by the authorizer; empty for open commands
	permission string
	adminOnly  bool
	handle     HandlerFunc
}

// Router dispatches invocations to their handlers
type Router struct {
	store    Store
	access   Authorizer
	audit    Auditor
	roster   *members.Roster
	backups  *backup.Service
	platform Platform
	limiter  Limiter
	logger   *zap.Logger
	now      func() time.Time
	routes   map[string]route
}

// NewRouter creates a router with every command registered
func NewRouter(deps Deps) *Router {
	r := &Router{
		store:    deps.Store,
		access:   deps.Access,
		audit:    deps.Audit,
		roster:   deps.Roster,
		backups:  deps.Backups,
		platform: deps.Platform,
		limiter:  deps.Limiter,
		logger:   deps.Logger,
		now:      time.Now,
	}
	r.routes = r.buildRoutes()
	return r
}

func (r *Router) buildRoutes() map[string]route {
	gated := func(permission string, h HandlerFunc) route {
		return route{permission: permission, handle: h}
	}
	admin := func(h HandlerFunc) route {
		return route{adminOnly: true, handle: h}
	}
	open := func(h HandlerFunc) route {
		return route{handle: h}
	}

	return map[string]route{
		// admin
		"setup":                 gated("setup", r.setup),
		"config view":           gated("config", r.configView),
		"config set":            gated("config", r.configSet),
		"clan set-tag":          gated("clan", r.clanSetTag),
		"clan set-requirements": gated("clan", r.clanSetRequirements),
		"clan message":          gated("clan", r.clanMessage),
		"backup":                gated("backup", r.createBackup),
		"restore":               gated("restore", r.restoreBackup),
		"listbackups":           gated("listbackups", r.listBackups),
		"logs":                  gated("logs", r.logs),
		"permissions set":       admin(r.permissionsSet),
		"permissions remove":    admin(r.permissionsRemove),
		"permissions list":      admin(r.permissionsList),
		"blacklist add":         admin(r.blacklistAdd),
		"blacklist remove":      admin(r.blacklistRemove),
		"blacklist list":        admin(r.blacklistList),
		"reset-bot":             gated("reset-bot", r.resetBot),
		"audit-log":             gated("audit-log", r.auditLogToggle),
		"auto-roles":            gated("auto-roles", r.autoRolesToggle),

		// moderation
		"warn":           gated("warn", r.warn),
		"warnings":       gated("warnings", r.warnings),
		"remove-warning": gated("remove-warning", r.removeWarning),
		"mute":           gated("mute", r.mute),
		"unmute":         gated("unmute", r.unmute),
		"kick":           gated("kick", r.kick),
		"ban":            gated("ban", r.ban),
		"unban":          gated("unban", r.unban),
		"purge":          gated("purge", r.purge),
		"note":           gated("note", r.note),
		"notes":          gated("notes", r.notes),
		"verify":         gated("verify", r.verify),
		"report":         open(r.report),
		"clean-bots":     gated("clean-bots", r.cleanBots),
		"raid-shield":    gated("raid-shield", r.raidShield),
		"lock-channel":   gated("lock-channel", r.lockChannel),
		"unlock-channel": gated("unlock-channel", r.unlockChannel),
		"slowmode":       gated("slowmode", r.slowmode),
		"scan-profile":   gated("scan-profile", r.scanProfile),

		// roster
		"role-link":           gated("role-link", r.roleLink),
		"sync-ranks":          gated("sync-ranks", r.syncRanks),
		"import-members":      gated("import-members", r.importMembers),
		"export-members":      gated("export-members", r.exportMembers),
		"activity-threshold":  gated("activity-threshold", r.activityThreshold),
		"force-activity-scan": gated("force-activity-scan", r.forceActivityScan),

		// utility
		"echo":    gated("echo", r.echo),
		"ping":    open(r.ping),
		"botinfo": open(r.botInfo),
		"help":    open(r.help),
	}
}

// Routes lists every registered command key, sorted
func (r *Router) Routes() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PermissionKeys lists the keys that permission rules can restrict
func (r *Router) PermissionKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, rt := range r.routes {
		if rt.permission != "" && !seen[rt.permission] {
			seen[rt.permission] = true
			keys = append(keys, rt.permission)
		}
	}
	sort.Strings(keys)
	return keys
}

func (r *Router) isPermissionKey(name string) bool {
	for _, rt := range r.routes {
		if rt.permission == name {
			return true
		}
	}
	return false
}

// Handle runs one invocation and always returns a reply; failures and
// handler panics are logged and turned into a user-visible message.
func (r *Router) Handle(ctx context.Context, inv *Invocation) (out Response) {
	logger := r.logger.With(
		zap.String("request_id", inv.RequestID),
		zap.String("guild_id", inv.GuildID.String()),
		zap.String("user_id", inv.ActorID.String()),
		zap.String("command", inv.Key()),
	)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("command panicked", zap.Any("panic", p), zap.Stack("stack"))
			out = reply(msgFailure, inv.RequestID)
		}
	}()

	rt, ok := r.routes[inv.Key()]
	if !ok {
		logger.Warn("unknown command")
		return reply(msgUnknown)
	}

	if r.limiter != nil {
		allowed, wait := r.limiter.Allow(ratelimit.Key{GuildID: inv.GuildID, UserID: inv.ActorID})
		if !allowed {
			logger.Debug("command throttled", zap.Duration("retry_after", wait))
			seconds := int(math.Ceil(wait.Seconds()))
			return reply("You're using commands too quickly. Try again in %d second(s).", seconds)
		}
	}

	if rt.adminOnly && !inv.IsAdministrator {
		return reply(msgNoPermission)
	}

	if rt.permission != "" {
		decision, err := r.access.Authorize(ctx, access.Request{
			GuildID:         inv.GuildID,
			ActorID:         inv.ActorID,
			IsAdministrator: inv.IsAdministrator,
			RoleIDs:         inv.RoleIDs,
			Command:         rt.permission,
		})
		if err != nil {
			logger.Error("authorization failed", zap.Error(err))
			return reply(msgFailure, inv.RequestID)
		}
		if !decision.Allowed {
			return reply(msgNoPermission)
		}
	}

	resp, err := rt.handle(ctx, inv)
	if err != nil {
		return r.failure(logger, inv, err)
	}

	logger.Debug("command completed")
	return resp
}

func (r *Router) failure(logger *zap.Logger, inv *Invocation, err error) Response {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return reply("❌ %s.", upperFirst(verr.Error()))
	case errors.Is(err, ErrForbidden):
		return reply("❌ I don't have permission to do that.")
	case errors.Is(err, ErrPlatformNotFound):
		return reply("❌ Not found.")
	}

	logger.Error("command failed", zap.Error(err))
	return reply(msgFailure, inv.RequestID)
}

// track records an action on behalf of the invoking actor. The action has
// already happened, so a failed write is logged and not reported to the user.
func (r *Router) track(ctx context.Context, inv *Invocation, action audit.Action, target models.NullSnowflake, details string) {
	_, err := r.audit.Track(ctx, audit.Entry{
		GuildID:      inv.GuildID,
		Action:       action,
		ModeratorID:  audit.Moderator(inv.ActorID),
		TargetUserID: target,
		Details:      details,
	})
	if err != nil {
		r.logger.Warn("failed to record audit entry",
			zap.String("request_id", inv.RequestID),
			zap.String("guild_id", inv.GuildID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func reply(format string, args ...interface{}) Response {
	if len(args) == 0 {
		return Response{Content: format}
	}
	return Response{Content: fmt.Sprintf(format, args...)}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func requiredString(inv *Invocation, name string) (string, error) {
	v, _ := inv.String(name)
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &models.ValidationError{Field: name, Reason: "is required"}
	}
	return v, nil
}

func requiredSnowflake(inv *Invocation, name string) (models.Snowflake, error) {
	v, ok := inv.Snowflake(name)
	if !ok {
		return 0, &models.ValidationError{Field: name, Reason: "is required"}
	}
	return v, nil
}

func requiredInt(inv *Invocation, name string) (int64, error) {
	v, ok := inv.Int(name)
	if !ok {
		return 0, &models.ValidationError{Field: name, Reason: "is required"}
	}
	return v, nil
}

func toggleOption(inv *Invocation) (bool, error) {
	v, _ := inv.String("action")
	switch v {
	case "enable":
		return true, nil
	case "disable":
		return false, nil
	}
	return false, &models.ValidationError{Field: "action", Reason: "must be enable or disable"}
}

func userMention(id models.Snowflake) string {
	return "<@" + id.String() + ">"
}

func roleMention(id models.Snowflake) string {
	return "<@&" + id.String() + ">"
}

func channelMention(id models.Snowflake) string {
	return "<#" + id.String() + ">"
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "No reason provided"
	}
	return reason
}

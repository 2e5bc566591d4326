// Package access decides whether a guild member may run a command.
package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// Store is the subset of the database the authorizer reads
type Store interface {
	IsBlacklisted(ctx context.Context, guildID, userID models.Snowflake) (bool, error)
	GetRequiredRoles(ctx context.Context, guildID models.Snowflake, commandName string) ([]models.Snowflake, error)
}

// Reason explains a Decision
type Reason string

const (
	ReasonAdministrator Reason = "administrator"
	ReasonBlacklisted   Reason = "blacklisted"
	ReasonUnrestricted  Reason = "unrestricted"
	ReasonRoleMatch     Reason = "role_match"
	ReasonMissingRole   Reason = "missing_role"
)

// Request describes one invocation to authorize
type Request struct {
	GuildID         models.Snowflake
	ActorID         models.Snowflake
	IsAdministrator bool
	RoleIDs         []models.Snowflake
	// Command is matched case-sensitively against permission rules
	Command string
}

// Decision is the outcome of Authorize. A deny is a normal outcome, not an error.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Authorizer evaluates the guild blacklist and per-command role rules.
// It holds no mutable state and is safe for concurrent use.
type Authorizer struct {
	store  Store
	logger *zap.Logger
}

// NewAuthorizer creates a new authorizer
func NewAuthorizer(store Store, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		store:  store,
		logger: logger,
	}
}

// Authorize applies, in order: administrator bypass, blacklist deny,
// unrestricted command allow, then required role intersection.
// Store failures are returned as errors and must not be read as a deny.
func (a *Authorizer) Authorize(ctx context.Context, req Request) (Decision, error) {
	if req.IsAdministrator {
		return a.decide(req, Decision{Allowed: true, Reason: ReasonAdministrator}), nil
	}

	blacklisted, err := a.store.IsBlacklisted(ctx, req.GuildID, req.ActorID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return a.decide(req, Decision{Allowed: false, Reason: ReasonBlacklisted}), nil
	}

	required, err := a.store.GetRequiredRoles(ctx, req.GuildID, req.Command)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to get required roles: %w", err)
	}
	if len(required) == 0 {
		return a.decide(req, Decision{Allowed: true, Reason: ReasonUnrestricted}), nil
	}

	if hasAnyRole(req.RoleIDs, required) {
		return a.decide(req, Decision{Allowed: true, Reason: ReasonRoleMatch}), nil
	}

	return a.decide(req, Decision{Allowed: false, Reason: ReasonMissingRole}), nil
}

func (a *Authorizer) decide(req Request, d Decision) Decision {
	a.logger.Debug("authorization decision",
		zap.String("guild_id", req.GuildID.String()),
		zap.String("user_id", req.ActorID.String()),
		zap.String("command", req.Command),
		zap.Bool("allowed", d.Allowed),
		zap.String("reason", string(d.Reason)),
	)
	return d
}

func hasAnyRole(held, required []models.Snowflake) bool {
	set := make(map[models.Snowflake]struct{}, len(held))
	for _, r := range held {
		set[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

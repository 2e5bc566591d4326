package moderation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// MuteStore is the subset of the database the sweep uses
type MuteStore interface {
	GetExpiredMutes(ctx context.Context) ([]*models.Mute, error)
	RemoveExpiredMute(ctx context.Context, guildID, userID models.Snowflake) (bool, error)
}

// TimeoutClearer lifts a member's platform-side timeout
type TimeoutClearer interface {
	ClearTimeout(ctx context.Context, guildID, userID models.Snowflake) error
}

// Tracker records sweep actions in the audit log
type Tracker interface {
	Track(ctx context.Context, e audit.Entry) (bool, error)
}

// SweepResult summarizes one pass
type SweepResult struct {
	Expired      int
	Removed      int
	ClearFailed  int
	RemoveFailed int
}

// Sweeper converges stored mutes with the platform once they expire
type Sweeper struct {
	store   MuteStore
	clearer TimeoutClearer
	tracker Tracker
	logger  *zap.Logger
}

// NewSweeper creates a mute-expiry sweeper. tracker may be nil.
func NewSweeper(store MuteStore, clearer TimeoutClearer, tracker Tracker, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:   store,
		clearer: clearer,
		tracker: tracker,
		logger:  logger,
	}
}

// Sweep deletes every expired mute row and then clears its platform timeout.
// A row re-muted after the listing is left alone along with its timeout. A
// failed platform clear is logged; the row is already gone, so stored state
// always converges. Only a failure to list expired mutes is returned.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	mutes, err := s.store.GetExpiredMutes(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list expired mutes: %w", err)
	}
	result.Expired = len(mutes)

	for _, mute := range mutes {
		fields := []zap.Field{
			zap.String("guild_id", mute.GuildID.String()),
			zap.String("user_id", mute.UserID.String()),
		}

		removed, err := s.store.RemoveExpiredMute(ctx, mute.GuildID, mute.UserID)
		if err != nil {
			result.RemoveFailed++
			s.logger.Error("failed to remove expired mute", append(fields, zap.Error(err))...)
			continue
		}
		if !removed {
			// Unmuted or re-muted since the listing
			continue
		}
		result.Removed++

		if err := s.clearer.ClearTimeout(ctx, mute.GuildID, mute.UserID); err != nil {
			result.ClearFailed++
			s.logger.Warn("failed to clear expired timeout", append(fields, zap.Error(err))...)
		}

		if s.tracker != nil {
			if _, err := s.tracker.Track(ctx, audit.Entry{
				GuildID:      mute.GuildID,
				Action:       audit.ActionAutoUnmute,
				ModeratorID:  audit.System,
				TargetUserID: models.NewNullSnowflake(mute.UserID),
				Details:      "mute expired",
			}); err != nil {
				s.logger.Warn("failed to record auto unmute", append(fields, zap.Error(err))...)
			}
		}
	}

	if result.Expired > 0 {
		s.logger.Info("swept expired mutes",
			zap.Int("expired", result.Expired),
			zap.Int("removed", result.Removed),
			zap.Int("clear_failed", result.ClearFailed),
		)
	}

	return result, nil
}

// Start runs Sweep every interval until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started mute sweep job",
		zap.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping mute sweep job")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("mute sweep failed", zap.Error(err))
			}
		}
	}
}

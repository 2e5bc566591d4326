// Package ratelimit throttles command invocations per guild member.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// Key identifies one member of one guild
type Key struct {
	GuildID models.Snowflake
	UserID  models.Snowflake
}

// bucket is the token bucket of a single member
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per (guild, user)
type RateLimiter struct {
	buckets map[Key]*bucket
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter creates a limiter refilling perSecond tokens up to burst
func NewRateLimiter(perSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[Key]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		logger:  logger,
		now:     time.Now,
	}
}

// getBucket retrieves or creates the bucket for a member. Callers hold rl.mu.
func (rl *RateLimiter) getBucket(key Key, now time.Time) *bucket {
	if b, exists := rl.buckets[key]; exists {
		b.lastSeen = now
		return b
	}

	b := &bucket{
		limiter:  rate.NewLimiter(rl.limit, rl.burst),
		lastSeen: now,
	}
	rl.buckets[key] = b
	return b
}

// Allow takes a token for the member. When none is available it returns false
// and how long until the next one; the attempt does not consume a token.
func (rl *RateLimiter) Allow(key Key) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.getBucket(key, now)

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		rl.logger.Debug("command rate limited",
			zap.String("guild_id", key.GuildID.String()),
			zap.String("user_id", key.UserID.String()),
			zap.Duration("retry_after", delay),
		)
		return false, delay
	}
	return true, 0
}

// Cleanup evicts buckets idle for longer than idle and returns how many were removed
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("evicted idle rate limit buckets",
			zap.Int("count", removed),
		)
	}
	return removed
}

// Len returns the number of tracked members
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// StartCleanupJob evicts idle buckets every interval until ctx is cancelled
func (rl *RateLimiter) StartCleanupJob(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rl.logger.Info("started rate limit cleanup job",
		zap.Duration("interval", interval),
		zap.Duration("idle", idle),
	)

	for {
		select {
		case <-ctx.Done():
			rl.logger.Info("stopping rate limit cleanup job")
			return
		case <-ticker.C:
			rl.Cleanup(idle)
		}
	}
}

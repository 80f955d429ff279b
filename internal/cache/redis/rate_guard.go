package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// RateGuard implements domain.RateGuard with a sliding window backed by Redis
// sorted sets and an atomic Lua script, so multiple scanner processes can
// share one per-venue budget. Admission is fail-fast: an exhausted window
// rejects with ErrRateLimited rather than queueing, and the venue sits out
// the current cycle.
type RateGuard struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
	limit         int
	window        time.Duration
}

// NewRateGuard creates a RateGuard admitting at most limit calls per key in
// each window.
func NewRateGuard(c *Client, limit int, window time.Duration) *RateGuard {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateGuard{
		rdb:           c.Underlying(),
		slidingWindow: redis.NewScript(slidingWindowLua),
		limit:         limit,
		window:        window,
	}
}

func guardKey(key string) string {
	return "guard:" + key
}

// Allow checks and counts one request for key under the sliding window.
func (g *RateGuard) Allow(ctx context.Context, key string) (bool, error) {
	result, err := g.slidingWindow.Run(
		ctx,
		g.rdb,
		[]string{guardKey(key)},
		time.Now().UnixMicro(),
		g.window.Microseconds(),
		g.limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: guard allow %s: %w", key, err)
	}
	if len(result) < 2 {
		return false, fmt.Errorf("redis: guard allow %s: unexpected result length %d", key, len(result))
	}
	return result[0] == 1, nil
}

// Submit admits and runs fn, or rejects it with ErrRateLimited. A Redis
// failure is reported as-is; the caller treats it like any transport failure.
func (g *RateGuard) Submit(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	allowed, err := g.Allow(ctx, key)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("redis: guard %s: %w", key, domain.ErrRateLimited)
	}
	return fn(ctx)
}

var _ domain.RateGuard = (*RateGuard)(nil)

// Package guard provides in-process implementations of domain.RateGuard.
// A Redis-backed sliding-window guard, for deployments with several scanner
// processes sharing venue budgets, lives in internal/cache/redis.
package guard

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// LocalConfig configures the per-key token buckets.
type LocalConfig struct {
	// RatePerSec is the sustained admission rate per key (venue).
	RatePerSec float64
	// Burst is the bucket depth per key.
	Burst int
}

// Local is an in-process rate guard with one token bucket per key. Submit
// waits for admission rather than failing fast, so short spikes are smoothed;
// a wait that cannot complete within the caller's deadline is reported as
// ErrRateLimited.
type Local struct {
	cfg      LocalConfig
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocal creates a Local guard.
func NewLocal(cfg LocalConfig) *Local {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Local{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (g *Local) limiter(key string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	lim, ok := g.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(g.cfg.RatePerSec), g.cfg.Burst)
		g.limiters[key] = lim
	}
	return lim
}

// Submit blocks until the key's bucket admits the call, then runs fn. If the
// context expires before admission, the call is rejected with ErrRateLimited.
func (g *Local) Submit(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := g.limiter(key).Wait(ctx); err != nil {
		return fmt.Errorf("guard: %s: %w", key, domain.ErrRateLimited)
	}
	return fn(ctx)
}

// Nop admits everything. For tests and single-venue setups where the venue's
// own limits are generous enough.
type Nop struct{}

// Submit runs fn immediately.
func (Nop) Submit(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ domain.RateGuard = (*Local)(nil)
	_ domain.RateGuard = Nop{}
)

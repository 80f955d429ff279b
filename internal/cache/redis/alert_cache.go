package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertCache remembers which opportunities were recently alerted so the
// notifier does not repeat itself every cycle while a spread persists.
type AlertCache struct {
	rdb      *redis.Client
	cooldown time.Duration
}

// NewAlertCache creates an AlertCache with the given cooldown per key.
func NewAlertCache(c *Client, cooldown time.Duration) *AlertCache {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &AlertCache{rdb: c.Underlying(), cooldown: cooldown}
}

func alertKey(key string) string {
	return "alert:" + key
}

// ShouldAlert returns true the first time key is seen within the cooldown
// window, and false while the window is still open.
func (a *AlertCache) ShouldAlert(ctx context.Context, key string) (bool, error) {
	ok, err := a.rdb.SetNX(ctx, alertKey(key), 1, a.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("redis: alert setnx %s: %w", key, err)
	}
	return ok, nil
}

package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/schoolgle/schoolgle/internal/config"
)

const keyTrigger = "schoolgle:trigger:%s"

// TriggerLimiter throttles manual health recomputation per API key.
type TriggerLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewTriggerLimiter returns nil when redis is not configured.
func NewTriggerLimiter(client *redis.Client, cfg config.Config) *TriggerLimiter {
	if client == nil || cfg.RateLimit.TriggerPerMinute <= 0 || cfg.RateLimit.TriggerBurst <= 0 {
		return nil
	}
	return &TriggerLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.TriggerPerMinute / 60,
		burst:  cfg.RateLimit.TriggerBurst,
	}
}

func (l *TriggerLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *TriggerLimiter) Allow(ctx context.Context, keyID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTrigger, strings.TrimSpace(keyID)), l.rate, l.burst)
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/202030481266/FengWenServer/internal/domain"
)

const (
	cooldownKeyPrefix = "vcode_cooldown:"
	dailyKeyPrefix    = "vcode_daily:"
)

// SendLimiter throttles verification email sends per address: a fixed
// cooldown between sends plus a rolling daily cap.
type SendLimiter struct {
	rdb      goredis.Cmdable
	clock    clockwork.Clock
	cooldown time.Duration
	dailyCap int
}

func NewSendLimiter(rdb goredis.Cmdable, clock clockwork.Clock, cooldown time.Duration, dailyCap int) *SendLimiter {
	return &SendLimiter{
		rdb:      rdb,
		clock:    clock,
		cooldown: cooldown,
		dailyCap: dailyCap,
	}
}

var _ domain.SendLimiter = (*SendLimiter)(nil)

// Allow reports whether a verification email may be sent to the address.
// The cooldown token is only consumed when the daily cap has headroom, so
// a capped address does not burn its next-day cooldown slot.
func (l *SendLimiter) Allow(ctx context.Context, email string) (bool, error) {
	dailyKey := dailyKeyPrefix + l.clock.Now().UTC().Format("2006-01-02") + ":" + email

	count, err := l.rdb.Get(ctx, dailyKey).Int()
	if err != nil && err != goredis.Nil {
		return false, fmt.Errorf("failed to check daily send count: %w", err)
	}
	if count >= l.dailyCap {
		return false, nil
	}

	set, err := l.rdb.SetNX(ctx, cooldownKeyPrefix+email, "1", l.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check send cooldown: %w", err)
	}
	if !set {
		return false, nil
	}

	_, err = l.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, dailyKey)
		pipe.Expire(ctx, dailyKey, 24*time.Hour)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to bump daily send count: %w", err)
	}

	return true, nil
}

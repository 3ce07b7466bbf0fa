package redisadapter

import (
	"context"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

func LimitKeyPlatformScrape(platform entities.Platform) string {
	return "scrape:" + string(platform)
}

// ScrapeRateLimiter caps scrapes per platform per minute across processes.
type ScrapeRateLimiter struct {
	limiter   *redis_rate.Limiter
	perMinute int
}

func NewScrapeRateLimiter(client redis.UniversalClient, perMinute int) *ScrapeRateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &ScrapeRateLimiter{
		limiter:   redis_rate.NewLimiter(client),
		perMinute: perMinute,
	}
}

func (l *ScrapeRateLimiter) Allow(ctx context.Context, platform entities.Platform) (bool, error) {
	result, err := l.limiter.Allow(ctx, LimitKeyPlatformScrape(platform), redis_rate.PerMinute(l.perMinute))
	if err != nil {
		return false, err
	}
	return result.Allowed > 0, nil
}

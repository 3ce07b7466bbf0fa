package redisadapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

func LockKeyCampaignEarnings(campaignID string) string {
	return "lock:campaign-earnings:" + campaignID
}

func LockKeyUserPayout(userID string) string {
	return "lock:user-payout:" + userID
}

// CampaignLocker is a redsync mutex per key, shared by every API and worker
// process. The same type serves campaign earnings and per-user payout
// requests; only the key space differs.
type CampaignLocker struct {
	rs     *redsync.Redsync
	keyFor func(string) string
	scope  string
	ttl    time.Duration
	tries  int
	logger *slog.Logger
}

func NewCampaignLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CampaignLocker {
	return newLocker(client, ttl, logger, LockKeyCampaignEarnings, "campaign")
}

// NewUserPayoutLocker serializes payout requests per user so the balance
// check and the insert see the same available amount.
func NewUserPayoutLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CampaignLocker {
	return newLocker(client, ttl, logger, LockKeyUserPayout, "user_payout")
}

func newLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger, keyFor func(string) string, scope string) *CampaignLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CampaignLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		keyFor: keyFor,
		scope:  scope,
		ttl:    ttl,
		tries:  64,
		logger: logger,
	}
}

func (l *CampaignLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		l.keyFor(key),
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(50*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		// The unlock must run even when the caller's ctx is already done.
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			l.logger.Warn("distributed lock release failed",
				"event", "lock_release_failed",
				"module", "finance-core/earnings-reconciliation",
				"layer", "adapter",
				"scope", l.scope,
				"key", key,
				"error", err.Error(),
			)
		}
	}, nil
}

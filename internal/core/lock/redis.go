package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// release, so a lease that expired and was re-taken is never released by
// its previous owner.
type RedisLocker struct {
	rdb    redis.UniversalClient
	prefix string
	log    *zap.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, prefix string, log *zap.Logger) *RedisLocker {
	if prefix == "" {
		prefix = "hiring-pipeline:lock:"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, log: logger.OrNop(log)}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	full := r.prefix + key
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	r.log.Debug("lock.acquired", zap.String("key", key), zap.Duration("ttl", ttl))

	return &Lease{Key: key, Token: token, release: func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.rdb, []string{full}, token).Int64()
		if err != nil {
			return fmt.Errorf("lock release %s: %w", key, err)
		}
		if n == 0 {
			r.log.Warn("lock.release.expired", zap.String("key", key))
		}
		return nil
	}}, nil
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

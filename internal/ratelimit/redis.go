package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis shares counters across API instances. Redis failures fail open.
type Redis struct {
	client  *redis.Client
	log     *slog.Logger
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
}

var _ Limiter = (*Redis)(nil)

// NewRedis connects and pings; callers fall back to NewWindow on error.
func NewRedis(ctx context.Context, cfg RedisConfig, limit int, window time.Duration, log *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return newRedis(client, limit, window, log), nil
}

func newRedis(client *redis.Client, limit int, window time.Duration, log *slog.Logger) *Redis {
	if window <= 0 {
		window = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	return &Redis{
		client:  client,
		log:     log,
		prefix:  "garbagewatch:ratelimit:",
		limit:   limit,
		window:  window,
		timeout: 250 * time.Millisecond,
	}
}

func (rl *Redis) Allow(ctx context.Context, key string) Decision {
	if rl.limit <= 0 {
		return Decision{Allowed: true}
	}

	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key

	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.log.Error("redis rate limiter error", "op", "incr", "err", err)
		return Decision{Allowed: true}
	}

	if counter == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			rl.log.Error("redis rate limiter error", "op", "expire", "err", err)
		}
	}

	if int(counter) <= rl.limit {
		return Decision{Allowed: true}
	}

	ttl, err := rl.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = rl.window
	}

	return Decision{Allowed: false, RetryAfter: ttl}
}

// WithLimit shares the connection under a separate key space.
func (rl *Redis) WithLimit(scope string, limit int, window time.Duration) *Redis {
	next := newRedis(rl.client, limit, window, rl.log)
	next.prefix = rl.prefix + scope + ":"
	return next
}

// Ping reports whether Redis is reachable; used by readiness.
func (rl *Redis) Ping(ctx context.Context) error {
	return rl.client.Ping(ctx).Err()
}

func (rl *Redis) Close() error {
	return rl.client.Close()
}

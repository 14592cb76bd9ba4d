package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript keeps one sorted-set member per request scored by its
// arrival time in ms. It trims members older than the window, admits the
// request if fewer than limit remain, and returns {allowed, remaining, reset_ms}.
var slidingWindowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {1, limit - count - 1, tonumber(first[2]) + window}
end
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {0, 0, tonumber(first[2]) + window}
`)

// Redis is a sliding-window Limiter shared by every instance using the same server.
type Redis struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis connects to redisURL. It returns nil when the URL is empty,
// invalid or unreachable: rate limiting is then disabled, not fatal.
// token, when set, overrides the password in the URL.
func NewRedis(redisURL, token string, limit int, window time.Duration) *Redis {
	if redisURL == "" {
		slog.Info("ratelimit: no backend configured, limiting disabled")
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("ratelimit: invalid redis URL, limiting disabled", slog.Any("error", err))
		return nil
	}
	if token != "" {
		opts.Password = token
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("ratelimit: redis unreachable, limiting disabled", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	slog.Info("ratelimit: redis connected", slog.String("addr", opts.Addr),
		slog.Int("limit", limit), slog.Duration("window", window))
	return NewRedisClient(rdb, limit, window)
}

// NewRedisClient wraps an existing client.
func NewRedisClient(rdb *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, limit: limit, window: window, now: time.Now}
}

// Allow records one request for key and reports whether it fits the window.
// Rejected requests are not recorded.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	res, err := slidingWindowScript.Run(ctx, r.rdb,
		[]string{KeyPrefix + ":" + key},
		now.UnixMilli(), r.window.Milliseconds(), r.limit, member(now),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	return Decision{
		Allowed:   res[0] == 1,
		Limit:     r.limit,
		Remaining: int(res[1]),
		Reset:     time.UnixMilli(res[2]),
	}, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error { return r.rdb.Close() }

// member makes the sorted-set entry unique when two requests share a millisecond.
func member(now time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return strconv.FormatInt(now.UnixNano(), 10) + "-" + hex.EncodeToString(b)
}

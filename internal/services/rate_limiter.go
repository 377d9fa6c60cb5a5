package services

import (
	"context"
	"sync"
	"time"

	"devlense/internal/config"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// SubmissionLimiter caps how often one user may submit
type SubmissionLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NoopLimiter allows everything. Used when rate_limit.requests_per_minute is zero.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter holds one token bucket per key and forgets idle keys.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewMemoryLimiter allows perMinute submissions per key with the given burst
func NewMemoryLimiter(perMinute float64, burst int) *MemoryLimiter {
	if burst <= 0 {
		burst = config.DefaultRateLimitBurst
	}
	return &MemoryLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(perMinute / 60.0),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()
	return entry.limiter.AllowN(now, 1), nil
}

// Sweep forgets keys idle for longer than the idle TTL. Run it from a Janitor.
func (l *MemoryLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}


// redisTokenBucketScript refills and consumes one token atomically.
// KEYS[1] = bucket key
// ARGV[1] = refill rate (tokens per second)
// ARGV[2] = capacity
// ARGV[3] = now (unix seconds, fractional)
var redisTokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, math.ceil(capacity / rate) + 60)

return allowed
`)

// RedisLimiter shares token buckets between server processes.
type RedisLimiter struct {
	client redis.Scripter
	rate   float64
	burst  int
	now    func() time.Time
}

// NewRedisLimiter allows perMinute submissions per key with the given burst
func NewRedisLimiter(client redis.Scripter, perMinute float64, burst int) *RedisLimiter {
	if burst <= 0 {
		burst = config.DefaultRateLimitBurst
	}
	return &RedisLimiter{client: client, rate: perMinute / 60.0, burst: burst, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(l.now().UnixMicro()) / 1e6
	allowed, err := redisTokenBucketScript.Run(ctx, l.client, []string{"devlense:limiter:" + key}, l.rate, l.burst, now).Int()
	if err != nil {
		return false, contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "redis limiter error: %v", err)
	}
	return allowed == 1, nil
}

// NewSubmissionLimiter picks the limiter named by cfg.Backend. client may be nil
// unless the backend is redis.
func NewSubmissionLimiter(cfg *config.RateLimitConfig, client redis.Scripter, logger *observability.Logger) SubmissionLimiter {
	if cfg.RequestsPerMinute <= 0 {
		return NoopLimiter{}
	}
	if cfg.Backend == "redis" {
		if client != nil {
			return NewRedisLimiter(client, cfg.RequestsPerMinute, cfg.Burst)
		}
		logger.Warn(context.Background(), "Redis rate limiting requested without a redis client, using memory")
	}
	return NewMemoryLimiter(cfg.RequestsPerMinute, cfg.Burst)
}

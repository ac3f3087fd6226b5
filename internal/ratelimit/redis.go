package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes one token atomically.
// KEYS[1] bucket key; ARGV: tokens per ms, burst, now (ms), ttl (ms).
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = burst
	ts = now
end

local elapsed = now - ts
if elapsed < 0 then
	elapsed = 0
end
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(now))
redis.call('PEXPIRE', KEYS[1], ttl)
return allowed
`)

// Redis keeps token buckets in Redis so several hub processes can share quotas.
type Redis struct {
	client *redis.Client
	cfg    Config
	prefix string
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter. Keys are stored as prefix + key.
func NewRedis(client *redis.Client, cfg Config, prefix string) *Redis {
	return &Redis{
		client: client,
		cfg:    cfg,
		prefix: prefix,
		now:    time.Now,
	}
}

// Check consumes one token for key. Backend failures are returned as *LimitCheckError.
func (r *Redis) Check(ctx context.Context, key string) (bool, error) {
	if !r.cfg.Enabled() {
		return true, nil
	}

	perMs := float64(r.cfg.Rate) / float64(r.cfg.Window.Milliseconds())
	ttl := r.cfg.RefillTime() + r.cfg.Window

	res, err := tokenBucketScript.Run(ctx, r.client,
		[]string{r.prefix + key},
		perMs, r.cfg.Burst, r.now().UnixMilli(), ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, &LimitCheckError{Key: key, Err: err}
	}
	return res == 1, nil
}

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

var _ Limiter = (*Redis)(nil)

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// bucketScope describes one family of token buckets.
type bucketScope struct {
	prefix string
	// idle is how long an untouched bucket survives before Redis drops it.
	idle time.Duration
	// hashed scopes never store the raw subject in the key.
	hashed bool
}

var (
	principalScope = bucketScope{prefix: "ratelimit:principal:", idle: 2 * time.Minute}
	ipScope        = bucketScope{prefix: "ratelimit:ip:", idle: 10 * time.Second, hashed: true}
	loginScope     = bucketScope{prefix: "ratelimit:login:", idle: time.Hour}
)

func (s bucketScope) key(subject string) string {
	if s.hashed {
		return s.prefix + hashSubject(subject)
	}
	return s.prefix + subject
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and takes one token atomically.
// Times are in milliseconds so sub-second rates refill smoothly.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per millisecond
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local idle = tonumber(ARGV[4])      -- key TTL in milliseconds

	local data = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(data[1]) or burst
	local ts = tonumber(data[2]) or now

	tokens = math.min(burst, tokens + (math.max(0, now - ts) * rate))

	local allowed = 0
	local wait = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		wait = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', now)
	redis.call('PEXPIRE', key, idle)

	return {allowed, wait, math.floor(tokens)}
`)

// CheckPrincipalRateLimit takes one token from the API bucket of a lawyer.
// A zero rate disables the limit.
func (c *Cache) CheckPrincipalRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return unlimited(burst), nil
	}
	return c.take(ctx, principalScope, userID, float64(ratePerMinute)/float64(time.Minute.Milliseconds()), burst)
}

// CheckLoginRateLimit throttles password attempts against one account
// regardless of source IP. fingerprint is a hash of the normalized email.
func (c *Cache) CheckLoginRateLimit(ctx context.Context, fingerprint string, attemptsPerHour, burst int) (*RateLimitResult, error) {
	if attemptsPerHour <= 0 {
		return unlimited(burst), nil
	}
	return c.take(ctx, loginScope, fingerprint, float64(attemptsPerHour)/float64(time.Hour.Milliseconds()), burst)
}

// CheckIPRateLimit takes one token from the bucket of a client IP.
// The IP is hashed before it becomes part of a key.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}
	return c.take(ctx, ipScope, ip, float64(ratePerSecond)/float64(time.Second.Milliseconds()), burst)
}

// take runs the bucket script. Errors are returned so callers can decide
// whether to fail open.
func (c *Cache) take(ctx context.Context, scope bucketScope, subject string, ratePerMs float64, burst int) (*RateLimitResult, error) {
	now := time.Now()

	out, err := tokenBucketScript.Run(ctx, c.client,
		[]string{scope.key(subject)},
		ratePerMs, burst, now.UnixMilli(), scope.idle.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("rate limit script returned %d values", len(out))
	}

	return bucketResult(now, out[0] == 1, out[1], out[2], ratePerMs, burst), nil
}

// bucketResult turns raw script output into a RateLimitResult. ResetAt is
// when the bucket will be full again.
func bucketResult(now time.Time, allowed bool, waitMs, remaining int64, ratePerMs float64, burst int) *RateLimitResult {
	missing := float64(int64(burst) - remaining)
	if missing < 0 {
		missing = 0
	}
	res := &RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(missing/ratePerMs) * time.Millisecond),
	}
	if !allowed {
		res.RetryAfter = time.Duration(waitMs) * time.Millisecond
	}
	return res
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now(),
	}
}

// hashSubject returns 16 hex chars of the SHA-256 of s.
func hashSubject(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// windowScript bumps the counter and arms its expiry on the first hit of a
// window, returning {count, pttl}. Running it as one script keeps a crash
// between INCR and PEXPIRE from leaving an immortal counter.
var windowScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// FixedWindowLimiter counts requests per key in fixed windows.
// A nil client disables limiting.
type FixedWindowLimiter struct {
	rdb goredis.Scripter
	now func() time.Time
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	l := &FixedWindowLimiter{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

// LimitKey names the counter for one scope (e.g. "login") and one caller
// identity (client IP).
func LimitKey(scope, identity string) string {
	return "rl:" + scope + ":" + identity
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Count      int
	RetryAfter time.Duration // zero when allowed
	ResetAt    time.Time
}

func unlimited(limit int) Decision {
	return Decision{Allowed: true, Limit: limit, Remaining: max(limit, 0)}
}

// AllowFixedWindow records one hit on key and reports whether it fits in
// limit for the current window. limit <= 0 means unlimited; window <= 0
// falls back to one minute.
func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || l.rdb == nil {
		return unlimited(limit), nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}

	vals, err := windowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("ratelimit %s: unexpected reply %v", key, vals)
	}

	count := int(vals[0])
	ttl := time.Duration(vals[1]) * time.Millisecond
	if ttl <= 0 {
		ttl = window
	}

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		Count:     count,
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}

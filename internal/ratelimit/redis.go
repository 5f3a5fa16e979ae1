package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soyeahso/switchboard/internal/logging"
)

// fixedWindowScript refuses once the counter reaches ARGV[1]; otherwise it
// increments and starts the expiry on the first hit of a window.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
current = redis.call("INCR", KEYS[1])
if tonumber(current) == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// Redis is a fixed window limiter shared by every instance pointed at the
// same Redis. It fails open when Redis is unreachable.
type Redis struct {
	client redis.Scripter
	prefix string
	max    int
	window time.Duration
	log    *logging.Logger
}

// NewRedis creates a shared limiter. Keys are stored as prefix+key.
func NewRedis(client redis.Scripter, prefix string, max int, window time.Duration, log *logging.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		max:    max,
		window: window,
		log:    log.Sub("ratelimit"),
	}
}

// Allow counts a request for key.
func (r *Redis) Allow(ctx context.Context, key string) bool {
	res, err := fixedWindowScript.Run(ctx, r.client, []string{r.prefix + key}, r.max, r.window.Milliseconds()).Int()
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing request")
		return true
	}
	return res == 1
}

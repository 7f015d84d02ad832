package llm

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter bloquea hasta que key tenga cupo o ctx se cancele.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

const redisWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLimiter es un contador de ventana fija compartido entre procesos.
// Si Redis falla deja pasar la llamada.
type RedisLimiter struct {
	client  redisEvaler
	window  time.Duration
	max     int
	prefix  string
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	minWait time.Duration
}

func NewRedisLimiter(client *redis.Client, window time.Duration, max int, logger *zap.Logger) *RedisLimiter {
	if client == nil {
		return nil
	}
	return newRedisLimiter(client, window, max, logger)
}

func newRedisLimiter(client redisEvaler, window time.Duration, max int, logger *zap.Logger) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		client:  client,
		window:  window,
		max:     max,
		prefix:  "probe:rl:",
		logger:  logger,
		sleep:   sleepCtx,
		minWait: 50 * time.Millisecond,
	}
}

func (l *RedisLimiter) Wait(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	redisKey := l.prefix + strings.ToLower(strings.TrimSpace(key))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, ttl, err := l.take(ctx, redisKey)
		if err != nil {
			l.logger.Warn("rate limiter unavailable, failing open", zap.String("key", redisKey), zap.Error(err))
			return nil
		}
		if count <= int64(l.max) {
			return nil
		}
		wait := ttl
		if wait < l.minWait {
			wait = l.minWait
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *RedisLimiter) take(ctx context.Context, key string) (int64, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	vals, err := l.client.Eval(callCtx, redisWindowScript, []string{key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) < 2 {
		return 0, 0, redis.Nil
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// RateLimitedGateway espera en el Limiter antes de cada llamada.
type RateLimitedGateway struct {
	next    Gateway
	limiter Limiter
	key     string
}

func NewRateLimitedGateway(next Gateway, limiter Limiter, key string) Gateway {
	if limiter == nil {
		return next
	}
	if rl, ok := limiter.(*RedisLimiter); ok && rl == nil {
		return next
	}
	return &RateLimitedGateway{next: next, limiter: limiter, key: key}
}

func (g *RateLimitedGateway) Generate(ctx context.Context, prompt Prompt, cfg GenerateConfig) (string, error) {
	if err := g.limiter.Wait(ctx, g.key); err != nil {
		return "", err
	}
	return g.next.Generate(ctx, prompt, cfg)
}

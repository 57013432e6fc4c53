// Package redis holds the shared go-redis connection and the key layout
// used by rate limits, idempotency records, locks and the reminder queue.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// Every key starts with "rd:" followed by one of these areas.
const (
	keyRoot        = "rd"
	areaIdempotent = "idempotency"
	areaRateLimit  = "rate_limit"
	areaLock       = "lock"
	areaJobs       = "jobs"
)

var errNoConnection = errors.New("redis: no connection")

var (
	// KEYS[1] is deleted only while it still holds ARGV[1].
	deleteIfEqual = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	// INCR KEYS[1], starting a window of ARGV[1] ms on the first hit.
	incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)
)

type Client struct {
	conn redis.UniversalClient
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// New connects and pings before returning.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis connected")
	}
	return &Client{conn: conn}, nil
}

// NewFromUniversal wraps an existing connection, e.g. one pointed at miniredis.
func NewFromUniversal(conn redis.UniversalClient) *Client {
	return &Client{conn: conn}
}

// optionsFromConfig prefers the URL; pool and timeout settings from cfg
// fill whatever the URL leaves unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fillInt := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDur(&opts.DialTimeout, cfg.DialTimeout)
	fillDur(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDur(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

// Raw is the underlying connection, used by the sorted-set job queue.
func (c *Client) Raw() redis.UniversalClient { return c.conn }

func (c *Client) Ping(ctx context.Context) error {
	if c.conn == nil {
		return errNoConnection
	}
	return c.conn.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.conn == nil {
		return "", errNoConnection
	}
	return c.conn.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.conn == nil {
		return errNoConnection
	}
	return c.conn.Set(ctx, key, value, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.conn == nil {
		return false, errNoConnection
	}
	return c.conn.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.conn == nil {
		return errNoConnection
	}
	return c.conn.Del(ctx, keys...).Err()
}

// CompareAndDelete removes key only while it holds expected. Locks use it so
// a holder whose TTL lapsed cannot free someone else's lock.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if c.conn == nil {
		return false, errNoConnection
	}
	n, err := deleteIfEqual.Run(ctx, c.conn, []string{key}, expected).Int64()
	return n == 1, err
}

// IncrWithTTL counts hits in a fixed window that opens on the first hit.
// Both steps run in one script so a crash cannot leave a counter without
// expiry.
func (c *Client) IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c.conn == nil {
		return 0, errNoConnection
	}
	return incrWindow.Run(ctx, c.conn, []string{key}, window.Milliseconds()).Int64()
}

func (c *Client) IdempotencyKey(scope, id string) string { return buildKey(areaIdempotent, scope, id) }
func (c *Client) RateLimitKey(scope string) string       { return buildKey(areaRateLimit, scope) }
func (c *Client) LockKey(name string) string             { return buildKey(areaLock, name) }
func (c *Client) JobsKey(queue string) string            { return buildKey(areaJobs, queue) }

func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyRoot)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

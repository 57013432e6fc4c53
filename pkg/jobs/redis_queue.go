package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimScript leases due jobs by pushing their score to the lease deadline.
// Orphaned index entries (no payload) are dropped.
var claimScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[3]))
local out = {}
for _, key in ipairs(due) do
	local data = redis.call("HGET", KEYS[2], key)
	if data then
		redis.call("ZADD", KEYS[1], ARGV[2], key)
		table.insert(out, data)
	else
		redis.call("ZREM", KEYS[1], key)
	end
end
return out
`)

// ackScript deletes a job only while ARGV[2] is its current token.
var ackScript = redis.NewScript(`
if redis.call("HGET", KEYS[3], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call("ZREM", KEYS[1], ARGV[1])
redis.call("HDEL", KEYS[2], ARGV[1])
redis.call("HDEL", KEYS[3], ARGV[1])
return 1
`)

// retryScript rewrites payload and score only while ARGV[2] is current.
var retryScript = redis.NewScript(`
if redis.call("HGET", KEYS[3], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[3])
redis.call("ZADD", KEYS[1], ARGV[4], ARGV[1])
return 1
`)

type redisClient interface {
	redis.Scripter
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// RedisQueue keeps a sorted set of due times, a hash of encoded jobs and a
// hash of current tokens, all keyed by job key.
type RedisQueue struct {
	client  redisClient
	dueKey  string
	dataKey string
	tokKey  string
}

// NewRedisQueue builds a queue under the given key prefix.
func NewRedisQueue(client redisClient, prefix string) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("redis client required for job queue")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("job queue prefix is required")
	}
	return &RedisQueue{
		client:  client,
		dueKey:  prefix + ":due",
		dataKey: prefix + ":data",
		tokKey:  prefix + ":token",
	}, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (q *RedisQueue) Schedule(ctx context.Context, job Job) (Job, error) {
	if err := job.validate(); err != nil {
		return Job{}, err
	}
	job.Token = uuid.NewString()
	job.Attempt = 0
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("encode job %s: %w", job.Key, err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.dataKey, job.Key, encoded)
		pipe.HSet(ctx, q.tokKey, job.Key, job.Token)
		pipe.ZAdd(ctx, q.dueKey, redis.Z{Score: score(job.RunAt), Member: job.Key})
		return nil
	})
	if err != nil {
		return Job{}, fmt.Errorf("schedule %s: %w", job.Key, err)
	}
	return job, nil
}

func (q *RedisQueue) Cancel(ctx context.Context, key string) (bool, error) {
	var removed *redis.IntCmd
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, q.dataKey, key)
		pipe.HDel(ctx, q.tokKey, key)
		pipe.ZRem(ctx, q.dueKey, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("cancel %s: %w", key, err)
	}
	return removed.Val() > 0, nil
}

func (q *RedisQueue) Get(ctx context.Context, key string) (*Job, error) {
	raw, err := q.client.HGet(ctx, q.dataKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", key, err)
	}
	return &job, nil
}

func (q *RedisQueue) Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	res, err := claimScript.Run(ctx, q.client,
		[]string{q.dueKey, q.dataKey},
		score(now), score(now.Add(lease)), limit,
	).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	jobs := make([]Job, 0, len(res))
	for _, raw := range res {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return jobs, fmt.Errorf("decode claimed job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *RedisQueue) Ack(ctx context.Context, job Job) (bool, error) {
	n, err := ackScript.Run(ctx, q.client,
		[]string{q.dueKey, q.dataKey, q.tokKey},
		job.Key, job.Token,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("ack %s: %w", job.Key, err)
	}
	return n == 1, nil
}

func (q *RedisQueue) Retry(ctx context.Context, job Job, at time.Time) (bool, error) {
	job.Attempt++
	job.RunAt = at.UTC()
	encoded, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("encode job %s: %w", job.Key, err)
	}
	n, err := retryScript.Run(ctx, q.client,
		[]string{q.dueKey, q.dataKey, q.tokKey},
		job.Key, job.Token, encoded, score(at),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("retry %s: %w", job.Key, err)
	}
	return n == 1, nil
}

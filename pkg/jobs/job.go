// Package jobs is a durable, keyed, one-shot deferred job queue.
//
// Every job is identified by a caller-chosen Key. Scheduling a key that is
// already pending replaces the pending job, so a key has at most one
// pending job. Each submission gets a fresh Token; Ack and Retry only touch
// the stored job when the token still matches, so finishing an old run
// never removes a replacement scheduled while it was executing.
//
// Delivery is at-least-once: a claimed job is leased, and if the worker
// dies before acking, the job becomes due again when the lease lapses.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidJob = errors.New("jobs: invalid job")
)

// Job is a unit of deferred work.
type Job struct {
	Key       string          `json:"key"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RunAt     time.Time       `json:"run_at"`
	Attempt   int             `json:"attempt"`
	Token     string          `json:"token"`
	CreatedAt time.Time       `json:"created_at"`
}

// Decode unmarshals the job payload into v.
func (j Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrInvalidJob, j.Key)
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Kind, err)
	}
	return nil
}

func (j Job) validate() error {
	if strings.TrimSpace(j.Key) == "" {
		return fmt.Errorf("%w: key required", ErrInvalidJob)
	}
	if strings.TrimSpace(j.Kind) == "" {
		return fmt.Errorf("%w: kind required", ErrInvalidJob)
	}
	if j.RunAt.IsZero() {
		return fmt.Errorf("%w: run_at required", ErrInvalidJob)
	}
	return nil
}

// Queue stores pending jobs keyed by Job.Key.
type Queue interface {
	// Schedule upserts the job under its key with a new token and returns
	// the stored job.
	Schedule(ctx context.Context, job Job) (Job, error)
	// Cancel removes the pending job for key. Absent keys are a no-op.
	Cancel(ctx context.Context, key string) (bool, error)
	// Get returns the pending job for key, or nil when none exists.
	Get(ctx context.Context, key string) (*Job, error)
	// Claim leases up to limit jobs due at or before now.
	Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Job, error)
	// Ack removes job if its token is still current.
	Ack(ctx context.Context, job Job) (bool, error)
	// Retry reschedules job at the given time with Attempt incremented if
	// its token is still current.
	Retry(ctx context.Context, job Job, at time.Time) (bool, error)
}

// Submit schedules a job of kind under key to run at fireAt. Times already
// in the past run immediately (delay clamps at zero).
func Submit(ctx context.Context, q Queue, now time.Time, kind, key string, fireAt time.Time, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	runAt := fireAt
	if runAt.Before(now) {
		runAt = now
	}
	return q.Schedule(ctx, Job{
		Key:       key,
		Kind:      kind,
		Payload:   raw,
		RunAt:     runAt.UTC(),
		CreatedAt: now.UTC(),
	})
}

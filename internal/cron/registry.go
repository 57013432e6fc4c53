package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Job is a housekeeping task run by the reminder worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job   Job
	every time.Duration
}

// Registry holds jobs with their cadence. Names are unique.
type Registry struct {
	entries []entry
	names   map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Register adds job to run every interval.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return errors.New("cron job required")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("cron job name required")
	}
	if every <= 0 {
		return fmt.Errorf("cron job %q needs a positive interval", name)
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, entry{job: job, every: every})
	return nil
}

// Jobs lists registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.job)
	}
	return out
}

func (r *Registry) snapshot() []entry {
	out := make([]entry, len(r.entries))
	copy(out, r.entries)
	return out
}

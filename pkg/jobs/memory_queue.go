package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	job Job
	due time.Time
}

// MemoryQueue is an in-process Queue with the same replace, lease and token
// semantics as RedisQueue. Jobs do not survive a restart.
type MemoryQueue struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{entries: map[string]*memoryEntry{}}
}

func (q *MemoryQueue) Schedule(_ context.Context, job Job) (Job, error) {
	if err := job.validate(); err != nil {
		return Job{}, err
	}
	job.Token = uuid.NewString()
	job.Attempt = 0
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[job.Key] = &memoryEntry{job: job, due: job.RunAt}
	return job, nil
}

func (q *MemoryQueue) Cancel(_ context.Context, key string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.entries[key]; !ok {
		return false, nil
	}
	delete(q.entries, key)
	return true, nil
}

func (q *MemoryQueue) Get(_ context.Context, key string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[key]
	if !ok {
		return nil, nil
	}
	job := entry.job
	return &job, nil
}

func (q *MemoryQueue) Claim(_ context.Context, now time.Time, lease time.Duration, limit int) ([]Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	due := make([]*memoryEntry, 0)
	for _, entry := range q.entries {
		if !entry.due.After(now) {
			due = append(due, entry)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].job.Key < due[j].job.Key
		}
		return due[i].due.Before(due[j].due)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]Job, 0, len(due))
	for _, entry := range due {
		entry.due = now.Add(lease)
		claimed = append(claimed, entry.job)
	}
	return claimed, nil
}

func (q *MemoryQueue) Ack(_ context.Context, job Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[job.Key]
	if !ok || entry.job.Token != job.Token {
		return false, nil
	}
	delete(q.entries, job.Key)
	return true, nil
}

func (q *MemoryQueue) Retry(_ context.Context, job Job, at time.Time) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[job.Key]
	if !ok || entry.job.Token != job.Token {
		return false, nil
	}
	job.Attempt++
	job.RunAt = at.UTC()
	entry.job = job
	entry.due = job.RunAt
	return true, nil
}

// Len reports the number of pending jobs.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquires int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquires++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func newTestService(t *testing.T, lock Lock, clock *time.Time, jobs map[Job]time.Duration, order ...Job) *Service {
	t.Helper()
	r := NewRegistry()
	for _, j := range order {
		require.NoError(t, r.Register(j, jobs[j]))
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: r,
		Lock:     lock,
		Now:      func() time.Time { return *clock },
	})
	require.NoError(t, err)
	return svc
}

func TestServiceRunsOnlyDueJobs(t *testing.T) {
	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sweep := &countingJob{name: "sweep"}
	retention := &countingJob{name: "retention", err: errors.New("db down")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, &clock,
		map[Job]time.Duration{sweep: time.Hour, retention: 24 * time.Hour}, sweep, retention)
	ctx := context.Background()

	// first pass runs everything, and a failing job does not stop the others
	require.NoError(t, svc.runDue(ctx))
	assert.Equal(t, 1, sweep.runs)
	assert.Equal(t, 1, retention.runs)

	clock = clock.Add(30 * time.Minute)
	require.NoError(t, svc.runDue(ctx))
	assert.Equal(t, 1, sweep.runs)
	assert.Equal(t, 1, lock.acquires, "no lock is taken when nothing is due")

	clock = clock.Add(31 * time.Minute)
	require.NoError(t, svc.runDue(ctx))
	assert.Equal(t, 2, sweep.runs)
	assert.Equal(t, 1, retention.runs)
	assert.False(t, lock.held)

	clock = clock.Add(24 * time.Hour)
	require.NoError(t, svc.runDue(ctx))
	assert.Equal(t, 3, sweep.runs)
	assert.Equal(t, 2, retention.runs)
}

func TestServiceSkipsWhenLockHeldElsewhere(t *testing.T) {
	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	job := &countingJob{name: "retention"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, lock, &clock, map[Job]time.Duration{job: time.Hour}, job)

	require.NoError(t, svc.runDue(context.Background()))
	assert.Zero(t, job.runs)
	assert.True(t, lock.held, "a lock held elsewhere must not be released")

	// the job stays due for the next pass
	lock.held = false
	require.NoError(t, svc.runDue(context.Background()))
	assert.Equal(t, 1, job.runs)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}

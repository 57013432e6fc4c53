package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

const (
	DeliverySweepJobName         = "delivery-check-sweep"
	NotificationRetentionJobName = "notification-retention"

	defaultRetentionDays = 30
)

// funcJob adapts a named closure to Job.
type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

type deliveryArmer interface {
	ArmAll(ctx context.Context) (int, error)
}

// NewDeliverySweepJob re-arms any owner whose daily delivery check is
// missing from the queue, e.g. after a flush or a failed re-arm.
func NewDeliverySweepJob(logg *logger.Logger, armer deliveryArmer) (Job, error) {
	if logg == nil || armer == nil {
		return nil, errors.New("delivery sweep needs a logger and a scheduler")
	}
	return funcJob{name: DeliverySweepJobName, run: func(ctx context.Context) error {
		armed, err := armer.ArmAll(ctx)
		if err != nil {
			return fmt.Errorf("delivery sweep: %w", err)
		}
		logg.Info(logg.WithField(ctx, "armed", armed), "delivery check sweep complete")
		return nil
	}}, nil
}

type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type NotificationRetentionJobParams struct {
	Logger     *logger.Logger
	Repository notificationPruner
	// Retention is in days; zero means thirty.
	Retention int
	Now       func() time.Time
}

// NewNotificationRetentionJob deletes in-app notifications older than the
// retention window across all owners.
func NewNotificationRetentionJob(p NotificationRetentionJobParams) (Job, error) {
	if p.Logger == nil || p.Repository == nil {
		return nil, errors.New("notification retention needs a logger and a repository")
	}
	days := p.Retention
	if days <= 0 {
		days = defaultRetentionDays
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	window := time.Duration(days) * 24 * time.Hour

	return funcJob{name: NotificationRetentionJobName, run: func(ctx context.Context) error {
		cutoff := now().UTC().Add(-window)
		deleted, err := p.Repository.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("notification retention: %w", err)
		}
		p.Logger.Info(p.Logger.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"rows_deleted": deleted,
		}), "notification retention complete")
		return nil
	}}, nil
}

// Package reminders turns ledger due dates and delivery dates into keyed
// deferred jobs and handles those jobs when they fire.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/pkg/calendar"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/jobs"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
)

const (
	KindLedgerReminder = "ledger_reminder"
	KindDeliveryCheck  = "delivery_check"

	defaultOfflineRetry = 5 * time.Minute
)

// LedgerKey is the job key of an entry's reminder.
func LedgerKey(entryID uuid.UUID) string { return "ledger-reminder:" + entryID.String() }

// DeliveryKey is the job key of an owner's daily delivery check.
func DeliveryKey(ownerID uuid.UUID) string { return "delivery-check:" + ownerID.String() }

// CustomerSource lists an owner's customers for the delivery check.
type CustomerSource interface {
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error)
}

// StoreSource reads shop profiles.
type StoreSource interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*models.StoreInfo, error)
	ListAll(ctx context.Context) ([]models.StoreInfo, error)
}

// EntryMarker records whether a ledger entry still has a pending reminder.
type EntryMarker interface {
	SetReminderScheduled(ctx context.Context, ownerID, id uuid.UUID, scheduled bool) error
}

// Pinger reports whether the backing services are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SchedulerParams struct {
	Queue        jobs.Queue
	Customers    CustomerSource
	Stores       StoreSource
	Entries      EntryMarker
	Notifier     notify.Notifier
	Pinger       Pinger
	Calendar     calendar.Calendar
	Logger       *logger.Logger
	OfflineRetry time.Duration
	Now          func() time.Time
}

// Scheduler owns both reminder flavours.
type Scheduler struct {
	queue        jobs.Queue
	customers    CustomerSource
	stores       StoreSource
	entries      EntryMarker
	notifier     notify.Notifier
	pinger       Pinger
	cal          calendar.Calendar
	logg         *logger.Logger
	offlineRetry time.Duration
	now          func() time.Time
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Queue == nil {
		return nil, fmt.Errorf("job queue required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Calendar.Location() == nil {
		return nil, fmt.Errorf("calendar required")
	}
	s := &Scheduler{
		queue:        params.Queue,
		customers:    params.Customers,
		stores:       params.Stores,
		entries:      params.Entries,
		notifier:     params.Notifier,
		pinger:       params.Pinger,
		cal:          params.Calendar,
		logg:         params.Logger,
		offlineRetry: params.OfflineRetry,
		now:          params.Now,
	}
	if s.offlineRetry <= 0 {
		s.offlineRetry = defaultOfflineRetry
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Register binds the fire handlers on a dispatcher. Only the worker needs
// this; the API process schedules and cancels only.
func (s *Scheduler) Register(d *jobs.Dispatcher) error {
	if s.notifier == nil {
		return fmt.Errorf("notifier required to handle reminders")
	}
	if s.customers == nil {
		return fmt.Errorf("customer source required to handle delivery checks")
	}
	if err := d.Register(KindLedgerReminder, jobs.HandlerFunc(s.FireReminder)); err != nil {
		return err
	}
	return d.Register(KindDeliveryCheck, jobs.HandlerFunc(s.RunDailyDeliveryCheck))
}

func (s *Scheduler) online(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// ownerPhone is best-effort; a missing profile only disables SMS.
func (s *Scheduler) ownerPhone(ctx context.Context, ownerID uuid.UUID) string {
	if s.stores == nil {
		return ""
	}
	info, err := s.stores.Get(ctx, ownerID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "store info unavailable for reminder")
		return ""
	}
	if info == nil {
		return ""
	}
	return info.Phone
}

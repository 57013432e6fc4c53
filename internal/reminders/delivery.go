package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	"github.com/repairdesk/repairdesk-backend/pkg/jobs"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
)

// DeliveryPayload configures one owner's daily check. Day pins the check to
// a calendar day while it is being retried; empty means "the day it runs".
type DeliveryPayload struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Hour    int       `json:"hour"`
	Minute  int       `json:"minute"`
	Day     string    `json:"day,omitempty"`
}

// ScheduleDailyDeliveryCheck arms the owner's next check at hour:minute
// shop time, replacing any pending one.
func (s *Scheduler) ScheduleDailyDeliveryCheck(ctx context.Context, ownerID uuid.UUID, hour, minute int) error {
	if ownerID == uuid.Nil {
		return fmt.Errorf("owner id required")
	}
	now := s.now()
	at, err := s.cal.NextDaily(now, hour, minute)
	if err != nil {
		return err
	}
	return s.submitDelivery(ctx, now, at, DeliveryPayload{OwnerID: ownerID, Hour: hour, Minute: minute})
}

func (s *Scheduler) submitDelivery(ctx context.Context, now, at time.Time, payload DeliveryPayload) error {
	_, err := jobs.Submit(ctx, s.queue, now, KindDeliveryCheck, DeliveryKey(payload.OwnerID), at, payload)
	return err
}

// RunDailyDeliveryCheck notifies the owner about devices due today. The
// next occurrence is always re-armed, whatever happens here. A retryable
// failure moves the re-arm to the retry time instead, pinned to the same day.
func (s *Scheduler) RunDailyDeliveryCheck(ctx context.Context, job jobs.Job) (result jobs.Result, err error) {
	var payload DeliveryPayload
	if err := job.Decode(&payload); err != nil {
		return jobs.Failure, err
	}
	if payload.OwnerID == uuid.Nil {
		return jobs.Failure, fmt.Errorf("delivery check without owner")
	}

	now := s.now()
	day := payload.Day
	if day == "" {
		day = s.cal.Today(now)
	}
	next := DeliveryPayload{OwnerID: payload.OwnerID, Hour: payload.Hour, Minute: payload.Minute}
	nextAt, nerr := s.cal.NextDaily(now, payload.Hour, payload.Minute)
	if nerr != nil {
		return jobs.Failure, nerr
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"owner_id": payload.OwnerID.String(), "day": day})
	defer func() {
		if rearmErr := s.submitDelivery(ctx, now, nextAt, next); rearmErr != nil {
			s.logg.Error(ctx, "failed to re-arm delivery check", rearmErr)
		}
	}()

	// the deferred re-arm replaces this job, so it carries the retry itself
	retry := func(cause error) (jobs.Result, error) {
		if retryAt := now.Add(s.offlineRetry); retryAt.Before(nextAt) {
			nextAt = retryAt
			next.Day = day
		}
		return jobs.Retry, cause
	}

	if err := s.online(ctx); err != nil {
		return retry(fmt.Errorf("offline: %w", err))
	}

	customers, err := s.customers.ListAll(ctx, payload.OwnerID)
	if err != nil {
		return retry(fmt.Errorf("list customers: %w", err))
	}
	due := DueOn(customers, day)
	if len(due) == 0 {
		s.logg.Info(ctx, "no deliveries due")
		return jobs.Success, nil
	}

	msg := DeliveryMessage(payload.OwnerID, day, due)
	msg.RecipientPhone = s.ownerPhone(ctx, payload.OwnerID)
	if err := s.notifier.Notify(ctx, msg); err != nil {
		return retry(fmt.Errorf("notify: %w", err))
	}
	return jobs.Success, nil
}

// DueOn keeps customers whose delivery date equals day.
func DueOn(customers []models.Customer, day string) []models.Customer {
	out := make([]models.Customer, 0)
	for _, c := range customers {
		if strings.TrimSpace(c.DeliveryDate) == day {
			out = append(out, c)
		}
	}
	return out
}

// DeliveryMessage aggregates every due device into one notification.
func DeliveryMessage(ownerID uuid.UUID, day string, due []models.Customer) notify.Message {
	lines := make([]string, 0, len(due))
	for _, c := range due {
		device := strings.TrimSpace(c.DeviceBrand + " " + c.DeviceModel)
		if device == "" {
			device = "device"
		}
		lines = append(lines, fmt.Sprintf("%s %s (%s) %s", c.InvoiceNumber, c.Name, c.Phone, device))
	}
	return notify.Message{
		OwnerID: ownerID,
		Type:    enums.NotificationTypeDeliveryReminder,
		Title:   fmt.Sprintf("%d deliveries due %s", len(due), day),
		Body:    strings.Join(lines, "\n"),
		Link:    "/customers?delivery_date=" + day,
	}
}

// ArmAll makes sure every shop with a profile has a pending delivery check.
// Existing jobs are left alone so a check that is already due is not pushed
// to tomorrow.
func (s *Scheduler) ArmAll(ctx context.Context) (int, error) {
	if s.stores == nil {
		return 0, fmt.Errorf("store source required")
	}
	infos, err := s.stores.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list store profiles: %w", err)
	}
	armed := 0
	for _, info := range infos {
		pending, err := s.queue.Get(ctx, DeliveryKey(info.OwnerID))
		if err != nil {
			return armed, err
		}
		if pending != nil {
			continue
		}
		if err := s.ScheduleDailyDeliveryCheck(ctx, info.OwnerID, info.DeliveryCheckHour, info.DeliveryCheckMinute); err != nil {
			return armed, err
		}
		armed++
	}
	return armed, nil
}

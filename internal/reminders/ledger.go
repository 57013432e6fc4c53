package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	"github.com/repairdesk/repairdesk-backend/pkg/jobs"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
)

// EntryPayload is the snapshot of a ledger entry carried by its reminder.
type EntryPayload struct {
	OwnerID uuid.UUID       `json:"owner_id"`
	EntryID uuid.UUID       `json:"entry_id"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone"`
	Amount  decimal.Decimal `json:"amount"`
	Payable bool            `json:"payable"`
	DueDate time.Time       `json:"due_date"`
}

// ScheduleEntryReminder submits the entry's reminder for fireAt, replacing
// any pending one. Past fire times run as soon as a worker polls.
func (s *Scheduler) ScheduleEntryReminder(ctx context.Context, entryID uuid.UUID, fireAt time.Time, payload EntryPayload) error {
	if entryID == uuid.Nil {
		return fmt.Errorf("entry id required")
	}
	payload.EntryID = entryID
	_, err := jobs.Submit(ctx, s.queue, s.now(), KindLedgerReminder, LedgerKey(entryID), fireAt, payload)
	return err
}

// CancelEntryReminder drops the pending reminder, if any.
func (s *Scheduler) CancelEntryReminder(ctx context.Context, entryID uuid.UUID) error {
	_, err := s.queue.Cancel(ctx, LedgerKey(entryID))
	return err
}

// FireReminder handles a due ledger reminder.
func (s *Scheduler) FireReminder(ctx context.Context, job jobs.Job) (jobs.Result, error) {
	var payload EntryPayload
	if err := job.Decode(&payload); err != nil {
		return jobs.Failure, err
	}
	if err := s.online(ctx); err != nil {
		return jobs.Retry, fmt.Errorf("offline: %w", err)
	}

	msg := EntryMessage(payload, s.cal.Format(payload.DueDate))
	msg.RecipientPhone = s.ownerPhone(ctx, payload.OwnerID)
	if err := s.notifier.Notify(ctx, msg); err != nil {
		return jobs.Retry, err
	}
	s.markFired(ctx, job, payload)
	return jobs.Success, nil
}

// markFired clears the entry's reminder_scheduled flag unless an edit has
// already queued a newer reminder under the same key.
func (s *Scheduler) markFired(ctx context.Context, job jobs.Job, payload EntryPayload) {
	if s.entries == nil || payload.EntryID == uuid.Nil {
		return
	}
	ctx = s.logg.WithField(ctx, "entry_id", payload.EntryID.String())
	pending, err := s.queue.Get(ctx, job.Key)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "could not check for a newer reminder")
		return
	}
	if pending != nil && pending.Token != job.Token {
		return
	}
	if err := s.entries.SetReminderScheduled(ctx, payload.OwnerID, payload.EntryID, false); err != nil {
		s.logg.Error(ctx, "failed to clear reminder state", err)
	}
}

// EntryMessage renders the reminder text for an entry. Payable entries are
// money the owner pays out.
func EntryMessage(p EntryPayload, dueDay string) notify.Message {
	var body string
	if p.Payable {
		body = fmt.Sprintf("On %s you will pay %s to %s (%s).", dueDay, p.Amount.StringFixed(2), p.Name, p.Phone)
	} else {
		body = fmt.Sprintf("On %s you will receive %s from %s (%s).", dueDay, p.Amount.StringFixed(2), p.Name, p.Phone)
	}
	return notify.Message{
		OwnerID: p.OwnerID,
		Type:    enums.NotificationTypeLedgerReminder,
		Title:   "Talikhata reminder",
		Body:    body,
		Link:    "/ledger/" + p.EntryID.String(),
	}
}

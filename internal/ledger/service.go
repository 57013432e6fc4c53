package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repairdesk/repairdesk-backend/internal/reminders"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

const defaultLeadTime = 24 * time.Hour

// ReminderScheduler keeps one pending reminder per entry.
type ReminderScheduler interface {
	ScheduleEntryReminder(ctx context.Context, entryID uuid.UUID, fireAt time.Time, payload reminders.EntryPayload) error
	CancelEntryReminder(ctx context.Context, entryID uuid.UUID) error
}

// Service defines Talikhata operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input EntryInput) (*models.LedgerEntry, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, input EntryInput) (*models.LedgerEntry, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.LedgerEntry, error)
	List(ctx context.Context, ownerID uuid.UUID, payable *bool) ([]models.LedgerEntry, error)
	Totals(ctx context.Context, ownerID uuid.UUID) (Totals, error)
}

// EntryInput is the editable part of an entry. Payable means the owner
// pays the counterparty.
type EntryInput struct {
	Name    string          `json:"name" validate:"required,max=120"`
	Phone   string          `json:"phone" validate:"required,max=32,phone"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
	Payable bool            `json:"payable"`
	Note    string          `json:"note" validate:"max=1000"`
}

func (in EntryInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	case strings.TrimSpace(in.Phone) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "phone required")
	case !in.Amount.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	case in.DueDate.IsZero():
		return pkgerrors.New(pkgerrors.CodeValidation, "due date required")
	}
	return nil
}

type ServiceParams struct {
	Repo      Repository
	Reminders ReminderScheduler
	Logger    *logger.Logger
	LeadTime  time.Duration
	Now       func() time.Time
}

type service struct {
	repo      Repository
	reminders ReminderScheduler
	logg      *logger.Logger
	leadTime  time.Duration
	now       func() time.Time
}

// NewService wires a ledger service with the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Reminders == nil {
		return nil, fmt.Errorf("reminder scheduler required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lead := params.LeadTime
	if lead <= 0 {
		lead = defaultLeadTime
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, reminders: params.Reminders, logg: params.Logger, leadTime: lead, now: now}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input EntryInput) (*models.LedgerEntry, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	entry := &models.LedgerEntry{OwnerID: ownerID, CreatedAt: now}
	apply(entry, input, now)
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
	}
	s.arm(ctx, entry)
	return entry, nil
}

func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, input EntryInput) (*models.LedgerEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	entry, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	apply(entry, input, s.now().UTC())
	if err := s.repo.Save(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ledger entry")
	}
	s.arm(ctx, entry)
	return entry, nil
}

func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ledger entry")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	if err := s.reminders.CancelEntryReminder(ctx, id); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "entry_id", id.String()), "failed to cancel ledger reminder", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.LedgerEntry, error) {
	entry, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, payable *bool) ([]models.LedgerEntry, error) {
	if ownerID == uuid.Nil {
		return []models.LedgerEntry{}, nil
	}
	entries, err := s.repo.List(ctx, ownerID, payable)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

func (s *service) Totals(ctx context.Context, ownerID uuid.UUID) (Totals, error) {
	totals, err := s.repo.Totals(ctx, ownerID)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ledger entries")
	}
	return totals, nil
}

func apply(entry *models.LedgerEntry, input EntryInput, now time.Time) {
	entry.Name = strings.TrimSpace(input.Name)
	entry.Phone = strings.TrimSpace(input.Phone)
	entry.Amount = input.Amount
	entry.DueDate = input.DueDate.UTC()
	entry.Payable = input.Payable
	entry.Note = strings.TrimSpace(input.Note)
	entry.UpdatedAt = now
}

// arm schedules (or replaces) the entry's reminder and records whether it
// is pending. The entry is already saved, so scheduling failures are logged.
func (s *service) arm(ctx context.Context, entry *models.LedgerEntry) {
	ctx = s.logg.WithField(ctx, "entry_id", entry.ID.String())
	payload := reminders.EntryPayload{
		OwnerID: entry.OwnerID,
		Name:    entry.Name,
		Phone:   entry.Phone,
		Amount:  entry.Amount,
		Payable: entry.Payable,
		DueDate: entry.DueDate,
	}
	scheduled := true
	if err := s.reminders.ScheduleEntryReminder(ctx, entry.ID, entry.DueDate.Add(-s.leadTime), payload); err != nil {
		s.logg.Error(ctx, "failed to schedule ledger reminder", err)
		scheduled = false
	}
	if entry.ReminderScheduled == scheduled {
		return
	}
	if err := s.repo.SetReminderScheduled(ctx, entry.OwnerID, entry.ID, scheduled); err != nil {
		s.logg.Error(ctx, "failed to record reminder state", err)
		return
	}
	entry.ReminderScheduled = scheduled
}

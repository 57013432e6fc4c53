package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/internal/repo"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
)

// Repository manages persistence for Talikhata entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.LedgerEntry, error)
	List(ctx context.Context, ownerID uuid.UUID, payable *bool) ([]models.LedgerEntry, error)
	Save(ctx context.Context, entry *models.LedgerEntry) error
	SetReminderScheduled(ctx context.Context, ownerID, id uuid.UUID, scheduled bool) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
	Totals(ctx context.Context, ownerID uuid.UUID) (Totals, error)
}

// Totals splits outstanding amounts by direction.
type Totals struct {
	Payable    decimal.Decimal `json:"payable"`
	Receivable decimal.Decimal `json:"receivable"`
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.Owned(ctx, ownerID, &models.LedgerEntry{}).Where("id = ?", id).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context, ownerID uuid.UUID, payable *bool) ([]models.LedgerEntry, error) {
	query := r.Owned(ctx, ownerID, &models.LedgerEntry{})
	if payable != nil {
		query = query.Where("payable = ?", *payable)
	}
	var entries []models.LedgerEntry
	if err := query.Order("due_date ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Save(ctx context.Context, entry *models.LedgerEntry) error {
	return r.Owned(ctx, entry.OwnerID, &models.LedgerEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]any{
			"name":       entry.Name,
			"phone":      entry.Phone,
			"amount":     entry.Amount,
			"due_date":   entry.DueDate,
			"payable":    entry.Payable,
			"note":       entry.Note,
			"updated_at": entry.UpdatedAt,
		}).Error
}

func (r *repository) SetReminderScheduled(ctx context.Context, ownerID, id uuid.UUID, scheduled bool) error {
	return r.Owned(ctx, ownerID, &models.LedgerEntry{}).
		Where("id = ?", id).
		UpdateColumn("reminder_scheduled", scheduled).Error
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&models.LedgerEntry{})
	return res.RowsAffected > 0, res.Error
}

type totalsRow struct {
	Payable bool
	Sum     decimal.Decimal
}

func (r *repository) Totals(ctx context.Context, ownerID uuid.UUID) (Totals, error) {
	var rows []totalsRow
	err := r.Owned(ctx, ownerID, &models.LedgerEntry{}).
		Select("payable, COALESCE(SUM(amount), 0) AS sum").
		Group("payable").
		Scan(&rows).Error
	if err != nil {
		return Totals{}, err
	}
	out := Totals{Payable: decimal.Zero, Receivable: decimal.Zero}
	for _, row := range rows {
		if row.Payable {
			out.Payable = row.Sum
		} else {
			out.Receivable = row.Sum
		}
	}
	return out, nil
}

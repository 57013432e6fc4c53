package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/internal/repo"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	"github.com/repairdesk/repairdesk-backend/pkg/pagination"
)

// Repository persists till entries with their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, params listParams) ([]models.Transaction, *pagination.Cursor, error)
	Totals(ctx context.Context, ownerID uuid.UUID, since time.Time) (map[enums.TransactionType]Totals, error)
	Range(ctx context.Context, ownerID uuid.UUID, since, until time.Time, limit int) ([]models.Transaction, error)
}

// Totals sums snapshotted columns for one transaction type.
type Totals struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
	Profit decimal.Decimal `json:"profit"`
	Due    decimal.Decimal `json:"due"`
}

type listParams struct {
	OwnerID uuid.UUID
	Type    enums.TransactionType
	Limit   int
	Cursor  *pagination.Cursor
}

type repositoryImpl struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: repo.NewBase(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, txn *models.Transaction) error {
	return r.DB(ctx).Create(txn).Error
}

func (r *repositoryImpl) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.Owned(ctx, ownerID, &models.Transaction{}).
		Preload("Items").
		Where("id = ?", id).
		Take(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Transaction, *pagination.Cursor, error) {
	query := r.Owned(ctx, params.OwnerID, &models.Transaction{}).Preload("Items")
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}
	var rows []models.Transaction
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return page, next, nil
}

type totalsRow struct {
	Type   enums.TransactionType
	Count  int64
	Amount decimal.Decimal
	Profit decimal.Decimal
	Due    decimal.Decimal
}

// Totals aggregates transactions created at or after since, per type.
func (r *repositoryImpl) Totals(ctx context.Context, ownerID uuid.UUID, since time.Time) (map[enums.TransactionType]Totals, error) {
	var rows []totalsRow
	err := r.Owned(ctx, ownerID, &models.Transaction{}).
		Select("type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(profit), 0) AS profit, COALESCE(SUM(due), 0) AS due").
		Where("created_at >= ?", since).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.TransactionType]Totals, len(rows))
	for _, row := range rows {
		out[row.Type] = Totals{Count: row.Count, Amount: row.Amount, Profit: row.Profit, Due: row.Due}
	}
	return out, nil
}

// Range returns transactions created in [since, until), oldest first.
func (r *repositoryImpl) Range(ctx context.Context, ownerID uuid.UUID, since, until time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.Owned(ctx, ownerID, &models.Transaction{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

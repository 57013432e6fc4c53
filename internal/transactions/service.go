package transactions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/repairdesk/repairdesk-backend/internal/products"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
	"github.com/repairdesk/repairdesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records sales, purchases, services and expenses.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Transaction, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Totals(ctx context.Context, ownerID uuid.UUID, since time.Time) (map[enums.TransactionType]Totals, error)
	Export(ctx context.Context, ownerID uuid.UUID, since, until time.Time) ([]models.Transaction, error)
}

// MaxExportRows caps a single export.
const MaxExportRows = 5000

// ItemInput is one line of a transaction. ProductID links the line to stock.
type ItemInput struct {
	ProductID *uuid.UUID      `json:"product_id"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreateInput describes a new transaction. With items, Amount and Cost are
// derived from them; otherwise the explicit values are used. A zero Total
// defaults to Amount.
type CreateInput struct {
	Type          enums.TransactionType `json:"type" validate:"required"`
	CustomerName  string                `json:"customer_name" validate:"max=120"`
	CustomerPhone string                `json:"customer_phone" validate:"max=32"`
	Items         []ItemInput           `json:"items" validate:"dive"`
	Total         decimal.Decimal       `json:"total"`
	Advance       decimal.Decimal       `json:"advance"`
	Amount        decimal.Decimal       `json:"amount"`
	Cost          decimal.Decimal       `json:"cost"`
	Note          string                `json:"note" validate:"max=1000"`
}

type ListParams struct {
	OwnerID uuid.UUID
	Type    enums.TransactionType
	Limit   int
	Cursor  string
}

type ListResult struct {
	Items  []models.Transaction `json:"items"`
	Cursor string               `json:"cursor"`
}

type ServiceParams struct {
	Repo        Repository
	ProductRepo product.Repository
	DB          txRunner
	Notifier    notify.Notifier
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        Repository
	productRepo product.Repository
	db          txRunner
	notifier    notify.Notifier
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil || params.ProductRepo == nil {
		return nil, fmt.Errorf("transaction and product repositories required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		productRepo: params.ProductRepo,
		db:          params.DB,
		notifier:    params.Notifier,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// stockDelta is the per-unit stock movement for a transaction type.
func stockDelta(t enums.TransactionType) int {
	switch t {
	case enums.TransactionTypeSale:
		return -1
	case enums.TransactionTypePurchase:
		return 1
	default:
		return 0
	}
}

// Build validates input and snapshots the derived money columns.
func Build(ownerID uuid.UUID, input CreateInput, now time.Time) (*models.Transaction, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid transaction type %q", string(input.Type))
	}
	for label, v := range map[string]decimal.Decimal{
		"total": input.Total, "advance": input.Advance, "amount": input.Amount, "cost": input.Cost,
	} {
		if v.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s cannot be negative", label)
		}
	}

	txn := &models.Transaction{
		OwnerID:       ownerID,
		Type:          input.Type,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		Total:         input.Total,
		Advance:       input.Advance,
		Amount:        input.Amount,
		Cost:          input.Cost,
		Note:          strings.TrimSpace(input.Note),
		CreatedAt:     now,
	}

	if len(input.Items) > 0 {
		amount, cost := decimal.Zero, decimal.Zero
		for i, item := range input.Items {
			if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d needs a name and a positive quantity", i)
			}
			if item.UnitPrice.IsNegative() || item.UnitCost.IsNegative() {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d prices cannot be negative", i)
			}
			qty := decimal.NewFromInt(int64(item.Quantity))
			amount = amount.Add(item.UnitPrice.Mul(qty))
			cost = cost.Add(item.UnitCost.Mul(qty))
			txn.Items = append(txn.Items, models.TransactionItem{
				ProductID: item.ProductID,
				Name:      strings.TrimSpace(item.Name),
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				UnitCost:  item.UnitCost,
			})
		}
		txn.Amount = amount
		txn.Cost = cost
	}
	if txn.Total.IsZero() {
		txn.Total = txn.Amount
	}
	txn.Profit = txn.Amount.Sub(txn.Cost)
	txn.Due = txn.Total.Sub(txn.Advance)
	return txn, nil
}

// Create stores the transaction and moves stock for linked items in the
// same database transaction.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Transaction, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	now := s.now().UTC()
	txn, err := Build(ownerID, input, now)
	if err != nil {
		return nil, err
	}

	var crossed []models.Product
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
			return createError(err)
		}
		delta := stockDelta(txn.Type)
		if delta == 0 {
			return nil
		}
		products := s.productRepo.WithTx(tx)
		for _, item := range stockOrder(txn.Items) {
			res, err := product.AdjustQuantityTx(ctx, products, ownerID, *item.ProductID, delta*item.Quantity, now)
			if err != nil {
				return err
			}
			if res.CrossedLowStock() {
				crossed = append(crossed, res.Product)
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
	}

	for _, p := range crossed {
		product.NotifyLowStock(ctx, s.notifier, s.logg, ownerID, p)
	}
	return txn, nil
}

// createError maps an insert failure. A dangling product_id on an item is the
// caller's mistake, not a dependency outage.
func createError(err error) error {
	if pkgerrors.IsForeignKeyViolation(err) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "item references an unknown product")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
}

// stockOrder returns the stock-linked items sorted by product id, so
// concurrent transactions lock product rows in the same order.
func stockOrder(items []models.TransactionItem) []models.TransactionItem {
	out := make([]models.TransactionItem, 0, len(items))
	for _, item := range items {
		if item.ProductID != nil {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(a, b models.TransactionItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return out
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return txn, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.OwnerID == uuid.Nil {
		return &ListResult{Items: []models.Transaction{}}, nil
	}
	if params.Type != "" && !params.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid transaction type %q", string(params.Type))
	}
	query := listParams{OwnerID: params.OwnerID, Type: params.Type, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Totals(ctx context.Context, ownerID uuid.UUID, since time.Time) (map[enums.TransactionType]Totals, error) {
	if ownerID == uuid.Nil {
		return map[enums.TransactionType]Totals{}, nil
	}
	totals, err := s.repo.Totals(ctx, ownerID, since.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum transactions")
	}
	return totals, nil
}

// Export loads the rows of a date-range export, oldest first.
func (s *service) Export(ctx context.Context, ownerID uuid.UUID, since, until time.Time) ([]models.Transaction, error) {
	if ownerID == uuid.Nil {
		return []models.Transaction{}, nil
	}
	if !since.Before(until) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "since must be before until")
	}
	rows, err := s.repo.Range(ctx, ownerID, since.UTC(), until.UTC(), MaxExportRows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "export transactions")
	}
	return rows, nil
}

package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/internal/repo"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/pagination"
)

// prefixUpperBound closes a "starts with" range: [v, v+U+F8FF].
const prefixUpperBound = "\uf8ff"

// Lookup is the indexed query surface used by Search.
type Lookup interface {
	NamePrefix(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]models.Customer, error)
	PhonePrefix(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]models.Customer, error)
	InvoiceExact(ctx context.Context, ownerID uuid.UUID, invoice string, limit int) ([]models.Customer, error)
	InvoicePrefix(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]models.Customer, error)
}

// Repository persists customers scoped by owner.
type Repository interface {
	Lookup
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params listParams) ([]models.Customer, *pagination.Cursor, error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error)
	UpdateColumns(ctx context.Context, customer *models.Customer, columns []string) error
	Count(ctx context.Context, ownerID uuid.UUID) (int64, error)
	InvoiceExists(ctx context.Context, ownerID uuid.UUID, invoice string) (bool, error)
}

type listParams struct {
	OwnerID uuid.UUID
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

func (r *repositoryImpl) Create(ctx context.Context, customer *models.Customer) error {
	return r.DB(ctx).Create(customer).Error
}

func (r *repositoryImpl) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.Owned(ctx, ownerID, &models.Customer{}).Where("id = ?", id).Take(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Customer, *pagination.Cursor, error) {
	query := r.Owned(ctx, params.OwnerID, &models.Customer{})
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}
	var rows []models.Customer
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(c models.Customer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) ListAll(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	var rows []models.Customer
	if err := r.Owned(ctx, ownerID, &models.Customer{}).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) UpdateColumns(ctx context.Context, customer *models.Customer, columns []string) error {
	return r.DB(ctx).
		Model(customer).
		Where("owner_id = ?", customer.OwnerID).
		Select(append(columns, "updated_at")).
		Updates(customer).Error
}

func (r *repositoryImpl) Count(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.Owned(ctx, ownerID, &models.Customer{}).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) InvoiceExists(ctx context.Context, ownerID uuid.UUID, invoice string) (bool, error) {
	var count int64
	err := r.Owned(ctx, ownerID, &models.Customer{}).Where("invoice_number = ?", invoice).Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) NamePrefix(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]models.Customer, error) {
	return r.prefixRange(ctx, ownerID, "name", prefix, limit)
}

func (r *repositoryImpl) PhonePrefix(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]models.Customer, error) {
	return r.prefixRange(ctx, ownerID, "phone", prefix, limit)
}

func (r *repositoryImpl) InvoicePrefix(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]models.Customer, error) {
	return r.prefixRange(ctx, ownerID, "invoice_number", prefix, limit)
}

func (r *repositoryImpl) InvoiceExact(ctx context.Context, ownerID uuid.UUID, invoice string, limit int) ([]models.Customer, error) {
	var rows []models.Customer
	err := r.Owned(ctx, ownerID, &models.Customer{}).
		Where("invoice_number = ?", invoice).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// rangeExpr pins the comparison to byte order on Postgres so the U+F8FF
// bound sorts after every prefix match and the COLLATE "C" indexes apply.
// sqlite compares text as bytes already.
func rangeExpr(dialect, column string) string {
	if dialect == "postgres" {
		return column + ` COLLATE "C"`
	}
	return column
}

// prefixRange runs column >= v AND column <= v+U+F8FF ordered by column.
// column is always one of the fixed names above.
func (r *repositoryImpl) prefixRange(ctx context.Context, ownerID uuid.UUID, column, v string, limit int) ([]models.Customer, error) {
	expr := rangeExpr(r.Raw().Dialector.Name(), column)
	var rows []models.Customer
	err := r.Owned(ctx, ownerID, &models.Customer{}).
		Where(expr+" >= ? AND "+expr+" <= ?", v, v+prefixUpperBound).
		Order(expr).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

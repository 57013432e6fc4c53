package products

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/repairdesk/repairdesk-backend/internal/repo"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
)

// Repository persists stock items scoped by owner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
	ListLowStock(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
	CountLowStock(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
	// LockForUpdate loads the row with SELECT ... FOR UPDATE; call it inside
	// a transaction.
	LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*models.Product, error)
	SetQuantity(ctx context.Context, ownerID, id uuid.UUID, quantity int, now time.Time) error
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: repo.NewBase(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

func (r *repositoryImpl) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Product, error) {
	return r.take(r.Owned(ctx, ownerID, &models.Product{}).Where("id = ?", id))
}

func (r *repositoryImpl) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*models.Product, error) {
	return r.take(r.Owned(ctx, ownerID, &models.Product{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *repositoryImpl) take(query *gorm.DB) (*models.Product, error) {
	var product models.Product
	err := query.Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) List(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.Owned(ctx, ownerID, &models.Product{}).Order("name ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListLowStock(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.Owned(ctx, ownerID, &models.Product{}).
		Where("quantity <= alert_quantity").
		Order("quantity ASC, name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountLowStock(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.Owned(ctx, ownerID, &models.Product{}).Where("quantity <= alert_quantity").Count(&count).Error
	return count, err
}

// Update writes the editable columns. Quantity is excluded; it only moves
// through SetQuantity.
func (r *repositoryImpl) Update(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).
		Model(product).
		Where("owner_id = ?", product.OwnerID).
		Select("name", "type", "category", "subcategory", "cost_price", "buying_price", "selling_price",
			"alert_quantity", "warranty_enabled", "warranty_duration", "warranty_unit", "updated_at").
		Updates(product).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&models.Product{})
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) SetQuantity(ctx context.Context, ownerID, id uuid.UUID, quantity int, now time.Time) error {
	return r.DB(ctx).
		Model(&models.Product{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		UpdateColumns(map[string]any{"quantity": quantity, "updated_at": now}).Error
}

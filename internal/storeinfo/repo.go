package storeinfo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/repairdesk/repairdesk-backend/internal/repo"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
)

// Repository persists the per-owner shop profile.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, ownerID uuid.UUID) (*models.StoreInfo, error)
	Upsert(ctx context.Context, info *models.StoreInfo) error
	ListAll(ctx context.Context) ([]models.StoreInfo, error)
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

// Get returns nil without error when the owner has no profile yet.
func (r *repositoryImpl) Get(ctx context.Context, ownerID uuid.UUID) (*models.StoreInfo, error) {
	var info models.StoreInfo
	err := r.DB(ctx).Where("owner_id = ?", ownerID).Take(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *repositoryImpl) Upsert(ctx context.Context, info *models.StoreInfo) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"shop_name", "owner_name", "phone", "email", "address", "logo_url",
			"invoice_prefix", "delivery_check_hour", "delivery_check_minute", "updated_at",
		}),
	}).Create(info).Error
}

// ListAll returns every profile; the worker uses it to re-arm delivery checks.
func (r *repositoryImpl) ListAll(ctx context.Context) ([]models.StoreInfo, error) {
	var rows []models.StoreInfo
	if err := r.DB(ctx).Order("owner_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

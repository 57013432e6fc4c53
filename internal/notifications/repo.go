package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/internal/repo"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	"github.com/repairdesk/repairdesk-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, ownerID uuid.UUID) (int64, error)
	// MarkRead reports whether the owner has such a notification; reading an
	// already read row is not an error.
	MarkRead(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, ownerID uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
	// DeleteOlderThan prunes across all owners; used by the retention job.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type listQuery struct {
	OwnerID    uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
	Type       enums.NotificationType
}

type gormRepository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{Base: repo.NewBase(tx)}
}

func (r *gormRepository) owned(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return r.Owned(ctx, ownerID, &models.Notification{})
}

func (r *gormRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.DB(ctx).Create(n).Error
}

func (r *gormRepository) List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	tx := r.owned(ctx, q.OwnerID)
	if q.UnreadOnly {
		tx = tx.Where("read_at IS NULL")
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if c := q.Cursor; c != nil {
		tx = tx.Where("(created_at, id) < (?, ?)", c.CreatedAt, c.ID)
	}

	var rows []models.Notification
	err := tx.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *gormRepository) CountUnread(ctx context.Context, ownerID uuid.UUID) (n int64, err error) {
	err = r.owned(ctx, ownerID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

func (r *gormRepository) MarkRead(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error) {
	res := r.owned(ctx, ownerID).Where("id = ? AND read_at IS NULL", id).UpdateColumn("read_at", at)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.RowsAffected > 0, res.Error
	}
	var n int64
	if err := r.owned(ctx, ownerID).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, ownerID uuid.UUID, at time.Time) (int64, error) {
	res := r.owned(ctx, ownerID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&models.Notification{})
	return res.RowsAffected > 0, res.Error
}

func (r *gormRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

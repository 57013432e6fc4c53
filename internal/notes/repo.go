package notes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/internal/repo"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, note *models.Note) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Note, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Note, error)
	Save(ctx context.Context, note *models.Note) error
	SetPinned(ctx context.Context, ownerID, id uuid.UUID, pinned bool, now time.Time) (bool, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, note *models.Note) error {
	return r.DB(ctx).Create(note).Error
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Note, error) {
	var note models.Note
	err := r.Owned(ctx, ownerID, &models.Note{}).Where("id = ?", id).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// List returns pinned notes first, each group most recently edited first.
func (r *repository) List(ctx context.Context, ownerID uuid.UUID) ([]models.Note, error) {
	var notes []models.Note
	err := r.Owned(ctx, ownerID, &models.Note{}).
		Order("pinned DESC, updated_at DESC, id DESC").
		Find(&notes).Error
	return notes, err
}

func (r *repository) Save(ctx context.Context, note *models.Note) error {
	return r.Owned(ctx, note.OwnerID, &models.Note{}).
		Where("id = ?", note.ID).
		Updates(map[string]any{
			"title":      note.Title,
			"body":       note.Body,
			"color":      note.Color,
			"tags":       note.Tags,
			"pinned":     note.Pinned,
			"updated_at": note.UpdatedAt,
		}).Error
}

func (r *repository) SetPinned(ctx context.Context, ownerID, id uuid.UUID, pinned bool, now time.Time) (bool, error) {
	res := r.Owned(ctx, ownerID, &models.Note{}).
		Where("id = ?", id).
		Updates(map[string]any{"pinned": pinned, "updated_at": now})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&models.Note{})
	return res.RowsAffected > 0, res.Error
}

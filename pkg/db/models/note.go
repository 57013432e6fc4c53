package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/repairdesk/repairdesk-backend/pkg/db/types"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
)

type Note struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title     string              `gorm:"column:title;not null" json:"title"`
	Body      string              `gorm:"column:body" json:"body"`
	Pinned    bool                `gorm:"column:pinned;not null;default:false" json:"pinned"`
	Color     enums.NoteColor     `gorm:"column:color;type:text;not null" json:"color"`
	Tags      dbtypes.StringArray `gorm:"column:tags" json:"tags"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Owned scopes a query on model to rows belonging to ownerID.
func (b Base) Owned(ctx context.Context, ownerID uuid.UUID, model any) *gorm.DB {
	return b.DB(ctx).Model(model).Where("owner_id = ?", ownerID)
}

// Raw returns the unbound connection, e.g. to start a transaction.
func (b Base) Raw() *gorm.DB {
	return b.db
}

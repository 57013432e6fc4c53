package products

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

// AdjustResult reports a stock movement.
type AdjustResult struct {
	Product  models.Product `json:"product"`
	Previous int            `json:"previous_quantity"`
}

// CrossedLowStock reports whether this adjustment moved the product into
// its low-stock band.
func (r AdjustResult) CrossedLowStock() bool {
	return r.Product.LowStock() && r.Previous > r.Product.AlertQuantity
}

// AdjustQuantityTx locks the product row, applies delta clamped at zero and
// writes the result. repo must be bound to an open transaction so the lock
// holds until commit.
func AdjustQuantityTx(ctx context.Context, repo Repository, ownerID, productID uuid.UUID, delta int, now time.Time) (AdjustResult, error) {
	current, err := repo.LockForUpdate(ctx, ownerID, productID)
	if err != nil {
		return AdjustResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}
	if current == nil {
		return AdjustResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	next := current.Quantity + delta
	if next < 0 {
		next = 0
	}
	if err := repo.SetQuantity(ctx, ownerID, productID, next, now); err != nil {
		return AdjustResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product quantity")
	}

	result := AdjustResult{Product: *current, Previous: current.Quantity}
	result.Product.Quantity = next
	result.Product.UpdatedAt = now
	return result, nil
}

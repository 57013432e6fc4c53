package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes stock management operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*models.Product, error)
	Update(ctx context.Context, ownerID, productID uuid.UUID, input ProductInput) (*models.Product, error)
	Delete(ctx context.Context, ownerID, productID uuid.UUID) error
	Get(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
	ListLowStock(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
	AdjustQuantity(ctx context.Context, ownerID, productID uuid.UUID, delta int) (*AdjustResult, error)
}

// ProductInput is the editable product payload. Quantity is only honoured
// on create; afterwards stock moves through AdjustQuantity.
type ProductInput struct {
	Name             string             `json:"name" validate:"required,max=160"`
	Type             string             `json:"type" validate:"max=80"`
	Category         string             `json:"category" validate:"max=80"`
	Subcategory      string             `json:"subcategory" validate:"max=80"`
	CostPrice        decimal.Decimal    `json:"cost_price"`
	BuyingPrice      decimal.Decimal    `json:"buying_price"`
	SellingPrice     decimal.Decimal    `json:"selling_price"`
	Quantity         int                `json:"quantity" validate:"min=0"`
	AlertQuantity    int                `json:"alert_quantity" validate:"min=0"`
	WarrantyEnabled  bool               `json:"warranty_enabled"`
	WarrantyDuration int                `json:"warranty_duration" validate:"min=0"`
	WarrantyUnit     enums.WarrantyUnit `json:"warranty_unit"`
}

// ServiceParams wires the product service. Notifier is optional.
type ServiceParams struct {
	Repo     Repository
	DB       txRunner
	Notifier notify.Notifier
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	db       txRunner
	notifier notify.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
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
		repo:     params.Repo,
		db:       params.DB,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*models.Product, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	product := &models.Product{OwnerID: ownerID, Quantity: input.Quantity}
	applyInput(product, input)
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, ownerID, productID uuid.UUID, input ProductInput) (*models.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}
	applyInput(product, input)
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, ownerID, productID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, ownerID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	if ownerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id and product id required")
	}
	product, err := s.repo.Get(ctx, ownerID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	if ownerID == uuid.Nil {
		return []models.Product{}, nil
	}
	rows, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}

func (s *service) ListLowStock(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	if ownerID == uuid.Nil {
		return []models.Product{}, nil
	}
	rows, err := s.repo.ListLowStock(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}
	return rows, nil
}

// AdjustQuantity applies delta atomically, clamping at zero.
func (s *service) AdjustQuantity(ctx context.Context, ownerID, productID uuid.UUID, delta int) (*AdjustResult, error) {
	if ownerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id and product id required")
	}
	var result AdjustResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = AdjustQuantityTx(ctx, s.repo.WithTx(tx), ownerID, productID, delta, s.now().UTC())
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust quantity")
	}
	if result.CrossedLowStock() {
		NotifyLowStock(ctx, s.notifier, s.logg, ownerID, result.Product)
	}
	return &result, nil
}

// NotifyLowStock emits a best-effort low-stock notification.
func NotifyLowStock(ctx context.Context, n notify.Notifier, logg *logger.Logger, ownerID uuid.UUID, p models.Product) {
	if n == nil {
		return
	}
	err := n.Notify(ctx, notify.Message{
		OwnerID: ownerID,
		Type:    enums.NotificationTypeLowStock,
		Title:   "Low stock",
		Body:    fmt.Sprintf("%s has %d left (alert at %d).", p.Name, p.Quantity, p.AlertQuantity),
		Link:    "/products/" + p.ID.String(),
	})
	if err != nil && logg != nil {
		logg.Error(logg.WithField(ctx, "product_id", p.ID.String()), "failed to emit low stock notification", err)
	}
}

func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	for label, price := range map[string]decimal.Decimal{
		"cost_price":    input.CostPrice,
		"buying_price":  input.BuyingPrice,
		"selling_price": input.SellingPrice,
	} {
		if price.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s cannot be negative", label)
		}
	}
	if input.AlertQuantity < 0 || input.WarrantyDuration < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert quantity and warranty duration cannot be negative")
	}
	if input.WarrantyEnabled {
		if input.WarrantyDuration == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "warranty duration required when warranty is enabled")
		}
		if !input.WarrantyUnit.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid warranty unit %q", string(input.WarrantyUnit))
		}
	}
	return nil
}

func applyInput(product *models.Product, input ProductInput) {
	product.Name = strings.TrimSpace(input.Name)
	product.Type = strings.TrimSpace(input.Type)
	product.Category = strings.TrimSpace(input.Category)
	product.Subcategory = strings.TrimSpace(input.Subcategory)
	product.CostPrice = input.CostPrice
	product.BuyingPrice = input.BuyingPrice
	product.SellingPrice = input.SellingPrice
	product.AlertQuantity = input.AlertQuantity
	product.WarrantyEnabled = input.WarrantyEnabled
	product.WarrantyDuration = 0
	product.WarrantyUnit = ""
	if input.WarrantyEnabled {
		product.WarrantyDuration = input.WarrantyDuration
		product.WarrantyUnit = input.WarrantyUnit
	}
}

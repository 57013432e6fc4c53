package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/pkg/enums"
)

// Product is a stock item. Quantity only moves through the locked adjust path
// and never goes below zero.
type Product struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID          uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Name             string             `gorm:"column:name;not null" json:"name"`
	Type             string             `gorm:"column:type" json:"type"`
	Category         string             `gorm:"column:category" json:"category"`
	Subcategory      string             `gorm:"column:subcategory" json:"subcategory"`
	CostPrice        decimal.Decimal    `gorm:"column:cost_price;type:numeric(14,2);not null;default:0" json:"cost_price"`
	BuyingPrice      decimal.Decimal    `gorm:"column:buying_price;type:numeric(14,2);not null;default:0" json:"buying_price"`
	SellingPrice     decimal.Decimal    `gorm:"column:selling_price;type:numeric(14,2);not null;default:0" json:"selling_price"`
	Quantity         int                `gorm:"column:quantity;not null;default:0" json:"quantity"`
	AlertQuantity    int                `gorm:"column:alert_quantity;not null;default:0" json:"alert_quantity"`
	WarrantyEnabled  bool               `gorm:"column:warranty_enabled;not null;default:false" json:"warranty_enabled"`
	WarrantyDuration int                `gorm:"column:warranty_duration;not null;default:0" json:"warranty_duration"`
	WarrantyUnit     enums.WarrantyUnit `gorm:"column:warranty_unit;type:text" json:"warranty_unit,omitempty"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// LowStock reports whether the product is at or below its alert threshold.
func (p Product) LowStock() bool {
	return p.Quantity <= p.AlertQuantity
}

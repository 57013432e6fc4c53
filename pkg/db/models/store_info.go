package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultInvoicePrefix is used when the shop has not configured one.
const DefaultInvoicePrefix = "INV-"

// StoreInfo is the per-owner shop profile. OwnerID is the primary key, so
// there is at most one row per owner.
type StoreInfo struct {
	OwnerID             uuid.UUID `gorm:"column:owner_id;type:uuid;primaryKey" json:"owner_id"`
	ShopName            string    `gorm:"column:shop_name" json:"shop_name"`
	OwnerName           string    `gorm:"column:owner_name" json:"owner_name"`
	Phone               string    `gorm:"column:phone" json:"phone"`
	Email               string    `gorm:"column:email" json:"email"`
	Address             string    `gorm:"column:address" json:"address"`
	LogoURL             string    `gorm:"column:logo_url" json:"logo_url"`
	InvoicePrefix       string    `gorm:"column:invoice_prefix;not null" json:"invoice_prefix"`
	DeliveryCheckHour   int       `gorm:"column:delivery_check_hour;not null" json:"delivery_check_hour"`
	DeliveryCheckMinute int       `gorm:"column:delivery_check_minute;not null" json:"delivery_check_minute"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (StoreInfo) TableName() string { return "store_info" }

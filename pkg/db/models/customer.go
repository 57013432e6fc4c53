package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/pkg/enums"
)

// Accessories records what the customer handed over with the device.
type Accessories struct {
	Battery    bool `gorm:"column:acc_battery;not null;default:false" json:"battery"`
	SIM        bool `gorm:"column:acc_sim;not null;default:false" json:"sim"`
	MemoryCard bool `gorm:"column:acc_memory_card;not null;default:false" json:"memory_card"`
	BackCover  bool `gorm:"column:acc_back_cover;not null;default:false" json:"back_cover"`
	Charger    bool `gorm:"column:acc_charger;not null;default:false" json:"charger"`
	SIMTray    bool `gorm:"column:acc_sim_tray;not null;default:false" json:"sim_tray"`
}

// Customer is a repair intake record. Rows are never deleted; Status carries
// the lifecycle. DeliveryDate and Date are shop-calendar strings.
type Customer struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index;uniqueIndex:idx_customers_owner_invoice,priority:1" json:"owner_id"`
	InvoiceNumber string               `gorm:"column:invoice_number;not null;uniqueIndex:idx_customers_owner_invoice,priority:2" json:"invoice_number"`
	Name          string               `gorm:"column:name;not null" json:"name"`
	Phone         string               `gorm:"column:phone;not null" json:"phone"`
	AltPhone      string               `gorm:"column:alt_phone" json:"alt_phone"`
	Address       string               `gorm:"column:address" json:"address"`
	DeviceBrand   string               `gorm:"column:device_brand" json:"device_brand"`
	DeviceModel   string               `gorm:"column:device_model" json:"device_model"`
	IMEI          string               `gorm:"column:imei" json:"imei"`
	Problem       string               `gorm:"column:problem" json:"problem"`
	SecurityType  enums.SecurityType   `gorm:"column:security_type;type:text;not null" json:"security_type"`
	Password      string               `gorm:"column:password" json:"password,omitempty"`
	Pattern       string               `gorm:"column:pattern" json:"pattern,omitempty"`
	Accessories   Accessories          `gorm:"embedded" json:"accessories"`
	Total         string               `gorm:"column:total" json:"total"`
	Advance       string               `gorm:"column:advance" json:"advance"`
	Status        enums.CustomerStatus `gorm:"column:status;type:text;not null" json:"status"`
	DeliveryDate  string               `gorm:"column:delivery_date" json:"delivery_date"`
	Date          string               `gorm:"column:date" json:"date"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

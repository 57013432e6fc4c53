package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/pkg/enums"
)

// Transaction is an immutable till entry. Profit and Due are snapshotted at
// creation and never recomputed from the other columns.
type Transaction struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID             `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Type          enums.TransactionType `gorm:"column:type;type:text;not null" json:"type"`
	CustomerName  string                `gorm:"column:customer_name" json:"customer_name"`
	CustomerPhone string                `gorm:"column:customer_phone" json:"customer_phone"`
	Total         decimal.Decimal       `gorm:"column:total;type:numeric(14,2);not null;default:0" json:"total"`
	Advance       decimal.Decimal       `gorm:"column:advance;type:numeric(14,2);not null;default:0" json:"advance"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null;default:0" json:"amount"`
	Cost          decimal.Decimal       `gorm:"column:cost;type:numeric(14,2);not null;default:0" json:"cost"`
	Profit        decimal.Decimal       `gorm:"column:profit;type:numeric(14,2);not null;default:0" json:"profit"`
	Due           decimal.Decimal       `gorm:"column:due;type:numeric(14,2);not null;default:0" json:"due"`
	Note          string                `gorm:"column:note" json:"note"`
	Items         []TransactionItem     `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TransactionItem is one product line of a transaction.
type TransactionItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index" json:"transaction_id"`
	ProductID     *uuid.UUID      `gorm:"column:product_id;type:uuid" json:"product_id,omitempty"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Quantity      int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null;default:0" json:"unit_price"`
	UnitCost      decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,2);not null;default:0" json:"unit_cost"`
}

func (i *TransactionItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is a Talikhata line: money the shop owner owes (Payable) or
// is owed by a counterparty, due on DueDate.
type LedgerEntry struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID           uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Name              string          `gorm:"column:name;not null" json:"name"`
	Phone             string          `gorm:"column:phone;not null" json:"phone"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	DueDate           time.Time       `gorm:"column:due_date;not null" json:"due_date"`
	Payable           bool            `gorm:"column:payable;not null" json:"payable"`
	ReminderScheduled bool            `gorm:"column:reminder_scheduled;not null;default:false" json:"reminder_scheduled"`
	Note              string          `gorm:"column:note" json:"note"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

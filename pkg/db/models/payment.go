package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one recorded collection against a subscriber.
type Payment struct {
	ID           uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SubscriberID uint            `gorm:"column:subscriber_id;not null;index" json:"subscriber_id"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Method       string          `gorm:"column:method" json:"method"`
	Reference    string          `gorm:"column:reference" json:"reference,omitempty"`
	PeriodLabel  string          `gorm:"column:period_label" json:"period_label"`
	Note         string          `gorm:"column:note" json:"note,omitempty"`
	PaidAt       time.Time       `gorm:"column:paid_at;not null" json:"paid_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

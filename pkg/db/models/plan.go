package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a named rate pair with a monthly price. Subscribers copy these
// values at registration; the catalog is only a template.
type Plan struct {
	ID   uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;not null;uniqueIndex:uq_plans_name" json:"name"`
	// Rates use the device notation, e.g. "10M" or "512k".
	DownloadRate string          `gorm:"column:download_rate;not null" json:"download_rate"`
	UploadRate   string          `gorm:"column:upload_rate;not null" json:"upload_rate"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0" json:"price"`
	Description  string          `gorm:"column:description" json:"description,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

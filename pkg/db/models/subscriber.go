package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuzonet/cuzonet-backend/pkg/enums"
)

// Subscriber is the registry row for one billed connection. The rate pair and
// price are copied from the plan at registration so later plan edits never
// rewrite history.
type Subscriber struct {
	ID        uint                  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string                `gorm:"column:name;not null" json:"name"`
	IPAddress string                `gorm:"column:ip_address;not null;uniqueIndex:uq_subscribers_ip_address" json:"ip_address"`
	State     enums.SubscriberState `gorm:"column:state;not null;default:'active'" json:"state"`
	PlanID    *uint                 `gorm:"column:plan_id;index" json:"plan_id,omitempty"`
	PlanLabel string                `gorm:"column:plan_label;not null" json:"plan_label"`
	// Rates use the device notation, e.g. "10M" or "512k".
	DownloadRate string          `gorm:"column:download_rate;not null" json:"download_rate"`
	UploadRate   string          `gorm:"column:upload_rate;not null" json:"upload_rate"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0" json:"price"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0" json:"balance"`

	// QueueID is the device-side identifier of the bandwidth queue, empty
	// until the queue has been created on the device.
	QueueID   string `gorm:"column:queue_id" json:"queue_id,omitempty"`
	QueueName string `gorm:"column:queue_name" json:"queue_name,omitempty"`

	CutoffDay     int        `gorm:"column:cutoff_day;not null;default:28" json:"cutoff_day"`
	NextDueDate   *time.Time `gorm:"column:next_due_date" json:"next_due_date,omitempty"`
	LastPaymentAt *time.Time `gorm:"column:last_payment_at" json:"last_payment_at,omitempty"`

	Phone      string `gorm:"column:phone" json:"phone,omitempty"`
	Email      string `gorm:"column:email" json:"email,omitempty"`
	Street     string `gorm:"column:street" json:"street,omitempty"`
	NationalID string `gorm:"column:national_id" json:"national_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

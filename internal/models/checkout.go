package models

import "time"

// CheckoutEvent is one relayed gateway call, kept as an audit trail.
type CheckoutEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RequestID     string    `gorm:"size:64;index" json:"request_id"`
	Kind          string    `gorm:"size:20;not null;index" json:"kind"`   // ORDER, PAYMENT_KEY
	Status        string    `gorm:"size:20;not null;index" json:"status"` // SUCCEEDED, FAILED
	UserID        string    `gorm:"size:64;index" json:"user_id,omitempty"`
	PaymobOrderID int64     `gorm:"index" json:"paymob_order_id,omitempty"`
	MerchantRef   string    `gorm:"size:64" json:"merchant_ref,omitempty"`
	AmountCents   int64     `gorm:"not null" json:"amount_cents"`
	Currency      string    `gorm:"size:3" json:"currency"`
	ItemCount     int       `json:"item_count,omitempty"`
	Email         string    `gorm:"size:255" json:"email,omitempty"`
	UpstreamCode  int       `json:"upstream_code,omitempty"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (CheckoutEvent) TableName() string {
	return "checkout_events"
}

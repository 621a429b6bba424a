package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of a payment (and of a booking
// participant's share of it)
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment represents the single payment owned by either a booking or a
// practice purchase, never both. The ID carries the PAY-BKG-<yyyyMMdd>
// or PAY-PRC-<yyyyMMdd> prefix external systems parse.
type Payment struct {
	ID                 string        `gorm:"type:varchar(64);primaryKey" json:"id"`
	BookingID          *string       `gorm:"type:varchar(64);uniqueIndex" json:"booking_id,omitempty"`
	PracticePurchaseID *uuid.UUID    `gorm:"type:uuid;uniqueIndex" json:"practice_purchase_id,omitempty"`
	Amount             float64       `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status             PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentMethod      string        `gorm:"type:varchar(50)" json:"payment_method"`
	TransactionID      string        `gorm:"type:varchar(100);index" json:"transaction_id"`
	PaymentDate        *time.Time    `json:"payment_date,omitempty"`
	GatewayResponse    JSON          `gorm:"type:jsonb" json:"gateway_response,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// OwnedByExactlyOne reports whether the payment is linked to exactly one
// of a booking or a practice purchase. A violation indicates a bug in the
// creating transaction and is treated as fatal by callers.
func (p *Payment) OwnedByExactlyOne() bool {
	return (p.BookingID != nil) != (p.PracticePurchaseID != nil)
}

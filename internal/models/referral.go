package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralUsageContext says what a referral usage was redeemed against
type ReferralUsageContext string

const (
	ReferralContextBooking          ReferralUsageContext = "booking"
	ReferralContextPracticePurchase ReferralUsageContext = "practice_purchase"
)

// Valid reports whether c is a known redemption context
func (c ReferralUsageContext) Valid() bool {
	return c == ReferralContextBooking || c == ReferralContextPracticePurchase
}

// ReferralCode is a discount/commission code owned by an affiliator.
// The ID carries the REF-<yyyyMMdd>-<4 alnum> format; Code is the
// user-facing string a mentee types in.
type ReferralCode struct {
	ID                   string         `gorm:"type:varchar(32);primaryKey" json:"id"`
	OwnerID              uuid.UUID      `gorm:"type:uuid;index;not null" json:"owner_id"`
	Owner                User           `gorm:"foreignKey:OwnerID" json:"-"`
	Code                 string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DiscountPercentage   float64        `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	CommissionPercentage float64        `gorm:"type:decimal(5,2);not null" json:"commission_percentage"`
	ExpiryDate           time.Time      `json:"expiry_date"`
	IsActive             bool           `gorm:"default:true" json:"is_active"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// ReferralUsage records a user redeeming a referral code once. The
// (user, code) pair is unique; the row is consumed when a booking or
// practice purchase links to it.
type ReferralUsage struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID            `gorm:"type:uuid;index:idx_referral_usage_user_code,unique;not null" json:"user_id"`
	User           User                 `gorm:"foreignKey:UserID" json:"-"`
	ReferralCodeID string               `gorm:"type:varchar(32);index:idx_referral_usage_user_code,unique;not null" json:"referral_code_id"`
	ReferralCode   ReferralCode         `gorm:"foreignKey:ReferralCodeID" json:"-"`
	Context        ReferralUsageContext `gorm:"type:varchar(20);not null" json:"context"`
	UsedAt         time.Time            `json:"used_at"`
	CreatedAt      time.Time            `json:"created_at"`
}

func (u *ReferralUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ReferralCommission is one append-only ledger row: commission earned by
// a referral code from a confirmed transaction. Rows are never updated
// or deleted; they are the durable source of truth for commission earned.
type ReferralCommission struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ReferralCodeID string       `gorm:"type:varchar(32);index;not null" json:"referral_code_id"`
	ReferralCode   ReferralCode `gorm:"foreignKey:ReferralCodeID" json:"-"`
	TransactionID  string       `gorm:"type:varchar(64);index;not null" json:"transaction_id"`
	Amount         float64      `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (c *ReferralCommission) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CommissionPaymentStatus is the state of a withdrawal request
type CommissionPaymentStatus string

const (
	CommissionPaymentStatusPending CommissionPaymentStatus = "pending"
	CommissionPaymentStatusPaid    CommissionPaymentStatus = "paid"
	CommissionPaymentStatusFailed  CommissionPaymentStatus = "failed"
)

// Valid reports whether s is a known withdrawal status
func (s CommissionPaymentStatus) Valid() bool {
	switch s {
	case CommissionPaymentStatusPending, CommissionPaymentStatusPaid, CommissionPaymentStatusFailed:
		return true
	}
	return false
}

// CommissionPayment is a withdrawal request against a referral code's
// earned commissions. Created by the owner, mutated only by admins.
// Pending rows already encumber the available balance.
type CommissionPayment struct {
	ID             uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	ReferralCodeID string                  `gorm:"type:varchar(32);index;not null" json:"referral_code_id"`
	ReferralCode   ReferralCode            `gorm:"foreignKey:ReferralCodeID" json:"-"`
	Amount         float64                 `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status         CommissionPaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TransactionID  string                  `gorm:"type:varchar(100)" json:"transaction_id"`
	PaidAt         *time.Time              `json:"paid_at,omitempty"`
	Notes          string                  `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

func (p *CommissionPayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

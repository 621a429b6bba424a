package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the four known booking statuses
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further mentee-visible transitions exist
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking represents a mentee's reservation of a mentoring service.
// The ID is generated in the Booking-<service-type-slug>-<10 digits>
// format so external systems can parse it.
type Booking struct {
	ID                 string               `gorm:"type:varchar(64);primaryKey" json:"id"`
	MenteeID           uuid.UUID            `gorm:"type:uuid;index;not null" json:"mentee_id"`
	Mentee             User                 `gorm:"foreignKey:MenteeID" json:"-"`
	MentoringServiceID uuid.UUID            `gorm:"type:uuid;index;not null" json:"mentoring_service_id"`
	MentoringService   MentoringService     `gorm:"foreignKey:MentoringServiceID" json:"-"`
	ReferralUsageID    *uuid.UUID           `gorm:"type:uuid;uniqueIndex" json:"referral_usage_id,omitempty"`
	ReferralUsage      *ReferralUsage       `gorm:"foreignKey:ReferralUsageID" json:"-"`
	SpecialRequests    string               `gorm:"type:text" json:"special_requests"`
	BookingDate        time.Time            `json:"booking_date"`
	Status             BookingStatus        `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Participants       []BookingParticipant `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Payment            *Payment             `gorm:"foreignKey:BookingID" json:"payment,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// BookingParticipant is one attendee of a booking. Exactly one row per
// booking carries IsLeader=true (the mentee who created it); rows are
// hard-deleted when a group booking's roster is replaced.
type BookingParticipant struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID     string        `gorm:"type:varchar(64);index:idx_booking_participant,unique;not null" json:"booking_id"`
	UserID        uuid.UUID     `gorm:"type:uuid;index:idx_booking_participant,unique;not null" json:"user_id"`
	User          User          `gorm:"foreignKey:UserID" json:"-"`
	IsLeader      bool          `gorm:"default:false" json:"is_leader"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (p *BookingParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PracticePurchase represents a mentee buying a self-paced practice item
type PracticePurchase struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	User            User           `gorm:"foreignKey:UserID" json:"-"`
	PracticeID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"practice_id"`
	Practice        Practice       `gorm:"foreignKey:PracticeID" json:"-"`
	ReferralUsageID *uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"referral_usage_id,omitempty"`
	ReferralUsage   *ReferralUsage `gorm:"foreignKey:ReferralUsageID" json:"-"`
	Payment         *Payment       `gorm:"foreignKey:PracticePurchaseID" json:"payment,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (p *PracticePurchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

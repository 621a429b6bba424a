package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceType represents the delivery model of a mentoring service
type ServiceType string

const (
	ServiceTypeOneOnOne   ServiceType = "one-on-one"
	ServiceTypeGroup      ServiceType = "group"
	ServiceTypeBootcamp   ServiceType = "bootcamp"
	ServiceTypeShortClass ServiceType = "shortclass"
	ServiceTypeLiveClass  ServiceType = "liveclass"
)

// Valid reports whether t is one of the five known service types
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeOneOnOne, ServiceTypeGroup, ServiceTypeBootcamp, ServiceTypeShortClass, ServiceTypeLiveClass:
		return true
	}
	return false
}

// Manual reports whether the mentee picks the schedule themselves.
// Manual bookings are committed immediately; the rest compete for shared
// seats and stay pending until payment resolves.
func (t ServiceType) Manual() bool {
	return t == ServiceTypeOneOnOne || t == ServiceTypeGroup
}

// GroupDelivery reports whether the service is delivered to a shared
// cohort (bootcamp, short class, live class)
func (t ServiceType) GroupDelivery() bool {
	return t == ServiceTypeBootcamp || t == ServiceTypeShortClass || t == ServiceTypeLiveClass
}

// MentoringService is a bookable offering published by a mentor
type MentoringService struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MentorID        uuid.UUID      `gorm:"type:uuid;index;not null" json:"mentor_id"`
	Mentor          User           `gorm:"foreignKey:MentorID" json:"-"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Description     string         `gorm:"type:text" json:"description"`
	Price           float64        `gorm:"type:decimal(20,2);not null" json:"price"`
	ServiceType     ServiceType    `gorm:"type:varchar(20);not null" json:"service_type"`
	MaxParticipants int            `gorm:"default:1" json:"max_participants"`
	IsActive        bool           `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *MentoringService) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// MentoringSession is a scheduled meeting under a mentoring service
type MentoringSession struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	MentoringServiceID uuid.UUID        `gorm:"type:uuid;index;not null" json:"mentoring_service_id"`
	MentoringService   MentoringService `gorm:"foreignKey:MentoringServiceID" json:"-"`
	MentorID           uuid.UUID        `gorm:"type:uuid;index;not null" json:"mentor_id"`
	Title              string           `gorm:"type:varchar(255);not null" json:"title"`
	Description        string           `gorm:"type:text" json:"description"`
	StartAt            time.Time        `json:"start_at"`
	EndAt              time.Time        `json:"end_at"`
	MeetingLink        string           `gorm:"type:varchar(255)" json:"meeting_link"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (s *MentoringSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SessionUpdateLog records one mentor-initiated session update. The rows
// back the rolling-window update throttle.
type SessionUpdateLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index:idx_session_update_mentor;not null" json:"session_id"`
	MentorID  uuid.UUID `gorm:"type:uuid;index:idx_session_update_mentor;not null" json:"mentor_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *SessionUpdateLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Practice is a purchasable self-paced practice item. The catalog itself
// is managed elsewhere; the purchase flow only needs price and status.
type Practice struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Price     float64        `gorm:"type:decimal(20,2);not null" json:"price"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Practice) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

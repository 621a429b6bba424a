package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies what a user is allowed to do on the platform
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleMentor     Role = "mentor"
	RoleMentee     Role = "mentee"
	RoleAffiliator Role = "affiliator"
)

// User represents a platform account. Profile management lives outside
// this service; only the fields needed for existence and role checks are
// modeled here.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FullName    string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Email       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"`
	PhoneNumber string         `gorm:"type:varchar(30)" json:"phone_number"`
	Role        Role           `gorm:"type:varchar(20);not null;default:'mentee'" json:"role"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when one wasn't set by the caller
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

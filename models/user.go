package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	Username     string    `gorm:"size:50;not null;uniqueIndex:uk_users_username" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	IsActive   *bool `gorm:"not null;default:true" json:"is_active"`
	IsVerified *bool `gorm:"not null;default:false" json:"is_verified"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

type UserFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	Email    *string
	Username *string
	IsActive *bool
}

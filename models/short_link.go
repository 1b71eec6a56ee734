// Package models contains domain entities persisted by the repositories
package models

import (
	"time"

	"github.com/google/uuid"
)

// ShortLink maps a short code to a long URL.
// ShortCode is unique across all rows, active or not, since codes are never recycled.
// OwnerID is nil for anonymous links. IsActive=false marks a soft-deleted link.
type ShortLink struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_short_links_uuid" json:"uuid"`
	ShortCode      string     `gorm:"size:10;not null;uniqueIndex:uk_short_links_short_code" json:"short_code"`
	LongURL        string     `gorm:"type:text;not null" json:"long_url"`
	OwnerID        *uint      `gorm:"index:idx_short_links_owner_id" json:"owner_id,omitempty"`
	ClickCount     int64      `gorm:"not null;default:0" json:"click_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	IsActive       *bool      `gorm:"not null;default:true;index:idx_short_links_is_active" json:"is_active"`
	ExpiresAt      *time.Time `gorm:"index:idx_short_links_expires_at" json:"expires_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_short_links_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for ShortLink
func (ShortLink) TableName() string { return "short_links" }

// IsExpiredAt reports whether the link has an expiry at or before now
func (l *ShortLink) IsExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// ShortLinkFilter provides filter fields for repository queries
type ShortLinkFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	ShortCode     *string
	OwnerID       *uint
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

package models

import "time"

// ClickEvent is an append-only record of one redirect through a short link
type ClickEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ShortLinkID uint      `gorm:"not null;index:idx_click_events_short_link_id" json:"short_link_id"`
	ClickedAt   time.Time `gorm:"not null;index:idx_click_events_clicked_at" json:"clicked_at"`
	IPAddress   *string   `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   *string   `gorm:"type:text" json:"user_agent,omitempty"`
	Referer     *string   `gorm:"type:text" json:"referer,omitempty"`
}

// TableName returns the table name for ClickEvent
func (ClickEvent) TableName() string { return "click_events" }

// ClickEventFilter provides filter fields for repository queries
type ClickEventFilter struct {
	ShortLinkID   *uint
	ClickedAfter  *time.Time
	ClickedBefore *time.Time
}

package dto

import "time"

// CreateShortLinkRequest represents the request payload for shortening a URL
type CreateShortLinkRequest struct {
	LongURL     string     `json:"long_url" validate:"required,max=2048,http_url" example:"https://example.com/some/very/long/path"`
	CustomAlias *string    `json:"custom_alias,omitempty" validate:"omitempty,min=3,max=10,short_code" example:"promo24"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" example:"2030-01-01T00:00:00Z"`
}

// ShortLinkResponse represents a short link in API responses
type ShortLinkResponse struct {
	ID             string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ShortCode      string     `json:"short_code" example:"aZ3kP9"`
	ShortURL       string     `json:"short_url" example:"https://sho.rt/aZ3kP9"`
	LongURL        string     `json:"long_url" example:"https://example.com/some/very/long/path"`
	ClickCount     int64      `json:"click_count" example:"42"`
	CreatedAt      time.Time  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastAccessedAt *time.Time `json:"last_accessed_at" example:"2024-01-16T08:00:00Z"`
	ExpiresAt      *time.Time `json:"expires_at" example:"2030-01-01T00:00:00Z"`
	IsActive       bool       `json:"is_active" example:"true"`
}

// ShortLinkListResponse is one page of the caller's links
type ShortLinkListResponse struct {
	URLs     []ShortLinkResponse `json:"urls"`
	Total    int64               `json:"total" example:"57"`
	Page     int                 `json:"page" example:"1"`
	PageSize int                 `json:"page_size" example:"20"`
	HasNext  bool                `json:"has_next" example:"true"`
}

// ListShortLinksRequest holds pagination query parameters
type ListShortLinksRequest struct {
	Page     int `query:"page" example:"1"`
	PageSize int `query:"page_size" example:"20"`
}

// ClickEventResponse is one recorded click
type ClickEventResponse struct {
	ClickedAt time.Time `json:"clicked_at" example:"2024-01-16T08:00:00Z"`
	IPAddress *string   `json:"ip_address,omitempty" example:"203.0.113.7"`
	UserAgent *string   `json:"user_agent,omitempty" example:"Mozilla/5.0"`
	Referer   *string   `json:"referer,omitempty" example:"https://news.example.com/"`
}

// ShortLinkStatsResponse summarizes the analytics of a link
type ShortLinkStatsResponse struct {
	ShortCode      string               `json:"short_code" example:"aZ3kP9"`
	LongURL        string               `json:"long_url" example:"https://example.com/some/very/long/path"`
	ClickCount     int64                `json:"click_count" example:"42"`
	RecordedClicks int64                `json:"recorded_clicks" example:"45"`
	CreatedAt      time.Time            `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastAccessedAt *time.Time           `json:"last_accessed_at" example:"2024-01-16T08:00:00Z"`
	RecentClicks   []ClickEventResponse `json:"recent_clicks"`
}

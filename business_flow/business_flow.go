package businessflow

import (
	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/models"
	"github.com/amirphl/shorty/utils"
)

// ClientMetadata holds the client information recorded with a click
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Referer   string `json:"referer,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetReferer sets the Referer header value
func (cm *ClientMetadata) SetReferer(referer string) {
	cm.Referer = referer
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToShortLinkResponse converts a short link model for API responses
func ToShortLinkResponse(link models.ShortLink, baseURL string) dto.ShortLinkResponse {
	return dto.ShortLinkResponse{
		ID:             link.UUID.String(),
		ShortCode:      link.ShortCode,
		ShortURL:       baseURL + "/" + link.ShortCode,
		LongURL:        link.LongURL,
		ClickCount:     link.ClickCount,
		CreatedAt:      link.CreatedAt,
		LastAccessedAt: link.LastAccessedAt,
		ExpiresAt:      link.ExpiresAt,
		IsActive:       utils.IsTrue(link.IsActive),
	}
}

func ToClickEventResponse(event models.ClickEvent) dto.ClickEventResponse {
	return dto.ClickEventResponse{
		ClickedAt: event.ClickedAt,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Referer:   event.Referer,
	}
}

// ToUserInfo converts a user model for auth responses
func ToUserInfo(user models.User) dto.UserInfo {
	return dto.UserInfo{
		ID:         user.UUID.String(),
		Email:      user.Email,
		Username:   user.Username,
		IsActive:   utils.IsTrue(user.IsActive),
		IsVerified: utils.IsTrue(user.IsVerified),
		CreatedAt:  user.CreatedAt,
	}
}

// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/shorty/models"
	"github.com/google/uuid"
)

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ShortLinkRepository defines operations for short links.
// Lookups by code only ever see active links; the unique constraint on short_code
// still covers inactive rows.
type ShortLinkRepository interface {
	Repository[models.ShortLink, models.ShortLinkFilter]
	ByShortCode(ctx context.Context, code string) (*models.ShortLink, error)
	ByShortCodeAny(ctx context.Context, code string) (*models.ShortLink, error)
	ByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.ShortLink, error)
	CountByOwner(ctx context.Context, ownerID uint) (int64, error)
	SoftDelete(ctx context.Context, id uint) error
	IncrementClicks(ctx context.Context, id uint, accessedAt time.Time) error
	AllShortCodes(ctx context.Context) ([]string, error)
}

// ClickEventRepository defines operations for click analytics
type ClickEventRepository interface {
	Repository[models.ClickEvent, models.ClickEventFilter]
	ByShortLink(ctx context.Context, shortLinkID uint, limit, offset int) ([]*models.ClickEvent, error)
	CountByShortLink(ctx context.Context, shortLinkID uint) (int64, error)
}

// UserRepository defines operations for accounts
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

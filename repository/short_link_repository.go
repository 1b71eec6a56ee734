package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/shorty/models"
	"gorm.io/gorm"
)

// ShortLinkRepositoryImpl implements ShortLinkRepository
type ShortLinkRepositoryImpl struct {
	*BaseRepository[models.ShortLink, models.ShortLinkFilter]
}

func NewShortLinkRepository(db *gorm.DB) ShortLinkRepository {
	return &ShortLinkRepositoryImpl{BaseRepository: NewBaseRepository[models.ShortLink, models.ShortLinkFilter](db)}
}

// ByShortCode returns the active link for code, or nil
func (r *ShortLinkRepositoryImpl) ByShortCode(ctx context.Context, code string) (*models.ShortLink, error) {
	active := true
	return r.first(ctx, models.ShortLinkFilter{ShortCode: &code, IsActive: &active})
}

// ByShortCodeAny returns the link for code regardless of its active flag, or nil
func (r *ShortLinkRepositoryImpl) ByShortCodeAny(ctx context.Context, code string) (*models.ShortLink, error) {
	return r.first(ctx, models.ShortLinkFilter{ShortCode: &code})
}

func (r *ShortLinkRepositoryImpl) first(ctx context.Context, filter models.ShortLinkFilter) (*models.ShortLink, error) {
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByOwner lists the owner's active links, newest first
func (r *ShortLinkRepositoryImpl) ByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.ShortLink, error) {
	active := true
	return r.ByFilter(ctx, models.ShortLinkFilter{OwnerID: &ownerID, IsActive: &active}, "created_at DESC, id DESC", limit, offset)
}

func (r *ShortLinkRepositoryImpl) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	active := true
	return r.Count(ctx, models.ShortLinkFilter{OwnerID: &ownerID, IsActive: &active})
}

// SoftDelete deactivates the link; the row and its code stay reserved
func (r *ShortLinkRepositoryImpl) SoftDelete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	res := db.Model(&models.ShortLink{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to soft delete short link %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementClicks bumps click_count by one and stamps last_accessed_at in a single statement
func (r *ShortLinkRepositoryImpl) IncrementClicks(ctx context.Context, id uint, accessedAt time.Time) error {
	db := r.getDB(ctx)
	err := db.Model(&models.ShortLink{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"click_count":      gorm.Expr("click_count + ?", 1),
			"last_accessed_at": accessedAt.UTC(),
			"updated_at":       accessedAt.UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to increment clicks for short link %d: %w", id, err)
	}
	return nil
}

// AllShortCodes returns every code ever issued, inactive ones included
func (r *ShortLinkRepositoryImpl) AllShortCodes(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)
	var codes []string
	if err := db.Model(&models.ShortLink{}).Pluck("short_code", &codes).Error; err != nil {
		return nil, fmt.Errorf("failed to list short codes: %w", err)
	}
	return codes, nil
}

func (r *ShortLinkRepositoryImpl) applyFilter(db *gorm.DB, f models.ShortLinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.ShortCode != nil {
		db = db.Where("short_code = ?", *f.ShortCode)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *ShortLinkRepositoryImpl) ByFilter(ctx context.Context, filter models.ShortLinkFilter, orderBy string, limit, offset int) ([]*models.ShortLink, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLink{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ShortLink
	if err := query.Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find short links: %w", err)
	}
	return rows, nil
}

func (r *ShortLinkRepositoryImpl) Count(ctx context.Context, filter models.ShortLinkFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLink{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count short links: %w", err)
	}
	return count, nil
}

func (r *ShortLinkRepositoryImpl) Exists(ctx context.Context, filter models.ShortLinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

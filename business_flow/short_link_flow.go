package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/models"
	"github.com/amirphl/shorty/repository"
	"github.com/amirphl/shorty/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ShortLinkFlow handles the owner facing short link use cases
type ShortLinkFlow interface {
	// Create shortens a URL. Custom aliases need an owner. A random code that loses an
	// insert race is regenerated once.
	Create(ctx context.Context, req *dto.CreateShortLinkRequest, ownerID *uint) (*dto.ShortLinkResponse, error)
	ListMine(ctx context.Context, ownerID uint, page, pageSize int) (*dto.ShortLinkListResponse, error)
	// Delete soft deletes the link and evicts its cache entry
	Delete(ctx context.Context, ownerID uint, shortCode string) error
	Stats(ctx context.Context, ownerID uint, shortCode string) (*dto.ShortLinkStatsResponse, error)
	// ExportClicks renders the click events of a link as an xlsx workbook
	ExportClicks(ctx context.Context, ownerID uint, shortCode string) (string, []byte, error)
}

// ShortLinkFlowImpl implements ShortLinkFlow
type ShortLinkFlowImpl struct {
	repo      repository.ShortLinkRepository
	clickRepo repository.ClickEventRepository
	cache     services.CacheService
	codes     services.CodeGenerator
	cfg       config.ShortenerConfig
	now       func() time.Time
}

func NewShortLinkFlow(
	repo repository.ShortLinkRepository,
	clickRepo repository.ClickEventRepository,
	cache services.CacheService,
	codes services.CodeGenerator,
	cfg config.ShortenerConfig,
) ShortLinkFlow {
	return &ShortLinkFlowImpl{
		repo:      repo,
		clickRepo: clickRepo,
		cache:     cache,
		codes:     codes,
		cfg:       cfg,
		now:       utils.UTCNow,
	}
}

func (f *ShortLinkFlowImpl) Create(ctx context.Context, req *dto.CreateShortLinkRequest, ownerID *uint) (*dto.ShortLinkResponse, error) {
	if req == nil {
		return nil, ErrInvalidLongURL
	}

	alias := utils.DerefString(req.CustomAlias)
	if alias != "" && ownerID == nil {
		return nil, ErrAuthRequired
	}

	longURL, err := normalizeLongURL(req.LongURL)
	if err != nil {
		return nil, err
	}

	now := f.now()
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(now) {
			return nil, ErrExpiryInPast
		}
		expiresAt = utils.ToPtr(req.ExpiresAt.UTC())
	}

	existing, err := f.repo.AllShortCodes(ctx)
	if err != nil {
		return nil, NewBusinessError("SHORT_CODES_FETCH_FAILED", "Failed to load existing short codes", err)
	}
	taken := services.NewCodeSet(existing)

	code, err := f.generate(taken, alias)
	if err != nil {
		return nil, err
	}

	link, err := f.insert(ctx, code, longURL, ownerID, expiresAt, now)
	if err != nil && repository.IsDuplicateKey(err) {
		if alias != "" {
			return nil, ErrAliasTaken
		}
		taken[code] = struct{}{}
		if code, err = f.generate(taken, ""); err != nil {
			return nil, err
		}
		link, err = f.insert(ctx, code, longURL, ownerID, expiresAt, now)
		if err != nil && repository.IsDuplicateKey(err) {
			return nil, NewBusinessError("SHORT_CODE_GENERATION_FAILED", "Short code collided twice", ErrShortCodeGenerationFailed)
		}
	}
	if err != nil {
		return nil, NewBusinessError("SHORT_LINK_CREATE_FAILED", "Failed to create short link", err)
	}

	resp := ToShortLinkResponse(*link, f.cfg.BaseURL)
	return &resp, nil
}

func (f *ShortLinkFlowImpl) generate(taken services.CodeSet, alias string) (string, error) {
	code, err := f.codes.GenerateUnique(taken, alias, f.cfg.MaxAttempts)
	switch {
	case err == nil:
		return code, nil
	case errors.Is(err, services.ErrInvalidAlias):
		return "", ErrInvalidAlias
	case errors.Is(err, services.ErrAliasTaken):
		return "", ErrAliasTaken
	case errors.Is(err, services.ErrNoCodeAvailable):
		return "", NewBusinessError("SHORT_CODE_GENERATION_FAILED", "No unique short code available", ErrShortCodeGenerationFailed)
	default:
		return "", NewBusinessError("SHORT_CODE_GENERATION_FAILED", "Failed to generate short code", err)
	}
}

func (f *ShortLinkFlowImpl) insert(ctx context.Context, code, longURL string, ownerID *uint, expiresAt *time.Time, now time.Time) (*models.ShortLink, error) {
	link := &models.ShortLink{
		UUID:      uuid.New(),
		ShortCode: code,
		LongURL:   longURL,
		OwnerID:   ownerID,
		IsActive:  utils.ToPtr(true),
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.repo.Save(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func normalizeLongURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidLongURL
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", ErrInvalidLongURL
	}
	return raw, nil
}

func (f *ShortLinkFlowImpl) ListMine(ctx context.Context, ownerID uint, page, pageSize int) (*dto.ShortLinkListResponse, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > utils.MaxPageSize {
		return nil, ErrInvalidPageSize
	}

	offset := (page - 1) * pageSize
	rows, err := f.repo.ByOwner(ctx, ownerID, pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("SHORT_LINK_LIST_FAILED", "Failed to list short links", err)
	}
	total, err := f.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewBusinessError("SHORT_LINK_COUNT_FAILED", "Failed to count short links", err)
	}

	urls := make([]dto.ShortLinkResponse, 0, len(rows))
	for _, r := range rows {
		urls = append(urls, ToShortLinkResponse(*r, f.cfg.BaseURL))
	}

	return &dto.ShortLinkListResponse{
		URLs:     urls,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasNext:  int64(offset+len(rows)) < total,
	}, nil
}

// ownedLink returns the active link if ownerID owns it
func (f *ShortLinkFlowImpl) ownedLink(ctx context.Context, ownerID uint, shortCode string) (*models.ShortLink, error) {
	if !f.codes.Validate(shortCode) {
		return nil, ErrInvalidShortCode
	}
	link, err := f.repo.ByShortCode(ctx, shortCode)
	if err != nil {
		return nil, NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if link == nil {
		return nil, ErrShortLinkNotFound
	}
	if link.OwnerID == nil || *link.OwnerID != ownerID {
		return nil, ErrShortLinkAccessDenied
	}
	return link, nil
}

func (f *ShortLinkFlowImpl) Delete(ctx context.Context, ownerID uint, shortCode string) error {
	link, err := f.ownedLink(ctx, ownerID, shortCode)
	if err != nil {
		return err
	}

	if err := f.repo.SoftDelete(ctx, link.ID); err != nil {
		return NewBusinessError("SHORT_LINK_DELETE_FAILED", "Failed to delete short link", err)
	}

	key := LinkCacheKey(link.ShortCode)
	if _, err := f.cache.Delete(ctx, key); err != nil {
		log.Printf("Cache eviction failed for %s: %v", key, err)
	}
	return nil
}

func (f *ShortLinkFlowImpl) Stats(ctx context.Context, ownerID uint, shortCode string) (*dto.ShortLinkStatsResponse, error) {
	link, err := f.ownedLink(ctx, ownerID, shortCode)
	if err != nil {
		return nil, err
	}

	recorded, err := f.clickRepo.CountByShortLink(ctx, link.ID)
	if err != nil {
		return nil, NewBusinessError("CLICK_COUNT_FAILED", "Failed to count click events", err)
	}
	recent, err := f.clickRepo.ByShortLink(ctx, link.ID, utils.RecentClicksLimit, 0)
	if err != nil {
		return nil, NewBusinessError("CLICK_LIST_FAILED", "Failed to list click events", err)
	}

	clicks := make([]dto.ClickEventResponse, 0, len(recent))
	for _, c := range recent {
		clicks = append(clicks, ToClickEventResponse(*c))
	}

	return &dto.ShortLinkStatsResponse{
		ShortCode:      link.ShortCode,
		LongURL:        link.LongURL,
		ClickCount:     link.ClickCount,
		RecordedClicks: recorded,
		CreatedAt:      link.CreatedAt,
		LastAccessedAt: link.LastAccessedAt,
		RecentClicks:   clicks,
	}, nil
}

func (f *ShortLinkFlowImpl) ExportClicks(ctx context.Context, ownerID uint, shortCode string) (string, []byte, error) {
	link, err := f.ownedLink(ctx, ownerID, shortCode)
	if err != nil {
		return "", nil, err
	}

	events, err := f.clickRepo.ByShortLink(ctx, link.ID, utils.MaxExportClicks, 0)
	if err != nil {
		return "", nil, NewBusinessError("CLICK_LIST_FAILED", "Failed to list click events", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "clicks"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", err)
	}

	header := []any{"clicked_at", "ip_address", "user_agent", "referer"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}
	for i, e := range events {
		record := []any{
			e.ClickedAt.UTC().Format(time.RFC3339),
			utils.DerefString(e.IPAddress),
			utils.DerefString(e.UserAgent),
			utils.DerefString(e.Referer),
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to address Excel row", err)
		}
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("clicks_%s.xlsx", link.ShortCode)
	return filename, buf.Bytes(), nil
}

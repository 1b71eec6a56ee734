package testing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/shorty/models"
	"github.com/amirphl/shorty/repository"
	"github.com/google/uuid"
)

// duplicateKeyError mimics what the GORM repositories return on a unique violation
func duplicateKeyError(constraint string) error {
	return fmt.Errorf("failed to save entity: %w", fmt.Errorf("%w: %s", repository.ErrDuplicateKey, constraint))
}

// FakeShortLinkRepository is an in-memory ShortLinkRepository.
// SaveErrors are returned, in order, by the next Save calls before any row is stored.
type FakeShortLinkRepository struct {
	mu         sync.Mutex
	rows       map[uint]*models.ShortLink
	nextID     uint
	SaveErrors []error
	// Err, when set, fails every read
	Err error

	SaveCalls      int
	IncrementCalls int
}

func NewFakeShortLinkRepository() *FakeShortLinkRepository {
	return &FakeShortLinkRepository{rows: make(map[uint]*models.ShortLink)}
}

func (r *FakeShortLinkRepository) ByID(_ context.Context, id uint) (*models.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if row, ok := r.rows[id]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *FakeShortLinkRepository) matches(row *models.ShortLink, f models.ShortLinkFilter) bool {
	if f.ID != nil && row.ID != *f.ID {
		return false
	}
	if f.UUID != nil && row.UUID != *f.UUID {
		return false
	}
	if f.ShortCode != nil && row.ShortCode != *f.ShortCode {
		return false
	}
	if f.OwnerID != nil && (row.OwnerID == nil || *row.OwnerID != *f.OwnerID) {
		return false
	}
	if f.IsActive != nil && (row.IsActive != nil && *row.IsActive) != *f.IsActive {
		return false
	}
	if f.CreatedAfter != nil && row.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !row.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// ByFilter orders by created_at DESC, id DESC whatever orderBy says
func (r *FakeShortLinkRepository) ByFilter(_ context.Context, filter models.ShortLinkFilter, _ string, limit, offset int) ([]*models.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*models.ShortLink
	for _, row := range r.rows {
		if r.matches(row, filter) {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, limit, offset), nil
}

func (r *FakeShortLinkRepository) Save(_ context.Context, entity *models.ShortLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SaveCalls++
	if len(r.SaveErrors) > 0 {
		err := r.SaveErrors[0]
		r.SaveErrors = r.SaveErrors[1:]
		return err
	}
	return r.insert(entity)
}

func (r *FakeShortLinkRepository) insert(entity *models.ShortLink) error {
	for _, row := range r.rows {
		if row.ShortCode == entity.ShortCode {
			return duplicateKeyError("uk_short_links_short_code")
		}
	}
	r.nextID++
	entity.ID = r.nextID
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	if entity.IsActive == nil {
		active := true
		entity.IsActive = &active
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
		entity.UpdatedAt = entity.CreatedAt
	}
	cp := *entity
	r.rows[cp.ID] = &cp
	return nil
}

func (r *FakeShortLinkRepository) Count(ctx context.Context, filter models.ShortLinkFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *FakeShortLinkRepository) Exists(ctx context.Context, filter models.ShortLinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *FakeShortLinkRepository) ByShortCode(ctx context.Context, code string) (*models.ShortLink, error) {
	active := true
	rows, err := r.ByFilter(ctx, models.ShortLinkFilter{ShortCode: &code, IsActive: &active}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *FakeShortLinkRepository) ByShortCodeAny(ctx context.Context, code string) (*models.ShortLink, error) {
	rows, err := r.ByFilter(ctx, models.ShortLinkFilter{ShortCode: &code}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *FakeShortLinkRepository) ByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.ShortLink, error) {
	active := true
	return r.ByFilter(ctx, models.ShortLinkFilter{OwnerID: &ownerID, IsActive: &active}, "created_at DESC", limit, offset)
}

func (r *FakeShortLinkRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	active := true
	return r.Count(ctx, models.ShortLinkFilter{OwnerID: &ownerID, IsActive: &active})
}

func (r *FakeShortLinkRepository) SoftDelete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("short link %d not found", id)
	}
	inactive := false
	row.IsActive = &inactive
	return nil
}

func (r *FakeShortLinkRepository) IncrementClicks(_ context.Context, id uint, accessedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IncrementCalls++
	row, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("short link %d not found", id)
	}
	row.ClickCount++
	at := accessedAt
	row.LastAccessedAt = &at
	return nil
}

func (r *FakeShortLinkRepository) AllShortCodes(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	codes := make([]string, 0, len(r.rows))
	for _, row := range r.rows {
		codes = append(codes, row.ShortCode)
	}
	return codes, nil
}

// Put stores a row directly, bypassing SaveErrors
func (r *FakeShortLinkRepository) Put(link *models.ShortLink) *models.ShortLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.insert(link); err != nil {
		panic(err)
	}
	return link
}

// FakeClickEventRepository is an in-memory ClickEventRepository
type FakeClickEventRepository struct {
	mu     sync.Mutex
	rows   []*models.ClickEvent
	nextID uint
	// SaveErr, when set, fails every Save
	SaveErr error
}

func NewFakeClickEventRepository() *FakeClickEventRepository {
	return &FakeClickEventRepository{}
}

func (r *FakeClickEventRepository) ByID(_ context.Context, id uint) (*models.ClickEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

// ByFilter orders by clicked_at DESC, id DESC whatever orderBy says
func (r *FakeClickEventRepository) ByFilter(_ context.Context, f models.ClickEventFilter, _ string, limit, offset int) ([]*models.ClickEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ClickEvent
	for _, row := range r.rows {
		if f.ShortLinkID != nil && row.ShortLinkID != *f.ShortLinkID {
			continue
		}
		if f.ClickedAfter != nil && row.ClickedAt.Before(*f.ClickedAfter) {
			continue
		}
		if f.ClickedBefore != nil && !row.ClickedAt.Before(*f.ClickedBefore) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClickedAt.Equal(out[j].ClickedAt) {
			return out[i].ClickedAt.After(out[j].ClickedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, limit, offset), nil
}

func (r *FakeClickEventRepository) Save(_ context.Context, entity *models.ClickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.nextID++
	entity.ID = r.nextID
	cp := *entity
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *FakeClickEventRepository) Count(ctx context.Context, filter models.ClickEventFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *FakeClickEventRepository) Exists(ctx context.Context, filter models.ClickEventFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *FakeClickEventRepository) ByShortLink(ctx context.Context, shortLinkID uint, limit, offset int) ([]*models.ClickEvent, error) {
	return r.ByFilter(ctx, models.ClickEventFilter{ShortLinkID: &shortLinkID}, "clicked_at DESC", limit, offset)
}

func (r *FakeClickEventRepository) CountByShortLink(ctx context.Context, shortLinkID uint) (int64, error) {
	return r.Count(ctx, models.ClickEventFilter{ShortLinkID: &shortLinkID})
}

// Len returns the number of stored events
func (r *FakeClickEventRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// FakeUserRepository is an in-memory UserRepository with unique email and username
type FakeUserRepository struct {
	mu     sync.Mutex
	rows   map[uint]*models.User
	nextID uint
}

func NewFakeUserRepository() *FakeUserRepository {
	return &FakeUserRepository{rows: make(map[uint]*models.User)}
}

func (r *FakeUserRepository) ByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *FakeUserRepository) ByFilter(_ context.Context, f models.UserFilter, _ string, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, row := range r.rows {
		if f.ID != nil && row.ID != *f.ID {
			continue
		}
		if f.UUID != nil && row.UUID != *f.UUID {
			continue
		}
		if f.Email != nil && row.Email != *f.Email {
			continue
		}
		if f.Username != nil && row.Username != *f.Username {
			continue
		}
		if f.IsActive != nil && (row.IsActive != nil && *row.IsActive) != *f.IsActive {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

func (r *FakeUserRepository) Save(_ context.Context, entity *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Email == entity.Email {
			return duplicateKeyError("uk_users_email")
		}
		if row.Username == entity.Username {
			return duplicateKeyError("uk_users_username")
		}
	}
	r.nextID++
	entity.ID = r.nextID
	cp := *entity
	r.rows[cp.ID] = &cp
	return nil
}

func (r *FakeUserRepository) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *FakeUserRepository) Exists(ctx context.Context, filter models.UserFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *FakeUserRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return first(r.ByFilter(ctx, models.UserFilter{UUID: &id}, "", 1, 0))
}

func (r *FakeUserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return first(r.ByFilter(ctx, models.UserFilter{Email: &normalized}, "", 1, 0))
}

func (r *FakeUserRepository) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return first(r.ByFilter(ctx, models.UserFilter{Username: &username}, "", 1, 0))
}

func (r *FakeUserRepository) UpdateLastLogin(_ context.Context, userID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return fmt.Errorf("user %d not found", userID)
	}
	row.LastLoginAt = &at
	return nil
}

// SetActive flips the active flag of a stored user
func (r *FakeUserRepository) SetActive(userID uint, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		row.IsActive = &active
	}
}

// SyncClickRecorder writes click events straight to a repository
type SyncClickRecorder struct {
	Repo repository.ClickEventRepository
}

func (s *SyncClickRecorder) Record(ctx context.Context, event models.ClickEvent) error {
	return s.Repo.Save(ctx, &event)
}

func first[T any](rows []*T, err error) (*T, error) {
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func paginate[T any](rows []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

var (
	_ repository.ShortLinkRepository  = (*FakeShortLinkRepository)(nil)
	_ repository.ClickEventRepository = (*FakeClickEventRepository)(nil)
	_ repository.UserRepository       = (*FakeUserRepository)(nil)
)

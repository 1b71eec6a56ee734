//go:build integration

package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/shorty/models"
	"github.com/amirphl/shorty/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user whose password is "TestPass123!"
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := rand.Intn(900000000) + 100000000
	user := &models.User{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("jane.%d@example.com", suffix),
		Username:     fmt.Sprintf("jane_%d", suffix),
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
		IsVerified:   utils.ToPtr(false),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestShortLink creates an active link. ownerID may be nil.
func (tf *TestFixtures) CreateTestShortLink(code string, ownerID *uint, expiresAt *time.Time) (*models.ShortLink, error) {
	link := &models.ShortLink{
		UUID:      uuid.New(),
		ShortCode: code,
		LongURL:   "https://example.com/" + code,
		OwnerID:   ownerID,
		IsActive:  utils.ToPtr(true),
		ExpiresAt: expiresAt,
	}

	if err := tf.DB.DB.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create test short link: %w", err)
	}
	return link, nil
}

// CreateTestClicks records n clicks one minute apart starting at from
func (tf *TestFixtures) CreateTestClicks(linkID uint, n int, from time.Time) error {
	for i := range n {
		click := &models.ClickEvent{
			ShortLinkID: linkID,
			ClickedAt:   from.Add(time.Duration(i) * time.Minute),
			IPAddress:   utils.ToPtr(fmt.Sprintf("198.51.100.%d", i%255)),
			UserAgent:   utils.ToPtr("Test User Agent"),
		}
		if err := tf.DB.DB.Create(click).Error; err != nil {
			return fmt.Errorf("failed to create test click %d: %w", i, err)
		}
	}
	return nil
}

package businessflow

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/models"
	"github.com/amirphl/shorty/repository"
	"github.com/amirphl/shorty/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// AuthFlow handles registration and token issuance
type AuthFlow interface {
	Register(ctx context.Context, request *dto.RegisterRequest, metadata *ClientMetadata) (*dto.UserInfo, error)
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, request *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
}

// AuthFlowImpl implements AuthFlow
type AuthFlowImpl struct {
	userRepo     repository.UserRepository
	tokenService services.TokenService
	security     config.SecurityConfig
}

func NewAuthFlow(userRepo repository.UserRepository, tokenService services.TokenService, security config.SecurityConfig) AuthFlow {
	if security.BcryptCost == 0 {
		security.BcryptCost = bcrypt.DefaultCost
	}
	if security.PasswordMinLength == 0 {
		security.PasswordMinLength = 8
	}
	if security.PasswordMaxLength == 0 {
		security.PasswordMaxLength = 72
	}
	return &AuthFlowImpl{userRepo: userRepo, tokenService: tokenService, security: security}
}

func (af *AuthFlowImpl) Register(ctx context.Context, request *dto.RegisterRequest, metadata *ClientMetadata) (*dto.UserInfo, error) {
	if err := af.validateRegisterRequest(request); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(request.Email))

	existing, err := af.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to check email", err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}
	existing, err = af.userRepo.ByUsername(ctx, request.Username)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to check username", err)
	}
	if existing != nil {
		return nil, ErrUsernameAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), af.security.BcryptCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}

	now := utils.UTCNow()
	user := &models.User{
		UUID:         uuid.New(),
		Email:        email,
		Username:     request.Username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
		IsVerified:   utils.ToPtr(false),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := af.userRepo.Save(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			// lost a race with a concurrent registration
			if taken, _ := af.userRepo.ByEmail(ctx, email); taken != nil {
				return nil, ErrEmailAlreadyExists
			}
			return nil, ErrUsernameAlreadyExists
		}
		return nil, NewBusinessError("USER_CREATE_FAILED", "Failed to create user", err)
	}

	if metadata != nil {
		log.Printf("User registered: id=%d ip=%s request_id=%s", user.ID, metadata.IPAddress, metadata.RequestID)
	}

	info := ToUserInfo(*user)
	return &info, nil
}

func (af *AuthFlowImpl) validateRegisterRequest(request *dto.RegisterRequest) error {
	if request == nil || !usernamePattern.MatchString(request.Username) {
		return ErrInvalidUsername
	}
	if n := len(request.Password); n < af.security.PasswordMinLength || n > af.security.PasswordMaxLength {
		return NewBusinessErrorf("REGISTER_VALIDATION_FAILED", "Password must be %d to %d characters", ErrInvalidPassword,
			af.security.PasswordMinLength, af.security.PasswordMaxLength)
	}
	return nil
}

// Login reports unknown emails and wrong passwords alike
func (af *AuthFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.TokenResponse, error) {
	if request == nil {
		return nil, ErrIncorrectPassword
	}

	user, err := af.userRepo.ByEmail(ctx, request.Email)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, ErrIncorrectPassword
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}

	if !utils.IsTrue(user.IsActive) {
		return nil, ErrAccountInactive
	}

	tokens, err := af.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}

	if err := af.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		log.Printf("Failed to update last login for user %d: %v", user.ID, err)
	}
	if metadata != nil {
		log.Printf("User logged in: id=%d ip=%s request_id=%s", user.ID, metadata.IPAddress, metadata.RequestID)
	}

	return tokens, nil
}

func (af *AuthFlowImpl) Refresh(ctx context.Context, request *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	if request == nil || request.RefreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := af.tokenService.ValidateToken(request.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Invalid refresh token", errors.Join(ErrInvalidRefreshToken, err))
	}
	if claims.TokenType != services.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	user, err := af.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, ErrInvalidRefreshToken
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, ErrAccountInactive
	}

	return af.issueTokens(user.ID)
}

func (af *AuthFlowImpl) issueTokens(userID uint) (*dto.TokenResponse, error) {
	access, refresh, err := af.tokenService.GenerateTokens(userID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(af.tokenService.AccessTokenTTL().Seconds()),
	}, nil
}

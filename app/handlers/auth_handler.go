package handlers

import (
	"log"

	"github.com/amirphl/shorty/app/dto"
	businessflow "github.com/amirphl/shorty/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Register(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authFlow  businessflow.AuthFlow
	validator *validator.Validate
}

func NewAuthHandler(authFlow businessflow.AuthFlow) AuthHandlerInterface {
	return &AuthHandler{
		authFlow:  authFlow,
		validator: newValidator(),
	}
}

// Register creates an account
// @Summary User Registration
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration data"
// @Success 201 {object} dto.APIResponse{data=dto.UserInfo} "User registered"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Email or username already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/register")
	defer cancel()

	result, err := h.authFlow.Register(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsEmailAlreadyExists(err):
			return ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		case businessflow.IsUsernameAlreadyExists(err):
			return ErrorResponse(c, fiber.StatusConflict, "Username already exists", "USERNAME_EXISTS", nil)
		case businessflow.IsInvalidUsername(err):
			return ErrorResponse(c, fiber.StatusBadRequest, "Invalid username", "INVALID_USERNAME", nil)
		case businessflow.IsInvalidPassword(err):
			return ErrorResponse(c, fiber.StatusBadRequest, "Password length is out of range", "INVALID_PASSWORD", nil)
		}
		log.Println("Register failed", err)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Registration failed", "REGISTRATION_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusCreated, "User registered successfully", result)
}

// Login exchanges credentials for a token pair
// @Summary User Login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Account inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.authFlow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsIncorrectPassword(err):
			return ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		case businessflow.IsAccountInactive(err):
			return ErrorResponse(c, fiber.StatusForbidden, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		log.Println("Login failed", err)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Refresh issues a new token pair from a refresh token
// @Summary Refresh Tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Tokens refreshed"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Failure 403 {object} dto.APIResponse "Account inactive"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/refresh")
	defer cancel()

	result, err := h.authFlow.Refresh(ctx, &req)
	if err != nil {
		switch {
		case businessflow.IsInvalidRefreshToken(err):
			return ErrorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", "INVALID_REFRESH_TOKEN", nil)
		case businessflow.IsAccountInactive(err):
			return ErrorResponse(c, fiber.StatusForbidden, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		log.Println("Token refresh failed", err)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Token refresh failed", "TOKEN_REFRESH_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusOK, "Tokens refreshed successfully", result)
}

// Package businessflow contains the core business logic: redirects, short link management and authentication
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Short link errors
	ErrShortLinkNotFound         = errors.New("short link not found")
	ErrShortLinkExpired          = errors.New("short link has expired")
	ErrInvalidShortCode          = errors.New("invalid short code format")
	ErrInvalidAlias              = errors.New("custom alias must be 3 to 10 characters from [a-zA-Z0-9]")
	ErrAliasTaken                = errors.New("custom alias is already taken")
	ErrAuthRequired              = errors.New("authentication required")
	ErrShortLinkAccessDenied     = errors.New("short link access denied")
	ErrShortCodeGenerationFailed = errors.New("failed to generate a unique short code, please try again")
	ErrInvalidLongURL            = errors.New("long_url must be an absolute http or https URL")
	ErrExpiryInPast              = errors.New("expires_at must be in the future")

	// Pagination errors
	ErrInvalidPage     = errors.New("page must be >= 1")
	ErrInvalidPageSize = errors.New("page_size must be between 1 and 100")

	// Account errors
	ErrEmailAlreadyExists    = errors.New("email already registered")
	ErrUsernameAlreadyExists = errors.New("username already taken")
	ErrIncorrectPassword     = errors.New("incorrect email or password")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrInvalidRefreshToken   = errors.New("invalid or expired refresh token")
	ErrInvalidUsername       = errors.New("username must be 3 to 50 characters of letters, digits, _ or -")
	ErrInvalidPassword       = errors.New("password length is out of range")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsShortLinkNotFound(err error) bool {
	return errors.Is(err, ErrShortLinkNotFound)
}

func IsShortLinkExpired(err error) bool {
	return errors.Is(err, ErrShortLinkExpired)
}

func IsInvalidShortCode(err error) bool {
	return errors.Is(err, ErrInvalidShortCode)
}

func IsInvalidAlias(err error) bool {
	return errors.Is(err, ErrInvalidAlias)
}

func IsAliasTaken(err error) bool {
	return errors.Is(err, ErrAliasTaken)
}

func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}

func IsShortLinkAccessDenied(err error) bool {
	return errors.Is(err, ErrShortLinkAccessDenied)
}

func IsShortCodeGenerationFailed(err error) bool {
	return errors.Is(err, ErrShortCodeGenerationFailed)
}

func IsInvalidLongURL(err error) bool {
	return errors.Is(err, ErrInvalidLongURL)
}

func IsExpiryInPast(err error) bool {
	return errors.Is(err, ErrExpiryInPast)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsUsernameAlreadyExists(err error) bool {
	return errors.Is(err, ErrUsernameAlreadyExists)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsInvalidRefreshToken(err error) bool {
	return errors.Is(err, ErrInvalidRefreshToken)
}

func IsInvalidUsername(err error) bool {
	return errors.Is(err, ErrInvalidUsername)
}

func IsInvalidPassword(err error) bool {
	return errors.Is(err, ErrInvalidPassword)
}

// IsValidationError reports errors caused by bad input that a retry will not fix
func IsValidationError(err error) bool {
	return IsInvalidShortCode(err) || IsInvalidAlias(err) || IsInvalidLongURL(err) ||
		IsExpiryInPast(err) || IsInvalidPage(err) || IsInvalidPageSize(err) ||
		IsInvalidUsername(err) || IsInvalidPassword(err)
}

// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	businessflow "github.com/amirphl/shorty/business_flow"
	"github.com/amirphl/shorty/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultRequestTimeout = 10 * time.Second

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// ErrorResponse writes the failure envelope
func ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse writes the success envelope
func SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// newValidator returns a validator with the short_code and username tags registered
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("short_code", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for i := 0; i < len(value); i++ {
			if strings.IndexByte(services.Base62Alphabet, value[i]) < 0 {
				return false
			}
		}
		return true
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// validate runs struct validation and renders failures as a 400 response.
// ok is false when the request was rejected; err is the write error, if any.
func validate(c fiber.Ctx, v *validator.Validate, req any) (ok bool, err error) {
	verr := v.Struct(req)
	if verr == nil {
		return true, nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(verr, &fieldErrors) {
		return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", verr.Error())
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

// createRequestContext derives a bounded context carrying request scoped values.
// Callers must invoke the returned cancel function.
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context(), defaultRequestTimeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, defaultRequestTimeout)
	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get("X-Request-ID")
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetReferer(c.Get("Referer"))
	metadata.SetRequestID(requestID(c))
	return metadata
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "http_url":
		return err.Field() + " must be an absolute http or https URL"
	case "short_code":
		return err.Field() + " must contain only letters and digits"
	case "username":
		return "Username must be 3 to 50 letters, digits, underscores or hyphens"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

package handlers

import (
	"fmt"
	"log"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/middleware"
	businessflow "github.com/amirphl/shorty/business_flow"
	"github.com/amirphl/shorty/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ShortLinkHandlerInterface defines the contract for short link handlers
type ShortLinkHandlerInterface interface {
	Redirect(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Info(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
	ExportClicks(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// ShortLinkHandler serves the redirect endpoint and the short link API
type ShortLinkHandler struct {
	redirectFlow  businessflow.RedirectFlow
	shortLinkFlow businessflow.ShortLinkFlow
	validator     *validator.Validate
}

func NewShortLinkHandler(redirectFlow businessflow.RedirectFlow, shortLinkFlow businessflow.ShortLinkFlow) ShortLinkHandlerInterface {
	return &ShortLinkHandler{
		redirectFlow:  redirectFlow,
		shortLinkFlow: shortLinkFlow,
		validator:     newValidator(),
	}
}

// Redirect resolves a short code and redirects to the long URL
// @Summary Follow Short Link
// @Tags ShortLinks
// @Param code path string true "Short code"
// @Success 307 {string} string "Redirect"
// @Failure 404 {object} dto.APIResponse "Short link not found"
// @Failure 410 {object} dto.APIResponse "Short link expired"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /{code} [get]
func (h *ShortLinkHandler) Redirect(c fiber.Ctx) error {
	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/"+code)
	defer cancel()

	longURL, err := h.redirectFlow.Resolve(ctx, code, clientMetadata(c))
	if err != nil {
		return h.writeError(c, err, "Redirect failed", "REDIRECT_FAILED")
	}
	return c.Redirect().Status(fiber.StatusTemporaryRedirect).To(longURL)
}

// Create shortens a URL
// @Summary Create Short Link
// @Description Anonymous callers get a random code; custom aliases require a bearer token
// @Tags ShortLinks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateShortLinkRequest true "Short link data"
// @Success 201 {object} dto.APIResponse{data=dto.ShortLinkResponse} "Short link created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Custom alias requires authentication"
// @Failure 409 {object} dto.APIResponse "Alias already taken"
// @Failure 429 {object} dto.APIResponse "Rate limit exceeded"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/urls [post]
func (h *ShortLinkHandler) Create(c fiber.Ctx) error {
	var req dto.CreateShortLinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	var ownerID *uint
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		ownerID = &userID
	}

	ctx, cancel := createRequestContext(c, "/api/v1/urls")
	defer cancel()

	result, err := h.shortLinkFlow.Create(ctx, &req, ownerID)
	if err != nil {
		return h.writeError(c, err, "Failed to create short link", "SHORT_LINK_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Short link created successfully", result)
}

// List returns the caller's links, newest first
// @Summary List My Short Links
// @Tags ShortLinks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ShortLinkListResponse} "Short links retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid pagination"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/urls [get]
func (h *ShortLinkHandler) List(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.ListShortLinksRequest
	if err := c.Bind().Query(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if c.Query("page") == "" {
		req.Page = 1
	}
	if c.Query("page_size") == "" {
		req.PageSize = utils.DefaultPageSize
	}

	ctx, cancel := createRequestContext(c, "/api/v1/urls")
	defer cancel()

	result, err := h.shortLinkFlow.ListMine(ctx, userID, req.Page, req.PageSize)
	if err != nil {
		return h.writeError(c, err, "Failed to list short links", "SHORT_LINK_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Short links retrieved successfully", result)
}

// Info returns a link without counting a click
// @Summary Get Short Link
// @Tags ShortLinks
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} dto.APIResponse{data=dto.ShortLinkResponse} "Short link retrieved"
// @Failure 404 {object} dto.APIResponse "Short link not found"
// @Failure 410 {object} dto.APIResponse "Short link expired"
// @Router /api/v1/urls/{code} [get]
func (h *ShortLinkHandler) Info(c fiber.Ctx) error {
	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/urls/"+code)
	defer cancel()

	result, err := h.redirectFlow.Lookup(ctx, code)
	if err != nil {
		return h.writeError(c, err, "Failed to get short link", "SHORT_LINK_LOOKUP_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Short link retrieved successfully", result)
}

// Stats returns click statistics for a link the caller owns
// @Summary Short Link Statistics
// @Tags ShortLinks
// @Produce json
// @Security BearerAuth
// @Param code path string true "Short code"
// @Success 200 {object} dto.APIResponse{data=dto.ShortLinkStatsResponse} "Statistics retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Not the owner"
// @Failure 404 {object} dto.APIResponse "Short link not found"
// @Router /api/v1/urls/{code}/stats [get]
func (h *ShortLinkHandler) Stats(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/urls/"+code+"/stats")
	defer cancel()

	result, err := h.shortLinkFlow.Stats(ctx, userID, code)
	if err != nil {
		return h.writeError(c, err, "Failed to get statistics", "SHORT_LINK_STATS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Statistics retrieved successfully", result)
}

// ExportClicks downloads the click events of a link as an Excel workbook
// @Summary Export Clicks
// @Tags ShortLinks
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param code path string true "Short code"
// @Success 200 {file} file "Excel workbook"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Not the owner"
// @Failure 404 {object} dto.APIResponse "Short link not found"
// @Router /api/v1/urls/{code}/clicks/export [get]
func (h *ShortLinkHandler) ExportClicks(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/urls/"+code+"/clicks/export")
	defer cancel()

	filename, data, err := h.shortLinkFlow.ExportClicks(ctx, userID, code)
	if err != nil {
		return h.writeError(c, err, "Failed to export clicks", "CLICK_EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Status(fiber.StatusOK).Send(data)
}

// Delete deactivates a link the caller owns
// @Summary Delete Short Link
// @Tags ShortLinks
// @Security BearerAuth
// @Param code path string true "Short code"
// @Success 204 "Deleted"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Not the owner"
// @Failure 404 {object} dto.APIResponse "Short link not found"
// @Router /api/v1/urls/{code} [delete]
func (h *ShortLinkHandler) Delete(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	code := c.Params("code")
	ctx, cancel := createRequestContext(c, "/api/v1/urls/"+code)
	defer cancel()

	if err := h.shortLinkFlow.Delete(ctx, userID, code); err != nil {
		return h.writeError(c, err, "Failed to delete short link", "SHORT_LINK_DELETE_FAILED")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ShortLinkHandler) writeError(c fiber.Ctx, err error, message, code string) error {
	switch {
	case businessflow.IsInvalidShortCode(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid short code", "INVALID_SHORT_CODE", nil)
	case businessflow.IsInvalidAlias(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "Custom alias must be 3 to 10 letters or digits", "INVALID_ALIAS", nil)
	case businessflow.IsInvalidLongURL(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "URL must be an absolute http or https URL", "INVALID_URL", nil)
	case businessflow.IsExpiryInPast(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "Expiry must be in the future", "EXPIRY_IN_PAST", nil)
	case businessflow.IsInvalidPage(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "Page must be at least 1", "INVALID_PAGE", nil)
	case businessflow.IsInvalidPageSize(err):
		return ErrorResponse(c, fiber.StatusBadRequest, fmt.Sprintf("Page size must be between 1 and %d", utils.MaxPageSize), "INVALID_PAGE_SIZE", nil)
	case businessflow.IsAuthRequired(err):
		return ErrorResponse(c, fiber.StatusUnauthorized, "Custom aliases require authentication", "AUTHENTICATION_REQUIRED", nil)
	case businessflow.IsShortLinkAccessDenied(err):
		return ErrorResponse(c, fiber.StatusForbidden, "You do not own this short link", "ACCESS_DENIED", nil)
	case businessflow.IsShortLinkNotFound(err):
		return ErrorResponse(c, fiber.StatusNotFound, "Short link not found", "SHORT_LINK_NOT_FOUND", nil)
	case businessflow.IsAliasTaken(err):
		return ErrorResponse(c, fiber.StatusConflict, "Alias already taken", "ALIAS_TAKEN", nil)
	case businessflow.IsShortLinkExpired(err):
		return ErrorResponse(c, fiber.StatusGone, "Short link has expired", "SHORT_LINK_EXPIRED", nil)
	case businessflow.IsShortCodeGenerationFailed(err):
		log.Println("Short code generation failed", err)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Could not allocate a short code, please retry", "SHORT_CODE_GENERATION_FAILED", nil)
	}

	log.Println(message, err)
	return ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/amirphl/shorty/utils"
	"github.com/gofiber/fiber/v3"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandlerInterface defines the contract for health endpoints
type HealthHandlerInterface interface {
	Health(c fiber.Ctx) error
	Live(c fiber.Ctx) error
	Ready(c fiber.Ctx) error
}

// HealthHandler reports liveness and dependency readiness
type HealthHandler struct {
	version string
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthHandler(version string, checks map[string]HealthCheck) HealthHandlerInterface {
	return &HealthHandler{version: version, checks: checks, timeout: 2 * time.Second}
}

// Health reports that the process is serving
// @Summary Health Check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Service is healthy"
// @Router /health [get]
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return SuccessResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"version":   h.version,
		"service":   "shorty",
	})
}

// Live is the liveness probe
// @Summary Liveness Probe
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Alive"
// @Router /health/live [get]
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return SuccessResponse(c, fiber.StatusOK, "Service is alive", fiber.Map{"status": "alive"})
}

// Ready pings every dependency and answers 503 when one fails
// @Summary Readiness Probe
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Ready"
// @Failure 503 {object} dto.APIResponse "A dependency is unavailable"
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(fiber.Map, len(names))
	ready := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = "unavailable: " + err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "Service is not ready", "NOT_READY", results)
	}
	return SuccessResponse(c, fiber.StatusOK, "Service is ready", results)
}

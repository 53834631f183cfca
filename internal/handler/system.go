package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/videodub/api/internal/model"
	"github.com/videodub/api/internal/service"
	"github.com/videodub/api/pkg/response"
)

type SystemHandler struct {
	dubbing  *service.DubbingService
	services map[string]bool
	missing  []string
}

// NewSystemHandler takes the configured state of each collaborator and the
// required configuration keys that are absent.
func NewSystemHandler(dubbing *service.DubbingService, services map[string]bool, missing []string) *SystemHandler {
	return &SystemHandler{
		dubbing:  dubbing,
		services: services,
		missing:  missing,
	}
}

// Root handles GET /
func (h *SystemHandler) Root(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"service":   "video-dubbing-api",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Health handles GET /health
// @Summary      Health check
// @Description  Report collaborator configuration and missing API keys
// @Tags         System
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      503 {object} map[string]interface{}
// @Router       /health [get]
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	if len(h.missing) > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":         "unhealthy",
			"missing_config": h.missing,
			"services":       h.services,
		})
	}
	return response.OK(c, fiber.Map{
		"status":   "healthy",
		"services": h.services,
	})
}

// Languages handles GET /api/languages
// @Summary      Supported languages
// @Tags         System
// @Produce      json
// @Success      200 {object} model.LanguagesResponse
// @Router       /api/languages [get]
func (h *SystemHandler) Languages(c *fiber.Ctx) error {
	return response.OK(c, model.LanguagesResponse{Languages: h.dubbing.SupportedLanguages()})
}

// DemoVideo handles GET /api/demo-video
func (h *SystemHandler) DemoVideo(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"demo_video_url": model.PlaceholderVideoURL,
		"message":        "Demo video for AI dubbing showcase",
		"note":           "This represents the original video that would be dubbed",
	})
}

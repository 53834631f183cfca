package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/videodub/api/internal/model"
	"github.com/videodub/api/internal/service"
	"github.com/videodub/api/pkg/response"
)

type VoiceHandler struct {
	dubbing *service.DubbingService
}

func NewVoiceHandler(dubbing *service.DubbingService) *VoiceHandler {
	return &VoiceHandler{dubbing: dubbing}
}

// List handles GET /api/voices
// @Summary      List voices
// @Description  List synthesis voices, optionally only those usable for a language
// @Tags         Voices
// @Produce      json
// @Param        language query string false "ISO 639-1 language code"
// @Success      200 {object} model.VoicesResponse
// @Router       /api/voices [get]
func (h *VoiceHandler) List(c *fiber.Ctx) error {
	language := strings.ToLower(strings.TrimSpace(c.Query("language")))
	return response.OK(c, model.VoicesResponse{Voices: h.dubbing.AvailableVoices(c.Context(), language)})
}

// Delete handles DELETE /api/voices/:voiceId
// @Summary      Delete voice
// @Description  Delete a voice, typically one cloned for an earlier job
// @Tags         Voices
// @Param        voiceId path string true "Voice ID"
// @Success      204
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/voices/{voiceId} [delete]
func (h *VoiceHandler) Delete(c *fiber.Ctx) error {
	voiceID := c.Params("voiceId")
	if voiceID == "" {
		return response.ValidationError(c, "Voice ID is required", nil)
	}
	if model.IsDemoVoice(voiceID) {
		return response.ValidationError(c, "Demo voices cannot be deleted", nil)
	}

	if err := h.dubbing.DeleteVoice(c.Context(), voiceID); err != nil {
		return serviceError(c, err)
	}

	return response.NoContent(c)
}

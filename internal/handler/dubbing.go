package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/videodub/api/internal/model"
	"github.com/videodub/api/internal/service"
	"github.com/videodub/api/pkg/response"
)

type DubbingHandler struct {
	jobs      *service.JobService
	dubbing   *service.DubbingService
	supported []string
	validator *validator.Validate
}

func NewDubbingHandler(jobs *service.JobService, dubbing *service.DubbingService, supported []string, v *validator.Validate) *DubbingHandler {
	return &DubbingHandler{
		jobs:      jobs,
		dubbing:   dubbing,
		supported: supported,
		validator: v,
	}
}

// DubVideo handles POST /api/dub-video
// @Summary      Start dubbing job
// @Description  Start an asynchronous dubbing job for a video URL
// @Tags         Dubbing
// @Accept       json
// @Produce      json
// @Param        request body model.DubRequest true "Dubbing request"
// @Success      202 {object} model.DubStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/dub-video [post]
func (h *DubbingHandler) DubVideo(c *fiber.Ctx) error {
	var req model.DubRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	req.TargetLanguage = strings.ToLower(strings.TrimSpace(req.TargetLanguage))

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.jobs.Submit(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedLanguage) {
			return response.UnsupportedLanguage(c, "Unsupported target language: "+req.TargetLanguage, h.supported)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// JobStatus handles GET /api/job-status/:jobId
// @Summary      Get dubbing job status
// @Description  Get the status, progress and result of a dubbing job
// @Tags         Dubbing
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.DubbingJob
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/job-status/{jobId} [get]
func (h *DubbingHandler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.jobs.Status(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, job)
}

// PreviewTranslation handles POST /api/preview-translation
// @Summary      Preview translation
// @Description  Transcribe and translate a video without generating audio
// @Tags         Dubbing
// @Accept       json
// @Produce      json
// @Param        request body model.PreviewRequest true "Preview request"
// @Success      200 {object} model.PreviewResult
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/preview-translation [post]
func (h *DubbingHandler) PreviewTranslation(c *fiber.Ctx) error {
	var req model.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	req.TargetLanguage = strings.ToLower(strings.TrimSpace(req.TargetLanguage))

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	if !h.isSupported(req.TargetLanguage) {
		return response.UnsupportedLanguage(c, "Unsupported target language: "+req.TargetLanguage, h.supported)
	}

	result, err := h.dubbing.PreviewTranslation(c.Context(), req.VideoURL, req.TargetLanguage)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Search handles GET /api/videos/:videoId/search
// @Summary      Search spoken content
// @Description  Find the shots of an uploaded video whose speech matches a query
// @Tags         Dubbing
// @Produce      json
// @Param        videoId path string true "Video ID"
// @Param        q query string true "Search query"
// @Success      200 {object} model.SearchResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/videos/{videoId}/search [get]
func (h *DubbingHandler) Search(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	query := strings.TrimSpace(c.Query("q"))
	if videoID == "" || query == "" {
		return response.ValidationError(c, "Video ID and query are required", nil)
	}

	shots, err := h.dubbing.SearchSpokenContent(c.Context(), videoID, query)
	if err != nil {
		return serviceError(c, err)
	}
	if shots == nil {
		shots = []model.Shot{}
	}

	return response.OK(c, model.SearchResponse{VideoID: videoID, Query: query, Shots: shots})
}

func (h *DubbingHandler) isSupported(code string) bool {
	for _, s := range h.supported {
		if s == code {
			return true
		}
	}
	return false
}

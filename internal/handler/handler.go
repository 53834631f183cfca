package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/videodub/api/internal/client"
	"github.com/videodub/api/internal/service"
	"github.com/videodub/api/pkg/response"
)

func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return nil
}

// serviceError maps pipeline and collaborator errors to responses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, service.ErrTranslationRateLimited):
		return response.RateLimited(c, service.ErrTranslationRateLimited.Error())
	case errors.Is(err, service.ErrTranslationAuth),
		errors.Is(err, service.ErrMalformedBatch),
		errors.Is(err, client.ErrVoiceAuth):
		return response.AIError(c, err.Error())
	case errors.Is(err, client.ErrNotConfigured):
		return response.Unavailable(c, err.Error())
	}

	if status := client.StatusOf(err); status == fiber.StatusNotFound {
		return response.NotFound(c, err.Error())
	} else if status != 0 {
		return response.AIError(c, err.Error())
	}
	return response.ServiceError(c, err.Error())
}

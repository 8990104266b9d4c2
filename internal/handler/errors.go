package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/internal/store"
	"github.com/wildmind/studio-api/pkg/response"
)

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return err.Error()
}

// writeError maps service and client errors onto the error envelope.
func writeError(c *fiber.Ctx, err error) error {
	var apiErr *client.APIError

	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, store.ErrNotFound):
		return response.NotFound(c, "Set not found")
	case errors.Is(err, service.ErrJobNotCompleted):
		return response.Conflict(c, "Job not completed yet")
	case errors.Is(err, service.ErrJobAlreadyFinished):
		return response.Conflict(c, "Job already finished")
	case errors.Is(err, service.ErrJobConflict):
		return response.Conflict(c, "Job is being updated, retry")

	case errors.Is(err, service.ErrPromptTooShort),
		errors.Is(err, service.ErrPromptTooLong),
		errors.Is(err, service.ErrMissingReference),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidModel),
		errors.Is(err, service.ErrUnsupportedType),
		errors.Is(err, service.ErrFileTooLarge):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, service.ErrHostNotAllowed):
		return response.Forbidden(c, err.Error())

	case errors.Is(err, service.ErrVideoFailed),
		errors.Is(err, service.ErrPollExhausted),
		errors.Is(err, client.ErrFluxModerated),
		errors.Is(err, client.ErrNoImageURL),
		errors.Is(err, client.ErrNoDownloadURL):
		return response.GenerationFailed(c, err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return response.Error(c, fiber.StatusServiceUnavailable, response.CodeUpstreamError, "Upstream temporarily unavailable", nil)
	case errors.As(err, &apiErr), errors.Is(err, client.ErrFluxTimeout):
		return response.UpstreamError(c, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return response.Error(c, fiber.StatusGatewayTimeout, response.CodeUpstreamError, "Upstream timed out", nil)
	}

	log.WithError(err).WithField("path", c.Path()).Error("Unhandled request error")
	return response.ServiceError(c, err.Error())
}

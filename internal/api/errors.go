package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
)

var errSessionNotFound = errors.New("onboarding session not found")

// statusFor maps domain and onboarding errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, onboarding.ErrDraftNotFound),
		errors.Is(err, errSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, onboarding.ErrClosed):
		return fiber.StatusGone
	case errors.Is(err, onboarding.ErrSlugTaken),
		errors.Is(err, onboarding.ErrSlugChecking),
		errors.Is(err, onboarding.ErrBusy),
		errors.Is(err, onboarding.ErrBackNotAllowed),
		errors.Is(err, onboarding.ErrWrongStep),
		errors.Is(err, onboarding.ErrNoIdentity),
		errors.Is(err, onboarding.ErrDraftCommitted),
		errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every failure as {"error": message}. A partial completion
// also carries the per-draft outcomes so the client can retry.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var partial *onboarding.PartialCompletionError
	if errors.As(err, &partial) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": partial.Error(),
			"data":  partial.Result,
		})
	}

	status := statusFor(err)
	body := fiber.Map{"error": err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["error"] = verr.Message
		body["field"] = verr.Field
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(body)
}

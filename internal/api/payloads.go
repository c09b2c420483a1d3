package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/mapsync"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
)

type accountPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type slugPayload struct {
	Slug string `json:"slug" form:"slug" validate:"max=200"`
}

type profilePayload struct {
	FullName string `json:"fullName" form:"fullName" validate:"required,max=120"`
	Slug     string `json:"slug" form:"slug" validate:"required,max=200"`
	HomeCity string `json:"homeCity" form:"homeCity" validate:"required,max=120"`
}

type draftPayload struct {
	City        *string  `json:"city" validate:"omitempty,max=120"`
	Region      *string  `json:"region" validate:"omitempty,max=120"`
	Country     *string  `json:"country" validate:"omitempty,max=120"`
	Lat         *float64 `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lng         *float64 `json:"lng" validate:"omitempty,min=-180,max=180"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Note        *string  `json:"note" validate:"omitempty,max=2000"`
	TakenAt     *string  `json:"takenAt"`
	Visibility  *string  `json:"visibility" validate:"omitempty,oneof=public private"`
}

// patch converts the payload; takenAt accepts a calendar date or RFC 3339.
func (p draftPayload) patch() (onboarding.DraftPatch, error) {
	out := onboarding.DraftPatch{
		City:        p.City,
		Region:      p.Region,
		Country:     p.Country,
		Lat:         p.Lat,
		Lng:         p.Lng,
		Description: p.Description,
		Note:        p.Note,
	}
	if p.Visibility != nil {
		v := domain.Visibility(*p.Visibility)
		out.Visibility = &v
	}
	if p.TakenAt != nil && strings.TrimSpace(*p.TakenAt) != "" {
		raw := strings.TrimSpace(*p.TakenAt)
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			if t, err = time.Parse(time.RFC3339, raw); err != nil {
				return onboarding.DraftPatch{}, domain.Invalid("takenAt", "use YYYY-MM-DD or RFC 3339")
			}
		}
		out.TakenAt = &t
	}
	return out, nil
}

type mapDiffPayload struct {
	Markers          []mapsync.Marker `json:"markers" validate:"dive"`
	Pins             []domain.Pin     `json:"pins" validate:"dive"`
	ActiveID         string           `json:"activeId"`
	PreviousActiveID string           `json:"previousActiveId"`
	Zoom             float64          `json:"zoom" validate:"min=0,max=24"`
}

// bind parses the body into dst and runs its validate tags.
func (s *Server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	return s.check(dst)
}

func (s *Server) check(dst any) error {
	err := s.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return domain.Invalid(fieldName(verrs[0]), fieldMessage(verrs[0]))
}

func fieldName(e validator.FieldError) string {
	f := e.Field()
	if f == "" {
		return ""
	}
	return strings.ToLower(f[:1]) + f[1:]
}

func fieldMessage(e validator.FieldError) string {
	field := fieldName(e)
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

package api

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/media"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
)

func (s *Server) wizard(c *fiber.Ctx) (*onboarding.Wizard, error) {
	return s.sessions.get(c.Params("sid"))
}

func (s *Server) handleStartOnboarding(c *fiber.Ctx) error {
	id, w := s.sessions.create()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"session": id, "state": w.State()},
	})
}

func (s *Server) handleOnboardingState(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": w.State()})
}

func (s *Server) handleDiscardOnboarding(c *fiber.Ctx) error {
	if !s.sessions.remove(c.Params("sid")) {
		return errSessionNotFound
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleAccount(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	var payload accountPayload
	if err := s.bind(c, &payload); err != nil {
		return err
	}

	id, err := w.SubmitAccount(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	out := fiber.Map{"identity": id, "step": w.Step()}
	if s.deps.Tokens != nil {
		token, err := s.deps.Tokens.Issue(id)
		if err != nil {
			return err
		}
		out["token"] = token
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": out})
}

func (s *Server) handleSetSlug(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	var payload slugPayload
	if err := s.bind(c, &payload); err != nil {
		return err
	}
	w.SetSlug(payload.Slug)
	slug, status := w.SlugStatus()
	return c.JSON(fiber.Map{"data": fiber.Map{"slug": slug, "status": status}})
}

func (s *Server) handleSlugStatus(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	slug, status := w.SlugStatus()
	return c.JSON(fiber.Map{"data": fiber.Map{"slug": slug, "status": status}})
}

// handleProfile accepts JSON or a multipart form with an optional "avatar" file.
func (s *Server) handleProfile(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}

	var payload profilePayload
	var avatar *media.Photo
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		payload.FullName = c.FormValue("fullName")
		payload.Slug = c.FormValue("slug")
		payload.HomeCity = c.FormValue("homeCity")
		if err := s.check(&payload); err != nil {
			return err
		}
		if fh, err := c.FormFile("avatar"); err == nil {
			p, err := readPhoto(fh)
			if err != nil {
				return err
			}
			avatar = &p
		}
	} else if err := s.bind(c, &payload); err != nil {
		return err
	}

	prof, err := w.SubmitProfile(c.UserContext(), onboarding.ProfileForm{
		FullName: payload.FullName,
		Slug:     payload.Slug,
		HomeCity: payload.HomeCity,
		Avatar:   avatar,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"profile": prof, "step": w.Step()}})
}

func (s *Server) handleBack(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	step, err := w.Back()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"step": step}})
}

func (s *Server) handleAddDraft(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	_, added, err := w.AddDraft()
	if err != nil {
		return err
	}
	drafts := w.Drafts()
	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"data": drafts,
		"meta": fiber.Map{"count": len(drafts), "added": added},
	})
}

func (s *Server) handleUpdateDraft(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	var payload draftPayload
	if err := s.bind(c, &payload); err != nil {
		return err
	}
	patch, err := payload.patch()
	if err != nil {
		return err
	}
	view, err := w.UpdateDraft(c.Params("key"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

func (s *Server) handleRemoveDraft(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	removed, err := w.RemoveDraft(c.Params("key"))
	if err != nil {
		return err
	}
	drafts := w.Drafts()
	return c.JSON(fiber.Map{
		"data": drafts,
		"meta": fiber.Map{"count": len(drafts), "removed": removed},
	})
}

func (s *Server) handleDraftPhoto(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return domain.Invalid("photo", "attach an image as the \"photo\" form field")
	}
	p, err := readPhoto(fh)
	if err != nil {
		return err
	}
	view, err := w.AttachPhoto(c.Params("key"), p)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

func (s *Server) handleComplete(c *fiber.Ctx) error {
	w, err := s.wizard(c)
	if err != nil {
		return err
	}
	result, err := w.Complete(c.UserContext())
	if err != nil {
		var partial *onboarding.PartialCompletionError
		if errors.As(err, &partial) {
			s.logger.Warn("onboarding completed partially",
				zap.String("session", c.Params("sid")),
				zap.Int("committed", result.Committed()),
				zap.Int("total", result.Total))
		}
		return err
	}

	return c.JSON(fiber.Map{"data": result})
}

func readPhoto(fh *multipart.FileHeader) (media.Photo, error) {
	f, err := fh.Open()
	if err != nil {
		return media.Photo{}, domain.Invalid("photo", "unreadable upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return media.Photo{}, domain.Invalid("photo", "unreadable upload")
	}
	return media.Photo{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

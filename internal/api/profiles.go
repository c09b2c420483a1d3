package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/mapsync"
)

func (s *Server) handleProfilePage(c *fiber.Ctx) error {
	page, err := s.profiles.Load(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": page, "meta": fiber.Map{"count": len(page.Pins)}})
}

// handleMemoryCards lists the cards at a place. The owner, identified by a
// bearer token, also sees private memories.
func (s *Server) handleMemoryCards(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page, err := s.profiles.Load(ctx, c.Params("slug"))
	if err != nil {
		return err
	}

	includePrivate := false
	if s.deps.Tokens != nil && c.Get(fiber.HeaderAuthorization) != "" {
		if claims, err := s.deps.Tokens.Verify(c.Get(fiber.HeaderAuthorization)); err == nil {
			includePrivate = claims.Subject == page.Profile.UserID
		}
	}

	cards, err := s.profiles.Cards(ctx, page.Profile.UserID, c.Params("placeID"), includePrivate)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cards, "meta": fiber.Map{"count": len(cards)}})
}

func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	if s.deps.Tokens == nil {
		return domain.ErrUnauthorized
	}
	claims, err := s.deps.Tokens.Verify(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	res, err := s.profiles.DeleteMemory(c.UserContext(), claims.Subject, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

// handleMapDiff runs the marker reconciliation and camera plan for a client
// that renders the map itself.
func (s *Server) handleMapDiff(c *fiber.Ctx) error {
	var payload mapDiffPayload
	if err := s.bind(c, &payload); err != nil {
		return err
	}

	ops := mapsync.Reconcile(payload.Markers, payload.Pins, payload.ActiveID)
	out := fiber.Map{
		"ops":     ops,
		"markers": mapsync.Apply(payload.Markers, ops),
		"camera":  nil,
	}
	if move, ok := mapsync.PlanCamera(payload.PreviousActiveID, payload.ActiveID, payload.Pins, payload.Zoom, s.cfg.MinZoom); ok {
		out["camera"] = move
	}
	return c.JSON(fiber.Map{"data": out})
}

func (s *Server) handleMedia(c *fiber.Ctx) error {
	path := strings.TrimLeft(c.Params("*"), "/")
	if path == "" {
		return domain.ErrNotFound
	}
	data, contentType, err := s.deps.Files.Get(c.UserContext(), path)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return domain.ErrNotFound
		}
		return err
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}

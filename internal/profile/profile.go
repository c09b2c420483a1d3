// Package profile serves the public profile page: the profile, its pins and the
// memory cards of the selected place.
package profile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
)

// Page is what the profile route renders.
type Page struct {
	Profile   domain.Profile `json:"profile"`
	AvatarURL string         `json:"avatarUrl,omitempty"`
	Pins      []domain.Pin   `json:"pins"`
}

// DeleteResult reports the side effects of a memory delete.
type DeleteResult struct {
	MemoryID     string   `json:"memoryId"`
	PlaceID      string   `json:"placeId"`
	RemovedBlobs []string `json:"removedBlobs"`
	PinRemoved   bool     `json:"pinRemoved"`
}

// Service reads and prunes profile data.
type Service struct {
	backend platform.Backend
	logger  *zap.Logger
}

// NewService wires a Service to its backend.
func NewService(backend platform.Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, logger: logger}
}

// Load resolves a profile by slug, case-insensitively, together with its pins.
func (s *Service) Load(ctx context.Context, rawSlug string) (Page, error) {
	slug := domain.NormalizeSlug(rawSlug)
	if slug == "" {
		return Page{}, domain.ErrNotFound
	}

	p, err := s.backend.Profiles.ProfileBySlug(ctx, slug)
	if err != nil {
		return Page{}, fmt.Errorf("load profile %q: %w", slug, err)
	}

	pins, err := s.backend.Pins.PinsForUser(ctx, p.UserID)
	if err != nil {
		return Page{}, fmt.Errorf("load pins: %w", err)
	}

	page := Page{Profile: p, Pins: pins}
	if p.AvatarPath != "" {
		page.AvatarURL = s.backend.Blobs.PublicURL(p.AvatarPath)
	}
	return page, nil
}

// Cards lists the memories at a place, newest first, each with its first media item as cover.
// Private memories are only included when includePrivate is set.
func (s *Service) Cards(ctx context.Context, userID, placeID string, includePrivate bool) ([]domain.MemoryCard, error) {
	memories, err := s.backend.Memories.MemoriesForPlace(ctx, userID, placeID)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}

	cards := make([]domain.MemoryCard, 0, len(memories))
	for _, m := range memories {
		if m.Visibility == domain.VisibilityPrivate && !includePrivate {
			continue
		}
		card := domain.MemoryCard{
			MemoryID:    m.ID,
			PlaceID:     m.PlaceID,
			Description: m.Description,
			Note:        m.Note,
			TakenAt:     m.TakenAt,
		}

		recs, err := s.backend.Media.MediaForMemory(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("load media for %s: %w", m.ID, err)
		}
		if len(recs) > 0 {
			card.CoverURL = s.backend.Blobs.PublicURL(recs[0].StoragePath)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// DeleteMemory removes a memory owned by userID with its media blobs and rows.
// The pin goes too when this was the last memory at the place.
func (s *Service) DeleteMemory(ctx context.Context, userID, memoryID string) (DeleteResult, error) {
	m, err := s.backend.Memories.MemoryByID(ctx, memoryID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("load memory: %w", err)
	}
	if m.UserID != userID {
		return DeleteResult{}, domain.ErrUnauthorized
	}

	res := DeleteResult{MemoryID: m.ID, PlaceID: m.PlaceID}

	recs, err := s.backend.Media.MediaForMemory(ctx, m.ID)
	if err != nil {
		return res, fmt.Errorf("load media: %w", err)
	}
	for _, r := range recs {
		res.RemovedBlobs = append(res.RemovedBlobs, r.StoragePath)
	}
	if len(res.RemovedBlobs) > 0 {
		if err := s.backend.Blobs.Remove(ctx, res.RemovedBlobs); err != nil {
			return res, fmt.Errorf("remove blobs: %w", err)
		}
	}
	if err := s.backend.Media.DeleteMediaForMemory(ctx, m.ID); err != nil {
		return res, fmt.Errorf("delete media rows: %w", err)
	}
	if err := s.backend.Memories.DeleteMemory(ctx, m.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return res, fmt.Errorf("delete memory: %w", err)
	}

	remaining, err := s.backend.Memories.CountMemoriesAtPlace(ctx, userID, m.PlaceID)
	if err != nil {
		return res, fmt.Errorf("count remaining memories: %w", err)
	}
	if remaining == 0 {
		if err := s.backend.Pins.DeletePin(ctx, userID, m.PlaceID); err != nil {
			return res, fmt.Errorf("delete pin: %w", err)
		}
		res.PinRemoved = true
	}

	s.logger.Info("memory deleted",
		zap.String("user_id", userID),
		zap.String("memory_id", m.ID),
		zap.Int("blobs", len(res.RemovedBlobs)),
		zap.Bool("pin_removed", res.PinRemoved))
	return res, nil
}

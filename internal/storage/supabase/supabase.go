// Package supabase adapts a hosted Supabase project to the worldmap platform
// capabilities: GoTrue for accounts, PostgREST for rows, Storage for photos.
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
	postgrest "github.com/supabase-community/postgrest-go"
	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
)

// Config selects the project and bucket.
type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
	Breaker        BreakerConfig
}

// Store implements every platform capability against one Supabase project.
type Store struct {
	client *supa.Client
	bucket string
	guard  *guard
	log    *zap.Logger

	// The storage client mutates shared headers per upload.
	uploadMu sync.Mutex
}

// New builds the client. No request is made until the first call.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "memories"
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultBreakerConfig()
	}
	client, err := supa.NewClient(cfg.URL, cfg.ServiceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		guard:  newGuard(cfg.Breaker, logger),
		log:    logger,
	}, nil
}

// Backend exposes the store through every capability.
func (s *Store) Backend() platform.Backend {
	return platform.Backend{
		Accounts: s,
		Profiles: s,
		Places:   s,
		Pins:     s,
		Memories: s,
		Media:    s,
		Blobs:    s,
	}
}

// mapErr recognises PostgREST error strings of the form "(code) message".
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "(23505)"):
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	case strings.Contains(msg, "(PGRST116)"):
		return domain.ErrNotFound
	}
	return err
}

// CreateAccount signs the user up through GoTrue.
func (s *Store) CreateAccount(ctx context.Context, email, password string) (domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.Identity{}, domain.Invalid("email", "email and password are required")
	}

	var id domain.Identity
	err := s.guard.do(ctx, "signup", func() error {
		resp, err := s.client.Auth.Signup(types.SignupRequest{Email: email, Password: password})
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "already registered") {
				return fmt.Errorf("%s: %w", err.Error(), domain.ErrConflict)
			}
			return err
		}
		userID := resp.ID
		if userID == uuid.Nil {
			userID = resp.Session.User.ID
		}
		if userID == uuid.Nil {
			return errors.New("signup returned no user id")
		}
		id = domain.Identity{UserID: userID.String(), Email: email}
		return nil
	})
	return id, err
}

func (s *Store) selectProfile(ctx context.Context, op, col, val string) (domain.Profile, error) {
	var rows []profileRow
	err := s.guard.do(ctx, op, func() error {
		_, err := s.client.From("profiles").Select("*", "", false).Eq(col, val).Limit(1, "").ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if len(rows) == 0 {
		return domain.Profile{}, domain.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// UpsertProfile merges on user_id.
func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	now := time.Now().UTC()
	row := profileRow{
		UserID:     p.UserID,
		Slug:       strings.ToLower(p.Slug),
		FullName:   p.FullName,
		HomeCity:   p.HomeCity,
		AvatarPath: p.AvatarPath,
		UpdatedAt:  &now,
	}

	var rows []profileRow
	err := s.guard.do(ctx, "upsert profile", func() error {
		_, err := s.client.From("profiles").Upsert(row, "user_id", "representation", "").ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if len(rows) == 0 {
		return domain.Profile{}, fmt.Errorf("upsert profile: empty representation")
	}
	return rows[0].toDomain(), nil
}

// ProfileBySlug matches the lowercase slug column.
func (s *Store) ProfileBySlug(ctx context.Context, slug string) (domain.Profile, error) {
	return s.selectProfile(ctx, "profile by slug", "slug", strings.ToLower(slug))
}

// ProfileByUser loads the profile of a user.
func (s *Store) ProfileByUser(ctx context.Context, userID string) (domain.Profile, error) {
	return s.selectProfile(ctx, "profile by user", "user_id", userID)
}

func (s *Store) selectPlace(ctx context.Context, col, val string) ([]placeRow, error) {
	var rows []placeRow
	err := s.guard.do(ctx, "select place", func() error {
		_, err := s.client.From("places").Select("*", "", false).Eq(col, val).Limit(1, "").ExecuteTo(&rows)
		return mapErr(err)
	})
	return rows, err
}

// EnsurePlace reads by key first and inserts on a miss. A concurrent insert
// of the same key surfaces as a conflict and is resolved by reading again.
func (s *Store) EnsurePlace(ctx context.Context, in domain.PlaceInput) (domain.Place, error) {
	key := in.Key()
	rows, err := s.selectPlace(ctx, "place_key", key)
	if err != nil {
		return domain.Place{}, err
	}
	if len(rows) > 0 {
		return rows[0].toDomain(), nil
	}

	row := placeRow{
		ID:       uuid.NewString(),
		PlaceKey: key,
		City:     strings.TrimSpace(in.City),
		Region:   strings.TrimSpace(in.Region),
		Country:  strings.TrimSpace(in.Country),
		Lat:      in.Lat,
		Lng:      in.Lng,
	}
	var created []placeRow
	err = s.guard.do(ctx, "insert place", func() error {
		_, err := s.client.From("places").Insert(row, false, "", "representation", "").ExecuteTo(&created)
		return mapErr(err)
	})
	if errors.Is(err, domain.ErrConflict) {
		rows, err = s.selectPlace(ctx, "place_key", key)
		if err == nil && len(rows) == 0 {
			err = domain.ErrNotFound
		}
		if err != nil {
			return domain.Place{}, err
		}
		return rows[0].toDomain(), nil
	}
	if err != nil {
		return domain.Place{}, err
	}
	if len(created) == 0 {
		return row.toDomain(), nil
	}
	return created[0].toDomain(), nil
}

// PlaceByID loads a place.
func (s *Store) PlaceByID(ctx context.Context, id string) (domain.Place, error) {
	rows, err := s.selectPlace(ctx, "id", id)
	if err != nil {
		return domain.Place{}, err
	}
	if len(rows) == 0 {
		return domain.Place{}, domain.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// UpsertPin merges on the (user_id, place_id) primary key.
func (s *Store) UpsertPin(ctx context.Context, pin domain.PinRow) error {
	row := pinRow{UserID: pin.UserID, PlaceID: pin.PlaceID, Label: pin.Label}
	return s.guard.do(ctx, "upsert pin", func() error {
		_, _, err := s.client.From("pins").Upsert(row, "user_id,place_id", "minimal", "").Execute()
		return mapErr(err)
	})
}

// PinsForUser embeds each pin's place through the foreign key.
func (s *Store) PinsForUser(ctx context.Context, userID string) ([]domain.Pin, error) {
	var rows []pinWithPlace
	err := s.guard.do(ctx, "pins for user", func() error {
		_, err := s.client.From("pins").
			Select("label,places(*)", "", false).
			Eq("user_id", userID).
			Order("created_at", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Pin, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.PinFromPlace(r.Place.toDomain(), r.Label))
	}
	return out, nil
}

// DeletePin removes the pin if present.
func (s *Store) DeletePin(ctx context.Context, userID, placeID string) error {
	return s.guard.do(ctx, "delete pin", func() error {
		_, _, err := s.client.From("pins").Delete("minimal", "").Eq("user_id", userID).Eq("place_id", placeID).Execute()
		return mapErr(err)
	})
}

// InsertMemory stores a memory and returns the row.
func (s *Store) InsertMemory(ctx context.Context, in domain.NewMemory) (domain.Memory, error) {
	vis := in.Visibility
	if vis == "" {
		vis = domain.VisibilityPublic
	}
	row := memoryRow{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		PlaceID:     in.PlaceID,
		Description: in.Description,
		Note:        in.Note,
		TakenAt:     in.TakenAt,
		Visibility:  string(vis),
	}
	var rows []memoryRow
	err := s.guard.do(ctx, "insert memory", func() error {
		_, err := s.client.From("memories").Insert(row, false, "", "representation", "").ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return domain.Memory{}, err
	}
	if len(rows) == 0 {
		return domain.Memory{}, fmt.Errorf("insert memory: empty representation")
	}
	return rows[0].toDomain(), nil
}

// MemoriesForPlace orders in process because the sort key falls back across two columns.
func (s *Store) MemoriesForPlace(ctx context.Context, userID, placeID string) ([]domain.Memory, error) {
	var rows []memoryRow
	err := s.guard.do(ctx, "memories for place", func() error {
		_, err := s.client.From("memories").Select("*", "", false).
			Eq("user_id", userID).
			Eq("place_id", placeID).
			ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Memory, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	slices.SortStableFunc(out, func(a, b domain.Memory) int {
		return b.SortTime().Compare(a.SortTime())
	})
	return out, nil
}

// MemoryByID loads one memory.
func (s *Store) MemoryByID(ctx context.Context, id string) (domain.Memory, error) {
	var rows []memoryRow
	err := s.guard.do(ctx, "memory by id", func() error {
		_, err := s.client.From("memories").Select("*", "", false).Eq("id", id).Limit(1, "").ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return domain.Memory{}, err
	}
	if len(rows) == 0 {
		return domain.Memory{}, domain.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// DeleteMemory removes the row; an empty representation means it never existed.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	var rows []memoryRow
	err := s.guard.do(ctx, "delete memory", func() error {
		_, err := s.client.From("memories").Delete("representation", "").Eq("id", id).ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountMemoriesAtPlace uses an exact HEAD count.
func (s *Store) CountMemoriesAtPlace(ctx context.Context, userID, placeID string) (int, error) {
	var n int64
	err := s.guard.do(ctx, "count memories", func() error {
		_, count, err := s.client.From("memories").Select("id", "exact", true).
			Eq("user_id", userID).
			Eq("place_id", placeID).
			Execute()
		n = count
		return mapErr(err)
	})
	return int(n), err
}

// InsertMediaRecord stores a media row.
func (s *Store) InsertMediaRecord(ctx context.Context, rec domain.MediaRecord) (domain.MediaRecord, error) {
	row := mediaRow{
		ID:          uuid.NewString(),
		MemoryID:    rec.MemoryID,
		StoragePath: rec.StoragePath,
		SortOrder:   rec.SortOrder,
		TakenAt:     rec.TakenAt,
	}
	var rows []mediaRow
	err := s.guard.do(ctx, "insert media", func() error {
		_, err := s.client.From("media").Insert(row, false, "", "representation", "").ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return domain.MediaRecord{}, err
	}
	if len(rows) == 0 {
		return domain.MediaRecord{}, fmt.Errorf("insert media: empty representation")
	}
	return rows[0].toDomain(), nil
}

// MediaForMemory lists media rows by sort order.
func (s *Store) MediaForMemory(ctx context.Context, memoryID string) ([]domain.MediaRecord, error) {
	var rows []mediaRow
	err := s.guard.do(ctx, "media for memory", func() error {
		_, err := s.client.From("media").Select("*", "", false).
			Eq("memory_id", memoryID).
			Order("sort_order", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&rows)
		return mapErr(err)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.MediaRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// DeleteMediaForMemory removes every media row of a memory.
func (s *Store) DeleteMediaForMemory(ctx context.Context, memoryID string) error {
	return s.guard.do(ctx, "delete media", func() error {
		_, _, err := s.client.From("media").Delete("minimal", "").Eq("memory_id", memoryID).Execute()
		return mapErr(err)
	})
}

// Put uploads a blob into the bucket, replacing any object at the path.
func (s *Store) Put(ctx context.Context, path, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := true
	opts := storage_go.FileOptions{ContentType: &contentType, Upsert: &upsert}

	return s.guard.do(ctx, "upload "+path, func() error {
		s.uploadMu.Lock()
		defer s.uploadMu.Unlock()
		_, err := s.client.Storage.UploadFile(s.bucket, path, bytes.NewReader(data), opts)
		return err
	})
}

// Remove deletes blobs from the bucket.
func (s *Store) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.guard.do(ctx, "remove blobs", func() error {
		_, err := s.client.Storage.RemoveFile(s.bucket, paths)
		return err
	})
}

// PublicURL is the bucket's public object URL.
func (s *Store) PublicURL(path string) string {
	return s.client.Storage.GetPublicUrl(s.bucket, path).SignedURL
}

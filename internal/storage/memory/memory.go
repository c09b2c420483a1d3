package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
)

type account struct {
	identity domain.Identity
	hash     []byte
}

type blob struct {
	contentType string
	data        []byte
}

// Store is an in-memory backend used for local development and tests.
// It enforces the same uniqueness rules as the hosted schema.
type Store struct {
	mu sync.RWMutex

	accounts map[string]account // by lowercased email
	profiles map[string]domain.Profile
	places   map[string]domain.Place
	placeKey map[string]string // key -> place id
	pins     map[string]domain.PinRow
	pinOrder []string
	memories map[string]domain.Memory
	media    map[string][]domain.MediaRecord
	blobs    map[string]blob

	baseURL string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithBaseURL sets the prefix PublicURL puts in front of blob paths.
func WithBaseURL(u string) Option {
	return func(s *Store) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]account),
		profiles: make(map[string]domain.Profile),
		places:   make(map[string]domain.Place),
		placeKey: make(map[string]string),
		pins:     make(map[string]domain.PinRow),
		memories: make(map[string]domain.Memory),
		media:    make(map[string][]domain.MediaRecord),
		blobs:    make(map[string]blob),
		baseURL:  "/media",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend exposes the store as every platform capability.
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

// CreateAccount registers a new identity. Emails are unique case-insensitively.
func (s *Store) CreateAccount(_ context.Context, email, password string) (domain.Identity, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || password == "" {
		return domain.Identity{}, domain.Invalid("email", "email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[key]; ok {
		return domain.Identity{}, fmt.Errorf("user already registered: %w", domain.ErrConflict)
	}

	id := domain.Identity{UserID: uuid.NewString(), Email: key}
	s.accounts[key] = account{identity: id, hash: hash}
	return id, nil
}

// UpsertProfile inserts or replaces the profile keyed by user id.
func (s *Store) UpsertProfile(_ context.Context, p domain.Profile) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for uid, other := range s.profiles {
		if uid != p.UserID && strings.EqualFold(other.Slug, p.Slug) {
			return domain.Profile{}, fmt.Errorf("duplicate key value violates unique constraint \"profiles_slug_key\": %w", domain.ErrConflict)
		}
	}

	now := s.now().UTC()
	if prev, ok := s.profiles[p.UserID]; ok {
		p.CreatedAt = prev.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.profiles[p.UserID] = p
	return p, nil
}

// ProfileBySlug finds a profile by slug, ignoring case.
func (s *Store) ProfileBySlug(_ context.Context, slug string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if strings.EqualFold(p.Slug, slug) {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrNotFound
}

// ProfileByUser finds the profile owned by userID.
func (s *Store) ProfileByUser(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

// EnsurePlace returns the place stored under the input's key, creating it when missing.
func (s *Store) EnsurePlace(_ context.Context, in domain.PlaceInput) (domain.Place, error) {
	key := in.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.placeKey[key]; ok {
		return s.places[id], nil
	}

	place := domain.Place{
		ID:      uuid.NewString(),
		Key:     key,
		City:    strings.TrimSpace(in.City),
		Region:  strings.TrimSpace(in.Region),
		Country: strings.TrimSpace(in.Country),
		Lat:     in.Lat,
		Lng:     in.Lng,
	}
	s.places[place.ID] = place
	s.placeKey[key] = place.ID
	return place, nil
}

// PlaceByID loads a place.
func (s *Store) PlaceByID(_ context.Context, id string) (domain.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.places[id]
	if !ok {
		return domain.Place{}, domain.ErrNotFound
	}
	return p, nil
}

func pinKey(userID, placeID string) string { return userID + "/" + placeID }

// UpsertPin stores the pin, replacing the label when the pair already exists.
func (s *Store) UpsertPin(_ context.Context, pin domain.PinRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.places[pin.PlaceID]; !ok {
		return fmt.Errorf("pin references unknown place %s: %w", pin.PlaceID, domain.ErrNotFound)
	}

	k := pinKey(pin.UserID, pin.PlaceID)
	if _, ok := s.pins[k]; !ok {
		s.pinOrder = append(s.pinOrder, k)
	}
	s.pins[k] = pin
	return nil
}

// PinsForUser returns the user's pins in the order they were first created.
func (s *Store) PinsForUser(_ context.Context, userID string) ([]domain.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Pin, 0)
	for _, k := range s.pinOrder {
		row, ok := s.pins[k]
		if !ok || row.UserID != userID {
			continue
		}
		out = append(out, domain.PinFromPlace(s.places[row.PlaceID], row.Label))
	}
	return out, nil
}

// DeletePin removes the pin for the pair; missing pins are not an error.
func (s *Store) DeletePin(_ context.Context, userID, placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := pinKey(userID, placeID)
	if _, ok := s.pins[k]; !ok {
		return nil
	}
	delete(s.pins, k)
	for i, existing := range s.pinOrder {
		if existing == k {
			s.pinOrder = append(s.pinOrder[:i], s.pinOrder[i+1:]...)
			break
		}
	}
	return nil
}

// InsertMemory persists a new memory.
func (s *Store) InsertMemory(_ context.Context, in domain.NewMemory) (domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.places[in.PlaceID]; !ok {
		return domain.Memory{}, fmt.Errorf("memory references unknown place %s: %w", in.PlaceID, domain.ErrNotFound)
	}
	vis := in.Visibility
	if vis == "" {
		vis = domain.VisibilityPublic
	}

	m := domain.Memory{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		PlaceID:     in.PlaceID,
		Description: in.Description,
		Note:        in.Note,
		TakenAt:     in.TakenAt,
		Visibility:  vis,
		CreatedAt:   s.now().UTC(),
	}
	s.memories[m.ID] = m
	return m, nil
}

// MemoriesForPlace returns the newest memory first.
func (s *Store) MemoriesForPlace(_ context.Context, userID, placeID string) ([]domain.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Memory, 0)
	for _, m := range s.memories {
		if m.UserID == userID && m.PlaceID == placeID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].SortTime(), out[j].SortTime()
		if ti.Equal(tj) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return ti.After(tj)
	})
	return out, nil
}

// MemoryByID loads one memory.
func (s *Store) MemoryByID(_ context.Context, id string) (domain.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memories[id]
	if !ok {
		return domain.Memory{}, domain.ErrNotFound
	}
	return m, nil
}

// DeleteMemory removes the memory row only; callers cascade media themselves.
func (s *Store) DeleteMemory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memories[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.memories, id)
	return nil
}

// CountMemoriesAtPlace counts the user's memories at a place.
func (s *Store) CountMemoriesAtPlace(_ context.Context, userID, placeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.memories {
		if m.UserID == userID && m.PlaceID == placeID {
			n++
		}
	}
	return n, nil
}

// InsertMediaRecord stores a media row for an existing memory.
func (s *Store) InsertMediaRecord(_ context.Context, rec domain.MediaRecord) (domain.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memories[rec.MemoryID]; !ok {
		return domain.MediaRecord{}, fmt.Errorf("media references unknown memory %s: %w", rec.MemoryID, domain.ErrNotFound)
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()
	s.media[rec.MemoryID] = append(s.media[rec.MemoryID], rec)
	return rec, nil
}

// MediaForMemory returns media rows by ascending sort order.
func (s *Store) MediaForMemory(_ context.Context, memoryID string) ([]domain.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cloned := append([]domain.MediaRecord(nil), s.media[memoryID]...)
	sort.SliceStable(cloned, func(i, j int) bool {
		return cloned[i].SortOrder < cloned[j].SortOrder
	})
	return cloned, nil
}

// DeleteMediaForMemory drops every media row of a memory.
func (s *Store) DeleteMediaForMemory(_ context.Context, memoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.media, memoryID)
	return nil
}

// Put stores a blob, overwriting any previous content at path.
func (s *Store) Put(_ context.Context, path, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[path] = blob{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

// Get returns a stored blob.
func (s *Store) Get(_ context.Context, path string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[path]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return append([]byte(nil), b.data...), b.contentType, nil
}

// Remove deletes blobs; unknown paths are ignored.
func (s *Store) Remove(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paths {
		delete(s.blobs, p)
	}
	return nil
}

// PublicURL maps a blob path to the URL it is served from.
func (s *Store) PublicURL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Package platform declares the capabilities worldmap consumes from its hosted backend.
// Implementations live under internal/storage; the core only sees these interfaces.
package platform

import (
	"context"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

// Accounts creates identities.
type Accounts interface {
	CreateAccount(ctx context.Context, email, password string) (domain.Identity, error)
}

// Profiles stores the shareable profile rows. Slugs are unique case-insensitively.
type Profiles interface {
	UpsertProfile(ctx context.Context, p domain.Profile) (domain.Profile, error)
	// ProfileBySlug returns domain.ErrNotFound when no profile holds the slug.
	ProfileBySlug(ctx context.Context, slug string) (domain.Profile, error)
	ProfileByUser(ctx context.Context, userID string) (domain.Profile, error)
}

// Places resolves places by their normalized composite key.
type Places interface {
	EnsurePlace(ctx context.Context, in domain.PlaceInput) (domain.Place, error)
	PlaceByID(ctx context.Context, id string) (domain.Place, error)
}

// Pins links users to places.
type Pins interface {
	// UpsertPin is idempotent on the (user, place) pair.
	UpsertPin(ctx context.Context, pin domain.PinRow) error
	PinsForUser(ctx context.Context, userID string) ([]domain.Pin, error)
	DeletePin(ctx context.Context, userID, placeID string) error
}

// Memories stores dated notes.
type Memories interface {
	InsertMemory(ctx context.Context, m domain.NewMemory) (domain.Memory, error)
	// MemoriesForPlace returns the most recent memory first.
	MemoriesForPlace(ctx context.Context, userID, placeID string) ([]domain.Memory, error)
	MemoryByID(ctx context.Context, id string) (domain.Memory, error)
	DeleteMemory(ctx context.Context, id string) error
	CountMemoriesAtPlace(ctx context.Context, userID, placeID string) (int, error)
}

// Media stores the rows pointing memories at uploaded blobs.
type Media interface {
	InsertMediaRecord(ctx context.Context, rec domain.MediaRecord) (domain.MediaRecord, error)
	// MediaForMemory returns records ordered by SortOrder.
	MediaForMemory(ctx context.Context, memoryID string) ([]domain.MediaRecord, error)
	DeleteMediaForMemory(ctx context.Context, memoryID string) error
}

// Blobs is object storage with public URLs.
type Blobs interface {
	Put(ctx context.Context, path, contentType string, data []byte) error
	Remove(ctx context.Context, paths []string) error
	PublicURL(path string) string
}

// BlobReader is implemented by local blob stores whose objects the API serves itself.
type BlobReader interface {
	Get(ctx context.Context, path string) (data []byte, contentType string, err error)
}

// Backend bundles every capability. It is built once at the composition root
// and handed to consumers explicitly.
type Backend struct {
	Accounts Accounts
	Profiles Profiles
	Places   Places
	Pins     Pins
	Memories Memories
	Media    Media
	Blobs    Blobs

	// Close releases pools and connections. May be nil.
	Close func()
}

// Shutdown calls Close when set.
func (b Backend) Shutdown() {
	if b.Close != nil {
		b.Close()
	}
}

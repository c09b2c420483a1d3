package domain

import "time"

// Visibility controls who can see a memory on a shared profile.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Identity is the handle returned by account creation and used for every later write.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Profile is the shareable page owned by one identity.
type Profile struct {
	UserID     string    `json:"userId"`
	Slug       string    `json:"slug"`
	FullName   string    `json:"fullName"`
	HomeCity   string    `json:"homeCity"`
	AvatarPath string    `json:"avatarPath,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PlaceInput describes a place before it is resolved to a stored row.
type PlaceInput struct {
	City    string  `json:"city"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Key returns the normalized composite key the place is stored under.
func (p PlaceInput) Key() string {
	return PlaceKey(p.City, p.Region, p.Country)
}

// Place is a geographic location shared between users.
type Place struct {
	ID      string  `json:"id"`
	Key     string  `json:"key"`
	City    string  `json:"city"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// PinRow links a user to a place. Unique on (UserID, PlaceID).
type PinRow struct {
	UserID  string `json:"userId"`
	PlaceID string `json:"placeId"`
	Label   string `json:"label"`
}

// Pin is what the map renders. ID is the place id.
type Pin struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// NewMemory is the payload for inserting a memory.
type NewMemory struct {
	UserID      string     `json:"userId"`
	PlaceID     string     `json:"placeId"`
	Description string     `json:"description,omitempty"`
	Note        string     `json:"note,omitempty"`
	TakenAt     *time.Time `json:"takenAt,omitempty"`
	Visibility  Visibility `json:"visibility"`
}

// Memory is a dated note attached to a place.
type Memory struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	PlaceID     string     `json:"placeId"`
	Description string     `json:"description,omitempty"`
	Note        string     `json:"note,omitempty"`
	TakenAt     *time.Time `json:"takenAt,omitempty"`
	Visibility  Visibility `json:"visibility"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// SortTime is the instant memories are ordered by: TakenAt when known, else CreatedAt.
func (m Memory) SortTime() time.Time {
	if m.TakenAt != nil {
		return *m.TakenAt
	}
	return m.CreatedAt
}

// MediaRecord points a memory at an uploaded blob.
type MediaRecord struct {
	ID          string     `json:"id"`
	MemoryID    string     `json:"memoryId"`
	StoragePath string     `json:"storagePath"`
	SortOrder   int        `json:"sortOrder"`
	TakenAt     *time.Time `json:"takenAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// MemoryCard is the tray projection of a memory plus its cover image.
type MemoryCard struct {
	MemoryID    string     `json:"memoryId"`
	PlaceID     string     `json:"placeId"`
	Description string     `json:"description,omitempty"`
	Note        string     `json:"note,omitempty"`
	TakenAt     *time.Time `json:"takenAt,omitempty"`
	CoverURL    string     `json:"coverUrl,omitempty"`
}

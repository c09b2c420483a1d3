package supabase

import (
	"time"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

// Row shapes mirror the tables created by the postgres schema; PostgREST speaks snake_case.

type profileRow struct {
	UserID     string     `json:"user_id"`
	Slug       string     `json:"slug"`
	FullName   string     `json:"full_name"`
	HomeCity   string     `json:"home_city"`
	AvatarPath string     `json:"avatar_path"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func (r profileRow) toDomain() domain.Profile {
	p := domain.Profile{
		UserID:     r.UserID,
		Slug:       r.Slug,
		FullName:   r.FullName,
		HomeCity:   r.HomeCity,
		AvatarPath: r.AvatarPath,
	}
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		p.UpdatedAt = *r.UpdatedAt
	}
	return p
}

type placeRow struct {
	ID       string  `json:"id"`
	PlaceKey string  `json:"place_key"`
	City     string  `json:"city"`
	Region   string  `json:"region"`
	Country  string  `json:"country"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func (r placeRow) toDomain() domain.Place {
	return domain.Place{
		ID:      r.ID,
		Key:     r.PlaceKey,
		City:    r.City,
		Region:  r.Region,
		Country: r.Country,
		Lat:     r.Lat,
		Lng:     r.Lng,
	}
}

type pinRow struct {
	UserID  string `json:"user_id"`
	PlaceID string `json:"place_id"`
	Label   string `json:"label"`
}

// pinWithPlace is a pin row with its place embedded through the foreign key.
type pinWithPlace struct {
	Label string   `json:"label"`
	Place placeRow `json:"places"`
}

type memoryRow struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	PlaceID     string     `json:"place_id"`
	Description string     `json:"description"`
	Note        string     `json:"note"`
	TakenAt     *time.Time `json:"taken_at"`
	Visibility  string     `json:"visibility"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func (r memoryRow) toDomain() domain.Memory {
	m := domain.Memory{
		ID:          r.ID,
		UserID:      r.UserID,
		PlaceID:     r.PlaceID,
		Description: r.Description,
		Note:        r.Note,
		TakenAt:     r.TakenAt,
		Visibility:  domain.Visibility(r.Visibility),
	}
	if r.CreatedAt != nil {
		m.CreatedAt = *r.CreatedAt
	}
	return m
}

type mediaRow struct {
	ID          string     `json:"id"`
	MemoryID    string     `json:"memory_id"`
	StoragePath string     `json:"storage_path"`
	SortOrder   int        `json:"sort_order"`
	TakenAt     *time.Time `json:"taken_at"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func (r mediaRow) toDomain() domain.MediaRecord {
	rec := domain.MediaRecord{
		ID:          r.ID,
		MemoryID:    r.MemoryID,
		StoragePath: r.StoragePath,
		SortOrder:   r.SortOrder,
		TakenAt:     r.TakenAt,
	}
	if r.CreatedAt != nil {
		rec.CreatedAt = *r.CreatedAt
	}
	return rec
}

package onboarding

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/media"
)

// MemoryDraft is an unsaved memory composed during onboarding.
type MemoryDraft struct {
	Key         string
	Place       domain.PlaceInput
	Description string
	Note        string
	TakenAt     *time.Time
	Visibility  domain.Visibility
	Photo       *media.Photo
	// PlaceID and MemoryID are set once the memory row exists. A retry resumes
	// at the photo upload instead of inserting the memory again.
	PlaceID  string
	MemoryID string
	// Committed drafts were written by an earlier completion attempt and are skipped on retry.
	Committed bool
}

// DraftPatch carries the fields to merge into a draft. Nil fields are left untouched.
type DraftPatch struct {
	City        *string
	Region      *string
	Country     *string
	Lat         *float64
	Lng         *float64
	Description *string
	Note        *string
	TakenAt     *time.Time
	Visibility  *domain.Visibility
}

// DraftView is the client-facing snapshot of a draft; photo bytes are omitted.
type DraftView struct {
	Key         string            `json:"key"`
	Place       domain.PlaceInput `json:"place"`
	Description string            `json:"description"`
	Note        string            `json:"note"`
	TakenAt     *time.Time        `json:"takenAt,omitempty"`
	Visibility  domain.Visibility `json:"visibility"`
	HasPhoto    bool              `json:"hasPhoto"`
	PhotoName   string            `json:"photoName,omitempty"`
	MemoryID    string            `json:"memoryId,omitempty"`
	Committed   bool              `json:"committed"`
}

func newDraftKey() string {
	return ulid.Make().String()
}

func newDraft(key string) *MemoryDraft {
	return &MemoryDraft{Key: key, Visibility: domain.VisibilityPublic}
}

func (d *MemoryDraft) view() DraftView {
	v := DraftView{
		Key:         d.Key,
		Place:       d.Place,
		Description: d.Description,
		Note:        d.Note,
		TakenAt:     d.TakenAt,
		Visibility:  d.Visibility,
		MemoryID:    d.MemoryID,
		Committed:   d.Committed,
	}
	if d.Photo != nil && !d.Photo.Empty() {
		v.HasPhoto = true
		v.PhotoName = d.Photo.Filename
	}
	return v
}

func (d *MemoryDraft) clone() MemoryDraft {
	c := *d
	if d.TakenAt != nil {
		t := *d.TakenAt
		c.TakenAt = &t
	}
	return c
}

func (d *MemoryDraft) apply(p DraftPatch) {
	if p.City != nil {
		d.Place.City = *p.City
	}
	if p.Region != nil {
		d.Place.Region = *p.Region
	}
	if p.Country != nil {
		d.Place.Country = *p.Country
	}
	if p.Lat != nil {
		d.Place.Lat = *p.Lat
	}
	if p.Lng != nil {
		d.Place.Lng = *p.Lng
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Note != nil {
		d.Note = *p.Note
	}
	if p.TakenAt != nil {
		t := *p.TakenAt
		d.TakenAt = &t
	}
	if p.Visibility != nil {
		d.Visibility = *p.Visibility
	}
}

// validate checks the completion guard for one draft at list position i.
func (d MemoryDraft) validate(i int, schema DraftSchema) error {
	field := func(name string) string { return fmt.Sprintf("drafts[%d].%s", i, name) }

	if strings.TrimSpace(d.Place.City) == "" {
		return domain.Invalid(field("city"), "city is required")
	}
	if strings.TrimSpace(d.Place.Region) == "" {
		return domain.Invalid(field("region"), "region is required")
	}
	if schema.RequireDescription && strings.TrimSpace(d.Description) == "" {
		return domain.Invalid(field("description"), "a short description is required")
	}
	if d.Photo == nil || d.Photo.Empty() {
		return domain.Invalid(field("photo"), "attach one photo")
	}
	if d.Visibility != "" && !d.Visibility.Valid() {
		return domain.Invalid(field("visibility"), "must be public or private")
	}
	return nil
}

// draftList keeps drafts in user order. Callers hold the wizard lock.
type draftList struct {
	items  []*MemoryDraft
	max    int
	newKey func() string
}

func (l *draftList) add() (*MemoryDraft, bool) {
	if len(l.items) >= l.max {
		return nil, false
	}
	d := newDraft(l.newKey())
	l.items = append(l.items, d)
	return d, true
}

func (l *draftList) remove(key string) (bool, error) {
	idx := l.index(key)
	if idx < 0 {
		return false, ErrDraftNotFound
	}
	if len(l.items) <= 1 {
		return false, nil
	}
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	return true, nil
}

func (l *draftList) get(key string) (*MemoryDraft, error) {
	idx := l.index(key)
	if idx < 0 {
		return nil, ErrDraftNotFound
	}
	return l.items[idx], nil
}

func (l *draftList) index(key string) int {
	for i, d := range l.items {
		if d.Key == key {
			return i
		}
	}
	return -1
}

func (l *draftList) views() []DraftView {
	out := make([]DraftView, 0, len(l.items))
	for _, d := range l.items {
		out = append(out, d.view())
	}
	return out
}

func (l *draftList) snapshot() []MemoryDraft {
	out := make([]MemoryDraft, 0, len(l.items))
	for _, d := range l.items {
		out = append(out, d.clone())
	}
	return out
}

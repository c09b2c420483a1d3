package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/memory"
)

type seeded struct {
	store   *memory.Store
	svc     *Service
	userID  string
	austin  domain.Place
	older   domain.Memory
	newer   domain.Memory
	private domain.Memory
}

func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(memory.WithBaseURL("https://cdn.example.com"))

	id, err := store.CreateAccount(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	_, err = store.UpsertProfile(ctx, domain.Profile{UserID: id.UserID, Slug: "ada-travels", FullName: "Ada", HomeCity: "London", AvatarPath: "avatars/ada.jpg"})
	require.NoError(t, err)

	austin, err := store.EnsurePlace(ctx, domain.PlaceInput{City: "Austin", Region: "TX", Country: "US", Lat: 30.27, Lng: -97.74})
	require.NoError(t, err)
	require.NoError(t, store.UpsertPin(ctx, domain.PinRow{UserID: id.UserID, PlaceID: austin.ID, Label: "Austin"}))

	t1 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older, err := store.InsertMemory(ctx, domain.NewMemory{UserID: id.UserID, PlaceID: austin.ID, Description: "first", TakenAt: &t1})
	require.NoError(t, err)
	newer, err := store.InsertMemory(ctx, domain.NewMemory{UserID: id.UserID, PlaceID: austin.ID, Description: "second", TakenAt: &t2})
	require.NoError(t, err)
	private, err := store.InsertMemory(ctx, domain.NewMemory{UserID: id.UserID, PlaceID: austin.ID, Description: "secret", TakenAt: &t1, Visibility: domain.VisibilityPrivate})
	require.NoError(t, err)

	for i, m := range []domain.Memory{older, newer} {
		for order := 1; order >= 0; order-- {
			path := "memories/" + m.ID + "/" + string(rune('a'+order)) + ".jpg"
			require.NoError(t, store.Put(ctx, path, "image/jpeg", []byte{byte(i)}))
			_, err := store.InsertMediaRecord(ctx, domain.MediaRecord{MemoryID: m.ID, StoragePath: path, SortOrder: order})
			require.NoError(t, err)
		}
	}

	return seeded{
		store:   store,
		svc:     NewService(store.Backend(), nil),
		userID:  id.UserID,
		austin:  austin,
		older:   older,
		newer:   newer,
		private: private,
	}
}

func TestLoadBySlugIgnoresCase(t *testing.T) {
	s := seed(t)

	page, err := s.svc.Load(context.Background(), "Ada Travels")
	require.NoError(t, err)
	assert.Equal(t, s.userID, page.Profile.UserID)
	assert.Equal(t, "https://cdn.example.com/avatars/ada.jpg", page.AvatarURL)
	require.Len(t, page.Pins, 1)
	assert.Equal(t, domain.Pin{ID: s.austin.ID, Title: "Austin", Subtitle: "TX, US", Lat: 30.27, Lng: -97.74}, page.Pins[0])

	_, err = s.svc.Load(context.Background(), "nobody-here")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.svc.Load(context.Background(), "!!")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCardsNewestFirstWithCover(t *testing.T) {
	s := seed(t)

	cards, err := s.svc.Cards(context.Background(), s.userID, s.austin.ID, false)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, s.newer.ID, cards[0].MemoryID)
	assert.Equal(t, s.older.ID, cards[1].MemoryID)
	assert.Equal(t, "https://cdn.example.com/memories/"+s.newer.ID+"/a.jpg", cards[0].CoverURL, "cover is sort order 0")

	all, err := s.svc.Cards(context.Background(), s.userID, s.austin.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteMemoryCascade(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	_, err := s.svc.DeleteMemory(ctx, "someone-else", s.older.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	res, err := s.svc.DeleteMemory(ctx, s.userID, s.older.ID)
	require.NoError(t, err)
	assert.Len(t, res.RemovedBlobs, 2)
	assert.False(t, res.PinRemoved)
	for _, p := range res.RemovedBlobs {
		_, _, err := s.store.Get(ctx, p)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	recs, err := s.store.MediaForMemory(ctx, s.older.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = s.svc.DeleteMemory(ctx, s.userID, s.private.ID)
	require.NoError(t, err)

	res, err = s.svc.DeleteMemory(ctx, s.userID, s.newer.ID)
	require.NoError(t, err)
	assert.True(t, res.PinRemoved, "last memory takes the pin with it")

	pins, err := s.store.PinsForUser(ctx, s.userID)
	require.NoError(t, err)
	assert.Empty(t, pins)

	_, err = s.svc.DeleteMemory(ctx, s.userID, s.newer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package onboarding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/media"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/memory"
)

// failingMemories fails the n-th InsertMemory call.
type failingMemories struct {
	platform.Memories
	failOn int
	calls  int
	err    error
}

func (f *failingMemories) InsertMemory(ctx context.Context, m domain.NewMemory) (domain.Memory, error) {
	f.calls++
	if f.calls == f.failOn {
		return domain.Memory{}, f.err
	}
	return f.Memories.InsertMemory(ctx, m)
}

// rejectingProfiles fails every upsert with err.
type rejectingProfiles struct {
	platform.Profiles
	err error
}

func (r rejectingProfiles) UpsertProfile(context.Context, domain.Profile) (domain.Profile, error) {
	return domain.Profile{}, r.err
}

type fixture struct {
	store   *memory.Store
	backend platform.Backend
	timers  *manualTimers
}

func newFixture() *fixture {
	store := memory.NewStore()
	return &fixture{store: store, backend: store.Backend(), timers: &manualTimers{}}
}

func (f *fixture) wizard(t *testing.T, schema DraftSchema) *Wizard {
	t.Helper()
	w := NewWizard(Deps{
		Backend:   f.backend,
		Uploader:  media.NewUploader(f.backend.Blobs, media.DefaultConfig(), nil),
		Schema:    schema,
		AfterFunc: f.timers.after,
	})
	t.Cleanup(w.Close)
	return w
}

func (f *fixture) memoryCount(t *testing.T, userID string) int {
	t.Helper()
	ctx := context.Background()
	pins, err := f.store.PinsForUser(ctx, userID)
	require.NoError(t, err)
	total := 0
	for _, p := range pins {
		n, err := f.store.CountMemoriesAtPlace(ctx, userID, p.ID)
		require.NoError(t, err)
		total += n
	}
	return total
}

func strPtr(s string) *string { return &s }

// toMemories drives a wizard through steps one and two.
func toMemories(t *testing.T, w *Wizard, email, slug string) domain.Identity {
	t.Helper()
	ctx := context.Background()
	id, err := w.SubmitAccount(ctx, email, "hunter22")
	require.NoError(t, err)
	_, err = w.SubmitProfile(ctx, ProfileForm{FullName: "Ada Lovelace", Slug: slug, HomeCity: "London"})
	require.NoError(t, err)
	require.Equal(t, StepMemories, w.Step())
	return id
}

func fillDraft(t *testing.T, w *Wizard, key, city, region string) {
	t.Helper()
	_, err := w.UpdateDraft(key, DraftPatch{City: strPtr(city), Region: strPtr(region), Description: strPtr("sunset walk")})
	require.NoError(t, err)
	_, err = w.AttachPhoto(key, testPhoto(city+".png"))
	require.NoError(t, err)
}

func TestSubmitAccountGuards(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)
	ctx := context.Background()

	_, err := w.SubmitAccount(ctx, "  ", "pw")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = w.SubmitAccount(ctx, "a@b.co", "")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, StepAccount, w.Step())

	_, err = f.store.CreateAccount(ctx, "taken@example.com", "pw")
	require.NoError(t, err)
	_, err = w.SubmitAccount(ctx, "taken@example.com", "pw")
	assert.True(t, errors.Is(err, domain.ErrConflict), "identity failure is surfaced as is")
	assert.Equal(t, StepAccount, w.Step())

	id, err := w.SubmitAccount(ctx, "new@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, id.UserID)
	assert.Equal(t, StepProfile, w.Step())
}

func TestStepsCannotBeSkipped(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)
	ctx := context.Background()

	_, err := w.SubmitProfile(ctx, ProfileForm{FullName: "A", Slug: "abc", HomeCity: "Oslo"})
	assert.ErrorIs(t, err, ErrWrongStep)

	_, err = w.Complete(ctx)
	assert.ErrorIs(t, err, ErrWrongStep)

	_, err = w.SubmitAccount(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	_, err = w.Complete(ctx)
	assert.ErrorIs(t, err, ErrWrongStep, "memories step needs a saved profile")
}

func TestSubmitProfileGuards(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)
	ctx := context.Background()
	_, err := w.SubmitAccount(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	tests := []struct {
		name  string
		form  ProfileForm
		field string
	}{
		{name: "missing name", form: ProfileForm{Slug: "abc", HomeCity: "Oslo"}, field: "fullName"},
		{name: "slug too short after normalizing", form: ProfileForm{FullName: "A", Slug: "a-!", HomeCity: "Oslo"}, field: "slug"},
		{name: "missing home city", form: ProfileForm{FullName: "A", Slug: "abc", HomeCity: " "}, field: "homeCity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.SubmitProfile(ctx, tt.form)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, StepProfile, w.Step())
		})
	}
}

func TestSubmitProfileRejectsTakenAndPendingSlugs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.store.UpsertProfile(ctx, domain.Profile{UserID: "other", Slug: "road-trip"})
	require.NoError(t, err)

	w := f.wizard(t, SchemaV2)
	_, err = w.SubmitAccount(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	_, err = w.SubmitProfile(ctx, ProfileForm{FullName: "A", Slug: "Road Trip", HomeCity: "Oslo"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	assert.Equal(t, SlugChecking, w.SetSlug("fresh-slug"))
	_, err = w.SubmitProfile(ctx, ProfileForm{FullName: "A", Slug: "fresh slug", HomeCity: "Oslo"})
	assert.ErrorIs(t, err, ErrSlugChecking)

	f.timers.take(f.timers.count() - 1)()
	p, err := w.SubmitProfile(ctx, ProfileForm{FullName: "A", Slug: "fresh slug", HomeCity: "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, "fresh-slug", p.Slug)
	assert.Equal(t, StepMemories, w.Step())
}

func TestSubmitProfileRemapsDuplicateKey(t *testing.T) {
	tests := []struct {
		name     string
		writeErr error
		wantSlug bool
	}{
		{name: "duplicate key", writeErr: errors.New(`duplicate key value violates unique constraint "profiles_pkey"`), wantSlug: true},
		{name: "mentions slug", writeErr: errors.New("new row violates check constraint on slug"), wantSlug: true},
		{name: "other failure verbatim", writeErr: errors.New("connection reset by peer"), wantSlug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.backend.Profiles = rejectingProfiles{Profiles: f.store, err: tt.writeErr}
			w := f.wizard(t, SchemaV2)
			ctx := context.Background()
			_, err := w.SubmitAccount(ctx, "a@example.com", "pw")
			require.NoError(t, err)

			_, err = w.SubmitProfile(ctx, ProfileForm{FullName: "A", Slug: "abc", HomeCity: "Oslo"})
			if tt.wantSlug {
				assert.ErrorIs(t, err, ErrSlugTaken)
			} else {
				assert.Equal(t, tt.writeErr, err)
			}
			assert.Equal(t, StepProfile, w.Step())
		})
	}
}

func TestSubmitProfileUploadsAvatar(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)
	ctx := context.Background()
	_, err := w.SubmitAccount(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	avatar := testPhoto("me.png")
	p, err := w.SubmitProfile(ctx, ProfileForm{FullName: "A", Slug: "abc", HomeCity: "Oslo", Avatar: &avatar})
	require.NoError(t, err)
	require.NotEmpty(t, p.AvatarPath)

	_, ct, err := f.store.Get(ctx, p.AvatarPath)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	// Going back and resubmitting without a new avatar keeps the old one.
	_, err = w.Back()
	require.NoError(t, err)
	p2, err := w.SubmitProfile(ctx, ProfileForm{FullName: "A B", Slug: "abc", HomeCity: "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, p.AvatarPath, p2.AvatarPath)
}

func TestBack(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)

	_, err := w.Back()
	assert.ErrorIs(t, err, ErrBackNotAllowed)

	toMemories(t, w, "a@example.com", "abc")

	step, err := w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepProfile, step)

	step, err = w.Back()
	assert.ErrorIs(t, err, ErrBackNotAllowed, "account exists, going back would orphan it")
	assert.Equal(t, StepProfile, step)
}

func TestDraftListOperations(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV1)

	drafts := w.Drafts()
	require.Len(t, drafts, 1)
	first := drafts[0].Key

	removed, err := w.RemoveDraft(first)
	require.NoError(t, err)
	assert.False(t, removed, "last draft cannot be removed")

	for i := 0; i < 4; i++ {
		_, added, err := w.AddDraft()
		require.NoError(t, err)
		assert.True(t, added)
	}
	_, added, err := w.AddDraft()
	require.NoError(t, err)
	assert.False(t, added, "cap is five for v1")
	require.Len(t, w.Drafts(), 5)

	keys := make(map[string]bool)
	for _, d := range w.Drafts() {
		keys[d.Key] = true
	}
	assert.Len(t, keys, 5, "keys are unique")

	third := w.Drafts()[2].Key
	view, err := w.UpdateDraft(third, DraftPatch{City: strPtr("Austin")})
	require.NoError(t, err)
	assert.Equal(t, "Austin", view.Place.City)
	view, err = w.UpdateDraft(third, DraftPatch{Region: strPtr("TX")})
	require.NoError(t, err)
	assert.Equal(t, "Austin", view.Place.City, "patch merges")
	assert.Equal(t, "TX", view.Place.Region)
	assert.Equal(t, third, w.Drafts()[2].Key, "order preserved")

	removed, err = w.RemoveDraft(first)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, w.Drafts(), 4)

	_, err = w.UpdateDraft("missing", DraftPatch{})
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestCompletionGuardAustinScenario(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)
	toMemories(t, w, "a@example.com", "austin-fan")
	ctx := context.Background()

	key := w.Drafts()[0].Key
	_, err := w.UpdateDraft(key, DraftPatch{City: strPtr("Austin"), Region: strPtr("TX")})
	require.NoError(t, err)

	_, err = w.Complete(ctx)
	require.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, StepMemories, w.Step())

	_, err = w.AttachPhoto(key, testPhoto("austin.png"))
	require.NoError(t, err)
	_, err = w.Complete(ctx)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "drafts[0].description", ve.Field)

	_, err = w.UpdateDraft(key, DraftPatch{Description: strPtr("Barton Springs")})
	require.NoError(t, err)
	res, err := w.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Committed())
	assert.Equal(t, "austin-fan", res.Slug)
	assert.Equal(t, StepDone, w.Step())
}

func TestCompletionWithoutDescriptionOnV1(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV1)
	toMemories(t, w, "a@example.com", "v-one")

	key := w.Drafts()[0].Key
	_, err := w.UpdateDraft(key, DraftPatch{City: strPtr("Austin"), Region: strPtr("TX"), Note: strPtr("tacos")})
	require.NoError(t, err)
	_, err = w.AttachPhoto(key, testPhoto("a.png"))
	require.NoError(t, err)

	_, err = w.Complete(context.Background())
	require.NoError(t, err)
}

func TestCompleteWritesEachDraftInOrder(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)
	id := toMemories(t, w, "a@example.com", "globetrotter")
	ctx := context.Background()

	cities := []string{"Austin", "Lisbon", "Austin"}
	regions := []string{"TX", "Lisboa", "tx"}
	for i := 1; i < len(cities); i++ {
		_, _, err := w.AddDraft()
		require.NoError(t, err)
	}
	taken := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, d := range w.Drafts() {
		fillDraft(t, w, d.Key, cities[i], regions[i])
		_, err := w.UpdateDraft(d.Key, DraftPatch{TakenAt: &taken})
		require.NoError(t, err)
	}

	res, err := w.Complete(ctx)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 3)
	for i, o := range res.Outcomes {
		assert.Equal(t, w.Drafts()[i].Key, o.Key)
		assert.True(t, o.OK())
		assert.NotEmpty(t, o.MediaID)
	}
	assert.Equal(t, res.Outcomes[0].PlaceID, res.Outcomes[2].PlaceID, "austin|tx resolves to one place")

	pins, err := f.store.PinsForUser(ctx, id.UserID)
	require.NoError(t, err)
	assert.Len(t, pins, 2, "pin upsert is idempotent per place")
	assert.Equal(t, 3, f.memoryCount(t, id.UserID))

	recs, err := f.store.MediaForMemory(ctx, res.Outcomes[1].MemoryID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.Outcomes[1].StoragePath, recs[0].StoragePath)
	require.NotNil(t, recs[0].TakenAt)
	assert.True(t, taken.Equal(*recs[0].TakenAt))
}

func TestCompleteStopsAtFirstFailureAndRetrySkipsCommitted(t *testing.T) {
	f := newFixture()
	flaky := &failingMemories{Memories: f.store, failOn: 2, err: fmt.Errorf("insert memory: network unreachable")}
	f.backend.Memories = flaky
	w := f.wizard(t, SchemaV2)
	id := toMemories(t, w, "a@example.com", "partial")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := w.AddDraft()
		require.NoError(t, err)
	}
	for i, d := range w.Drafts() {
		fillDraft(t, w, d.Key, fmt.Sprintf("City%d", i), "R")
	}

	res, err := w.Complete(ctx)
	var partial *PartialCompletionError
	require.True(t, errors.As(err, &partial))
	require.Len(t, res.Outcomes, 2, "third draft never attempted")
	assert.True(t, res.Outcomes[0].OK())
	assert.Equal(t, StageMemory, res.Outcomes[1].Stage)
	assert.Contains(t, res.Outcomes[1].Error, "network unreachable")
	assert.Equal(t, 1, res.Committed())
	assert.Equal(t, 1, f.memoryCount(t, id.UserID))
	assert.Equal(t, StepMemories, w.Step())
	assert.True(t, w.Drafts()[0].Committed)

	_, err = w.UpdateDraft(w.Drafts()[0].Key, DraftPatch{Note: strPtr("edit")})
	assert.ErrorIs(t, err, ErrDraftCommitted)

	res, err = w.Complete(ctx)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].Skipped)
	assert.Equal(t, 3, res.Committed())
	assert.Equal(t, 3, f.memoryCount(t, id.UserID))
	assert.Equal(t, StepDone, w.Step())
}

func TestClosedWizardRejectsWork(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV2)
	w.Close()

	_, err := w.SubmitAccount(context.Background(), "a@example.com", "pw")
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = w.AddDraft()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStateSnapshot(t *testing.T) {
	f := newFixture()
	w := f.wizard(t, SchemaV1)
	toMemories(t, w, "a@example.com", "snap-shot")

	st := w.State()
	assert.Equal(t, StepMemories, st.Step)
	require.NotNil(t, st.Identity)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "snap-shot", st.Profile.Slug)
	assert.Equal(t, 5, st.MaxDrafts)
	assert.Equal(t, "v1", st.Schema)
	assert.Len(t, st.Drafts, 1)
	assert.False(t, st.Busy)
}

func TestWizardRejectsWorkWhileBusy(t *testing.T) {
	f := newFixture()
	g := newGate()
	f.backend.Accounts = gatedAccounts{Accounts: f.store, gate: g}
	w := f.wizard(t, SchemaV2)
	ctx := context.Background()
	key := w.Drafts()[0].Key

	type submission struct {
		id  domain.Identity
		err error
	}
	done := make(chan submission, 1)
	go func() {
		id, err := w.SubmitAccount(ctx, "a@example.com", "pw")
		done <- submission{id, err}
	}()
	<-g.entered

	assert.True(t, w.State().Busy)
	_, err := w.SubmitAccount(ctx, "b@example.com", "pw")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = w.Complete(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	_, _, err = w.AddDraft()
	assert.ErrorIs(t, err, ErrBusy)
	_, err = w.UpdateDraft(key, DraftPatch{City: strPtr("Oslo")})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = w.Back()
	assert.ErrorIs(t, err, ErrBusy)

	close(g.release)
	got := <-done
	require.NoError(t, got.err)
	assert.NotEmpty(t, got.id.UserID)
	assert.False(t, w.State().Busy)
	assert.Equal(t, StepProfile, w.Step())
}

func TestSubmitProfileRemovesAvatarWhenSaveFails(t *testing.T) {
	f := newFixture()
	blobs := &recordingBlobs{Blobs: f.store}
	f.backend.Blobs = blobs
	f.backend.Profiles = rejectingProfiles{Profiles: f.store, err: errors.New("connection reset by peer")}
	w := f.wizard(t, SchemaV2)
	ctx := context.Background()
	_, err := w.SubmitAccount(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	avatar := testPhoto("me.png")
	_, err = w.SubmitProfile(ctx, ProfileForm{FullName: "A", Slug: "abc", HomeCity: "Oslo", Avatar: &avatar})
	require.EqualError(t, err, "connection reset by peer")
	assert.Equal(t, StepProfile, w.Step())

	require.Len(t, blobs.stored, 1)
	assert.Equal(t, blobs.stored, blobs.removed)
	_, _, err = f.store.Get(ctx, blobs.stored[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
)

// gate blocks the first call through it until release is closed.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	g.once.Do(func() { close(g.entered) })
	<-g.release
}

type gatedAccounts struct {
	platform.Accounts
	gate *gate
}

func (g gatedAccounts) CreateAccount(ctx context.Context, email, password string) (domain.Identity, error) {
	g.gate.wait()
	return g.Accounts.CreateAccount(ctx, email, password)
}

type gatedMemories struct {
	platform.Memories
	gate *gate
}

func (g gatedMemories) InsertMemory(ctx context.Context, m domain.NewMemory) (domain.Memory, error) {
	g.gate.wait()
	return g.Memories.InsertMemory(ctx, m)
}

// failingMedia fails the n-th InsertMediaRecord call.
type failingMedia struct {
	platform.Media
	failOn int
	calls  int
}

func (f *failingMedia) InsertMediaRecord(ctx context.Context, rec domain.MediaRecord) (domain.MediaRecord, error) {
	f.calls++
	if f.calls == f.failOn {
		return domain.MediaRecord{}, errors.New("insert media: statement timeout")
	}
	return f.Media.InsertMediaRecord(ctx, rec)
}

// recordingBlobs tracks stored and removed paths and can fail the n-th Put.
type recordingBlobs struct {
	platform.Blobs
	mu        sync.Mutex
	failPutOn int
	puts      int
	stored    []string
	removed   []string
}

func (r *recordingBlobs) Put(ctx context.Context, path, contentType string, data []byte) error {
	r.mu.Lock()
	r.puts++
	fail := r.puts == r.failPutOn
	r.mu.Unlock()
	if fail {
		return errors.New("storage: 503 service unavailable")
	}
	if err := r.Blobs.Put(ctx, path, contentType, data); err != nil {
		return err
	}
	r.mu.Lock()
	r.stored = append(r.stored, path)
	r.mu.Unlock()
	return nil
}

func (r *recordingBlobs) Remove(ctx context.Context, paths []string) error {
	r.mu.Lock()
	r.removed = append(r.removed, paths...)
	r.mu.Unlock()
	return r.Blobs.Remove(ctx, paths)
}

func TestRetryAfterPhotoFailureReusesSavedMemory(t *testing.T) {
	tests := []struct {
		name      string
		stage     Stage
		failPutOn int
		failMedia int
	}{
		{name: "upload rejected", stage: StageUpload, failPutOn: 1},
		{name: "media record rejected", stage: StageMedia, failMedia: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			blobs := &recordingBlobs{Blobs: f.store, failPutOn: tt.failPutOn}
			f.backend.Blobs = blobs
			f.backend.Media = &failingMedia{Media: f.store, failOn: tt.failMedia}
			w := f.wizard(t, SchemaV2)
			id := toMemories(t, w, "a@example.com", "second-try")
			ctx := context.Background()

			key := w.Drafts()[0].Key
			fillDraft(t, w, key, "Lisbon", "Lisboa")

			res, err := w.Complete(ctx)
			var partial *PartialCompletionError
			require.True(t, errors.As(err, &partial))
			require.Len(t, res.Outcomes, 1)
			assert.Equal(t, tt.stage, res.Outcomes[0].Stage)
			memoryID := res.Outcomes[0].MemoryID
			require.NotEmpty(t, memoryID)
			assert.Equal(t, 1, f.memoryCount(t, id.UserID))
			assert.Equal(t, StepMemories, w.Step())

			draft := w.Drafts()[0]
			assert.Equal(t, memoryID, draft.MemoryID)
			assert.False(t, draft.Committed)

			_, err = w.UpdateDraft(key, DraftPatch{Note: strPtr("edit")})
			assert.ErrorIs(t, err, ErrDraftCommitted)
			_, _, err = w.AddDraft()
			require.NoError(t, err)
			_, err = w.RemoveDraft(key)
			assert.ErrorIs(t, err, ErrDraftCommitted)
			_, err = w.RemoveDraft(w.Drafts()[1].Key)
			require.NoError(t, err)

			if tt.stage == StageMedia {
				require.Len(t, blobs.stored, 1)
				assert.Equal(t, blobs.stored, blobs.removed)
				_, _, err := f.store.Get(ctx, blobs.stored[0])
				assert.ErrorIs(t, err, domain.ErrNotFound)
			}

			res, err = w.Complete(ctx)
			require.NoError(t, err)
			require.Len(t, res.Outcomes, 1)
			assert.True(t, res.Outcomes[0].OK())
			assert.Equal(t, memoryID, res.Outcomes[0].MemoryID)
			assert.Equal(t, 1, f.memoryCount(t, id.UserID), "memory row is not inserted twice")
			assert.Equal(t, StepDone, w.Step())

			recs, err := f.store.MediaForMemory(ctx, memoryID)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			_, _, err = f.store.Get(ctx, recs[0].StoragePath)
			assert.NoError(t, err)
		})
	}
}

func TestCloseDuringCompleteStopsBeforeNextDraft(t *testing.T) {
	f := newFixture()
	g := newGate()
	f.backend.Memories = gatedMemories{Memories: f.store, gate: g}
	w := f.wizard(t, SchemaV2)
	id := toMemories(t, w, "a@example.com", "closing-time")

	_, _, err := w.AddDraft()
	require.NoError(t, err)
	for i, d := range w.Drafts() {
		fillDraft(t, w, d.Key, []string{"Oslo", "Bergen"}[i], "NO")
	}

	type completion struct {
		res CompletionResult
		err error
	}
	done := make(chan completion, 1)
	go func() {
		res, err := w.Complete(context.Background())
		done <- completion{res, err}
	}()

	<-g.entered
	w.Close()
	close(g.release)
	got := <-done

	assert.ErrorIs(t, got.err, ErrClosed)
	require.Len(t, got.res.Outcomes, 1, "second draft never started")
	assert.True(t, got.res.Outcomes[0].OK())
	assert.Equal(t, 1, f.memoryCount(t, id.UserID))
	assert.Equal(t, StepMemories, w.Step())
	assert.False(t, w.Drafts()[0].Committed, "closed wizard keeps its drafts as they were")
	assert.Empty(t, w.Drafts()[0].MemoryID)
}

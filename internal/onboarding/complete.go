package onboarding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

// Stage is the last write step a draft reached.
type Stage string

const (
	StagePlace  Stage = "place"
	StagePin    Stage = "pin"
	StageMemory Stage = "memory"
	StageUpload Stage = "upload"
	StageMedia  Stage = "media"
	StageDone   Stage = "done"
)

// DraftOutcome records what the write chain produced for one draft.
type DraftOutcome struct {
	Key         string `json:"key"`
	Stage       Stage  `json:"stage"`
	PlaceID     string `json:"placeId,omitempty"`
	MemoryID    string `json:"memoryId,omitempty"`
	MediaID     string `json:"mediaId,omitempty"`
	StoragePath string `json:"storagePath,omitempty"`
	// Skipped drafts were committed by an earlier attempt.
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// OK reports whether the draft is persisted.
func (o DraftOutcome) OK() bool { return o.Err == nil && o.Stage == StageDone }

// CompletionResult lists one outcome per attempted draft, in list order.
// Drafts after a failure are absent.
type CompletionResult struct {
	Slug     string         `json:"slug"`
	Total    int            `json:"total"`
	Outcomes []DraftOutcome `json:"outcomes"`
}

// Committed counts drafts that are persisted, including ones skipped as already saved.
func (r CompletionResult) Committed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Complete validates every draft and writes them one after another in list order.
// Each draft runs place, pin, memory, photo upload and media record before the next
// starts. The first failure stops the run; earlier drafts stay written and are skipped
// if Complete is called again, and a draft whose memory row was saved resumes at the
// upload. Closing the wizard stops the run before the next draft.
func (w *Wizard) Complete(ctx context.Context) (CompletionResult, error) {
	if err := w.begin(StepMemories); err != nil {
		return CompletionResult{}, err
	}
	defer w.end()

	w.mu.Lock()
	identity, profile := w.identity, w.profile
	drafts := w.drafts.snapshot()
	w.mu.Unlock()

	if identity == nil {
		return CompletionResult{}, ErrNoIdentity
	}
	if n := len(drafts); n < 1 || n > w.schema.MaxDrafts {
		return CompletionResult{}, domain.Invalid("drafts", fmt.Sprintf("add between 1 and %d memories", w.schema.MaxDrafts))
	}
	for i, d := range drafts {
		if d.Committed {
			continue
		}
		if err := d.validate(i, w.schema); err != nil {
			return CompletionResult{}, err
		}
	}

	result := CompletionResult{Total: len(drafts)}
	if profile != nil {
		result.Slug = profile.Slug
	}

	for _, d := range drafts {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return result, ErrClosed
		}

		if d.Committed {
			result.Outcomes = append(result.Outcomes, DraftOutcome{Key: d.Key, Stage: StageDone, Skipped: true})
			continue
		}

		out := w.commitDraft(ctx, identity.UserID, d)
		result.Outcomes = append(result.Outcomes, out)
		w.recordProgress(d.Key, out)
		if out.Err != nil {
			w.recorder.DraftFailed(out.Stage)
			w.logger.Warn("memory draft failed",
				zap.String("user_id", identity.UserID),
				zap.String("draft", d.Key),
				zap.String("stage", string(out.Stage)),
				zap.Error(out.Err))
			return result, &PartialCompletionError{Result: result, Cause: out.Err}
		}

		w.recorder.DraftCommitted()
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return result, ErrClosed
	}
	w.step = StepDone
	w.mu.Unlock()

	w.recorder.OnboardingCompleted()
	w.logger.Info("onboarding completed",
		zap.String("user_id", identity.UserID),
		zap.String("slug", result.Slug),
		zap.Int("memories", result.Committed()))
	return result, nil
}

// recordProgress stores what the chain wrote on the draft so a retry does not
// write it twice. Nothing is recorded once the wizard is closed.
func (w *Wizard) recordProgress(key string, out DraftOutcome) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	d, err := w.drafts.get(key)
	if err != nil {
		return
	}
	if out.MemoryID != "" {
		d.PlaceID = out.PlaceID
		d.MemoryID = out.MemoryID
	}
	if out.OK() {
		d.Committed = true
	}
}

// commitDraft runs the dependent write chain for a single draft.
func (w *Wizard) commitDraft(ctx context.Context, userID string, d MemoryDraft) DraftOutcome {
	out := DraftOutcome{Key: d.Key, Stage: StagePlace}
	fail := func(err error) DraftOutcome {
		out.Err = err
		out.Error = err.Error()
		return out
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if d.MemoryID != "" {
		out.PlaceID = d.PlaceID
		out.MemoryID = d.MemoryID
		return w.attachMedia(ctx, userID, d, out)
	}

	place, err := w.backend.Places.EnsurePlace(ctx, d.Place)
	if err != nil {
		return fail(fmt.Errorf("resolve place: %w", err))
	}
	out.PlaceID = place.ID

	out.Stage = StagePin
	if err := w.backend.Pins.UpsertPin(ctx, domain.PinRow{UserID: userID, PlaceID: place.ID, Label: place.City}); err != nil {
		return fail(fmt.Errorf("save pin: %w", err))
	}

	out.Stage = StageMemory
	vis := d.Visibility
	if vis == "" {
		vis = domain.VisibilityPublic
	}
	mem, err := w.backend.Memories.InsertMemory(ctx, domain.NewMemory{
		UserID:      userID,
		PlaceID:     place.ID,
		Description: d.Description,
		Note:        d.Note,
		TakenAt:     d.TakenAt,
		Visibility:  vis,
	})
	if err != nil {
		return fail(fmt.Errorf("save memory: %w", err))
	}
	out.MemoryID = mem.ID
	return w.attachMedia(ctx, userID, d, out)
}

// attachMedia uploads the draft's photo for the saved memory in out and records it.
func (w *Wizard) attachMedia(ctx context.Context, userID string, d MemoryDraft, out DraftOutcome) DraftOutcome {
	fail := func(err error) DraftOutcome {
		out.Err = err
		out.Error = err.Error()
		return out
	}

	out.Stage = StageUpload
	path, err := w.uploader.UploadMemoryPhoto(ctx, userID, out.MemoryID, *d.Photo)
	if err != nil {
		return fail(fmt.Errorf("upload photo: %w", err))
	}
	out.StoragePath = path

	out.Stage = StageMedia
	rec, err := w.backend.Media.InsertMediaRecord(ctx, domain.MediaRecord{
		MemoryID:    out.MemoryID,
		StoragePath: path,
		SortOrder:   0,
		TakenAt:     d.TakenAt,
	})
	if err != nil {
		if rmErr := w.backend.Blobs.Remove(ctx, []string{path}); rmErr != nil {
			w.logger.Warn("orphaned photo left in storage", zap.String("path", path), zap.Error(rmErr))
		}
		return fail(fmt.Errorf("save media record: %w", err))
	}
	out.MediaID = rec.ID
	out.Stage = StageDone
	return out
}

// Package onboarding implements the three step signup flow: account, profile, memories.
package onboarding

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/media"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
)

// Step is a wizard screen. Steps only advance one at a time.
type Step int

const (
	StepAccount Step = iota + 1
	StepProfile
	StepMemories
	StepDone
)

// String names the step.
func (s Step) String() string {
	switch s {
	case StepAccount:
		return "account"
	case StepProfile:
		return "profile"
	case StepMemories:
		return "memories"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText renders the step by name.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PhotoUploader writes prepared images to blob storage.
type PhotoUploader interface {
	UploadMemoryPhoto(ctx context.Context, ownerID, memoryID string, p media.Photo) (string, error)
	UploadAvatar(ctx context.Context, ownerID string, p media.Photo) (string, error)
}

// Deps are the collaborators a wizard writes through.
type Deps struct {
	Backend      platform.Backend
	Uploader     PhotoUploader
	Schema       DraftSchema
	SlugDebounce time.Duration
	AfterFunc    AfterFunc
	Logger       *zap.Logger
	Recorder     Recorder
	// NewKey generates draft keys. Defaults to ULIDs.
	NewKey func() string
}

// ProfileForm is the step two input.
type ProfileForm struct {
	FullName string
	Slug     string
	HomeCity string
	Avatar   *media.Photo
}

// State is a read-only snapshot for rendering the current screen.
type State struct {
	Step       Step             `json:"step"`
	Identity   *domain.Identity `json:"identity,omitempty"`
	Profile    *domain.Profile  `json:"profile,omitempty"`
	Slug       string           `json:"slug"`
	SlugStatus SlugStatus       `json:"slugStatus"`
	Drafts     []DraftView      `json:"drafts"`
	MaxDrafts  int              `json:"maxDrafts"`
	Schema     string           `json:"schema"`
	Busy       bool             `json:"busy"`
}

// Wizard is one onboarding session. It is safe for concurrent use, but only one
// submission runs at a time; overlapping submits get ErrBusy.
type Wizard struct {
	backend  platform.Backend
	uploader PhotoUploader
	schema   DraftSchema
	logger   *zap.Logger
	recorder Recorder
	slug     *SlugChecker

	mu       sync.Mutex
	step     Step
	identity *domain.Identity
	profile  *domain.Profile
	drafts   draftList
	busy     bool
	closed   bool
}

// NewWizard starts a session at the account step with one empty draft.
func NewWizard(deps Deps) *Wizard {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Schema.MaxDrafts <= 0 {
		deps.Schema = SchemaV2
	}
	if deps.SlugDebounce <= 0 {
		deps.SlugDebounce = DefaultSlugDebounce
	}
	if deps.NewKey == nil {
		deps.NewKey = newDraftKey
	}

	w := &Wizard{
		backend:  deps.Backend,
		uploader: deps.Uploader,
		schema:   deps.Schema,
		logger:   deps.Logger,
		recorder: deps.Recorder,
		step:     StepAccount,
		drafts:   draftList{max: deps.Schema.MaxDrafts, newKey: deps.NewKey},
	}
	w.slug = NewSlugChecker(deps.Backend.Profiles,
		WithDebounce(deps.SlugDebounce),
		WithAfterFunc(deps.AfterFunc),
		WithSlugLogger(deps.Logger),
		WithSlugRecorder(deps.Recorder),
	)
	w.drafts.add()
	return w
}

// Close discards the session. Pending slug checks are dropped.
func (w *Wizard) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.slug.Close()
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// State snapshots the session.
func (w *Wizard) State() State {
	slug, status := w.slug.Status()

	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		Step:       w.step,
		Slug:       slug,
		SlugStatus: status,
		Drafts:     w.drafts.views(),
		MaxDrafts:  w.schema.MaxDrafts,
		Schema:     w.schema.Version,
		Busy:       w.busy,
	}
	if w.identity != nil {
		id := *w.identity
		st.Identity = &id
	}
	if w.profile != nil {
		p := *w.profile
		st.Profile = &p
	}
	return st
}

// begin claims the busy flag for a submission at step want.
func (w *Wizard) begin(want Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.closed:
		return ErrClosed
	case w.busy:
		return ErrBusy
	case w.step != want:
		return ErrWrongStep
	}
	w.busy = true
	return nil
}

func (w *Wizard) end() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}

// SubmitAccount creates the identity and advances to the profile step.
// On failure the wizard stays on the account step and the error is returned as is.
func (w *Wizard) SubmitAccount(ctx context.Context, email, password string) (domain.Identity, error) {
	if err := w.begin(StepAccount); err != nil {
		return domain.Identity{}, err
	}
	defer w.end()

	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Identity{}, domain.Invalid("email", "email is required")
	}
	if password == "" {
		return domain.Identity{}, domain.Invalid("password", "password is required")
	}

	id, err := w.backend.Accounts.CreateAccount(ctx, email, password)
	if err != nil {
		w.logger.Info("account creation failed", zap.Error(err))
		return domain.Identity{}, err
	}

	w.mu.Lock()
	w.identity = &id
	w.step = StepProfile
	w.mu.Unlock()
	w.slug.SetOwner(id.UserID)

	w.logger.Info("account created", zap.String("user_id", id.UserID))
	return id, nil
}

// SetSlug feeds slug text to the debounced availability checker.
func (w *Wizard) SetSlug(raw string) SlugStatus {
	return w.slug.Input(raw)
}

// SlugStatus returns the latest normalized slug and its availability.
func (w *Wizard) SlugStatus() (string, SlugStatus) {
	return w.slug.Status()
}

// SubmitProfile validates the form, uploads the avatar if one is attached, upserts
// the profile and advances to the memories step.
func (w *Wizard) SubmitProfile(ctx context.Context, form ProfileForm) (domain.Profile, error) {
	if err := w.begin(StepProfile); err != nil {
		return domain.Profile{}, err
	}
	defer w.end()

	w.mu.Lock()
	identity, prev := w.identity, w.profile
	w.mu.Unlock()

	if identity == nil {
		return domain.Profile{}, ErrNoIdentity
	}
	fullName := strings.TrimSpace(form.FullName)
	if fullName == "" {
		return domain.Profile{}, domain.Invalid("fullName", "full name is required")
	}
	slug := domain.NormalizeSlug(form.Slug)
	if len(slug) < domain.MinSlugLength {
		return domain.Profile{}, domain.Invalid("slug", "slug must be at least 3 characters")
	}
	homeCity := strings.TrimSpace(form.HomeCity)
	if homeCity == "" {
		return domain.Profile{}, domain.Invalid("homeCity", "home city is required")
	}

	checked, status := w.slug.Status()
	if checked != slug {
		status = w.slug.CheckNow(ctx, form.Slug)
	}
	switch status {
	case SlugChecking:
		return domain.Profile{}, ErrSlugChecking
	case SlugTaken:
		return domain.Profile{}, ErrSlugTaken
	}

	profile := domain.Profile{
		UserID:   identity.UserID,
		Slug:     slug,
		FullName: fullName,
		HomeCity: homeCity,
	}
	if prev != nil {
		profile.AvatarPath = prev.AvatarPath
	}
	var uploaded string
	if form.Avatar != nil && !form.Avatar.Empty() {
		path, err := w.uploader.UploadAvatar(ctx, identity.UserID, *form.Avatar)
		if err != nil {
			return domain.Profile{}, err
		}
		uploaded = path
		profile.AvatarPath = path
	}

	saved, err := w.backend.Profiles.UpsertProfile(ctx, profile)
	if err != nil {
		if uploaded != "" {
			if rmErr := w.backend.Blobs.Remove(ctx, []string{uploaded}); rmErr != nil {
				w.logger.Warn("orphaned avatar left in storage", zap.String("path", uploaded), zap.Error(rmErr))
			}
		}
		if domain.IsSlugConflict(err) {
			w.logger.Info("profile slug conflict", zap.String("slug", slug), zap.Error(err))
			return domain.Profile{}, ErrSlugTaken
		}
		return domain.Profile{}, err
	}

	w.mu.Lock()
	w.profile = &saved
	w.step = StepMemories
	w.mu.Unlock()

	w.logger.Info("profile saved", zap.String("user_id", saved.UserID), zap.String("slug", saved.Slug))
	return saved, nil
}

// Back returns to the previous step when that cannot orphan written data:
// memories to profile always, profile to account only before an identity exists.
func (w *Wizard) Back() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return w.step, ErrClosed
	}
	if w.busy {
		return w.step, ErrBusy
	}

	switch {
	case w.step == StepMemories:
		w.step = StepProfile
	case w.step == StepProfile && w.identity == nil:
		w.step = StepAccount
	default:
		return w.step, ErrBackNotAllowed
	}
	return w.step, nil
}

// editable guards draft mutations. Callers hold w.mu.
func (w *Wizard) editableLocked() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.busy:
		return ErrBusy
	case w.step == StepDone:
		return ErrWrongStep
	}
	return nil
}

// AddDraft appends an empty draft. It is a no-op, reporting false, once the cap is reached.
func (w *Wizard) AddDraft() (DraftView, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return DraftView{}, false, err
	}
	d, ok := w.drafts.add()
	if !ok {
		return DraftView{}, false, nil
	}
	return d.view(), true, nil
}

// RemoveDraft drops a draft. It is a no-op, reporting false, when only one draft remains.
// A draft whose memory row is already saved cannot be removed.
func (w *Wizard) RemoveDraft(key string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return false, err
	}
	if d, err := w.drafts.get(key); err == nil && d.MemoryID != "" {
		return false, ErrDraftCommitted
	}
	return w.drafts.remove(key)
}

// UpdateDraft merges patch into the draft with key. List order is unchanged.
func (w *Wizard) UpdateDraft(key string, patch DraftPatch) (DraftView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return DraftView{}, err
	}
	d, err := w.drafts.get(key)
	if err != nil {
		return DraftView{}, err
	}
	if d.Committed || d.MemoryID != "" {
		return DraftView{}, ErrDraftCommitted
	}
	d.apply(patch)
	return d.view(), nil
}

// AttachPhoto sets the single photo of a draft, replacing any previous one. The
// photo can still be replaced while a saved memory waits for its upload.
func (w *Wizard) AttachPhoto(key string, photo media.Photo) (DraftView, error) {
	if photo.Empty() {
		return DraftView{}, domain.Invalid("photo", "no image data")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return DraftView{}, err
	}
	d, err := w.drafts.get(key)
	if err != nil {
		return DraftView{}, err
	}
	if d.Committed {
		return DraftView{}, ErrDraftCommitted
	}
	p := photo
	d.Photo = &p
	return d.view(), nil
}

// Drafts lists the drafts in order.
func (w *Wizard) Drafts() []DraftView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drafts.views()
}

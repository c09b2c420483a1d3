package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

// SlugStatus classifies the latest slug text.
type SlugStatus string

const (
	SlugIdle      SlugStatus = "idle"
	SlugInvalid   SlugStatus = "invalid"
	SlugChecking  SlugStatus = "checking"
	SlugAvailable SlugStatus = "available"
	SlugTaken     SlugStatus = "taken"
)

// DefaultSlugDebounce is the quiet period before an availability query is sent.
const DefaultSlugDebounce = 300 * time.Millisecond

// SlugLookup is the read the checker needs from the profile store.
type SlugLookup interface {
	ProfileBySlug(ctx context.Context, slug string) (domain.Profile, error)
}

// AfterFunc schedules f after d and returns a stop function with time.Timer.Stop semantics.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timerAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// SlugChecker tracks availability of the slug being typed. Every Input starts a new
// generation; a lookup result is applied only if its generation is still the latest,
// so a slow early query can never overwrite a newer answer.
type SlugChecker struct {
	lookup   SlugLookup
	quiet    time.Duration
	after    AfterFunc
	logger   *zap.Logger
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	gen     uint64
	raw     string
	slug    string
	status  SlugStatus
	ownerID string
	stop    func() bool
	closed  bool
}

// SlugCheckerOption configures a SlugChecker.
type SlugCheckerOption func(*SlugChecker)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) SlugCheckerOption {
	return func(c *SlugChecker) { c.quiet = d }
}

// WithAfterFunc replaces the timer used for debouncing.
func WithAfterFunc(f AfterFunc) SlugCheckerOption {
	return func(c *SlugChecker) {
		if f != nil {
			c.after = f
		}
	}
}

// WithSlugLogger sets the logger.
func WithSlugLogger(l *zap.Logger) SlugCheckerOption {
	return func(c *SlugChecker) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSlugRecorder reports applied results.
func WithSlugRecorder(r Recorder) SlugCheckerOption {
	return func(c *SlugChecker) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewSlugChecker returns an idle checker.
func NewSlugChecker(lookup SlugLookup, opts ...SlugCheckerOption) *SlugChecker {
	ctx, cancel := context.WithCancel(context.Background())
	c := &SlugChecker{
		lookup:   lookup,
		quiet:    DefaultSlugDebounce,
		after:    timerAfterFunc,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		ctx:      ctx,
		cancel:   cancel,
		status:   SlugIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOwner marks the user whose own profile should not count as taking the slug.
func (c *SlugChecker) SetOwner(userID string) {
	c.mu.Lock()
	c.ownerID = userID
	c.mu.Unlock()
}

// Status returns the normalized slug of the latest input and its classification.
func (c *SlugChecker) Status() (string, SlugStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slug, c.status
}

// Input records new slug text and schedules a debounced lookup when the slug is long enough.
func (c *SlugChecker) Input(raw string) SlugStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen, ok := c.resetLocked(raw)
	if !ok {
		return c.status
	}

	slug := c.slug
	c.wg.Add(1)
	c.stop = c.after(c.quiet, func() {
		defer c.wg.Done()
		c.resolve(c.ctx, gen, slug)
	})
	return c.status
}

// CheckNow supersedes any pending check and queries immediately.
func (c *SlugChecker) CheckNow(ctx context.Context, raw string) SlugStatus {
	c.mu.Lock()
	gen, ok := c.resetLocked(raw)
	slug, status := c.slug, c.status
	c.mu.Unlock()

	if !ok {
		return status
	}
	return c.resolve(ctx, gen, slug)
}

// Close stops pending timers and discards every in-flight result.
func (c *SlugChecker) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	c.stopTimerLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// resetLocked starts a new generation for raw. ok is false when no lookup is needed.
func (c *SlugChecker) resetLocked(raw string) (gen uint64, ok bool) {
	if c.closed {
		return 0, false
	}

	c.gen++
	c.stopTimerLocked()
	c.raw = raw
	c.slug = domain.NormalizeSlug(raw)

	switch {
	case raw == "":
		c.status = SlugIdle
		return c.gen, false
	case len(c.slug) < domain.MinSlugLength:
		c.status = SlugInvalid
		return c.gen, false
	}

	c.status = SlugChecking
	return c.gen, true
}

func (c *SlugChecker) stopTimerLocked() {
	if c.stop == nil {
		return
	}
	if c.stop() {
		// The callback will never run, so release its wait slot here.
		c.wg.Done()
	}
	c.stop = nil
}

// resolve runs the lookup for generation gen and applies the result if gen is still current.
func (c *SlugChecker) resolve(ctx context.Context, gen uint64, slug string) SlugStatus {
	profile, err := c.lookup.ProfileBySlug(ctx, slug)

	c.mu.Lock()
	defer c.mu.Unlock()

	status := SlugAvailable
	switch {
	case err == nil && profile.UserID != "" && profile.UserID == c.ownerID:
		status = SlugAvailable
	case err == nil:
		status = SlugTaken
	case errors.Is(err, domain.ErrNotFound):
		status = SlugAvailable
	default:
		// Read failures must not block signup; the unique index still guards the write.
		c.logger.Warn("slug availability lookup failed, treating as available",
			zap.String("slug", slug), zap.Error(err))
	}

	if gen != c.gen || c.closed {
		c.logger.Debug("discarding stale slug result", zap.String("slug", slug), zap.Uint64("generation", gen))
		return c.status
	}

	c.status = status
	c.recorder.SlugChecked(status)
	return status
}

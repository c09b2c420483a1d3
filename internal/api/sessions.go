package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
)

type session struct {
	wizard   *onboarding.Wizard
	lastSeen time.Time
}

// sessionRegistry holds the open onboarding wizards. A session idle for longer
// than ttl is closed on its next lookup or by the periodic sweep.
type sessionRegistry struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	items     map[string]*session
	newWizard func() *onboarding.Wizard

	onOpen  func()
	onClose func()
}

func newSessionRegistry(ttl time.Duration, newWizard func() *onboarding.Wizard) *sessionRegistry {
	return &sessionRegistry{
		ttl:       ttl,
		now:       time.Now,
		items:     make(map[string]*session),
		newWizard: newWizard,
		onOpen:    func() {},
		onClose:   func() {},
	}
}

func (r *sessionRegistry) create() (string, *onboarding.Wizard) {
	id := uuid.NewString()
	w := r.newWizard()

	r.mu.Lock()
	r.items[id] = &session{wizard: w, lastSeen: r.now()}
	r.mu.Unlock()

	r.onOpen()
	return id, w
}

// get returns the wizard for id and refreshes its idle timer.
func (r *sessionRegistry) get(id string) (*onboarding.Wizard, error) {
	r.mu.Lock()
	s, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return nil, errSessionNotFound
	}
	now := r.now()
	if now.Sub(s.lastSeen) > r.ttl {
		delete(r.items, id)
		r.mu.Unlock()
		r.discard(s)
		return nil, errSessionNotFound
	}
	s.lastSeen = now
	r.mu.Unlock()
	return s.wizard, nil
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	s, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()

	if ok {
		r.discard(s)
	}
	return ok
}

// sweep closes every expired session and reports how many went.
func (r *sessionRegistry) sweep() int {
	now := r.now()
	var expired []*session

	r.mu.Lock()
	for id, s := range r.items {
		if now.Sub(s.lastSeen) > r.ttl {
			expired = append(expired, s)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.discard(s)
	}
	return len(expired)
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	all := make([]*session, 0, len(r.items))
	for id, s := range r.items {
		all = append(all, s)
		delete(r.items, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		r.discard(s)
	}
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// discard runs outside the registry lock; closing a wizard waits for its in-flight slug lookup.
func (r *sessionRegistry) discard(s *session) {
	s.wizard.Close()
	r.onClose()
}

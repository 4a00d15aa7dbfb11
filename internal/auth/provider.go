package auth

import (
	"context"
	"sync"
	"time"

	"github.com/tasklane/tasklane-backend/internal/auth/domain"
)

// Provider is the authentication provider contract the application depends on.
type Provider interface {
	// SignIn exchanges a provider credential for a user and opens a session.
	SignIn(ctx context.Context, credential string) (*domain.User, error)
	// SignOut ends the user's session.
	SignOut(ctx context.Context, uid string) error
	// SubscribeSessionState calls fn with the current session state of uid
	// and again on every change (nil means signed out). fn must not call
	// back into the provider.
	SubscribeSessionState(uid string, fn func(*domain.User)) (unsubscribe func())
}

// sessions tracks signed-in users and fans out session changes per uid.
type sessions struct {
	deliverMu sync.Mutex // serializes callbacks so events arrive in order

	mu     sync.Mutex
	active map[string]*domain.User
	timers map[string]*time.Timer
	subs   map[string]map[int]func(*domain.User)
	nextID int
}

func newSessions() *sessions {
	return &sessions{
		active: make(map[string]*domain.User),
		timers: make(map[string]*time.Timer),
		subs:   make(map[string]map[int]func(*domain.User)),
	}
}

func (s *sessions) current(uid string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[uid]
}

// signedIn records u. A non-zero expires ends the session at that time.
func (s *sessions) signedIn(u *domain.User, expires time.Time) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.active[u.ID] = u
	if t, ok := s.timers[u.ID]; ok {
		t.Stop()
		delete(s.timers, u.ID)
	}
	if !expires.IsZero() {
		uid := u.ID
		s.timers[uid] = time.AfterFunc(time.Until(expires), func() { s.expire(uid, u) })
	}
	fns := s.listenersLocked(u.ID)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

func (s *sessions) signedOut(uid string) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	_, wasActive := s.active[uid]
	delete(s.active, uid)
	if t, ok := s.timers[uid]; ok {
		t.Stop()
		delete(s.timers, uid)
	}
	fns := s.listenersLocked(uid)
	s.mu.Unlock()

	if !wasActive {
		return
	}
	for _, fn := range fns {
		fn(nil)
	}
}

// expire ends the session only if it still belongs to the same sign-in.
func (s *sessions) expire(uid string, u *domain.User) {
	s.mu.Lock()
	same := s.active[uid] == u
	s.mu.Unlock()
	if same {
		s.signedOut(uid)
	}
}

func (s *sessions) subscribe(uid string, fn func(*domain.User)) func() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs[uid] == nil {
		s.subs[uid] = make(map[int]func(*domain.User))
	}
	s.subs[uid][id] = fn
	u := s.active[uid]
	s.mu.Unlock()

	fn(u)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[uid], id)
		if len(s.subs[uid]) == 0 {
			delete(s.subs, uid)
		}
	}
}

func (s *sessions) listenersLocked(uid string) []func(*domain.User) {
	fns := make([]func(*domain.User), 0, len(s.subs[uid]))
	for _, fn := range s.subs[uid] {
		fns = append(fns, fn)
	}
	return fns
}

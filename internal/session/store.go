// Package session exposes one user's provider session as an observable value.
package session

import (
	"context"
	"sync"

	"github.com/tasklane/tasklane-backend/internal/auth"
	"github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/logging"
)

// State is the current session value. Loading stays true until the provider
// has reported once.
type State struct {
	User    *domain.User `json:"user"`
	Loading bool         `json:"loading"`
}

type Store struct {
	provider auth.Provider
	uid      string

	mu          sync.Mutex
	state       State
	subs        map[int]func(State)
	nextID      int
	unsubscribe func()
}

// NewStore subscribes to the provider's session stream for uid. The
// subscription lives until Close.
func NewStore(provider auth.Provider, uid string) *Store {
	s := &Store{
		provider: provider,
		uid:      uid,
		state:    State{Loading: true},
		subs:     make(map[int]func(State)),
	}
	unsubscribe := provider.SubscribeSessionState(uid, s.onProviderEvent)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return s
}

func (s *Store) onProviderEvent(u *domain.User) {
	s.mu.Lock()
	s.state = State{User: u, Loading: false}
	st := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe calls fn on every change. It does not replay the current value.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SignIn delegates to the provider. The new state arrives through the
// provider's session stream, not from the return value.
func (s *Store) SignIn(ctx context.Context, credential string) (*domain.User, error) {
	user, err := s.provider.SignIn(ctx, credential)
	if err != nil {
		logging.New(ctx, "session").LogWarnf("sign-in", "uid=%s error=%v", s.uid, err)
		return nil, asAuthError("sign-in", err)
	}
	return user, nil
}

// SignOut delegates to the provider. On failure local state is left for the
// next provider event to correct.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx, s.uid); err != nil {
		logging.New(ctx, "session").LogWarnf("sign-out", "uid=%s error=%v", s.uid, err)
		return asAuthError("sign-out", err)
	}
	return nil
}

// Close detaches from the provider.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.subs = make(map[int]func(State))
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func asAuthError(op string, err error) error {
	if _, ok := err.(*domain.AuthError); ok {
		return err
	}
	return &domain.AuthError{Op: op, Err: err}
}

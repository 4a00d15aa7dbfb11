package voice

import "sync"

// Relay is a Recognizer whose recognition runs on the client device. The
// device reports its result, error and end events through EventSink.
type Relay struct {
	mu       sync.Mutex
	listener Listener
}

func NewRelay() *Relay {
	return &Relay{}
}

func (r *Relay) Start(l Listener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
	return nil
}

func (r *Relay) Stop() {
	if l := r.take(); l != nil {
		l.OnEnd()
	}
}

func (r *Relay) Result(transcript string) error {
	l := r.take()
	if l == nil {
		return ErrNotListening
	}
	l.OnResult(transcript)
	l.OnEnd()
	return nil
}

func (r *Relay) Error(code string) error {
	l := r.take()
	if l == nil {
		return ErrNotListening
	}
	l.OnError(code)
	l.OnEnd()
	return nil
}

func (r *Relay) End() error {
	l := r.take()
	if l == nil {
		return ErrNotListening
	}
	l.OnEnd()
	return nil
}

func (r *Relay) take() Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.listener
	r.listener = nil
	return l
}

var (
	_ Recognizer = (*Relay)(nil)
	_ EventSink  = (*Relay)(nil)
)

package voice

import "sync"

// Handler is told about recorder outcomes. Calls never overlap with the
// recorder's own lock held.
type Handler interface {
	Recording(on bool)
	Transcript(text string)
	Failed(err *RecognitionError)
}

// Recorder is a single-shot state machine: idle -> recording -> idle.
// Each session yields at most one transcript or one error.
type Recorder struct {
	rec     Recognizer
	handler Handler

	mu        sync.Mutex
	recording bool
	session   uint64
}

func newRecorder(rec Recognizer, h Handler) *Recorder {
	return &Recorder{rec: rec, handler: h}
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start opens a session. It is a no-op while one is already running.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = true
	r.session++
	l := &sessionListener{r: r, id: r.session}
	r.mu.Unlock()

	// Reported before the recognizer starts: its events may arrive before
	// Start returns and must follow this one.
	r.handler.Recording(true)
	if err := r.rec.Start(l); err != nil {
		if r.finish(l.id) {
			r.handler.Recording(false)
		}
		return err
	}
	return nil
}

// Stop ends the session as if nothing was heard. No error is reported.
func (r *Recorder) Stop() {
	if !r.finish(r.current()) {
		return
	}
	r.handler.Recording(false)
	r.rec.Stop()
}

func (r *Recorder) current() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// finish moves session id to idle and reports whether it was still recording.
func (r *Recorder) finish(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || r.session != id {
		return false
	}
	r.recording = false
	return true
}

// sessionListener ties recognizer events to the session that started them so
// events from an earlier session are dropped.
type sessionListener struct {
	r  *Recorder
	id uint64
}

func (l *sessionListener) OnResult(transcript string) {
	if !l.r.finish(l.id) {
		return
	}
	l.r.handler.Recording(false)
	l.r.handler.Transcript(transcript)
}

func (l *sessionListener) OnError(code string) {
	if !l.r.finish(l.id) {
		return
	}
	l.r.handler.Recording(false)
	l.r.handler.Failed(Classify(code))
}

func (l *sessionListener) OnEnd() {
	if !l.r.finish(l.id) {
		return
	}
	l.r.handler.Recording(false)
}

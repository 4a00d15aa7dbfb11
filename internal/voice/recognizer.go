// Package voice turns a platform speech recognizer into a single-shot
// transcript producer.
package voice

// Listener receives the events of one recognition session.
type Listener interface {
	OnResult(transcript string)
	OnError(code string)
	OnEnd()
}

// Recognizer is the platform speech facility.
type Recognizer interface {
	// Start begins a session reporting to l. Events for the session arrive
	// asynchronously, and OnEnd is the last one.
	Start(l Listener) error
	// Stop ends the current session early. It may still report OnEnd.
	Stop()
}

// EventSink accepts events produced by a recognizer that runs elsewhere,
// such as on the user's device.
type EventSink interface {
	Result(transcript string) error
	Error(code string) error
	End() error
}

// Capture is the resolved speech capability: Available with a recognizer, or
// Unavailable.
type Capture struct {
	recognizer Recognizer
}

func Available(r Recognizer) Capture {
	return Capture{recognizer: r}
}

func Unavailable() Capture {
	return Capture{}
}

func (c Capture) Supported() bool {
	return c.recognizer != nil
}

// Sink returns the recognizer's device event entry point, if it has one.
func (c Capture) Sink() (EventSink, bool) {
	s, ok := c.recognizer.(EventSink)
	return s, ok
}

// Open returns a recorder bound to h, or UnsupportedError.
func (c Capture) Open(h Handler) (*Recorder, error) {
	if c.recognizer == nil {
		return nil, UnsupportedError{}
	}
	return newRecorder(c.recognizer, h), nil
}

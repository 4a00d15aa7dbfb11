package workspace

import (
	"context"
	"errors"

	"github.com/tasklane/tasklane-backend/internal/todo/domain"
	"github.com/tasklane/tasklane-backend/internal/todo/repository"
	"github.com/tasklane/tasklane-backend/internal/voice"
)

// StartVoice begins a single-shot recording for the selected list. Starting
// while already recording does nothing.
func (w *Workspace) StartVoice(ctx context.Context) error {
	err := w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		if w.items == nil {
			return ErrNoListSelected
		}
		if w.state.IsParsing {
			return ErrBusy
		}
		return nil
	})
	if err != nil {
		return err
	}

	rec, err := w.openRecorder()
	if err != nil {
		_ = w.call(ctx, func() error {
			w.state.VoiceError = err.Error()
			w.touch()
			return nil
		})
		return err
	}
	return rec.Start()
}

// StopVoice ends recording early. Nothing is reported for the session.
func (w *Workspace) StopVoice(ctx context.Context) error {
	w.markActive()
	rec, err := w.openRecorder()
	if err != nil {
		return err
	}
	rec.Stop()
	return nil
}

// VoiceResult, VoiceError and VoiceEnd accept events from a recognizer that
// runs on the user's device.
func (w *Workspace) VoiceResult(ctx context.Context, transcript string) error {
	sink, err := w.sink()
	if err != nil {
		return err
	}
	return sink.Result(transcript)
}

func (w *Workspace) VoiceError(ctx context.Context, code string) error {
	sink, err := w.sink()
	if err != nil {
		return err
	}
	return sink.Error(code)
}

func (w *Workspace) VoiceEnd(ctx context.Context) error {
	sink, err := w.sink()
	if err != nil {
		return err
	}
	return sink.End()
}

func (w *Workspace) sink() (voice.EventSink, error) {
	w.markActive()
	if !w.capture.Supported() {
		return nil, voice.UnsupportedError{}
	}
	sink, ok := w.capture.Sink()
	if !ok {
		return nil, ErrNoRelay
	}
	return sink, nil
}

// openRecorder resolves the speech capability on first use.
func (w *Workspace) openRecorder() (*voice.Recorder, error) {
	w.recorderOnce.Do(func() {
		w.recorder, w.recorderErr = w.capture.Open(voiceHandler{w})
	})
	if w.recorder == nil && w.recorderErr == nil {
		return nil, ErrClosed
	}
	return w.recorder, w.recorderErr
}

// voiceHandler receives recorder outcomes on the recognizer's goroutine.
type voiceHandler struct {
	w *Workspace
}

func (h voiceHandler) Recording(on bool) {
	h.w.post(func() {
		h.w.state.IsRecording = on
		if on {
			h.w.state.VoiceError = ""
		}
		h.w.touch()
	})
}

func (h voiceHandler) Failed(err *voice.RecognitionError) {
	h.w.post(func() {
		h.w.state.VoiceError = err.Error()
		h.w.touch()
	})
}

// Transcript turns the transcript into tasks for the list that was selected
// when it arrived.
func (h voiceHandler) Transcript(text string) {
	w := h.w
	ctx := w.ctx

	if domain.Blank(text) {
		w.post(func() {
			w.state.VoiceError = msgNoTasksFromSpeech
			w.touch()
		})
		return
	}

	var repo *repository.ItemRepository
	err := w.call(ctx, func() error {
		if w.items == nil {
			w.state.VoiceError = msgSelectList
			w.touch()
			return ErrNoListSelected
		}
		repo = w.items
		w.state.IsParsing = true
		w.state.VoiceError = ""
		w.touch()
		return nil
	})
	if err != nil {
		return
	}

	message := ""
	drafts, err := w.tasks.ParseFromTranscript(ctx, text)
	switch {
	case err != nil:
		message = aiMessage(err)
	case len(drafts) == 0:
		message = msgNoTasksFromSpeech
	default:
		if err := w.commit(ctx, repo, drafts); err != nil && !errors.Is(err, ErrListChanged) {
			message = msgSaveFailed
		}
	}

	_ = w.call(ctx, func() error {
		w.state.IsParsing = false
		w.state.VoiceError = message
		w.touch()
		return nil
	})
}

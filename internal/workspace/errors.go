package workspace

import (
	"errors"

	"github.com/tasklane/tasklane-backend/internal/ai"
)

var (
	ErrClosed         = errors.New("workspace closed")
	ErrNoListSelected = errors.New("no list selected")
	ErrUnknownList    = errors.New("list not found")
	ErrListChanged    = errors.New("selected list changed before tasks were saved")
	ErrGoalInProgress = errors.New("a goal is already being processed")
	ErrBusy           = errors.New("still processing the last recording")
	ErrNoRelay        = errors.New("voice events are not accepted for this recognizer")
)

const (
	msgNoTasksFromSpeech = "Couldn't identify any tasks from your speech."
	msgNoTasksFromGoal   = "Couldn't identify any tasks from your goal."
	msgSaveFailed        = "Failed to save the new tasks. Please try again."
	msgSelectList        = "Select or create a list to get started."
	msgListsLost         = "Lost connection to your lists. Reload to try again."
	msgItemsLost         = "Lost connection to this list. Reload to try again."
	msgUnknown           = "An unknown error occurred."
	msgAIUnavailable     = "AI features are not available."
	msgRateLimited       = "You're generating tasks too quickly. Please wait a moment."
)

// aiMessage maps a task generation failure to the text shown to the user.
func aiMessage(err error) string {
	var genErr *ai.GenerationError
	var cfgErr *ai.ConfigurationError
	switch {
	case errors.As(err, &genErr):
		return genErr.Message
	case errors.As(err, &cfgErr):
		return msgAIUnavailable
	case errors.Is(err, ai.ErrRateLimited):
		return msgRateLimited
	default:
		return msgUnknown
	}
}

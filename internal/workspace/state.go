package workspace

import (
	authdomain "github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
)

// GoalState is the AI goal dialog.
type GoalState struct {
	Open    bool   `json:"open"`
	Input   string `json:"input"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// State is everything a client needs to render one user's workspace. Every
// published State is a full replacement of the previous one.
type State struct {
	Version        uint64            `json:"version"`
	User           *authdomain.User  `json:"user"`
	SessionLoading bool              `json:"session_loading"`
	Lists          []domain.TodoList `json:"lists"`
	ListsLoading   bool              `json:"lists_loading"`
	SelectedListID *string           `json:"selected_list_id"`
	Items          []domain.TodoItem `json:"items"`
	ItemsLoading   bool              `json:"items_loading"`
	IsRecording    bool              `json:"is_recording"`
	IsParsing      bool              `json:"is_parsing"`
	VoiceError     string            `json:"voice_error,omitempty"`
	Error          string            `json:"error,omitempty"`
	Goal           GoalState         `json:"goal"`
	AIAvailable    bool              `json:"ai_available"`
	VoiceAvailable bool              `json:"voice_available"`
}

func (s State) selected() string {
	if s.SelectedListID == nil {
		return ""
	}
	return *s.SelectedListID
}

func containsList(lists []domain.TodoList, id string) bool {
	for _, l := range lists {
		if l.ID == id {
			return true
		}
	}
	return false
}

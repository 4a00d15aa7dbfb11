package http

import (
	"github.com/tasklane/tasklane-backend/internal/workspace"
)

// Workspaces hands out the caller's workspace. *workspace.Hub satisfies it.
type Workspaces interface {
	Get(uid string) (*workspace.Workspace, error)
}

type Handler struct {
	workspaces Workspaces
}

func New(workspaces Workspaces) *Handler {
	return &Handler{workspaces: workspaces}
}

type selectionRequest struct {
	ListID *string `json:"list_id"`
}

type createListRequest struct {
	Name string `json:"name"`
}

type createItemRequest struct {
	Text string `json:"text"`
}

type goalRequest struct {
	Goal string `json:"goal"`
}

type voiceResultRequest struct {
	Transcript string `json:"transcript"`
}

type voiceErrorRequest struct {
	Code string `json:"code" binding:"required"`
}

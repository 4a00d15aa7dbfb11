package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane-backend/internal/auth"
	"github.com/tasklane/tasklane-backend/internal/workspace"
)

// workspace resolves the caller's workspace or writes an error response.
func (h *Handler) workspace(c *gin.Context) (*workspace.Workspace, bool) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}
	ws, err := h.workspaces.Get(uid)
	if err != nil {
		writeError(c, "get-workspace", err)
		return nil, false
	}
	return ws, true
}

func (h *Handler) GetWorkspace(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace": ws.Current()})
}

func (h *Handler) SetSelection(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var body selectionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	listID := ""
	if body.ListID != nil {
		listID = *body.ListID
	}
	if err := ws.SetSelection(c.Request.Context(), listID); err != nil {
		writeError(c, "set-selection", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected_list_id": body.ListID})
}

// ReloadWorkspace reopens subscriptions lost to a connection failure.
func (h *Handler) ReloadWorkspace(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.Reload(c.Request.Context()); err != nil {
		writeError(c, "reload-workspace", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace": ws.Current()})
}

func (h *Handler) CreateList(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var body createListRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := ws.CreateList(c.Request.Context(), body.Name)
	if err != nil {
		writeError(c, "create-list", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) DeleteList(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.DeleteList(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "delete-list", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateItem(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var body createItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := ws.CreateItem(c.Request.Context(), body.Text)
	if err != nil {
		writeError(c, "create-item", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) ToggleItem(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	completed, err := ws.ToggleItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "toggle-item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "completed": completed})
}

func (h *Handler) DeleteItem(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "delete-item", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) OpenGoal(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.OpenGoal(c.Request.Context()); err != nil {
		writeError(c, "open-goal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": ws.Current().Goal})
}

func (h *Handler) CloseGoal(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.CloseGoal(c.Request.Context()); err != nil {
		writeError(c, "close-goal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": ws.Current().Goal})
}

// SubmitGoal waits for the completion service. A goal that produced no tasks
// answers 200 with the message also shown in the dialog.
func (h *Handler) SubmitGoal(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var body goalRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := ws.SubmitGoal(c.Request.Context(), body.Goal)
	if err != nil {
		writeError(c, "submit-goal", err)
		return
	}
	if created == 0 {
		c.JSON(http.StatusOK, gin.H{"created": 0, "message": ws.Current().Goal.Error})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": created})
}

func (h *Handler) StartVoice(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.StartVoice(c.Request.Context()); err != nil {
		writeError(c, "start-voice", err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) StopVoice(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.StopVoice(c.Request.Context()); err != nil {
		writeError(c, "stop-voice", err)
		return
	}
	c.Status(http.StatusAccepted)
}

// VoiceResult returns once the transcript has been turned into tasks. The
// outcome is reported in the workspace state.
func (h *Handler) VoiceResult(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var body voiceResultRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ws.VoiceResult(c.Request.Context(), body.Transcript); err != nil {
		writeError(c, "voice-result", err)
		return
	}
	st := ws.Current()
	c.JSON(http.StatusOK, gin.H{"voice_error": st.VoiceError, "items": st.Items})
}

func (h *Handler) VoiceError(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var body voiceErrorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ws.VoiceError(c.Request.Context(), body.Code); err != nil {
		writeError(c, "voice-error", err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) VoiceEnd(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.VoiceEnd(c.Request.Context()); err != nil {
		writeError(c, "voice-end", err)
		return
	}
	c.Status(http.StatusAccepted)
}

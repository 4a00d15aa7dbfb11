package http

import "github.com/gin-gonic/gin"

// Register mounts the workspace routes on an authenticated group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/workspace", h.GetWorkspace)
	rg.GET("/workspace/stream", h.StreamWorkspace)
	rg.PUT("/workspace/selection", h.SetSelection)
	rg.POST("/workspace/reload", h.ReloadWorkspace)

	rg.POST("/lists", h.CreateList)
	rg.DELETE("/lists/:id", h.DeleteList)

	rg.POST("/items", h.CreateItem)
	rg.POST("/items/:id/toggle", h.ToggleItem)
	rg.DELETE("/items/:id", h.DeleteItem)

	rg.POST("/goal/open", h.OpenGoal)
	rg.POST("/goal/close", h.CloseGoal)
	rg.POST("/goal", h.SubmitGoal)

	rg.POST("/voice/start", h.StartVoice)
	rg.POST("/voice/stop", h.StopVoice)
	rg.POST("/voice/result", h.VoiceResult)
	rg.POST("/voice/error", h.VoiceError)
	rg.POST("/voice/end", h.VoiceEnd)
}

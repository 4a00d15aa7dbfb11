package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane-backend/internal/metrics"
)

const keepAliveInterval = 15 * time.Second

// StreamWorkspace pushes every workspace state change using Server-Sent Events.
// Each "workspace" event carries the full state.
func (h *Handler) StreamWorkspace(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Status(http.StatusOK)

	states, stop := ws.Watch()
	defer stop()
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	ctx := c.Request.Context()
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case st, ok := <-states:
			if !ok {
				// Workspace was evicted or the server is shutting down.
				fmt.Fprint(c.Writer, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "id: %d\nevent: workspace\ndata: %s\n\n", st.Version, data)
			flusher.Flush()
		}
	}
}

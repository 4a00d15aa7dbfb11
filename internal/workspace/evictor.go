package workspace

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/tasklane/tasklane-backend/internal/logging"
)

// StartEvictor runs Hub.Evict on schedule, e.g. "@every 1m". Stop the
// returned cron on shutdown.
func StartEvictor(h *Hub, schedule string) (*cron.Cron, error) {
	logger := logging.For("workspace-evictor")

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := h.Evict(); n > 0 {
			logger.LogInfof("evict", "closed=%d remaining=%d", n, h.Len())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid eviction schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.LogInfof("start", "schedule=%s", schedule)
	return c, nil
}

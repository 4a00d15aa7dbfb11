package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane-backend/internal/ai"
	authdomain "github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/store"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
	"github.com/tasklane/tasklane-backend/internal/voice"
	"github.com/tasklane/tasklane-backend/internal/workspace"
)

// writeError is the single place where workspace errors become responses.
func writeError(c *gin.Context, operation string, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		logging.New(c.Request.Context(), "workspace-http").LogErrorf(operation, "status=%d error=%v", status, err)
	}
	c.JSON(status, gin.H{"error": message})
}

func classify(err error) (int, string) {
	var (
		vErr        *domain.ValidationError
		authErr     *authdomain.AuthError
		genErr      *ai.GenerationError
		cfgErr      *ai.ConfigurationError
		unsupported voice.UnsupportedError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Error()
	case errors.Is(err, authdomain.ErrNotSignedIn), errors.As(err, &authErr):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, store.ErrNotFound), errors.Is(err, workspace.ErrUnknownList):
		return http.StatusNotFound, "not found"
	case errors.Is(err, workspace.ErrNoListSelected),
		errors.Is(err, workspace.ErrListChanged),
		errors.Is(err, workspace.ErrGoalInProgress),
		errors.Is(err, workspace.ErrBusy),
		errors.Is(err, workspace.ErrNoRelay),
		errors.Is(err, voice.ErrNotListening):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.As(err, &genErr):
		return http.StatusBadGateway, genErr.Message
	case errors.As(err, &cfgErr), errors.As(err, &unsupported):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, workspace.ErrClosed):
		return http.StatusServiceUnavailable, "workspace is restarting, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

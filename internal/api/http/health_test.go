package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkHealth(t *testing.T, store StoreCheck) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler("tasklane-api", "1.2.3", store, nil).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHealthCheck(t *testing.T) {
	t.Run("store up", func(t *testing.T) {
		code, resp := checkHealth(t, StoreCheck{Backend: "memory"})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "memory:up", resp.Store)
		assert.Equal(t, "disabled", resp.DB)
		assert.Equal(t, "1.2.3", resp.Version)
	})

	t.Run("store down", func(t *testing.T) {
		code, resp := checkHealth(t, StoreCheck{
			Backend: "redis",
			Ping:    func(context.Context) error { return errors.New("connection refused") },
		})
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "redis:down", resp.Store)
	})
}

package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane-backend/config"
	"github.com/tasklane/tasklane-backend/internal/ai"
	"github.com/tasklane/tasklane-backend/internal/auth"
	"github.com/tasklane/tasklane-backend/internal/workspace"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}}
		b, err := OpenStore(ctx, cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, config.StoreMemory, b.Check.Backend)
		assert.NoError(t, b.Close())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{
			Store: config.StoreConfig{Backend: config.StoreRedis},
			Redis: config.RedisConfig{Addr: mr.Addr()},
		}
		b, err := OpenStore(ctx, cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, b.Check.Ping)
		assert.NoError(t, b.Check.Ping(ctx))
		assert.NoError(t, b.Close())
	})

	t.Run("firestore without firebase", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreFirestore}}
		_, err := OpenStore(ctx, cfg, nil)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: "sqlite"}}
		_, err := OpenStore(ctx, cfg, nil)
		assert.Error(t, err)
	})
}

func TestOpenProvider_DevelopmentFallback(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Environment: "development"}}
	p, app, err := OpenProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, app)
	assert.IsType(t, &auth.DevProvider{}, p)
}

func TestBuildRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}}
	b, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	provider := auth.NewDevProvider()
	hub := workspace.NewHub(workspace.HubConfig{
		Store:    b.Store,
		Provider: provider,
		Tasks:    ai.NewGenerator(nil),
		IdleTTL:  time.Minute,
	})
	t.Cleanup(hub.Close)

	r := BuildRouter(RouterDeps{
		ServiceName:    "tasklane-api",
		Version:        "test",
		AllowedOrigins: []string{"http://localhost:3000"},
		Store:          b.Check,
		Verifier:       provider,
		Hub:            hub,
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/workspace", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer user123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tasklane_http_requests_total")
}

func TestOpenDB_Validation(t *testing.T) {
	_, err := OpenDB(context.Background(), DBOptions{})
	assert.Error(t, err)

	_, err = OpenDB(context.Background(), DBOptions{DSN: "://not a dsn"})
	assert.Error(t, err)
}

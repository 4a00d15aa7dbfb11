package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane-backend/internal/auth"
	"github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/auth/middleware"
	"github.com/tasklane/tasklane-backend/internal/users"
)

// providerSessions adapts a provider to Sessions for tests.
type providerSessions struct {
	p     *auth.DevProvider
	users map[string]*domain.User
}

func (s *providerSessions) SignIn(ctx context.Context, uid, credential string) (*domain.User, error) {
	u, err := s.p.SignIn(ctx, credential)
	if err != nil {
		return nil, err
	}
	s.users[uid] = u
	return u, nil
}

func (s *providerSessions) SignOut(ctx context.Context, uid string) error {
	delete(s.users, uid)
	return s.p.SignOut(ctx, uid)
}

func (s *providerSessions) User(uid string) *domain.User {
	return s.users[uid]
}

type fakeDirectory struct {
	profiles map[string]*users.Profile
	fail     error
}

func (d *fakeDirectory) EnsureUser(ctx context.Context, u *domain.User) (string, error) {
	if d.fail != nil {
		return "", d.fail
	}
	p := &users.Profile{ID: "db-" + u.ID, FirebaseUID: u.ID, Email: u.Email, CreatedAt: time.Now()}
	d.profiles[u.ID] = p
	return p.ID, nil
}

func (d *fakeDirectory) GetByFirebaseUID(ctx context.Context, uid string) (*users.Profile, error) {
	p, ok := d.profiles[uid]
	if !ok {
		return nil, users.ErrNotFound
	}
	return p, nil
}

func setupRouter(dir Directory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	provider := auth.NewDevProvider()
	sessions := &providerSessions{p: provider, users: make(map[string]*domain.User)}

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.FirebaseAuthMiddleware(provider))
	New(sessions, dir).Register(api)
	return r
}

func request(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSession_SignInAndMe(t *testing.T) {
	dir := &fakeDirectory{profiles: make(map[string]*users.Profile)}
	r := setupRouter(dir)

	w := request(r, http.MethodGet, "/api/v1/me", "user123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, http.MethodPost, "/api/v1/session", "user123")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		User      domain.User `json:"user"`
		ProfileID string      `json:"profile_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user123", body.User.ID)
	assert.Equal(t, "db-user123", body.ProfileID)

	w = request(r, http.MethodGet, "/api/v1/me", "user123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"firebase_uid":"user123"`)
}

func TestSession_DirectoryFailureKeepsSession(t *testing.T) {
	dir := &fakeDirectory{profiles: make(map[string]*users.Profile), fail: errors.New("db down")}
	r := setupRouter(dir)

	w := request(r, http.MethodPost, "/api/v1/session", "user123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "profile_id")

	w = request(r, http.MethodGet, "/api/v1/me", "user123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "profile")
}

func TestSession_SignOut(t *testing.T) {
	r := setupRouter(nil)

	w := request(r, http.MethodDelete, "/api/v1/session", "user123")
	assert.Equal(t, http.StatusNoContent, w.Code, "signing out twice is harmless")

	w = request(r, http.MethodPost, "/api/v1/session", "user123")
	require.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodDelete, "/api/v1/session", "user123")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = request(r, http.MethodGet, "/api/v1/me", "user123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession_RequiresToken(t *testing.T) {
	r := setupRouter(nil)
	w := request(r, http.MethodPost, "/api/v1/session", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane-backend/internal/ai"
	"github.com/tasklane/tasklane-backend/internal/auth"
	"github.com/tasklane/tasklane-backend/internal/store/memory"
	"github.com/tasklane/tasklane-backend/internal/workspace"
)

const uid = "user123"

type staticCompleter struct{ response string }

func (s staticCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, nil
}

func setupRouter(t *testing.T, completer ai.Completer) (*gin.Engine, *workspace.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	gen := ai.NewGenerator(completer)
	hub := workspace.NewHub(workspace.HubConfig{
		Store:        st,
		Provider:     auth.NewDevProvider(),
		Tasks:        gen,
		VoiceEnabled: true,
		IdleTTL:      time.Hour,
	})
	t.Cleanup(func() {
		hub.Close()
		_ = st.Close()
	})

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set(auth.CtxFirebaseUID, u)
		}
		c.Next()
	})
	New(hub).Register(api)
	return r, hub
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", uid)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signedIn(t *testing.T, hub *workspace.Hub) *workspace.Workspace {
	t.Helper()
	ws, err := hub.Get(uid)
	require.NoError(t, err)
	_, err = ws.SignIn(context.Background(), uid)
	require.NoError(t, err)
	waitState(t, ws, func(s workspace.State) bool { return s.User != nil && !s.ListsLoading })
	return ws
}

func waitState(t *testing.T, ws *workspace.Workspace, cond func(workspace.State) bool) workspace.State {
	t.Helper()
	var last workspace.State
	require.Eventually(t, func() bool {
		last = ws.Current()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func TestHandlers_RequireUser(t *testing.T) {
	r, _ := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspace", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlers_SignedOutWorkspace(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/api/v1/lists", createListRequest{Name: "Groceries"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlers_ListsAndItems(t *testing.T) {
	r, hub := setupRouter(t, nil)
	ws := signedIn(t, hub)

	w := do(r, http.MethodPost, "/api/v1/lists", createListRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/items", createItemRequest{Text: "Buy milk"})
	assert.Equal(t, http.StatusConflict, w.Code, "no list selected yet")

	w = do(r, http.MethodPost, "/api/v1/lists", createListRequest{Name: "Groceries"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	waitState(t, ws, func(s workspace.State) bool {
		return s.SelectedListID != nil && *s.SelectedListID == created.ID && !s.ItemsLoading
	})

	w = do(r, http.MethodPost, "/api/v1/items", createItemRequest{Text: "Buy milk"})
	require.Equal(t, http.StatusCreated, w.Code)
	var item struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))

	w = do(r, http.MethodPost, "/api/v1/items/"+item.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":true`)

	w = do(r, http.MethodPost, "/api/v1/items/missing/toggle", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/workspace", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Workspace workspace.State `json:"workspace"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Workspace.Lists, 1)

	w = do(r, http.MethodPut, "/api/v1/workspace/selection", map[string]string{"list_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/items/"+item.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/lists/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	waitState(t, ws, func(s workspace.State) bool { return len(s.Lists) == 0 && s.SelectedListID == nil })
}

func TestHandlers_Reload(t *testing.T) {
	r, hub := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/api/v1/workspace/reload", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "signed out")

	signedIn(t, hub)
	w = do(r, http.MethodPost, "/api/v1/workspace/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"workspace"`)
}

func TestHandlers_Goal(t *testing.T) {
	r, hub := setupRouter(t, staticCompleter{response: `{"tasks": ["Book flights", "Reserve hotel"]}`})
	ws := signedIn(t, hub)

	w := do(r, http.MethodPost, "/api/v1/lists", createListRequest{Name: "Japan"})
	require.Equal(t, http.StatusCreated, w.Code)
	waitState(t, ws, func(s workspace.State) bool { return s.SelectedListID != nil && !s.ItemsLoading })

	w = do(r, http.MethodPost, "/api/v1/goal/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"open":true`)

	w = do(r, http.MethodPost, "/api/v1/goal", goalRequest{Goal: "plan a trip to Japan"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"created": 2}`, w.Body.String())

	st := waitState(t, ws, func(s workspace.State) bool { return len(s.Items) == 2 })
	assert.False(t, st.Goal.Open)
}

func TestHandlers_GoalMalformedResponse(t *testing.T) {
	r, hub := setupRouter(t, staticCompleter{response: `{"nope": true}`})
	ws := signedIn(t, hub)

	w := do(r, http.MethodPost, "/api/v1/lists", createListRequest{Name: "Japan"})
	require.Equal(t, http.StatusCreated, w.Code)
	waitState(t, ws, func(s workspace.State) bool { return s.SelectedListID != nil && !s.ItemsLoading })

	w = do(r, http.MethodPost, "/api/v1/goal", goalRequest{Goal: "plan a trip"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to generate AI-powered tasks. Please try again.")
	assert.Empty(t, ws.Current().Items)
}

func TestHandlers_GoalWithoutAI(t *testing.T) {
	r, hub := setupRouter(t, nil)
	ws := signedIn(t, hub)

	w := do(r, http.MethodPost, "/api/v1/lists", createListRequest{Name: "Japan"})
	require.Equal(t, http.StatusCreated, w.Code)
	waitState(t, ws, func(s workspace.State) bool { return s.SelectedListID != nil && !s.ItemsLoading })

	w = do(r, http.MethodPost, "/api/v1/goal", goalRequest{Goal: "plan a trip"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandlers_Voice(t *testing.T) {
	r, hub := setupRouter(t, staticCompleter{response: `{"tasks": ["Buy milk"]}`})
	ws := signedIn(t, hub)

	w := do(r, http.MethodPost, "/api/v1/voice/result", voiceResultRequest{Transcript: "buy milk"})
	assert.Equal(t, http.StatusConflict, w.Code, "nothing is recording")

	w = do(r, http.MethodPost, "/api/v1/lists", createListRequest{Name: "Errands"})
	require.Equal(t, http.StatusCreated, w.Code)
	waitState(t, ws, func(s workspace.State) bool { return s.SelectedListID != nil && !s.ItemsLoading })

	w = do(r, http.MethodPost, "/api/v1/voice/start", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(r, http.MethodPost, "/api/v1/voice/result", voiceResultRequest{Transcript: "remind me to buy milk"})
	require.Equal(t, http.StatusOK, w.Code)
	waitState(t, ws, func(s workspace.State) bool { return len(s.Items) == 1 && !s.IsParsing })

	w = do(r, http.MethodPost, "/api/v1/voice/error", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamWorkspace(t *testing.T) {
	r, hub := setupRouter(t, nil)
	signedIn(t, hub)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspace/stream", nil).WithContext(ctx)
	req.Header.Set("X-Test-User", uid)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	require.True(t, strings.Contains(body, "event: workspace\n"), body)
	assert.Contains(t, body, `"user":{"id":"user123"`)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{workspace.ErrNoListSelected, http.StatusConflict},
		{ai.ErrRateLimited, http.StatusTooManyRequests},
		{&ai.GenerationError{Message: "m", Err: errors.New("x")}, http.StatusBadGateway},
		{&ai.ConfigurationError{Reason: "r"}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := classify(tt.err)
		assert.Equal(t, tt.want, got, "%v", tt.err)
	}
}

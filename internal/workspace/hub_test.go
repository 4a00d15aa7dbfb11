package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane-backend/internal/ai"
	"github.com/tasklane/tasklane-backend/internal/auth"
	"github.com/tasklane/tasklane-backend/internal/store/memory"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newHub(t *testing.T, clock *manualClock) *Hub {
	t.Helper()
	st := memory.New()
	h := NewHub(HubConfig{
		Store:        st,
		Provider:     auth.NewDevProvider(),
		Tasks:        ai.NewGenerator(nil),
		VoiceEnabled: true,
		IdleTTL:      30 * time.Minute,
		Now:          clock.Now,
	})
	t.Cleanup(func() {
		h.Close()
		_ = st.Close()
	})
	return h
}

func TestHub_GetReusesWorkspace(t *testing.T) {
	h := newHub(t, &manualClock{now: time.Now()})

	a, err := h.Get("alice")
	require.NoError(t, err)
	again, err := h.Get("alice")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := h.Get("bob")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, h.Len())

	st := a.Current()
	assert.False(t, st.AIAvailable)
	assert.True(t, st.VoiceAvailable)
}

func TestHub_EvictIdle(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	h := newHub(t, clock)

	idle, err := h.Get("idle")
	require.NoError(t, err)
	watched, err := h.Get("watched")
	require.NoError(t, err)
	_, stop := watched.Watch()
	defer stop()

	clock.Advance(10 * time.Minute)
	assert.Zero(t, h.Evict())

	clock.Advance(25 * time.Minute)
	assert.Equal(t, 1, h.Evict())
	assert.Equal(t, 1, h.Len())

	select {
	case <-idle.Done():
	case <-time.After(time.Second):
		t.Fatal("evicted workspace still running")
	}

	fresh, err := h.Get("idle")
	require.NoError(t, err)
	assert.NotSame(t, idle, fresh)
}

func TestHub_Close(t *testing.T) {
	h := newHub(t, &manualClock{now: time.Now()})
	ws, err := h.Get("alice")
	require.NoError(t, err)

	h.Close()
	<-ws.Done()
	_, err = h.Get("alice")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = ws.CreateList(context.Background(), "late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStartEvictor(t *testing.T) {
	h := newHub(t, &manualClock{now: time.Now()})

	c, err := StartEvictor(h, "@every 1m")
	require.NoError(t, err)
	c.Stop()

	_, err = StartEvictor(h, "not a schedule")
	assert.Error(t, err)
}

func TestHub_Sessions(t *testing.T) {
	h := newHub(t, &manualClock{now: time.Now()})
	ctx := context.Background()

	assert.Nil(t, h.User("alice"))

	u, err := h.SignIn(ctx, "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.ID)
	require.NotNil(t, h.User("alice"))
	assert.Nil(t, h.User("bob"))

	require.NoError(t, h.SignOut(ctx, "alice"))
	assert.Nil(t, h.User("alice"))

	h.Close()
	_, err = h.SignIn(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrClosed)
}

package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/tasklane/tasklane-backend/internal/ai"
	"github.com/tasklane/tasklane-backend/internal/auth"
	authdomain "github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/metrics"
	"github.com/tasklane/tasklane-backend/internal/session"
	"github.com/tasklane/tasklane-backend/internal/store"
	"github.com/tasklane/tasklane-backend/internal/voice"
)

type HubConfig struct {
	Store        store.Store
	Provider     auth.Provider
	Tasks        *ai.Generator
	VoiceEnabled bool
	IdleTTL      time.Duration
	Now          func() time.Time
}

// Hub holds one workspace per signed-in user.
type Hub struct {
	cfg    HubConfig
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
	closed     bool
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logging.For("workspace-hub"),
		workspaces: make(map[string]*Workspace),
	}
}

// Get returns uid's workspace, creating it on first use.
func (h *Hub) Get(uid string) (*Workspace, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if ws, ok := h.workspaces[uid]; ok {
		return ws, nil
	}

	capture := voice.Unavailable()
	if h.cfg.VoiceEnabled {
		capture = voice.Available(voice.NewRelay())
	}
	sess := session.NewStore(h.cfg.Provider, uid)
	ws, err := New(h.ctx, Deps{
		UID:     uid,
		Store:   h.cfg.Store,
		Session: sess,
		Tasks:   h.cfg.Tasks.For(uid),
		Voice:   capture,
		Now:     h.cfg.Now,
	})
	if err != nil {
		sess.Close()
		return nil, err
	}

	h.workspaces[uid] = ws
	metrics.WorkspaceOpened()
	h.logger.LogInfof("open", "uid=%s workspaces=%d", uid, len(h.workspaces))
	return ws, nil
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.workspaces)
}

// Evict closes workspaces that have had no watchers and no calls for longer
// than the idle TTL. It returns how many were closed.
func (h *Hub) Evict() int {
	now := h.cfg.Now()

	h.mu.Lock()
	var idle []*Workspace
	for uid, ws := range h.workspaces {
		if d, ok := ws.idleFor(now); ok && d >= h.cfg.IdleTTL {
			idle = append(idle, ws)
			delete(h.workspaces, uid)
		}
	}
	h.mu.Unlock()

	for _, ws := range idle {
		h.release(ws)
		h.logger.LogInfof("evict", "uid=%s", ws.UID())
	}
	return len(idle)
}

// Close shuts every workspace down. Get fails afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	all := make([]*Workspace, 0, len(h.workspaces))
	for _, ws := range h.workspaces {
		all = append(all, ws)
	}
	h.workspaces = make(map[string]*Workspace)
	h.mu.Unlock()

	for _, ws := range all {
		h.release(ws)
	}
	h.cancel()
}

func (h *Hub) release(ws *Workspace) {
	ws.Close()
	h.cfg.Tasks.Forget(ws.UID())
	metrics.WorkspaceClosed()
}

// SignIn opens uid's session with credential through the user's workspace.
func (h *Hub) SignIn(ctx context.Context, uid, credential string) (*authdomain.User, error) {
	ws, err := h.Get(uid)
	if err != nil {
		return nil, err
	}
	return ws.SignIn(ctx, credential)
}

func (h *Hub) SignOut(ctx context.Context, uid string) error {
	ws, err := h.Get(uid)
	if err != nil {
		return err
	}
	return ws.SignOut(ctx)
}

// User reports uid's signed-in identity, or nil.
func (h *Hub) User(uid string) *authdomain.User {
	ws, err := h.Get(uid)
	if err != nil {
		return nil
	}
	return ws.session.Current().User
}

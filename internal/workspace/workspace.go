// Package workspace is the per-user orchestration layer. It owns list
// selection, the live list and item subscriptions, and the transient state of
// voice capture and AI task generation.
package workspace

import (
	"context"
	"sync"
	"time"

	authdomain "github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/session"
	"github.com/tasklane/tasklane-backend/internal/store"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
	"github.com/tasklane/tasklane-backend/internal/todo/repository"
	"github.com/tasklane/tasklane-backend/internal/voice"
)

const commandBuffer = 64

// SessionSource is the user's observable session.
type SessionSource interface {
	Current() session.State
	Subscribe(fn func(session.State)) (cancel func())
	SignIn(ctx context.Context, credential string) (*authdomain.User, error)
	SignOut(ctx context.Context) error
	Close()
}

// TaskGenerator expands free text into drafts.
type TaskGenerator interface {
	Available() bool
	GenerateFromGoal(ctx context.Context, goal string) ([]domain.TaskDraft, error)
	ParseFromTranscript(ctx context.Context, transcript string) ([]domain.TaskDraft, error)
}

type Deps struct {
	UID     string
	Store   store.Store
	Session SessionSource
	Tasks   TaskGenerator
	Voice   voice.Capture
	Now     func() time.Time
}

// Workspace runs a single event loop. Every field below "loop state" is only
// touched from that goroutine; callers reach it by posting closures.
type Workspace struct {
	uid     string
	store   store.Store
	session SessionSource
	tasks   TaskGenerator
	capture voice.Capture
	now     func() time.Time
	logger  *logging.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
	unsubSess func()

	// loop state
	state     State
	dirty     bool
	lists     *repository.ListRepository
	listsLive *repository.Live[domain.TodoList]
	items     *repository.ItemRepository
	itemsLive *repository.Live[domain.TodoItem]

	recorderOnce sync.Once
	recorder     *voice.Recorder
	recorderErr  error

	mu         sync.Mutex
	published  State
	watchers   map[int]chan State
	nextWatch  int
	lastActive time.Time
	closed     bool
}

func New(parent context.Context, d Deps) (*Workspace, error) {
	lists, err := repository.NewListRepository(d.Store, d.UID)
	if err != nil {
		return nil, err
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	ctx, cancel := context.WithCancel(parent)
	w := &Workspace{
		uid:        d.UID,
		store:      d.Store,
		session:    d.Session,
		tasks:      d.Tasks,
		capture:    d.Voice,
		now:        d.Now,
		logger:     logging.For("workspace"),
		ctx:        ctx,
		cancel:     cancel,
		cmds:       make(chan func(), commandBuffer),
		done:       make(chan struct{}),
		lists:      lists,
		watchers:   make(map[int]chan State),
		lastActive: d.Now(),
	}
	w.state = State{
		SessionLoading: true,
		AIAvailable:    d.Tasks.Available(),
		VoiceAvailable: d.Voice.Supported(),
	}
	w.published = w.state

	go w.run()

	// Subscribe before reading the current value inside the loop so no
	// session change can be applied out of order.
	w.unsubSess = d.Session.Subscribe(func(st session.State) {
		w.post(func() { w.onSession(st) })
	})
	w.post(func() { w.onSession(w.session.Current()) })
	return w, nil
}

func (w *Workspace) UID() string {
	return w.uid
}

func (w *Workspace) run() {
	defer close(w.done)
	defer w.teardown()

	for {
		// Only the current subscriptions are selected, so a snapshot from a
		// disposed subscription can never reach the state.
		var listsC <-chan store.Snapshot
		var itemsC <-chan store.Snapshot
		if w.listsLive != nil {
			listsC = w.listsLive.C()
		}
		if w.itemsLive != nil {
			itemsC = w.itemsLive.C()
		}

		select {
		case <-w.ctx.Done():
			return
		case fn := <-w.cmds:
			fn()
		case snap, ok := <-listsC:
			if !ok {
				w.listsLost()
				break
			}
			w.applyLists(w.listsLive.Decode(snap))
		case snap, ok := <-itemsC:
			if !ok {
				w.itemsLost()
				break
			}
			w.state.Items = w.itemsLive.Decode(snap)
			w.state.ItemsLoading = false
			w.touch()
		}
		w.publish()
	}
}

// post queues fn on the loop without waiting. It is dropped once the
// workspace is closed. Never call it from the loop goroutine.
func (w *Workspace) post(fn func()) {
	select {
	case w.cmds <- fn:
	case <-w.done:
	}
}

// call runs fn on the loop and waits for its result.
func (w *Workspace) call(ctx context.Context, fn func() error) error {
	w.markActive()

	errc := make(chan error, 1)
	select {
	case w.cmds <- func() { errc <- fn() }:
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Workspace) touch() {
	w.dirty = true
}

func (w *Workspace) publish() {
	if !w.dirty {
		return
	}
	w.dirty = false
	w.state.Version++
	st := w.state

	w.mu.Lock()
	defer w.mu.Unlock()
	w.published = st
	for _, ch := range w.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// Current returns the last published state.
func (w *Workspace) Current() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.published
}

// Watch streams published states, starting with the current one. Slow
// watchers only miss intermediate states. The channel is closed when the
// workspace closes.
func (w *Workspace) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)

	w.mu.Lock()
	id := w.nextWatch
	w.nextWatch++
	if w.closed {
		close(ch)
		w.mu.Unlock()
		return ch, func() {}
	}
	w.watchers[id] = ch
	ch <- w.published
	w.lastActive = w.now()
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.watchers[id]; ok {
			delete(w.watchers, id)
			close(c)
		}
		w.lastActive = w.now()
	}
}

func (w *Workspace) markActive() {
	w.mu.Lock()
	w.lastActive = w.now()
	w.mu.Unlock()
}

// idleFor reports how long the workspace has had no calls and no watchers.
func (w *Workspace) idleFor(now time.Time) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.watchers) > 0 {
		return 0, false
	}
	return now.Sub(w.lastActive), true
}

// SignIn and SignOut go through the user's session store. The resulting
// session change reaches the workspace as an ordinary event.
func (w *Workspace) SignIn(ctx context.Context, credential string) (*authdomain.User, error) {
	w.markActive()
	return w.session.SignIn(ctx, credential)
}

func (w *Workspace) SignOut(ctx context.Context) error {
	w.markActive()
	return w.session.SignOut(ctx)
}

// Close stops the loop and releases every subscription. It is safe to call
// more than once.
func (w *Workspace) Close() {
	w.closeOnce.Do(func() {
		if w.unsubSess != nil {
			w.unsubSess()
		}
		w.cancel()
		<-w.done
		w.session.Close()

		w.recorderOnce.Do(func() {})
		if w.recorder != nil {
			w.recorder.Stop()
		}
	})
}

// Done is closed once the loop has exited.
func (w *Workspace) Done() <-chan struct{} {
	return w.done
}

func (w *Workspace) teardown() {
	w.closeItems()
	w.closeLists()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for id, ch := range w.watchers {
		delete(w.watchers, id)
		close(ch)
	}
}

func (w *Workspace) onSession(st session.State) {
	w.state.SessionLoading = st.Loading
	w.state.User = st.User
	w.touch()

	if st.User == nil {
		w.closeItems()
		w.closeLists()
		w.state.Lists = nil
		w.state.ListsLoading = false
		w.state.SelectedListID = nil
		w.state.Items = nil
		w.state.ItemsLoading = false
		w.state.Goal = GoalState{}
		w.state.VoiceError = ""
		w.state.Error = ""
		return
	}
	if w.listsLive == nil {
		w.openLists()
	}
}

func (w *Workspace) openLists() {
	live, err := w.lists.Subscribe(w.ctx)
	if err != nil {
		w.logger.LogErrorf("subscribe-lists", "uid=%s error=%v", w.uid, err)
		w.state.Error = msgListsLost
		return
	}
	w.listsLive = live
	w.state.ListsLoading = true
	w.state.Error = ""
	w.touch()
}

func (w *Workspace) closeLists() {
	if w.listsLive != nil {
		w.listsLive.Close()
		w.listsLive = nil
	}
}

// applyLists keeps the selection pointing at a list in the snapshot, falling
// back to the first list, or to none when the snapshot is empty.
func (w *Workspace) applyLists(lists []domain.TodoList) {
	w.state.Lists = lists
	w.state.ListsLoading = false
	w.touch()

	if sel := w.state.selected(); sel != "" && containsList(lists, sel) {
		return
	}
	if len(lists) > 0 {
		w.selectList(lists[0].ID)
		return
	}
	w.selectList("")
}

// selectList disposes the current item subscription before opening the next.
// Selecting the current list again reopens its subscription if it was lost.
func (w *Workspace) selectList(id string) {
	if id != "" && w.items != nil && w.items.ListID() == id && w.itemsLive != nil {
		return
	}
	w.touch()
	w.closeItems()
	w.state.Items = nil
	w.state.ItemsLoading = false

	if id == "" {
		w.state.SelectedListID = nil
		return
	}
	selected := id
	w.state.SelectedListID = &selected

	repo, err := repository.NewItemRepository(w.store, w.uid, id)
	if err != nil {
		w.logger.LogError("select-list", err)
		return
	}
	w.items = repo

	live, err := repo.Subscribe(w.ctx)
	if err != nil {
		w.logger.LogErrorf("subscribe-items", "uid=%s list=%s error=%v", w.uid, id, err)
		w.state.Error = msgItemsLost
		return
	}
	w.itemsLive = live
	w.state.ItemsLoading = true
	if w.state.Error == msgItemsLost {
		w.state.Error = ""
	}
}

func (w *Workspace) closeItems() {
	if w.itemsLive != nil {
		w.itemsLive.Close()
		w.itemsLive = nil
	}
	w.items = nil
}

func (w *Workspace) listsLost() {
	w.logger.LogErrorf("lists-feed", "uid=%s error=%v", w.uid, w.listsLive.Err())
	w.listsLive = nil
	w.state.ListsLoading = false
	w.state.Error = msgListsLost
	w.touch()
}

func (w *Workspace) itemsLost() {
	w.logger.LogErrorf("items-feed", "uid=%s list=%s error=%v", w.uid, w.state.selected(), w.itemsLive.Err())
	w.itemsLive = nil
	w.state.ItemsLoading = false
	w.state.Error = msgItemsLost
	w.touch()
}

// resubscribe reopens whichever feeds were lost.
func (w *Workspace) resubscribe() {
	if w.listsLive == nil {
		w.openLists()
	}
	if sel := w.state.selected(); sel != "" && w.itemsLive == nil {
		w.selectList(sel)
	}
}

func (w *Workspace) requireUser() error {
	if w.state.User == nil {
		return authdomain.ErrNotSignedIn
	}
	return nil
}

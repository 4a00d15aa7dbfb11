package workspace

import (
	"context"

	"github.com/tasklane/tasklane-backend/internal/todo/repository"
)

// Store calls run on the caller's goroutine with a repository handle taken
// from the loop, so the loop itself never waits on the network.

// SetSelection selects listID, or clears the selection when listID is empty.
// A cleared selection is filled again by the next list snapshot.
func (w *Workspace) SetSelection(ctx context.Context, listID string) error {
	return w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		if listID != "" && !containsList(w.state.Lists, listID) {
			return ErrUnknownList
		}
		w.selectList(listID)
		if w.listsLive == nil {
			w.openLists()
		}
		return nil
	})
}

// Reload reopens the list and item subscriptions after a lost connection.
// Live subscriptions are left alone.
func (w *Workspace) Reload(ctx context.Context) error {
	return w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		w.resubscribe()
		return nil
	})
}

func (w *Workspace) CreateList(ctx context.Context, name string) (string, error) {
	var repo *repository.ListRepository
	err := w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		repo = w.lists
		return nil
	})
	if err != nil {
		return "", err
	}
	return repo.Create(ctx, name)
}

// DeleteList removes the list record. If it was selected, the next snapshot
// moves the selection.
func (w *Workspace) DeleteList(ctx context.Context, listID string) error {
	var repo *repository.ListRepository
	err := w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		repo = w.lists
		return nil
	})
	if err != nil {
		return err
	}
	return repo.Delete(ctx, listID)
}

func (w *Workspace) CreateItem(ctx context.Context, text string) (string, error) {
	repo, err := w.currentItems(ctx)
	if err != nil {
		return "", err
	}
	return repo.Create(ctx, text)
}

func (w *Workspace) ToggleItem(ctx context.Context, itemID string) (bool, error) {
	repo, err := w.currentItems(ctx)
	if err != nil {
		return false, err
	}
	return repo.Toggle(ctx, itemID)
}

func (w *Workspace) DeleteItem(ctx context.Context, itemID string) error {
	repo, err := w.currentItems(ctx)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, itemID)
}

func (w *Workspace) currentItems(ctx context.Context) (*repository.ItemRepository, error) {
	var repo *repository.ItemRepository
	err := w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		if w.items == nil {
			return ErrNoListSelected
		}
		repo = w.items
		return nil
	})
	return repo, err
}

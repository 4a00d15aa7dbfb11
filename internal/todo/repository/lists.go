// Package repository binds todo lists and items to the document store.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tasklane/tasklane-backend/internal/store"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
)

const (
	fieldName      = "name"
	fieldOwner     = "owner"
	fieldText      = "text"
	fieldCompleted = "completed"
)

var ErrNoUser = errors.New("repository requires a user id")

// ListRepository reads and writes users/{uid}/lists for one user.
type ListRepository struct {
	store  store.Store
	userID string
}

func NewListRepository(s store.Store, userID string) (*ListRepository, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return &ListRepository{store: s, userID: userID}, nil
}

func (r *ListRepository) collection() string {
	return store.Join("users", r.userID, "lists")
}

// Subscribe streams the user's lists, newest first.
func (r *ListRepository) Subscribe(ctx context.Context) (*Live[domain.TodoList], error) {
	sub, err := r.store.Subscribe(ctx, store.Query{
		Collection: r.collection(),
		OrderBy:    store.CreatedAtField,
		Direction:  store.Desc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to lists: %w", err)
	}
	return newLive(sub, toList), nil
}

func (r *ListRepository) Create(ctx context.Context, name string) (string, error) {
	if err := domain.RequireText("name", name); err != nil {
		return "", err
	}
	id, err := r.store.Add(ctx, r.collection(), store.Fields{
		fieldName:            name,
		fieldOwner:           r.userID,
		store.CreatedAtField: store.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create list: %w", err)
	}
	return id, nil
}

// Delete removes the list record only. Its items collection is left behind.
func (r *ListRepository) Delete(ctx context.Context, listID string) error {
	if err := domain.RequireText("list id", listID); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, r.collection(), listID); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

func toList(rec store.Record) domain.TodoList {
	return domain.TodoList{
		ID:        rec.ID,
		Name:      rec.Fields.String(fieldName),
		OwnerID:   rec.Fields.String(fieldOwner),
		CreatedAt: rec.Fields.Time(store.CreatedAtField),
	}
}

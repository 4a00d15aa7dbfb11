package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tasklane/tasklane-backend/internal/store"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
)

var ErrNoList = errors.New("repository requires a list id")

// ItemRepository reads and writes the items of one list.
type ItemRepository struct {
	store  store.Store
	userID string
	listID string
}

func NewItemRepository(s store.Store, userID, listID string) (*ItemRepository, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if listID == "" {
		return nil, ErrNoList
	}
	return &ItemRepository{store: s, userID: userID, listID: listID}, nil
}

func (r *ItemRepository) ListID() string {
	return r.listID
}

func (r *ItemRepository) collection() string {
	return store.Join("users", r.userID, "lists", r.listID, "items")
}

// Subscribe streams the list's items, oldest first.
func (r *ItemRepository) Subscribe(ctx context.Context) (*Live[domain.TodoItem], error) {
	sub, err := r.store.Subscribe(ctx, store.Query{
		Collection: r.collection(),
		OrderBy:    store.CreatedAtField,
		Direction:  store.Asc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to items: %w", err)
	}
	return newLive(sub, toItem), nil
}

func (r *ItemRepository) Create(ctx context.Context, text string) (string, error) {
	if err := domain.RequireText("text", text); err != nil {
		return "", err
	}
	id, err := r.store.Add(ctx, r.collection(), store.Fields{
		fieldText:            text,
		fieldCompleted:       false,
		store.CreatedAtField: store.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create item: %w", err)
	}
	return id, nil
}

// Toggle flips completed with a read followed by a write. Concurrent toggles
// are last-write-wins.
func (r *ItemRepository) Toggle(ctx context.Context, itemID string) (bool, error) {
	rec, err := r.store.Get(ctx, r.collection(), itemID)
	if err != nil {
		return false, fmt.Errorf("failed to read item: %w", err)
	}
	completed := !rec.Fields.Bool(fieldCompleted)
	if err := r.store.Update(ctx, r.collection(), itemID, store.Fields{fieldCompleted: completed}); err != nil {
		return false, fmt.Errorf("failed to toggle item: %w", err)
	}
	return completed, nil
}

func (r *ItemRepository) Delete(ctx context.Context, itemID string) error {
	if err := r.store.Delete(ctx, r.collection(), itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// CreateBatch commits every draft in one atomic write. Blank drafts are
// rejected before anything is written. An empty slice is a no-op.
func (r *ItemRepository) CreateBatch(ctx context.Context, drafts []domain.TaskDraft) error {
	if len(drafts) == 0 {
		return nil
	}
	writes := make([]store.Write, 0, len(drafts))
	for _, d := range drafts {
		if err := domain.RequireText("text", d.Text); err != nil {
			return err
		}
		writes = append(writes, store.Write{
			Collection: r.collection(),
			Fields: store.Fields{
				fieldText:            d.Text,
				fieldCompleted:       false,
				store.CreatedAtField: store.ServerTimestamp,
			},
		})
	}
	if err := r.store.Batch(ctx, writes); err != nil {
		return fmt.Errorf("failed to create items: %w", err)
	}
	return nil
}

func toItem(rec store.Record) domain.TodoItem {
	return domain.TodoItem{
		ID:        rec.ID,
		Text:      rec.Fields.String(fieldText),
		Completed: rec.Fields.Bool(fieldCompleted),
		CreatedAt: rec.Fields.Time(store.CreatedAtField),
	}
}

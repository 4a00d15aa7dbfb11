package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane-backend/internal/store"
	"github.com/tasklane/tasklane-backend/internal/store/memory"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
)

func next[T any](t *testing.T, live *Live[T]) []T {
	t.Helper()
	select {
	case snap, ok := <-live.C():
		require.True(t, ok, "subscription closed: %v", live.Err())
		return live.Decode(snap)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func texts(items []domain.TodoItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Text)
	}
	return out
}

func TestListRepository(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	repo, err := NewListRepository(s, "user123")
	require.NoError(t, err)

	live, err := repo.Subscribe(ctx)
	require.NoError(t, err)
	defer live.Close()
	assert.Empty(t, next(t, live))

	t.Run("rejects blank names without writing", func(t *testing.T) {
		_, err := repo.Create(ctx, "   ")
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr))

		select {
		case <-live.C():
			t.Fatal("blank name reached the store")
		default:
		}
	})

	t.Run("newest list first with owner set", func(t *testing.T) {
		_, err := repo.Create(ctx, "Groceries")
		require.NoError(t, err)
		next(t, live)
		workID, err := repo.Create(ctx, "Work")
		require.NoError(t, err)

		lists := next(t, live)
		require.Len(t, lists, 2)
		assert.Equal(t, workID, lists[0].ID)
		assert.Equal(t, "Work", lists[0].Name)
		assert.Equal(t, "Groceries", lists[1].Name)
		assert.Equal(t, "user123", lists[1].OwnerID)
		assert.False(t, lists[1].CreatedAt.IsZero())
	})

	t.Run("delete leaves items behind", func(t *testing.T) {
		listID, err := repo.Create(ctx, "Trip")
		require.NoError(t, err)
		next(t, live)

		items, err := NewItemRepository(s, "user123", listID)
		require.NoError(t, err)
		_, err = items.Create(ctx, "Book flights")
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, listID))
		for _, l := range next(t, live) {
			assert.NotEqual(t, listID, l.ID)
		}

		orphans, err := items.Subscribe(ctx)
		require.NoError(t, err)
		defer orphans.Close()
		assert.Len(t, next(t, orphans), 1)
	})
}

func TestListRepository_RequiresUser(t *testing.T) {
	_, err := NewListRepository(memory.New(), "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestListRepository_ScopedPerUser(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	alice, err := NewListRepository(s, "alice")
	require.NoError(t, err)
	bob, err := NewListRepository(s, "bob")
	require.NoError(t, err)

	_, err = alice.Create(ctx, "Alice only")
	require.NoError(t, err)

	live, err := bob.Subscribe(ctx)
	require.NoError(t, err)
	defer live.Close()
	assert.Empty(t, next(t, live))
}

func TestItemRepository(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	repo, err := NewItemRepository(s, "user123", "list1")
	require.NoError(t, err)
	live, err := repo.Subscribe(ctx)
	require.NoError(t, err)
	defer live.Close()
	assert.Empty(t, next(t, live))

	t.Run("appends in creation order", func(t *testing.T) {
		_, err := repo.Create(ctx, "Buy milk")
		require.NoError(t, err)
		next(t, live)
		_, err = repo.Create(ctx, "Buy bread")
		require.NoError(t, err)

		items := next(t, live)
		assert.Equal(t, []string{"Buy milk", "Buy bread"}, texts(items))
		assert.False(t, items[0].Completed)
	})

	t.Run("two toggles restore the starting value", func(t *testing.T) {
		id, err := repo.Create(ctx, "Toggle me")
		require.NoError(t, err)
		next(t, live)

		done, err := repo.Toggle(ctx, id)
		require.NoError(t, err)
		assert.True(t, done)
		done, err = repo.Toggle(ctx, id)
		require.NoError(t, err)
		assert.False(t, done)

		rec, err := s.Get(ctx, "users/user123/lists/list1/items", id)
		require.NoError(t, err)
		assert.False(t, rec.Fields.Bool("completed"))
		assert.Equal(t, "Toggle me", rec.Fields.String("text"))
	})

	t.Run("toggle of missing item", func(t *testing.T) {
		_, err := repo.Toggle(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		id, err := repo.Create(ctx, "Temporary")
		require.NoError(t, err)
		next(t, live)

		require.NoError(t, repo.Delete(ctx, id))
		assert.NotContains(t, texts(next(t, live)), "Temporary")
	})
}

func TestItemRepository_CreateBatch(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	repo, err := NewItemRepository(s, "user123", "list1")
	require.NoError(t, err)
	live, err := repo.Subscribe(ctx)
	require.NoError(t, err)
	defer live.Close()
	next(t, live)

	t.Run("empty input is a no-op", func(t *testing.T) {
		require.NoError(t, repo.CreateBatch(ctx, nil))
		select {
		case <-live.C():
			t.Fatal("empty batch produced a snapshot")
		default:
		}
	})

	t.Run("blank draft rejects the whole batch", func(t *testing.T) {
		now := time.Now()
		err := repo.CreateBatch(ctx, []domain.TaskDraft{domain.NewDraft("ok", now), domain.NewDraft(" ", now)})
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr))
	})

	t.Run("all drafts arrive in one snapshot", func(t *testing.T) {
		now := time.Now()
		drafts := []domain.TaskDraft{
			domain.NewDraft("Book flights", now),
			domain.NewDraft("Reserve hotel", now),
			domain.NewDraft("Get a rail pass", now),
		}
		require.NoError(t, repo.CreateBatch(ctx, drafts))

		want := []string{"Book flights", "Reserve hotel", "Get a rail pass"}
		if diff := cmp.Diff(want, texts(next(t, live))); diff != "" {
			t.Fatalf("batch mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestItemRepository_RequiresScope(t *testing.T) {
	_, err := NewItemRepository(memory.New(), "user123", "")
	assert.ErrorIs(t, err, ErrNoList)
	_, err = NewItemRepository(memory.New(), "", "list1")
	assert.ErrorIs(t, err, ErrNoUser)
}

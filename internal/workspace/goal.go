package workspace

import (
	"context"
	"errors"

	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
	"github.com/tasklane/tasklane-backend/internal/todo/repository"
)

func (w *Workspace) OpenGoal(ctx context.Context) error {
	return w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		w.state.Goal.Open = true
		w.state.Goal.Error = ""
		w.touch()
		return nil
	})
}

// CloseGoal hides the dialog and keeps its input. It is refused while a goal
// is being processed.
func (w *Workspace) CloseGoal(ctx context.Context) error {
	return w.call(ctx, func() error {
		if w.state.Goal.Loading {
			return ErrGoalInProgress
		}
		w.state.Goal.Open = false
		w.state.Goal.Error = ""
		w.touch()
		return nil
	})
}

// SubmitGoal expands goal into tasks and adds them to the selected list. The
// dialog closes and its input clears only when tasks were added. It returns
// the number of tasks created.
func (w *Workspace) SubmitGoal(ctx context.Context, goal string) (int, error) {
	if err := domain.RequireText("goal", goal); err != nil {
		return 0, err
	}

	var repo *repository.ItemRepository
	err := w.call(ctx, func() error {
		if err := w.requireUser(); err != nil {
			return err
		}
		if w.state.Goal.Loading {
			return ErrGoalInProgress
		}
		if w.items == nil {
			return ErrNoListSelected
		}
		repo = w.items
		w.state.Goal = GoalState{Open: true, Input: goal, Loading: true}
		w.touch()
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Completion calls are not cancellable; a client that goes away only
	// loses the response.
	ctx = context.WithoutCancel(ctx)

	created := 0
	message := ""
	drafts, err := w.tasks.GenerateFromGoal(ctx, goal)
	switch {
	case err != nil:
		message = aiMessage(err)
	case len(drafts) == 0:
		message = msgNoTasksFromGoal
	default:
		err = w.commit(ctx, repo, drafts)
		switch {
		case err == nil:
			created = len(drafts)
		case !errors.Is(err, ErrListChanged):
			message = msgSaveFailed
		}
	}

	_ = w.call(ctx, func() error {
		if created > 0 {
			w.state.Goal = GoalState{}
		} else {
			w.state.Goal.Loading = false
			w.state.Goal.Error = message
		}
		w.touch()
		return nil
	})
	return created, err
}

// commit writes drafts only if repo's list is still the selected one. A
// result that arrives after the user moved on is discarded.
func (w *Workspace) commit(ctx context.Context, repo *repository.ItemRepository, drafts []domain.TaskDraft) error {
	err := w.call(ctx, func() error {
		if w.items == nil || w.items.ListID() != repo.ListID() {
			return ErrListChanged
		}
		return nil
	})
	if errors.Is(err, ErrListChanged) {
		logging.New(ctx, "workspace").LogWarnf("commit", "uid=%s list=%s discarded=%d", w.uid, repo.ListID(), len(drafts))
	}
	if err != nil {
		return err
	}
	return repo.CreateBatch(ctx, drafts)
}

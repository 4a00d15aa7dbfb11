package http

import (
	"context"

	"github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/users"
)

// Sessions opens and ends per-user sessions. *workspace.Hub satisfies it.
type Sessions interface {
	SignIn(ctx context.Context, uid, credential string) (*domain.User, error)
	SignOut(ctx context.Context, uid string) error
	User(uid string) *domain.User
}

// Directory persists profiles of signed-in users. It is optional.
type Directory interface {
	EnsureUser(ctx context.Context, u *domain.User) (string, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*users.Profile, error)
}

type Handler struct {
	sessions  Sessions
	directory Directory
}

// New builds the session handler. directory may be nil when no database is
// configured.
func New(sessions Sessions, directory Directory) *Handler {
	return &Handler{
		sessions:  sessions,
		directory: directory,
	}
}

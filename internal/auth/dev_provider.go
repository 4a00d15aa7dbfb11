package auth

import (
	"context"
	"strings"
	"time"

	"github.com/tasklane/tasklane-backend/internal/auth/domain"
)

// DevProvider treats the credential itself as the user id.
// Use this ONLY for development/testing.
type DevProvider struct {
	sessions *sessions
}

func NewDevProvider() *DevProvider {
	return &DevProvider{sessions: newSessions()}
}

func (p *DevProvider) SignIn(ctx context.Context, credential string) (*domain.User, error) {
	uid := strings.TrimSpace(credential)
	if uid == "" {
		return nil, &domain.AuthError{Op: "sign-in", Err: domain.ErrMissingToken}
	}
	user := domain.NewUser(uid, uid+"@dev.local", uid, "")
	p.sessions.signedIn(user, time.Time{})
	return user, nil
}

func (p *DevProvider) SignOut(ctx context.Context, uid string) error {
	if p.sessions.current(uid) == nil {
		return &domain.AuthError{Op: "sign-out", Err: domain.ErrNotSignedIn}
	}
	p.sessions.signedOut(uid)
	return nil
}

func (p *DevProvider) SubscribeSessionState(uid string, fn func(*domain.User)) func() {
	return p.sessions.subscribe(uid, fn)
}

// VerifyIDToken accepts any non-empty token as a uid.
func (p *DevProvider) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	uid := strings.TrimSpace(idToken)
	if uid == "" {
		return "", domain.ErrInvalidToken
	}
	return uid, nil
}

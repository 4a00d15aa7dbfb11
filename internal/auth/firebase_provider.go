package auth

import (
	"context"
	"fmt"
	"time"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/logging"
)

// FirebaseClient is the part of the Firebase Auth client the provider uses.
// *auth.Client satisfies it.
type FirebaseClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// FirebaseProvider signs users in with Firebase ID tokens. A session lasts
// until sign-out or until the token that opened it expires.
type FirebaseProvider struct {
	client   FirebaseClient
	sessions *sessions
}

func NewFirebaseProvider(client FirebaseClient) *FirebaseProvider {
	return &FirebaseProvider{client: client, sessions: newSessions()}
}

func (p *FirebaseProvider) SignIn(ctx context.Context, credential string) (*domain.User, error) {
	logger := logging.New(ctx, "auth")

	if credential == "" {
		return nil, &domain.AuthError{Op: "sign-in", Err: domain.ErrMissingToken}
	}
	token, err := p.client.VerifyIDToken(ctx, credential)
	if err != nil {
		logger.LogWarnf("sign-in", "token rejected: %v", err)
		return nil, &domain.AuthError{Op: "sign-in", Err: domain.ErrInvalidToken}
	}

	record, err := p.client.GetUser(ctx, token.UID)
	if err != nil {
		logger.LogError("sign-in", err)
		return nil, &domain.AuthError{Op: "sign-in", Err: fmt.Errorf("load profile: %w", err)}
	}

	user := userFromRecord(record)
	var expires time.Time
	if token.Expires > 0 {
		expires = time.Unix(token.Expires, 0)
	}
	p.sessions.signedIn(user, expires)
	logger.LogInfof("sign-in", "uid=%s", user.ID)
	return user, nil
}

// SignOut revokes the user's refresh tokens. The local session ends even if
// the revocation fails; the error is still reported.
func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	if p.sessions.current(uid) == nil {
		return &domain.AuthError{Op: "sign-out", Err: domain.ErrNotSignedIn}
	}
	err := p.client.RevokeRefreshTokens(ctx, uid)
	p.sessions.signedOut(uid)
	if err != nil {
		logging.New(ctx, "auth").LogError("sign-out", err)
		return &domain.AuthError{Op: "sign-out", Err: err}
	}
	return nil
}

func (p *FirebaseProvider) SubscribeSessionState(uid string, fn func(*domain.User)) func() {
	return p.sessions.subscribe(uid, fn)
}

// VerifyIDToken lets the provider act as the request middleware's verifier.
func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

func userFromRecord(r *fbauth.UserRecord) *domain.User {
	if r == nil || r.UserInfo == nil {
		return &domain.User{}
	}
	return domain.NewUser(r.UID, r.Email, r.DisplayName, r.PhotoURL)
}

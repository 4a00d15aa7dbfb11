package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"

	"github.com/tasklane/tasklane-backend/config"
	"github.com/tasklane/tasklane-backend/internal/auth"
	authmw "github.com/tasklane/tasklane-backend/internal/auth/middleware"
	"github.com/tasklane/tasklane-backend/internal/logging"
)

// SessionProvider signs users in and verifies the tokens on every request.
type SessionProvider interface {
	auth.Provider
	authmw.TokenVerifier
}

// OpenProvider returns the Firebase provider and its app. Outside production
// a missing project id selects the development provider and a nil app.
func OpenProvider(ctx context.Context, cfg *config.Config) (SessionProvider, *firebase.App, error) {
	if cfg.Firebase.ProjectID == "" && cfg.App.Environment != "production" {
		logging.For("bootstrap").LogWarnf("auth", "FIREBASE_PROJECT_ID not set, using development provider")
		return auth.NewDevProvider(), nil, nil
	}

	app, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		return nil, nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return auth.NewFirebaseProvider(client), app, nil
}

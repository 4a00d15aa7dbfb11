package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/tasklane/tasklane-backend/config"
)

var firebaseScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/firebase",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

// InitializeFirebase initializes the Firebase Admin SDK.
// Without a credentials file it falls back to Application Default Credentials.
func InitializeFirebase(ctx context.Context, cfg *config.FirebaseConfig) (*firebase.App, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	var opt option.ClientOption
	if cfg.CredentialsPath != "" {
		opt = option.WithCredentialsFile(cfg.CredentialsPath)
	} else {
		creds, err := google.FindDefaultCredentials(ctx, firebaseScopes...)
		if err != nil {
			return nil, fmt.Errorf("no FIREBASE_CREDENTIALS_PATH and no default credentials: %w", err)
		}
		opt = option.WithCredentials(creds)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	return app, nil
}

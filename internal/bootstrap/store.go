package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tasklane/tasklane-backend/config"
	httpapi "github.com/tasklane/tasklane-backend/internal/api/http"
	"github.com/tasklane/tasklane-backend/internal/store"
	"github.com/tasklane/tasklane-backend/internal/store/firestorestore"
	"github.com/tasklane/tasklane-backend/internal/store/memory"
	"github.com/tasklane/tasklane-backend/internal/store/redisstore"
)

// StoreBackend is an opened document store plus what the health check and
// shutdown need from it.
type StoreBackend struct {
	Store store.Store
	Check httpapi.StoreCheck

	closers []func() error
}

func (b *StoreBackend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStore connects the configured backend. app is required only for the
// firestore backend.
func OpenStore(ctx context.Context, cfg *config.Config, app *firebase.App) (*StoreBackend, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		s := memory.New()
		return &StoreBackend{
			Store:   s,
			Check:   httpapi.StoreCheck{Backend: config.StoreMemory},
			closers: []func() error{s.Close},
		}, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s := redisstore.New(client)
		return &StoreBackend{
			Store: s,
			Check: httpapi.StoreCheck{
				Backend: config.StoreRedis,
				Ping:    func(ctx context.Context) error { return client.Ping(ctx).Err() },
			},
			closers: []func() error{client.Close, s.Close},
		}, nil

	case config.StoreFirestore:
		if app == nil {
			return nil, fmt.Errorf("firestore backend requires Firebase")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		s := firestorestore.New(client)
		return &StoreBackend{
			Store:   s,
			Check:   httpapi.StoreCheck{Backend: config.StoreFirestore},
			closers: []func() error{client.Close, s.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

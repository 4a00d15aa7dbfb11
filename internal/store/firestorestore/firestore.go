// Package firestorestore adapts Cloud Firestore real-time queries to store.Store.
package firestorestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/store"
)

type Store struct {
	client *firestore.Client

	mu    sync.Mutex
	feeds map[*store.Feed]struct{}
}

func New(client *firestore.Client) *Store {
	return &Store{
		client: client,
		feeds:  make(map[*store.Feed]struct{}),
	}
}

func direction(d store.Direction) firestore.Direction {
	if d == store.Desc {
		return firestore.Desc
	}
	return firestore.Asc
}

// toFirestore swaps the store's timestamp sentinel for Firestore's own so the
// value is assigned by the server.
func toFirestore(fields store.Fields) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v == store.ServerTimestamp {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	if err := store.ValidateCollection(q.Collection); err != nil {
		return nil, err
	}
	if q.OrderBy == "" {
		return nil, store.ErrUnsupportedOrder
	}

	subCtx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(q.Collection).OrderBy(q.OrderBy, direction(q.Direction)).Snapshots(subCtx)

	var feed *store.Feed
	feed = store.NewFeed(func() {
		cancel()
		s.mu.Lock()
		delete(s.feeds, feed)
		s.mu.Unlock()
	})
	s.mu.Lock()
	s.feeds[feed] = struct{}{}
	s.mu.Unlock()

	go s.watch(subCtx, q, it, feed)
	return feed, nil
}

func (s *Store) watch(ctx context.Context, q store.Query, it *firestore.QuerySnapshotIterator, feed *store.Feed) {
	defer it.Stop()
	logger := logging.For("firestorestore")

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				feed.Close()
				return
			}
			logger.LogErrorf("watch", "collection=%s error=%v", q.Collection, err)
			feed.Fail(fmt.Errorf("snapshot listener: %w", err))
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			feed.Fail(fmt.Errorf("read snapshot documents: %w", err))
			return
		}
		records := make([]store.Record, 0, len(docs))
		for _, doc := range docs {
			records = append(records, store.Record{ID: doc.Ref.ID, Fields: store.Fields(doc.Data())})
		}
		if !feed.Publish(store.Snapshot{Records: records, ReadAt: snap.ReadTime}) {
			return
		}
	}
}

func (s *Store) Add(ctx context.Context, collection string, fields store.Fields) (string, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return "", err
	}
	ref, _, err := s.client.Collection(collection).Add(ctx, toFirestore(fields))
	if err != nil {
		return "", fmt.Errorf("failed to add document: %w", err)
	}
	return ref.ID, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	doc, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to get document: %w", err)
	}
	return store.Record{ID: doc.Ref.ID, Fields: store.Fields(doc.Data())}, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range toFirestore(fields) {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// Delete removes a document. Sub-collections are left in place.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Batch creates every document inside one transaction. Firestore gives every
// server timestamp in a commit the same value, so sentinels are resolved on
// the client one microsecond apart to keep the batch's order.
//
// Batched records therefore carry this process's clock while single Adds
// carry the server's. Against other records the batch is only ordered as well
// as the host clock agrees with Firestore; run the service with NTP.
func (s *Store) Batch(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if err := store.ValidateCollection(w.Collection); err != nil {
			return err
		}
	}

	resolved := resolveBatch(writes, time.Now())
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i, w := range writes {
			if err := tx.Create(s.client.Collection(w.Collection).NewDoc(), toFirestore(resolved[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// resolveBatch replaces server timestamps with now plus the write's index in
// microseconds.
func resolveBatch(writes []store.Write, now time.Time) []store.Fields {
	now = now.UTC()
	out := make([]store.Fields, len(writes))
	for i, w := range writes {
		out[i] = store.Resolve(w.Fields, now.Add(time.Duration(i)*time.Microsecond))
	}
	return out
}

// Close ends open listeners. The Firestore client is owned by the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	feeds := make([]*store.Feed, 0, len(s.feeds))
	for f := range s.feeds {
		feeds = append(feeds, f)
	}
	s.mu.Unlock()

	for _, f := range feeds {
		f.Close()
	}
	return nil
}

var _ store.Store = (*Store)(nil)

// Package memory is an in-process document store with live subscriptions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tasklane/tasklane-backend/internal/store"
)

type Option func(*Store)

// WithClock replaces the clock used to resolve server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	last        time.Time
	collections map[string]map[string]store.Fields
	subs        map[string]map[*subscription]struct{}
	closed      bool
}

type subscription struct {
	q    store.Query
	feed *store.Feed
}

func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		collections: make(map[string]map[string]store.Fields),
		subs:        make(map[string]map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tick returns a strictly increasing server time. Callers hold s.mu.
func (s *Store) tick() time.Time {
	now := s.now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}

func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	if err := store.ValidateCollection(q.Collection); err != nil {
		return nil, err
	}
	if q.OrderBy == "" {
		return nil, store.ErrUnsupportedOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("memory store closed")
	}

	sub := &subscription{q: q}
	var stop func() bool
	sub.feed = store.NewFeed(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if stop != nil {
			stop()
		}
		delete(s.subs[q.Collection], sub)
	})
	stop = context.AfterFunc(ctx, sub.feed.Close)

	if s.subs[q.Collection] == nil {
		s.subs[q.Collection] = make(map[*subscription]struct{})
	}
	s.subs[q.Collection][sub] = struct{}{}
	sub.feed.Publish(s.snapshotLocked(q))

	return sub.feed, nil
}

func (s *Store) Add(ctx context.Context, collection string, fields store.Fields) (string, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.putLocked(collection, id, store.Resolve(fields, s.tick()))
	s.notifyLocked(collection)
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.collections[collection][id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return store.Record{ID: id, Fields: copyFields(f)}, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range store.Resolve(fields, s.tick()) {
		existing[k] = v
	}
	s.notifyLocked(collection)
	return nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return nil
	}
	delete(s.collections[collection], id)
	s.notifyLocked(collection)
	return nil
}

func (s *Store) Batch(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if err := store.ValidateCollection(w.Collection); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, w := range writes {
		s.putLocked(w.Collection, uuid.NewString(), store.Resolve(w.Fields, s.tick()))
		touched[w.Collection] = struct{}{}
	}
	for c := range touched {
		s.notifyLocked(c)
	}
	return nil
}

// Close ends every open subscription.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	var feeds []*store.Feed
	for _, subs := range s.subs {
		for sub := range subs {
			feeds = append(feeds, sub.feed)
		}
	}
	s.mu.Unlock()

	for _, f := range feeds {
		f.Close()
	}
	return nil
}

func (s *Store) putLocked(collection, id string, fields store.Fields) {
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string]store.Fields)
		s.collections[collection] = c
	}
	c[id] = fields
}

func (s *Store) notifyLocked(collection string) {
	for sub := range s.subs[collection] {
		sub.feed.Publish(s.snapshotLocked(sub.q))
	}
}

func (s *Store) snapshotLocked(q store.Query) store.Snapshot {
	c := s.collections[q.Collection]
	records := make([]store.Record, 0, len(c))
	for id, f := range c {
		records = append(records, store.Record{ID: id, Fields: copyFields(f)})
	}
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].Fields.Time(q.OrderBy), records[j].Fields.Time(q.OrderBy)
		if ti.Equal(tj) {
			return records[i].ID < records[j].ID
		}
		if q.Direction == store.Desc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
	return store.Snapshot{Records: records, ReadAt: s.last}
}

func copyFields(f store.Fields) store.Fields {
	out := make(store.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Package redisstore keeps collections in Redis and fans out changes over pub/sub.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/store"
)

const (
	keyPrefix        = "doc:"    // doc:{collection}:...
	dataSuffix       = ":data"   // hash: record id -> JSON fields
	orderSuffix      = ":order"  // zset: record id scored by createdAt (unix micros)
	eventsSuffix     = ":events" // pub/sub channel, one message per committed change
	maxUpdateRetries = 3
)

// Store implements store.Store on top of a Redis client it does not own.
type Store struct {
	client *redis.Client

	mu    sync.Mutex
	feeds map[*store.Feed]struct{}
}

func New(client *redis.Client) *Store {
	return &Store{
		client: client,
		feeds:  make(map[*store.Feed]struct{}),
	}
}

func dataKey(collection string) string   { return keyPrefix + collection + dataSuffix }
func orderKey(collection string) string  { return keyPrefix + collection + orderSuffix }
func eventsKey(collection string) string { return keyPrefix + collection + eventsSuffix }

// Subscribe waits for the pub/sub subscription to be confirmed before reading
// the initial snapshot, so no change between the two is missed.
func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	if err := store.ValidateCollection(q.Collection); err != nil {
		return nil, err
	}
	if q.OrderBy != store.CreatedAtField {
		return nil, fmt.Errorf("%w: %q", store.ErrUnsupportedOrder, q.OrderBy)
	}

	subCtx, cancel := context.WithCancel(ctx)
	ps := s.client.Subscribe(subCtx, eventsKey(q.Collection))
	if _, err := ps.Receive(subCtx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	var feed *store.Feed
	feed = store.NewFeed(func() {
		cancel()
		_ = ps.Close()
		s.mu.Lock()
		delete(s.feeds, feed)
		s.mu.Unlock()
	})
	s.mu.Lock()
	s.feeds[feed] = struct{}{}
	s.mu.Unlock()

	snap, err := s.read(subCtx, q)
	if err != nil {
		feed.Fail(err)
		return nil, err
	}
	feed.Publish(snap)

	go s.watch(subCtx, q, ps, feed)
	return feed, nil
}

func (s *Store) watch(ctx context.Context, q store.Query, ps *redis.PubSub, feed *store.Feed) {
	logger := logging.For("redisstore")
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			feed.Close()
			return
		case _, ok := <-ch:
			if !ok {
				feed.Close()
				return
			}
			snap, err := s.read(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					feed.Close()
					return
				}
				logger.LogErrorf("watch", "collection=%s error=%v", q.Collection, err)
				feed.Fail(err)
				return
			}
			feed.Publish(snap)
		}
	}
}

// read loads the order index and the data hash in one MULTI/EXEC so the
// snapshot never mixes two states of the collection.
func (s *Store) read(ctx context.Context, q store.Query) (store.Snapshot, error) {
	var order *redis.StringSliceCmd
	var data *redis.MapStringStringCmd
	var now *redis.TimeCmd

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if q.Direction == store.Desc {
			order = p.ZRevRange(ctx, orderKey(q.Collection), 0, -1)
		} else {
			order = p.ZRange(ctx, orderKey(q.Collection), 0, -1)
		}
		data = p.HGetAll(ctx, dataKey(q.Collection))
		now = p.Time(ctx)
		return nil
	})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read collection: %w", err)
	}

	raw := data.Val()
	ids := order.Val()
	records := make([]store.Record, 0, len(ids))
	for _, id := range ids {
		payload, ok := raw[id]
		if !ok {
			continue
		}
		fields, err := decode(payload)
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("failed to decode record %s: %w", id, err)
		}
		records = append(records, store.Record{ID: id, Fields: fields})
	}

	return store.Snapshot{Records: records, ReadAt: now.Val().UTC()}, nil
}

func (s *Store) serverTime(ctx context.Context) (time.Time, error) {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read server time: %w", err)
	}
	return t.UTC(), nil
}

type pending struct {
	collection string
	id         string
	payload    []byte
	score      float64
}

func prepare(collection string, fields store.Fields, now time.Time) (pending, error) {
	resolved := store.Resolve(fields, now)
	payload, err := json.Marshal(resolved)
	if err != nil {
		return pending{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	at := resolved.Time(store.CreatedAtField)
	if at.IsZero() {
		at = now
	}
	return pending{
		collection: collection,
		id:         uuid.New().String(),
		payload:    payload,
		score:      float64(at.UnixMicro()),
	}, nil
}

func (s *Store) Add(ctx context.Context, collection string, fields store.Fields) (string, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return "", err
	}
	now, err := s.serverTime(ctx)
	if err != nil {
		return "", err
	}
	p, err := prepare(collection, fields, now)
	if err != nil {
		return "", err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, dataKey(collection), p.id, p.payload)
		pipe.ZAdd(ctx, orderKey(collection), redis.Z{Score: p.score, Member: p.id})
		pipe.Publish(ctx, eventsKey(collection), "add")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to add record: %w", err)
	}
	return p.id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	payload, err := s.client.HGet(ctx, dataKey(collection), id).Result()
	if err == redis.Nil {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	fields, err := decode(payload)
	if err != nil {
		return store.Record{}, err
	}
	return store.Record{ID: id, Fields: fields}, nil
}

// Update merges fields into an existing record under WATCH, retrying when a
// concurrent writer touched the collection first.
func (s *Store) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	key := dataKey(collection)

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			payload, err := tx.HGet(ctx, key, id).Result()
			if err == redis.Nil {
				return store.ErrNotFound
			}
			if err != nil {
				return err
			}
			existing, err := decode(payload)
			if err != nil {
				return err
			}
			now, err := tx.Time(ctx).Result()
			if err != nil {
				return err
			}
			for k, v := range store.Resolve(fields, now.UTC()) {
				existing[k] = v
			}
			merged, err := json.Marshal(existing)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, id, merged)
				pipe.Publish(ctx, eventsKey(collection), "update")
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to update record: too much contention on %s", collection)
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, dataKey(collection), id)
		pipe.ZRem(ctx, orderKey(collection), id)
		pipe.Publish(ctx, eventsKey(collection), "delete")
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Batch commits every write in a single MULTI/EXEC and publishes one
// notification per touched collection after all records are in place.
func (s *Store) Batch(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if err := store.ValidateCollection(w.Collection); err != nil {
			return err
		}
	}

	now, err := s.serverTime(ctx)
	if err != nil {
		return err
	}
	prepared := make([]pending, 0, len(writes))
	for i, w := range writes {
		// Keep the batch's own order when every draft shares one server time.
		p, err := prepare(w.Collection, w.Fields, now.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return err
		}
		prepared = append(prepared, p)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		touched := make(map[string]struct{})
		for _, p := range prepared {
			pipe.HSet(ctx, dataKey(p.collection), p.id, p.payload)
			pipe.ZAdd(ctx, orderKey(p.collection), redis.Z{Score: p.score, Member: p.id})
			touched[p.collection] = struct{}{}
		}
		for c := range touched {
			pipe.Publish(ctx, eventsKey(c), "batch")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Close ends every open subscription. The Redis client stays open.
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

func decode(payload string) (store.Fields, error) {
	var fields store.Fields
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	if fields == nil {
		fields = store.Fields{}
	}
	return fields, nil
}

package repository

import "github.com/tasklane/tasklane-backend/internal/store"

// Live is a typed view over a store subscription. Consumers select on C and
// pass each snapshot to Decode.
type Live[T any] struct {
	sub    store.Subscription
	decode func(store.Record) T
}

func newLive[T any](sub store.Subscription, decode func(store.Record) T) *Live[T] {
	return &Live[T]{sub: sub, decode: decode}
}

func (l *Live[T]) C() <-chan store.Snapshot {
	return l.sub.Snapshots()
}

// Decode maps a snapshot to entities in snapshot order.
func (l *Live[T]) Decode(snap store.Snapshot) []T {
	out := make([]T, 0, len(snap.Records))
	for _, rec := range snap.Records {
		out = append(out, l.decode(rec))
	}
	return out
}

func (l *Live[T]) Err() error {
	return l.sub.Err()
}

// Close disposes the subscription. No snapshot is delivered afterwards.
func (l *Live[T]) Close() {
	l.sub.Close()
}

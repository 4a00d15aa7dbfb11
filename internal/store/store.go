// Package store defines the document store used for lists and items.
//
// Collections are addressed by slash-separated paths such as
// "users/{uid}/lists/{listId}/items". Records are flat field maps.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrUnsupportedOrder   = errors.New("unsupported order field")
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// CreatedAtField is the field every collection is ordered by.
const CreatedAtField = "createdAt"

type serverTimestamp struct{}

// ServerTimestamp is a field value replaced by the store's clock at write time.
var ServerTimestamp = serverTimestamp{}

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Fields holds a record's data.
type Fields map[string]interface{}

type Record struct {
	ID     string
	Fields Fields
}

// Snapshot is the full ordered content of a collection at one point in time.
type Snapshot struct {
	Records []Record
	ReadAt  time.Time
}

type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
}

// Write is one record creation inside a batch.
type Write struct {
	Collection string
	Fields     Fields
}

// Subscription delivers snapshots of one query until closed.
// The channel is closed once the subscription ends; Err reports why.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Err() error
	Close()
}

type Store interface {
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	// Batch creates all records or none of them.
	Batch(ctx context.Context, writes []Write) error
	Close() error
}

// Join builds a collection or document path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidateCollection checks that path names a collection (odd segment count).
func ValidateCollection(path string) error {
	if path == "" {
		return fmt.Errorf("empty collection path")
	}
	parts := strings.Split(path, "/")
	if len(parts)%2 == 0 {
		return fmt.Errorf("%q is not a collection path", path)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%q has an empty segment", path)
		}
	}
	return nil
}

// Resolve returns a copy of fields with ServerTimestamp sentinels replaced by now.
func Resolve(fields Fields, now time.Time) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// String reads a string field.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool reads a boolean field.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Time reads a time field, accepting RFC 3339 strings from JSON-backed stores.
func (f Fields) Time(key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

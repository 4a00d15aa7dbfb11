package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeed_LatestWins(t *testing.T) {
	f := NewFeed(nil)

	assert.True(t, f.Publish(Snapshot{Records: []Record{{ID: "a"}}}))
	assert.True(t, f.Publish(Snapshot{Records: []Record{{ID: "a"}, {ID: "b"}}}))

	snap := <-f.Snapshots()
	assert.Len(t, snap.Records, 2)
}

func TestFeed_CloseDropsPendingAndRunsHook(t *testing.T) {
	calls := 0
	f := NewFeed(func() { calls++ })

	f.Publish(Snapshot{})
	f.Close()
	f.Close()

	_, ok := <-f.Snapshots()
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
	assert.False(t, f.Publish(Snapshot{}))
	assert.ErrorIs(t, f.Err(), ErrSubscriptionClosed)
}

func TestFeed_Fail(t *testing.T) {
	boom := errors.New("boom")
	f := NewFeed(nil)
	f.Fail(boom)
	assert.ErrorIs(t, f.Err(), boom)
}

func TestValidateCollection(t *testing.T) {
	assert.NoError(t, ValidateCollection("users/u1/lists"))
	assert.NoError(t, ValidateCollection(Join("users", "u1", "lists", "l1", "items")))
	assert.Error(t, ValidateCollection(""))
	assert.Error(t, ValidateCollection("users/u1"))
	assert.Error(t, ValidateCollection("users//lists"))
}

func TestFields(t *testing.T) {
	at := time.Date(2026, 5, 6, 7, 8, 9, 10, time.UTC)
	f := Fields{
		"text":      "x",
		"completed": true,
		"createdAt": at.Format(time.RFC3339Nano),
		"updatedAt": at,
	}

	assert.Equal(t, "x", f.String("text"))
	assert.True(t, f.Bool("completed"))
	assert.True(t, at.Equal(f.Time("createdAt")))
	assert.True(t, at.Equal(f.Time("updatedAt")))
	assert.True(t, f.Time("missing").IsZero())
	assert.Equal(t, "", f.String("completed"))
}

func TestResolve(t *testing.T) {
	now := time.Now()
	in := Fields{"createdAt": ServerTimestamp, "text": "a"}
	out := Resolve(in, now)

	assert.Equal(t, now, out["createdAt"])
	assert.Equal(t, ServerTimestamp, in["createdAt"], "input must not be modified")
}

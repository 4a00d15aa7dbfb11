package store

import "sync"

// Feed is a latest-wins snapshot mailbox shared by the store backends.
// Publishing never blocks: an unread snapshot is replaced by the newer one,
// which is safe because every snapshot carries the full collection.
type Feed struct {
	mu      sync.Mutex
	ch      chan Snapshot
	closed  bool
	err     error
	onClose func()
}

// NewFeed returns an open feed. onClose runs once when the feed ends.
func NewFeed(onClose func()) *Feed {
	return &Feed{
		ch:      make(chan Snapshot, 1),
		onClose: onClose,
	}
}

// Publish hands s to the consumer. It reports false once the feed is closed.
func (f *Feed) Publish(s Snapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
	return true
}

func (f *Feed) Snapshots() <-chan Snapshot {
	return f.ch
}

func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close ends the feed and drops any undelivered snapshot.
func (f *Feed) Close() {
	f.end(nil)
}

// Fail ends the feed with err.
func (f *Feed) Fail(err error) {
	f.end(err)
}

func (f *Feed) end(err error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if err == nil {
		err = ErrSubscriptionClosed
	}
	f.err = err
	select {
	case <-f.ch:
	default:
	}
	close(f.ch)
	onClose := f.onClose
	f.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

// Package status implements the DataSourceStatus / DataStoreStatus
// broadcasters, generalized from goflagship's internal/snapshot/notify.go
// pub/sub registry (a single chan string of ETags) into a typed,
// reusable fan-out for any status or change-event payload.
package status

import "sync"

// Broadcaster fans out values of type T to subscribers via buffered
// channels, dropping a publish to any subscriber whose channel is full
// rather than blocking the publisher.
type Broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: map[chan T]struct{}{}}
}

// Subscribe returns a channel of future publishes and an unsubscribe
// function. The channel has capacity 1: while an earlier value is still
// unread, later publishes to this subscriber are dropped, so a slow
// subscriber receives the oldest pending value, not the latest one.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	unsub := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, unsub
}

func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// DataSourceState enumerates the lifecycle states of a Data Source.
type DataSourceState string

const (
	DataSourceInitializing DataSourceState = "INITIALIZING"
	DataSourceValid        DataSourceState = "VALID"
	DataSourceInterrupted  DataSourceState = "INTERRUPTED"
	DataSourceOff          DataSourceState = "OFF"
)

// DataSourceStatus describes the current connectivity of a Data Source.
type DataSourceStatus struct {
	State     DataSourceState
	LastError error
}

// DataStoreStatus describes the current health of a Data Store.
type DataStoreStatus struct {
	Available    bool
	NeedsRefresh bool
}

// FlagChangeEvent names a flag whose definition changed.
type FlagChangeEvent struct {
	Key string
}

// FlagValueChangeEvent names a flag whose evaluated value changed for a
// specific context, computed by re-evaluating before and after an update.
type FlagValueChangeEvent struct {
	Key      string
	OldValue any
	NewValue any
}

package ldclient

import (
	"reflect"

	"github.com/TimurManjosov/goflagship/internal/status"
	"github.com/TimurManjosov/goflagship/ldcontext"
)

// TrackFlagChanges subscribes to every flag whose definition changed,
// either directly or because of a prerequisite or segment it depends on
// (see internal/datasource's dependency tracker). The returned channel
// has capacity 1 like every status.Broadcaster subscription: while one
// event is still unread, later events for this subscriber are dropped.
func (c *Client) TrackFlagChanges() (<-chan status.FlagChangeEvent, func()) {
	return c.changeBroadcaster.Subscribe()
}

// TrackFlagValueChanges watches one flag for one pinned context, firing
// only when re-evaluating the flag for that context actually produces a
// different value -- a flag's definition can change (a new rule added
// for a different segment, say) without the value changing for this
// particular context, and FlagChangeEvent alone can't tell the
// difference. Grounded on the real SDK's impl/flag_tracker.py
// FlagValueChangeListener, translated from its listener-callback style
// into a channel.
func (c *Client) TrackFlagValueChanges(ctx ldcontext.Context, key string, defaultValue any) (<-chan status.FlagValueChangeEvent, func()) {
	changes, unsubChanges := c.changeBroadcaster.Subscribe()
	out := make(chan status.FlagValueChangeEvent, 1)
	done := make(chan struct{})

	go func() {
		current := c.Variation(ctx, key, defaultValue)
		for {
			select {
			case ev := <-changes:
				if ev.Key != key {
					continue
				}
				next := c.Variation(ctx, key, defaultValue)
				changed := !reflect.DeepEqual(current, next)
				old := current
				current = next
				if !changed {
					continue
				}
				select {
				case out <- status.FlagValueChangeEvent{Key: key, OldValue: old, NewValue: next}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	unsub := func() {
		close(done)
		unsubChanges()
	}
	return out, unsub
}

package ldclient

import (
	"context"
	"testing"
	"time"

	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/internal/status"
	"github.com/TimurManjosov/goflagship/ldcontext"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

func TestTrackFlagChanges_ReceivesPublishedEvent(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	changes, unsub := c.TrackFlagChanges()
	defer unsub()

	c.changeBroadcaster.Publish(status.FlagChangeEvent{Key: "my-flag"})

	select {
	case ev := <-changes:
		if ev.Key != "my-flag" {
			t.Errorf("FlagChangeEvent.Key = %q, want my-flag", ev.Key)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a FlagChangeEvent")
	}
}

func TestTrackFlagValueChanges_FiresOnlyWhenValueActuallyDiffers(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	flag := boolFlag("my-flag")
	flag.On = false
	off := 0
	flag.OffVariation = &off
	if _, err := c.store.Upsert(context.Background(), ldmodel.KindFlag, flag.Key, ldmodel.ItemDescriptor{Version: flag.Version, Flag: flag}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	userCtx := ldcontext.New("user-1")
	values, unsub := c.TrackFlagValueChanges(userCtx, "my-flag", false)
	defer unsub()

	// A FlagChangeEvent for a different flag must not trigger a re-evaluation.
	c.changeBroadcaster.Publish(status.FlagChangeEvent{Key: "other-flag"})

	select {
	case ev := <-values:
		t.Fatalf("unexpected FlagValueChangeEvent for unrelated flag: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	// Republishing the same definition change without an actual value
	// change (the flag is still off, still evaluates to false) must not
	// produce a FlagValueChangeEvent either.
	c.changeBroadcaster.Publish(status.FlagChangeEvent{Key: "my-flag"})
	select {
	case ev := <-values:
		t.Fatalf("unexpected FlagValueChangeEvent when the evaluated value did not change: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	flag.On = true
	if _, err := c.store.Upsert(context.Background(), ldmodel.KindFlag, flag.Key, ldmodel.ItemDescriptor{Version: flag.Version + 1, Flag: flag}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	c.changeBroadcaster.Publish(status.FlagChangeEvent{Key: "my-flag"})

	select {
	case ev := <-values:
		if ev.Key != "my-flag" || ev.OldValue != false || ev.NewValue != true {
			t.Errorf("FlagValueChangeEvent = %+v, want Key=my-flag OldValue=false NewValue=true", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a FlagValueChangeEvent after the flag's evaluated value changed")
	}
}

func TestTrackFlagValueChanges_UnsubscribeStopsTheWatcherGoroutine(t *testing.T) {
	c, err := MakeClient(offlineConfig(), ldlog.NoOp(), nil, 0)
	if err != nil {
		t.Fatalf("MakeClient() error: %v", err)
	}
	defer c.Close()

	values, unsub := c.TrackFlagValueChanges(ldcontext.New("user-1"), "my-flag", false)
	unsub()

	c.changeBroadcaster.Publish(status.FlagChangeEvent{Key: "my-flag"})

	select {
	case ev := <-values:
		t.Fatalf("unexpected event after unsubscribe: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

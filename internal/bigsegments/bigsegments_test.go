package bigsegments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TimurManjosov/goflagship/ldcontext"
)

type fakeAdapter struct {
	membership map[string]map[string]bool
	syncedAt   time.Time
	memberErr  error
	syncErr    error
	calls      int
}

func (f *fakeAdapter) Membership(_ context.Context, contextKey string) (map[string]bool, error) {
	f.calls++
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return f.membership[contextKey], nil
}

func (f *fakeAdapter) LastSynced(context.Context) (time.Time, error) {
	if f.syncErr != nil {
		return time.Time{}, f.syncErr
	}
	return f.syncedAt, nil
}

func TestMembershipStatus_NilAdapterIsNotConfigured(t *testing.T) {
	b := New(nil)
	member, status := b.MembershipStatus("seg", ldcontext.New("u1"))
	if member != nil || status != StatusNotConfigured {
		t.Fatalf("MembershipStatus() = %v, %s; want nil, %s", member, status, StatusNotConfigured)
	}
}

func TestMembershipStatus_HealthyMember(t *testing.T) {
	adapter := &fakeAdapter{
		membership: map[string]map[string]bool{"u1": {"seg": true}},
		syncedAt:   time.Now(),
	}
	b := New(adapter)
	member, status := b.MembershipStatus("seg", ldcontext.New("u1"))
	if member == nil || !*member || status != StatusHealthy {
		t.Fatalf("MembershipStatus() = %v, %s; want true, %s", member, status, StatusHealthy)
	}
}

func TestMembershipStatus_ExclusionOverridesInclusion(t *testing.T) {
	adapter := &fakeAdapter{
		membership: map[string]map[string]bool{"u1": {"seg": true, "-seg": true}},
		syncedAt:   time.Now(),
	}
	b := New(adapter)
	member, _ := b.MembershipStatus("seg", ldcontext.New("u1"))
	if member == nil || *member {
		t.Fatalf("MembershipStatus() = %v; want false (exclusion wins)", member)
	}
}

func TestMembershipStatus_NotAMember(t *testing.T) {
	adapter := &fakeAdapter{membership: map[string]map[string]bool{}, syncedAt: time.Now()}
	b := New(adapter)
	member, status := b.MembershipStatus("seg", ldcontext.New("u1"))
	if member == nil || *member || status != StatusHealthy {
		t.Fatalf("MembershipStatus() = %v, %s; want false, %s", member, status, StatusHealthy)
	}
}

func TestMembershipStatus_Stale(t *testing.T) {
	adapter := &fakeAdapter{
		membership: map[string]map[string]bool{"u1": {"seg": true}},
		syncedAt:   time.Now().Add(-10 * time.Minute),
	}
	b := New(adapter)
	_, status := b.MembershipStatus("seg", ldcontext.New("u1"))
	if status != StatusStale {
		t.Fatalf("status = %s, want %s", status, StatusStale)
	}
}

func TestMembershipStatus_StoreError(t *testing.T) {
	adapter := &fakeAdapter{memberErr: errors.New("boom")}
	b := New(adapter)
	member, status := b.MembershipStatus("seg", ldcontext.New("u1"))
	if member != nil || status != StatusStoreError {
		t.Fatalf("MembershipStatus() = %v, %s; want nil, %s", member, status, StatusStoreError)
	}
}

func TestMembershipStatus_CachesWithinTTL(t *testing.T) {
	adapter := &fakeAdapter{
		membership: map[string]map[string]bool{"u1": {"seg": true}},
		syncedAt:   time.Now(),
	}
	b := New(adapter)

	b.MembershipStatus("seg", ldcontext.New("u1"))
	b.MembershipStatus("seg", ldcontext.New("u1"))

	if adapter.calls != 1 {
		t.Fatalf("expected the second lookup within the cache TTL to avoid calling the adapter, got %d calls", adapter.calls)
	}
}

package infra

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"suspension-gateway/middleware/ratelimit/domain"
)

func TestStore_GetSameKeyReturnsSameLimiter(t *testing.T) {
	s := NewStore(10, 1)

	l1 := s.Get(domain.Key("k"))
	l2 := s.Get(domain.Key("k"))
	if l1 != l2 {
		t.Fatalf("expected same limiter pointer for same key")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewStore(0.02, 1)

	lim := s.Get(domain.Key("k"))
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	if lim.Allow() {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
}

func TestStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewStore(10, 1, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	before := s.Get(domain.Key("k"))
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	after := s.Get(domain.Key("k"))
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}

func TestQuotaStore_AllowsWholeQuotaThenRejects(t *testing.T) {
	q, err := ParseQuota("2/minute")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewQuotaStore(q)

	lim := s.Get(domain.Key("1.2.3.4"))
	if !lim.Allow() || !lim.Allow() {
		t.Fatalf("expected the first two requests to fit in the quota")
	}
	if lim.Allow() {
		t.Fatalf("expected the third request to exceed the quota")
	}

	other := s.Get(domain.Key("5.6.7.8"))
	if !other.Allow() {
		t.Fatalf("expected an independent bucket per key")
	}
}

func TestQuotaStore_IdleTTLCoversQuotaWindow(t *testing.T) {
	s := NewQuotaStore(Quota{Count: 5, Per: time.Hour}, WithIdleTTL(time.Minute))
	if s.idleTTL != time.Hour {
		t.Fatalf("expected idle TTL raised to 1h, got %s", s.idleTTL)
	}
}

func TestRunJanitor_RunsSweepsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- RunJanitor(ctx, time.Millisecond, func() { runs.Add(1) })
	}()

	deadline := time.After(time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("janitor did not run")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop after cancel")
	}
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInProcessLimiter_AdmitsUpToBudget(t *testing.T) {
	l := NewInProcessLimiter(nil, 3, time.Minute)
	id := &Identity{Subject: "alice"}

	for i := 0; i < 3; i++ {
		if err := l.Allow(context.Background(), id); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
	}

	err := l.Allow(context.Background(), id)
	if err == nil {
		t.Fatal("request 4 should have been rejected")
	}
	if !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("rejection should match ErrTooManyRequests, got %v", err)
	}
	if got, want := err.Error(), "Rate limit exceeded. Maximum 3 requests per 60 seconds."; got != want {
		t.Errorf("error message = %q, want %q", got, want)
	}
}

func TestInProcessLimiter_WindowSlides(t *testing.T) {
	l := NewInProcessLimiter(nil, 1, 50*time.Millisecond)
	id := &Identity{Subject: "alice"}

	if err := l.Allow(context.Background(), id); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := l.Allow(context.Background(), id); err == nil {
		t.Fatal("second request inside the window should be rejected")
	}

	time.Sleep(60 * time.Millisecond)

	if err := l.Allow(context.Background(), id); err != nil {
		t.Errorf("request after window expiry: %v", err)
	}
}

func TestInProcessLimiter_PerTierBudget(t *testing.T) {
	l := NewInProcessLimiter(map[string]TierConfig{
		"premium": {RequestsPerWindow: 5},
	}, 1, time.Minute)

	premium := &Identity{Subject: "alice", ServiceTier: "premium"}
	for i := 0; i < 5; i++ {
		if err := l.Allow(context.Background(), premium); err != nil {
			t.Fatalf("premium request %d: %v", i+1, err)
		}
	}
	if err := l.Allow(context.Background(), premium); err == nil {
		t.Error("premium request 6 should be rejected")
	}

	// Unknown tier falls back to the default budget.
	basic := &Identity{Subject: "bob"}
	if err := l.Allow(context.Background(), basic); err != nil {
		t.Fatalf("basic request 1: %v", err)
	}
	if err := l.Allow(context.Background(), basic); err == nil {
		t.Error("basic request 2 should be rejected")
	}
}

func TestInProcessLimiter_SubjectsIndependent(t *testing.T) {
	l := NewInProcessLimiter(nil, 1, time.Minute)

	if err := l.Allow(context.Background(), &Identity{Subject: "alice"}); err != nil {
		t.Fatalf("alice: %v", err)
	}
	if err := l.Allow(context.Background(), &Identity{Subject: "bob"}); err != nil {
		t.Errorf("bob should have a separate budget: %v", err)
	}
}

func TestInProcessLimiter_ZeroBudgetMeansUnlimited(t *testing.T) {
	l := NewInProcessLimiter(nil, 0, time.Minute)
	id := &Identity{Subject: "alice"}

	for i := 0; i < 50; i++ {
		if err := l.Allow(context.Background(), id); err != nil {
			t.Fatalf("request %d with no limit configured: %v", i+1, err)
		}
	}
}

func TestInProcessLimiter_NilIdentityFailsOpen(t *testing.T) {
	l := NewInProcessLimiter(nil, 1, time.Minute)
	if err := l.Allow(context.Background(), nil); err != nil {
		t.Errorf("nil identity should be allowed: %v", err)
	}
}

package auth

import (
	"testing"
	"time"
)

func TestLockoutCountsBelowThreshold(t *testing.T) {
	policy := DefaultLockoutPolicy()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var st LockoutState
	for i := 1; i < policy.MaxAttempts; i++ {
		var locked bool
		st, locked = policy.OnFailure(st, now)
		if locked {
			t.Fatalf("locked after %d failures, threshold is %d", i, policy.MaxAttempts)
		}
		if st.FailedAttempts != i {
			t.Fatalf("failed attempts = %d, want %d", st.FailedAttempts, i)
		}
		if st.LockedUntil != nil {
			t.Fatalf("locked_until set after %d failures", i)
		}
		if st.LastFailedAt == nil || !st.LastFailedAt.Equal(now) {
			t.Fatalf("last_failed_at = %v, want %v", st.LastFailedAt, now)
		}
	}
}

func TestLockoutTriggersAtThresholdAndResetsCounter(t *testing.T) {
	policy := LockoutPolicy{MaxAttempts: 5, BlockDuration: 15 * time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var st LockoutState
	var locked bool
	for i := 0; i < 5; i++ {
		st, locked = policy.OnFailure(st, now)
	}
	if !locked {
		t.Fatal("expected lockout on the fifth failure")
	}
	if st.FailedAttempts != 0 {
		t.Fatalf("counter = %d after lock, want 0", st.FailedAttempts)
	}
	if st.LockedUntil == nil || !st.LockedUntil.Equal(now.Add(15*time.Minute)) {
		t.Fatalf("locked_until = %v, want %v", st.LockedUntil, now.Add(15*time.Minute))
	}
	if !policy.Locked(st, now) {
		t.Fatal("expected Locked during the window")
	}
	if policy.Locked(st, now.Add(15*time.Minute)) {
		t.Fatal("lock must expire exactly at locked_until")
	}
}

func TestLockoutSuccessClearsState(t *testing.T) {
	policy := DefaultLockoutPolicy()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	st, _ := policy.OnFailure(LockoutState{}, now)
	st, _ = policy.OnFailure(st, now)
	st = policy.OnSuccess(st)

	if st.FailedAttempts != 0 || st.LastFailedAt != nil || st.LockedUntil != nil {
		t.Fatalf("state not cleared: %+v", st)
	}
}

func TestLockoutFreshWindowAfterExpiredLock(t *testing.T) {
	policy := LockoutPolicy{MaxAttempts: 5, BlockDuration: 15 * time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var st LockoutState
	for i := 0; i < 5; i++ {
		st, _ = policy.OnFailure(st, now)
	}
	after := now.Add(16 * time.Minute)
	if policy.Locked(st, after) {
		t.Fatal("lock should have expired")
	}
	st, locked := policy.OnFailure(st, after)
	if locked {
		t.Fatal("a single failure after an expired lock must not lock again")
	}
	if st.FailedAttempts != 1 {
		t.Fatalf("failed attempts = %d, want 1", st.FailedAttempts)
	}
}

func TestLockoutDisabledWhenMaxAttemptsZero(t *testing.T) {
	policy := LockoutPolicy{MaxAttempts: 0, BlockDuration: time.Minute}
	now := time.Now().UTC()

	st := LockoutState{}
	for i := 0; i < 100; i++ {
		var locked bool
		st, locked = policy.OnFailure(st, now)
		if locked {
			t.Fatal("lockout must be disabled with MaxAttempts=0")
		}
	}
	if st.LockedUntil != nil {
		t.Fatal("unexpected lock")
	}
}

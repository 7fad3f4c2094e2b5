package auth

import "time"

const (
	defaultMaxAttempts   = 5
	defaultBlockDuration = 15 * time.Minute
)

// LockoutPolicy decides how failed logins accumulate into temporary account
// locks. It is a pure function of (state, event, now); all mutable state lives
// in the credential store.
type LockoutPolicy struct {
	MaxAttempts   int
	BlockDuration time.Duration
}

// DefaultLockoutPolicy locks an account for 15 minutes after 5 consecutive
// failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: defaultMaxAttempts, BlockDuration: defaultBlockDuration}
}

// Locked reports whether the account is inside an active lockout window.
// The check precedes password verification; a correct password presented
// during an active lock is still rejected.
func (p LockoutPolicy) Locked(st LockoutState, now time.Time) bool {
	return st.LockedUntil != nil && st.LockedUntil.After(now)
}

// OnFailure returns the state after one more failed attempt. When the counter
// reaches MaxAttempts the lock is set and the counter resets to zero, so the
// window after an expired lock starts counting fresh.
func (p LockoutPolicy) OnFailure(st LockoutState, now time.Time) (LockoutState, bool) {
	next := LockoutState{
		FailedAttempts: st.FailedAttempts + 1,
		LastFailedAt:   &now,
		LockedUntil:    st.LockedUntil,
	}
	if p.MaxAttempts > 0 && next.FailedAttempts >= p.MaxAttempts {
		until := now.Add(p.BlockDuration)
		next.FailedAttempts = 0
		next.LockedUntil = &until
		return next, true
	}
	return next, false
}

// OnSuccess clears all failure bookkeeping.
func (p LockoutPolicy) OnSuccess(LockoutState) LockoutState {
	return LockoutState{}
}

// inference/lease.go
package inference

import (
	"sync"
	"time"
)

// Lease is the token granting exclusive permission to run one pass.
// Exactly one live lease exists process-wide at a time.
type Lease struct {
	HolderID   string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Locker is the mutual-exclusion guard for inference passes. Acquisition is
// non-blocking: concurrent manual and periodic triggers must not stack up,
// so losers are rejected, not queued. A lease past its expiry is treated as
// abandoned and reclaimed by the next acquirer; that is the recovery path
// for a crashed or hung pass, since no external supervision is assumed.
type Locker struct {
	mu  sync.Mutex
	cur *Lease
	ttl time.Duration

	now func() time.Time
}

// NewLocker returns a locker whose leases expire after ttl. The ttl should
// be the engine timeout plus a grace margin so a hung engine invocation
// cannot hold the lock forever.
func NewLocker(ttl time.Duration) *Locker {
	return &Locker{ttl: ttl, now: time.Now}
}

// TryAcquire grants a lease to holderID, or returns ErrLockBusy if a live
// lease is already held.
func (l *Locker) TryAcquire(holderID string) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.cur != nil && now.Before(l.cur.ExpiresAt) {
		return nil, ErrLockBusy
	}

	lease := &Lease{
		HolderID:   holderID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(l.ttl),
	}
	l.cur = lease
	return lease, nil
}

// Release returns the lease. Releasing an unknown, already-released or
// expired-and-reclaimed lease is a no-op, not an error.
func (l *Locker) Release(lease *Lease) {
	if lease == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur != nil && l.cur.HolderID == lease.HolderID {
		l.cur = nil
	}
}

// Holder returns the current live lease holder, or "" when the lock is
// free. Expired leases count as free.
func (l *Locker) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur == nil || !l.now().Before(l.cur.ExpiresAt) {
		return ""
	}
	return l.cur.HolderID
}

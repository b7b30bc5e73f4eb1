package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// Retry defaults.
const (
	// DefaultRetrySlots bounds the number of concurrently outstanding
	// requests tracked per model.
	DefaultRetrySlots = 8

	// DefaultRetryExpiry is how long a staged request stays eligible
	// for resending.
	DefaultRetryExpiry = 10 * time.Second

	// DefaultMaxResends caps timeout-driven resends per transaction.
	// Once exhausted, the timeout is surfaced to the application.
	DefaultMaxResends = 3
)

// retryEntry is one staged request awaiting its response.
type retryEntry struct {
	req     mesh.ClientRequest
	tid     uint8
	resends int
	staged  time.Time
}

// retryTable tracks outstanding client requests keyed by transaction
// ID, bounded to a fixed number of slots with explicit expiry. A
// second send with the same TID overwrites the earlier entry.
type retryTable struct {
	mu         sync.Mutex
	entries    map[uint8]*retryEntry
	slots      int
	expiry     time.Duration
	maxResends int

	// now is replaceable for tests.
	now func() time.Time
}

func newRetryTable(slots int, expiry time.Duration, maxResends int) *retryTable {
	if slots <= 0 {
		slots = DefaultRetrySlots
	}
	if expiry <= 0 {
		expiry = DefaultRetryExpiry
	}
	if maxResends <= 0 {
		maxResends = DefaultMaxResends
	}
	return &retryTable{
		entries:    make(map[uint8]*retryEntry, slots),
		slots:      slots,
		expiry:     expiry,
		maxResends: maxResends,
		now:        time.Now,
	}
}

// stage records a sent request under its TID. When the table is full
// after sweeping expired entries, the oldest entry is evicted.
func (t *retryTable) stage(tid uint8, req mesh.ClientRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	if _, ok := t.entries[tid]; !ok && len(t.entries) >= t.slots {
		t.evictOldest()
	}
	t.entries[tid] = &retryEntry{req: req, tid: tid, staged: now}
}

// timeout looks up the staged request for a timed-out transaction and
// returns it with the resend attempt number (1-based). Attempt 0 means
// the resend budget is exhausted and the entry has been removed. A
// timeout with no staged request is an invalid-state error.
func (t *retryTable) timeout(tid uint8) (mesh.ClientRequest, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweep(t.now())

	e, ok := t.entries[tid]
	if !ok {
		return mesh.ClientRequest{}, 0, fmt.Errorf("no request staged for tid %d: %w", tid, mesh.ErrInvalidState)
	}
	if e.resends >= t.maxResends {
		delete(t.entries, tid)
		return e.req, 0, nil
	}
	e.resends++
	return e.req, e.resends, nil
}

// complete removes the first entry whose staged request is answered by
// the given status opcode. Returns false if nothing matched (e.g. an
// unsolicited publication).
func (t *retryTable) complete(statusOp mesh.Opcode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for tid, e := range t.entries {
		if e.req.Opcode.StatusOpcode() == statusOp {
			delete(t.entries, tid)
			return true
		}
	}
	return false
}

// pending returns the number of staged requests, sweeping expired ones
// first.
func (t *retryTable) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep(t.now())
	return len(t.entries)
}

// sweep drops expired entries. Caller holds the lock.
func (t *retryTable) sweep(now time.Time) {
	for tid, e := range t.entries {
		if now.Sub(e.staged) > t.expiry {
			delete(t.entries, tid)
		}
	}
}

// evictOldest drops the entry staged longest ago. Caller holds the
// lock and has verified the table is non-empty.
func (t *retryTable) evictOldest() {
	var oldestTID uint8
	var oldest time.Time
	first := true
	for tid, e := range t.entries {
		if first || e.staged.Before(oldest) {
			oldestTID = tid
			oldest = e.staged
			first = false
		}
	}
	if !first {
		delete(t.entries, oldestTID)
	}
}

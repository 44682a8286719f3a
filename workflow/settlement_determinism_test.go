package workflow

import (
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the settlement
// concurrency semantics without MySQL:
// - a retried settle request (same Idempotency-Key) is processed once
// - per-tenant serialization keeps generation and settlement from interleaving
//
// The real enforcement lives in the idempotency key table and the conditional
// status claim; full DB integration tests need a MySQL environment.

type fakeSettler struct {
	muByTenant map[string]*sync.Mutex
	mu         sync.Mutex
	seen       map[string]bool
	settled    int
}

func newFakeSettler() *fakeSettler {
	return &fakeSettler{
		muByTenant: map[string]*sync.Mutex{},
		seen:       map[string]bool{},
	}
}

func (s *fakeSettler) settle(tenantId, operation, requestId string, fn func()) {
	// serialize per tenant (models AcquireTenantPostingLock)
	s.mu.Lock()
	tm := s.muByTenant[tenantId]
	if tm == nil {
		tm = &sync.Mutex{}
		s.muByTenant[tenantId] = tm
	}
	s.mu.Unlock()

	tm.Lock()
	defer tm.Unlock()

	// deduplicate (models IdempotencyKey)
	key := tenantId + "|" + operation + "|" + requestId
	s.mu.Lock()
	if s.seen[key] {
		s.mu.Unlock()
		return
	}
	s.seen[key] = true
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	s.settled++
	s.mu.Unlock()
}

func TestSettle_DuplicateRequest_IsProcessedOnce(t *testing.T) {
	s := newFakeSettler()

	const (
		tenant    = "tenant-1"
		operation = "SettleOccurrence"
		requestId = "req-123"
	)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.settle(tenant, operation, requestId, func() {})
		}()
	}
	wg.Wait()

	if s.settled != 1 {
		t.Fatalf("expected exactly 1 settlement, got %d", s.settled)
	}
}

func TestSettle_DeterministicUnderConcurrency(t *testing.T) {
	for run := 0; run < 100; run++ {
		s := newFakeSettler()
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.settle("tenant-1", "SettleOccurrence", "req-1", func() {})
				s.settle("tenant-1", "SkipOccurrence", "req-2", func() {})
				s.settle("tenant-1", "SettleOccurrence", "req-1", func() {}) // duplicate
			}()
		}
		wg.Wait()

		if s.settled != 2 {
			t.Fatalf("run=%d expected 2 unique operations, got %d", run, s.settled)
		}
	}
}

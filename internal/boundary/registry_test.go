package boundary

import (
	"errors"
	"sync"
	"testing"
	"unsafe"
)

// Registry tests run against fresh registries, not the package-global one,
// so they stay independent of buffer tests in the same run.

func testPtrs(t *testing.T) (owner, data unsafe.Pointer) {
	t.Helper()
	o, d := new(ownerCell), new(int64)
	return unsafe.Pointer(o), unsafe.Pointer(d)
}

func TestRegisterTakeRoundTrip(t *testing.T) {
	r := newOwnerRegistry()
	owner, data := testPtrs(t)

	id, err := r.register(owner, data, 7)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == 0 {
		t.Fatal("register issued the reserved id 0")
	}
	if r.len() != 1 {
		t.Fatalf("len = %d, want 1", r.len())
	}

	entry, ok := r.take(id)
	if !ok {
		t.Fatal("take did not find a registered id")
	}
	if entry.owner != owner || entry.data != data || entry.length != 7 {
		t.Fatalf("entry = %+v, want recorded pointers and length", entry)
	}
	if r.len() != 0 {
		t.Fatalf("len after take = %d, want 0", r.len())
	}

	if _, ok := r.take(id); ok {
		t.Fatal("second take of the same id succeeded")
	}
}

func TestRegisterRejectsNilPointers(t *testing.T) {
	r := newOwnerRegistry()
	owner, data := testPtrs(t)

	if _, err := r.register(nil, data, 1); !errors.Is(err, errNilAllocation) {
		t.Fatalf("nil owner: err = %v", err)
	}
	if _, err := r.register(owner, nil, 1); !errors.Is(err, errNilAllocation) {
		t.Fatalf("nil data: err = %v", err)
	}
	if r.len() != 0 {
		t.Fatal("rejected registration left an entry behind")
	}
}

func TestTakeIDZeroIsNotFound(t *testing.T) {
	r := newOwnerRegistry()
	if _, ok := r.take(0); ok {
		t.Fatal("take(0) reported found")
	}
}

func TestRegisterIDsAreUnique(t *testing.T) {
	r := newOwnerRegistry()
	seen := map[uint64]bool{}
	for i := 0; i < 1000; i++ {
		owner, data := testPtrs(t)
		id, err := r.register(owner, data, i)
		if err != nil {
			t.Fatalf("register #%d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("id %d issued twice", id)
		}
		seen[id] = true
	}
}

func TestRegisterSkipsWrappedZeroID(t *testing.T) {
	r := newOwnerRegistry()
	// Counter positioned so the next Add(1) wraps to 0.
	r.nextID.Store(^uint64(0))
	owner, data := testPtrs(t)
	id, err := r.register(owner, data, 1)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == 0 {
		t.Fatal("wraparound issued the reserved id 0")
	}
}

func TestRegisterExhaustsAttemptBudget(t *testing.T) {
	r := newOwnerRegistry()
	testForceIDCollision = func() bool { return true }
	defer func() { testForceIDCollision = nil }()

	owner, data := testPtrs(t)
	_, err := r.register(owner, data, 1)
	if !errors.Is(err, errIDBudgetExhausted) {
		t.Fatalf("err = %v, want id budget exhausted", err)
	}
	if r.len() != 0 {
		t.Fatal("failed registration left an entry behind")
	}
}

func TestRestoreReinsertsEntry(t *testing.T) {
	r := newOwnerRegistry()
	owner, data := testPtrs(t)
	id, err := r.register(owner, data, 3)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	entry, ok := r.take(id)
	if !ok {
		t.Fatal("take failed")
	}
	r.restore(id, entry)

	got, ok := r.take(id)
	if !ok {
		t.Fatal("restored entry not found")
	}
	if got != entry {
		t.Fatalf("restored entry = %+v, want %+v", got, entry)
	}
}

func TestRestoreIntoOccupiedSlotLeaksInsteadOfOverwriting(t *testing.T) {
	r := newOwnerRegistry()
	ownerA, dataA := testPtrs(t)
	ownerB, dataB := testPtrs(t)

	id := uint64(17)
	r.withEntries("test", func(entries map[uint64]ownerEntry) {
		entries[id] = ownerEntry{owner: ownerA, data: dataA, length: 1}
	})
	r.restore(id, ownerEntry{owner: ownerB, data: dataB, length: 2})

	got, ok := r.take(id)
	if !ok {
		t.Fatal("entry missing after collision")
	}
	if got.owner != ownerA {
		t.Fatal("restore overwrote a live entry")
	}
}

func TestWithEntriesRecoversPanicsAndStaysUsable(t *testing.T) {
	r := newOwnerRegistry()
	r.withEntries("test", func(map[uint64]ownerEntry) {
		panic("boom")
	})
	if got := r.recoveredPanics.Load(); got != 1 {
		t.Fatalf("recoveredPanics = %d, want 1", got)
	}

	// The registry keeps working after recovery.
	owner, data := testPtrs(t)
	id, err := r.register(owner, data, 1)
	if err != nil {
		t.Fatalf("register after panic: %v", err)
	}
	if _, ok := r.take(id); !ok {
		t.Fatal("take after panic failed")
	}
}

func TestRegistryConcurrentRegisterTake(t *testing.T) {
	r := newOwnerRegistry()
	const goroutines = 16
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				owner, data := new(ownerCell), new(int64)
				id, err := r.register(unsafe.Pointer(owner), unsafe.Pointer(data), i)
				if err != nil {
					t.Errorf("register: %v", err)
					return
				}
				entry, ok := r.take(id)
				if !ok {
					t.Errorf("take(%d) missed", id)
					return
				}
				if entry.data != unsafe.Pointer(data) {
					t.Errorf("take(%d) returned someone else's entry", id)
					return
				}
			}
		}()
	}
	wg.Wait()

	if r.len() != 0 {
		t.Fatalf("len = %d after balanced register/take, want 0", r.len())
	}
}

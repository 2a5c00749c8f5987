package boundary

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"
)

// The buffer owner registry is the single source of truth matching free
// requests to live cross-boundary allocations. Every buffer handed to the
// host is registered here at creation; a free request is honored only after
// its owner id resolves to an entry whose recorded pointers survive
// validation. The foreign caller is untrusted: double frees, swapped buffer
// fields and stale copies must never reach the allocator.

// ownerEntry records one live allocation. Pointers are stored for identity
// comparison and final release only; they are never dereferenced while the
// registry lock is held.
type ownerEntry struct {
	owner  unsafe.Pointer // header cell of the allocation
	data   unsafe.Pointer // first coordinate element
	length int
}

// Bounded retry budget for id allocation. Ids are generated outside the
// lock, so a wrapped counter can in theory land on an id still present in
// the map.
const maxBufferIDAttempts = 64

var (
	errNilAllocation      = errors.New("nil allocation pointer")
	errIDBudgetExhausted  = errors.New("buffer id attempts exhausted")
	errRegisterTestForced = errors.New("registration failure forced by test hook")
)

// Test hooks; nil outside tests.
var (
	testForceRegisterFailure func() bool
	testForceIDCollision     func() bool
)

type ownerRegistry struct {
	mu      sync.Mutex
	entries map[uint64]ownerEntry
	nextID  atomic.Uint64 // first issued id is 1; 0 means "no owner"

	recoveredPanics atomic.Uint64
}

// bufferOwners lives for the whole host process. The boundary contract hands
// the host an owner-opaque struct, so ownership metadata cannot ride inside
// the buffer itself.
var bufferOwners = newOwnerRegistry()

func newOwnerRegistry() *ownerRegistry {
	return &ownerRegistry{entries: map[uint64]ownerEntry{}}
}

// withEntries runs fn on the entry map under the registry lock. A panic out
// of fn is recovered rather than propagated: the only work done under the
// lock is a single map operation, so no partial multi-step state can be left
// behind, and the registry must stay usable for the lifetime of the host
// process. This is the recover-and-continue analog of taking ownership of a
// poisoned mutex guard.
func (r *ownerRegistry) withEntries(op string, fn func(map[uint64]ownerEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if v := recover(); v != nil {
			r.recoveredPanics.Add(1)
			diag.Printf("buffer owner registry %s panicked: %v (recovered, map remains usable)", op, v)
		}
	}()
	fn(r.entries)
}

// register issues a fresh non-zero id and inserts one entry for the
// allocation. Nil owner or data pointers are rejected before an id is
// consumed.
func (r *ownerRegistry) register(owner, data unsafe.Pointer, length int) (uint64, error) {
	if owner == nil || data == nil {
		return 0, errNilAllocation
	}
	if testForceRegisterFailure != nil && testForceRegisterFailure() {
		return 0, errRegisterTestForced
	}

	for attempt := 0; attempt < maxBufferIDAttempts; attempt++ {
		id := r.nextID.Add(1)
		if id == 0 {
			// Wraparound: 0 is reserved as "no owner".
			continue
		}
		if testForceIDCollision != nil && testForceIDCollision() {
			continue
		}

		inserted := false
		r.withEntries("register", func(entries map[uint64]ownerEntry) {
			if _, exists := entries[id]; exists {
				return
			}
			entries[id] = ownerEntry{owner: owner, data: data, length: length}
			inserted = true
		})
		if inserted {
			return id, nil
		}
	}
	return 0, errIDBudgetExhausted
}

// take removes and returns the entry for id. Id 0, an already-freed id and
// a never-registered id all report not-found.
func (r *ownerRegistry) take(id uint64) (ownerEntry, bool) {
	if id == 0 {
		return ownerEntry{}, false
	}
	var (
		entry ownerEntry
		ok    bool
	)
	r.withEntries("take", func(entries map[uint64]ownerEntry) {
		entry, ok = entries[id]
		if ok {
			delete(entries, id)
		}
	})
	return entry, ok
}

// restore reinserts an entry whose free request failed validation, so the
// still-live allocation is not orphaned. If the slot was somehow reoccupied
// the allocation is leaked instead of risking a use-after-free.
func (r *ownerRegistry) restore(id uint64, entry ownerEntry) {
	r.withEntries("restore", func(entries map[uint64]ownerEntry) {
		if _, exists := entries[id]; exists {
			diag.Printf("ERROR: buffer owner registry collision on restore for id %d; "+
				"allocation leaked to prevent use-after-free", id)
			return
		}
		entries[id] = entry
	})
}

func (r *ownerRegistry) len() int {
	n := 0
	r.withEntries("inspect", func(entries map[uint64]ownerEntry) {
		n = len(entries)
	})
	return n
}

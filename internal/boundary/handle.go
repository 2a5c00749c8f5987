package boundary

import (
	"sync"
	"sync/atomic"

	"majestik.world/internal/debug"
	"majestik.world/internal/sim/core"
)

// Handle is the opaque token the foreign host stores in place of a pointer.
// Go pointers never cross the boundary; a handle resolves through the
// process-wide table below, so calls on a destroyed or never-issued handle
// fail with ResultNullPointer instead of touching freed memory.
type Handle uint64

type instance struct {
	core  *core.Core
	debug *debug.Sidecar
}

var (
	handles   sync.Map // Handle -> *instance
	handleSeq atomic.Uint64
)

func storeInstance(inst *instance) Handle {
	h := Handle(handleSeq.Add(1))
	handles.Store(h, inst)
	return h
}

func lookupInstance(h Handle) (*instance, bool) {
	if h == 0 {
		return nil, false
	}
	v, ok := handles.Load(h)
	if !ok {
		return nil, false
	}
	return v.(*instance), true
}

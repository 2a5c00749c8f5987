//go:build !cgo

package boundary

import (
	"sync"
	"unsafe"
)

// Without cgo there is no C heap; allocations come from the Go heap and are
// pinned in a process-wide table until freed. The Go runtime does not move
// heap objects, so the raw pointers stay valid while the table holds the
// backing slice.
var goHeap = struct {
	sync.Mutex
	blocks map[unsafe.Pointer][]byte
}{blocks: map[unsafe.Pointer][]byte{}}

func allocBytes(n int) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	b := make([]byte, n)
	p := unsafe.Pointer(&b[0])
	goHeap.Lock()
	goHeap.blocks[p] = b
	goHeap.Unlock()
	return p
}

func freeBytes(p unsafe.Pointer) {
	if p == nil {
		return
	}
	goHeap.Lock()
	delete(goHeap.blocks, p)
	goHeap.Unlock()
}

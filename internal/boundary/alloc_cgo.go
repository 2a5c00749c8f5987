//go:build cgo

package boundary

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// Boundary buffers live on the C heap so the host may hold them for any
// number of frames without pinning Go memory. zeroed on allocation.
func allocBytes(n int) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	return C.calloc(1, C.size_t(n))
}

func freeBytes(p unsafe.Pointer) {
	if p != nil {
		C.free(p)
	}
}

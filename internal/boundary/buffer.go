package boundary

import (
	"unsafe"

	"majestik.world/internal/sim/terrain"
)

// Maximum number of chunk coordinates returned in a single buffer. Bounds
// the memory an untrusted diff can demand from the allocator when marshaled
// across the boundary.
const MaxChunkCoords = 65536

// ownerCell is the allocation header registered as a buffer's owner. It is
// a separate allocation from the coordinate array, so a forged buffer needs
// to name both pointers and the length correctly before a free is honored.
type ownerCell struct {
	data   unsafe.Pointer
	length uintptr
}

const ownerCellSize = int(unsafe.Sizeof(ownerCell{}))
const coordSize = int(unsafe.Sizeof(terrain.ChunkCoord{}))

// ChunkBuffer is one allocation crossing the boundary. Invariant: either the
// buffer is empty and Ptr, Owner and OwnerID are all zero, or it is live and
// all four fields are set. Owner and OwnerID are reserved for the allocator;
// the host must treat them as opaque. After a free, all fields hold the
// canonical empty values and freeing again is a no-op.
type ChunkBuffer struct {
	Ptr     *terrain.ChunkCoord
	Len     int
	Owner   unsafe.Pointer
	OwnerID uint64
}

// TerrainDiffBuffers is the take-diff result struct: one buffer per change
// list, each independently freed by the host.
type TerrainDiffBuffers struct {
	NewChunks      ChunkBuffer
	ModifiedChunks ChunkBuffer
	RemovedChunks  ChunkBuffer
}

// Coords views the buffer contents. Valid only while the buffer is live.
func (b ChunkBuffer) Coords() []terrain.ChunkCoord {
	if b.Ptr == nil || b.Len == 0 {
		return nil
	}
	return unsafe.Slice(b.Ptr, b.Len)
}

func (b *ChunkBuffer) reset() {
	b.Ptr = nil
	b.Len = 0
	b.Owner = nil
	b.OwnerID = 0
}

// MakeChunkBuffer copies coords into a freshly owned allocation and
// registers it. Empty input yields the canonical empty buffer with no
// allocation and no registry entry; oversize input and registration failure
// also yield the canonical empty buffer, with nothing leaked.
func MakeChunkBuffer(coords []terrain.ChunkCoord) ChunkBuffer {
	if len(coords) == 0 {
		return ChunkBuffer{}
	}
	if len(coords) > MaxChunkCoords {
		diag.Printf("terrain chunk buffer allocation failed: %d coordinates exceeds the %d cap",
			len(coords), MaxChunkCoords)
		return ChunkBuffer{}
	}

	data := allocBytes(len(coords) * coordSize)
	if data == nil {
		diag.Printf("terrain chunk buffer allocation failed: out of memory")
		return ChunkBuffer{}
	}
	copy(unsafe.Slice((*terrain.ChunkCoord)(data), len(coords)), coords)

	cellMem := allocBytes(ownerCellSize)
	if cellMem == nil {
		freeBytes(data)
		diag.Printf("terrain chunk buffer allocation failed: out of memory (owner cell)")
		return ChunkBuffer{}
	}
	cell := (*ownerCell)(cellMem)
	cell.data = data
	cell.length = uintptr(len(coords))

	id, err := bufferOwners.register(cellMem, data, len(coords))
	if err != nil {
		freeBytes(cellMem)
		freeBytes(data)
		diag.Printf("terrain chunk buffer allocation failed: %v", err)
		return ChunkBuffer{}
	}

	return ChunkBuffer{
		Ptr:     (*terrain.ChunkCoord)(data),
		Len:     len(coords),
		Owner:   cellMem,
		OwnerID: id,
	}
}

// FreeChunkBuffer releases a buffer previously returned across the boundary.
// Nil is a no-op. A buffer with no owner (never backed, or already freed)
// only has its fields reset. Otherwise the registry entry is removed and the
// presented owner pointer, data pointer and length are all validated against
// it; only a full match (or an empty presented view with the right owner)
// releases the allocation. On mismatch the entry is restored — a caller that
// swaps two buffers' fields must not be able to free the wrong allocation —
// and the buffer's fields are still reset so the corrupted free cannot be
// retried.
func FreeChunkBuffer(buf *ChunkBuffer) {
	if buf == nil {
		return
	}
	owner, id := buf.Owner, buf.OwnerID
	if owner == nil || id == 0 {
		buf.reset()
		return
	}

	entry, ok := bufferOwners.take(id)
	if !ok {
		// Already freed by a previous call, or never registered.
		buf.reset()
		return
	}

	ownerMatches := owner == entry.owner
	dataMatches := unsafe.Pointer(buf.Ptr) == entry.data && buf.Len == entry.length
	emptyView := buf.Ptr == nil || buf.Len == 0

	if ownerMatches && (dataMatches || emptyView) {
		// The entry left the registry above, so this release happens at
		// most once.
		freeBytes(entry.data)
		freeBytes(entry.owner)
	} else {
		diag.Printf("WARNING: free validation failed for owner id %d; the buffer was not "+
			"released to prevent memory corruption (likely a bug in the caller)", id)
		bufferOwners.restore(id, entry)
	}

	buf.reset()
}

// FreeTerrainDiffBuffers frees all three buffers of a take-diff result.
func FreeTerrainDiffBuffers(diff *TerrainDiffBuffers) {
	if diff == nil {
		return
	}
	FreeChunkBuffer(&diff.NewChunks)
	FreeChunkBuffer(&diff.ModifiedChunks)
	FreeChunkBuffer(&diff.RemovedChunks)
}

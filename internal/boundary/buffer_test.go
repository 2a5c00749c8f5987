package boundary

import (
	"testing"

	"majestik.world/internal/sim/terrain"
)

func someCoords(n int) []terrain.ChunkCoord {
	coords := make([]terrain.ChunkCoord, n)
	for i := range coords {
		coords[i] = terrain.ChunkCoord{X: int32(i), Y: int32(-i)}
	}
	return coords
}

func TestMakeChunkBufferCopiesCoords(t *testing.T) {
	src := someCoords(5)
	buf := MakeChunkBuffer(src)
	defer FreeChunkBuffer(&buf)

	if buf.Ptr == nil || buf.Len != 5 || buf.Owner == nil || buf.OwnerID == 0 {
		t.Fatalf("live buffer has zero fields: %+v", buf)
	}
	got := buf.Coords()
	for i, c := range src {
		if got[i] != c {
			t.Fatalf("coords[%d] = %v, want %v", i, got[i], c)
		}
	}

	// The buffer owns a copy; mutating the source must not show through.
	src[0].X = 999
	if buf.Coords()[0].X == 999 {
		t.Fatal("buffer aliases the caller's slice")
	}
}

func TestMakeChunkBufferEmptyInputIsCanonicalEmpty(t *testing.T) {
	before := bufferOwners.len()
	buf := MakeChunkBuffer(nil)
	if buf != (ChunkBuffer{}) {
		t.Fatalf("empty input produced %+v", buf)
	}
	if bufferOwners.len() != before {
		t.Fatal("empty input registered an owner")
	}
	FreeChunkBuffer(&buf) // must be a safe no-op
}

func TestMakeChunkBufferOversizeInputIsRejected(t *testing.T) {
	before := bufferOwners.len()
	buf := MakeChunkBuffer(someCoords(MaxChunkCoords + 1))
	if buf != (ChunkBuffer{}) {
		t.Fatalf("oversize input produced %+v", buf)
	}
	if bufferOwners.len() != before {
		t.Fatal("oversize input leaked a registry entry")
	}
}

func TestMakeChunkBufferRegistrationFailureLeaksNothing(t *testing.T) {
	testForceRegisterFailure = func() bool { return true }
	defer func() { testForceRegisterFailure = nil }()

	before := bufferOwners.len()
	buf := MakeChunkBuffer(someCoords(3))
	if buf != (ChunkBuffer{}) {
		t.Fatalf("failed registration produced %+v", buf)
	}
	if bufferOwners.len() != before {
		t.Fatal("failed registration leaked a registry entry")
	}
}

func TestFreeChunkBufferIsIdempotent(t *testing.T) {
	buf := MakeChunkBuffer(someCoords(2))
	before := bufferOwners.len()

	FreeChunkBuffer(&buf)
	if buf != (ChunkBuffer{}) {
		t.Fatalf("free did not reset fields: %+v", buf)
	}
	if bufferOwners.len() != before-1 {
		t.Fatal("free did not remove the registry entry")
	}

	// Double free must be a no-op.
	FreeChunkBuffer(&buf)
	if bufferOwners.len() != before-1 {
		t.Fatal("double free touched the registry")
	}

	FreeChunkBuffer(nil) // nil is a no-op too
}

func TestFreeChunkBufferStaleCopyCannotDoubleFree(t *testing.T) {
	buf := MakeChunkBuffer(someCoords(2))
	stale := buf

	FreeChunkBuffer(&buf)

	before := bufferOwners.len()
	FreeChunkBuffer(&stale)
	if stale != (ChunkBuffer{}) {
		t.Fatalf("stale free did not reset fields: %+v", stale)
	}
	if bufferOwners.len() != before {
		t.Fatal("stale copy free touched the registry")
	}
}

func TestFreeChunkBufferMismatchedDataIsRejected(t *testing.T) {
	a := MakeChunkBuffer(someCoords(2))
	b := MakeChunkBuffer(someCoords(3))
	defer FreeChunkBuffer(&b)

	// Forge a buffer presenting a's owner with b's data pointer.
	forged := a
	forged.Ptr = b.Ptr

	before := bufferOwners.len()
	FreeChunkBuffer(&forged)
	if forged != (ChunkBuffer{}) {
		t.Fatalf("rejected free did not reset fields: %+v", forged)
	}
	if bufferOwners.len() != before {
		t.Fatal("rejected free changed the registry; entry was not restored")
	}

	// b is untouched and a is still live and freeable through the original.
	if got := b.Coords(); len(got) != 3 {
		t.Fatalf("b corrupted by forged free: %v", got)
	}
	FreeChunkBuffer(&a)
	if bufferOwners.len() != before-1 {
		t.Fatal("original buffer could not be freed after a rejected forgery")
	}
}

func TestFreeChunkBufferMismatchedLengthIsRejected(t *testing.T) {
	a := MakeChunkBuffer(someCoords(4))

	forged := a
	forged.Len = 2

	before := bufferOwners.len()
	FreeChunkBuffer(&forged)
	if bufferOwners.len() != before {
		t.Fatal("length mismatch was honored")
	}

	FreeChunkBuffer(&a)
}

func TestFreeChunkBufferEmptyViewWithRightOwnerReleases(t *testing.T) {
	a := MakeChunkBuffer(someCoords(2))

	// Hosts sometimes null the view fields before handing the struct back;
	// the owner token alone is enough to release.
	view := a
	view.Ptr = nil
	view.Len = 0

	before := bufferOwners.len()
	FreeChunkBuffer(&view)
	if bufferOwners.len() != before-1 {
		t.Fatal("empty view with valid owner was not released")
	}
}

func TestFreeTerrainDiffBuffersFreesAllThree(t *testing.T) {
	diff := TerrainDiffBuffers{
		NewChunks:      MakeChunkBuffer(someCoords(1)),
		ModifiedChunks: MakeChunkBuffer(someCoords(2)),
		RemovedChunks:  ChunkBuffer{},
	}
	before := bufferOwners.len()
	FreeTerrainDiffBuffers(&diff)
	if bufferOwners.len() != before-2 {
		t.Fatal("not all live buffers were released")
	}
	if diff.NewChunks != (ChunkBuffer{}) || diff.ModifiedChunks != (ChunkBuffer{}) {
		t.Fatalf("buffers not reset: %+v", diff)
	}
	FreeTerrainDiffBuffers(nil)
}

package terrain

import "sort"

// ChunkCoord is a signed 2D grid coordinate naming one terrain chunk.
type ChunkCoord struct {
	X int32
	Y int32
}

// Less orders coordinates by X ascending, then Y ascending. Buffers handed
// across the engine boundary must be byte-stable across runs, so every
// coordinate list leaving this package is sorted with this ordering.
func (c ChunkCoord) Less(o ChunkCoord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// SortCoords sorts in place by (X, Y) ascending.
func SortCoords(coords []ChunkCoord) {
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
}

// SortedUnique returns a new slice with duplicates removed and entries
// sorted by (X, Y) ascending. The input is not modified.
func SortedUnique(coords []ChunkCoord) []ChunkCoord {
	if len(coords) == 0 {
		return nil
	}
	out := make([]ChunkCoord, len(coords))
	copy(out, coords)
	SortCoords(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

package terrain

import (
	"crypto/sha256"
	"encoding/binary"
)

// Chunk is a 16x16 column of surface altitudes for one grid cell. Altitudes
// below the store's sea level render as water; the fallback chunk used before
// generation is all-water at sea level.
type Chunk struct {
	Coord ChunkCoord
	Alt   []int32 // len = 16*16, x fastest then y

	dirty bool
	hash  [32]byte
}

const ChunkDim = 16

func (c *Chunk) index(x, y int) int {
	return x + y*ChunkDim
}

func (c *Chunk) Alt2(x, y int) int32 {
	return c.Alt[c.index(x, y)]
}

func (c *Chunk) SetAlt(x, y int, alt int32) bool {
	i := c.index(x, y)
	if c.Alt[i] == alt {
		return false
	}
	c.Alt[i] = alt
	c.dirty = true
	return true
}

// Digest returns a deterministic hash of the chunk contents, recomputed
// lazily after mutation.
func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [4]byte
		for _, v := range c.Alt {
			binary.LittleEndian.PutUint32(tmp[:], uint32(v))
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// Gen holds the deterministic worldgen parameters for a store.
type Gen struct {
	Seed     int64
	SeaLevel int32
	// Map extent in chunks along each axis (power of two from map_size_lg).
	SizeX uint32
	SizeY uint32
}

// ChunkStore owns the materialized chunks of one core instance and records
// every structural change into the supplied change set. Accessed only from
// the thread driving the core; the store itself holds no lock.
type ChunkStore struct {
	gen     Gen
	chunks  map[ChunkCoord]*Chunk
	changes *Changes
}

func NewChunkStore(gen Gen, changes *Changes) *ChunkStore {
	return &ChunkStore{
		gen:     gen,
		chunks:  map[ChunkCoord]*Chunk{},
		changes: changes,
	}
}

// InBounds reports whether coord lies inside the configured map rectangle.
// The map spans [0, SizeX) x [0, SizeY).
func (s *ChunkStore) InBounds(coord ChunkCoord) bool {
	return coord.X >= 0 && uint32(coord.X) < s.gen.SizeX &&
		coord.Y >= 0 && uint32(coord.Y) < s.gen.SizeY
}

func (s *ChunkStore) Len() int { return len(s.chunks) }

// Get returns the chunk at coord if it has been materialized.
func (s *ChunkStore) Get(coord ChunkCoord) (*Chunk, bool) {
	ch, ok := s.chunks[coord]
	return ch, ok
}

// Materialize generates the chunk at coord if absent, recording it as new.
// Out-of-bounds coordinates are ignored.
func (s *ChunkStore) Materialize(coord ChunkCoord) *Chunk {
	if !s.InBounds(coord) {
		return nil
	}
	if ch, ok := s.chunks[coord]; ok {
		return ch
	}
	ch := &Chunk{
		Coord: coord,
		Alt:   make([]int32, ChunkDim*ChunkDim),
	}
	s.generate(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.chunks[coord] = ch
	s.changes.MarkNew(coord)
	return ch
}

// MaterializeNext generates up to budget not-yet-present chunks in row-major
// scan order and returns how many were created. This bounds per-tick work
// while keeping the fill order deterministic.
func (s *ChunkStore) MaterializeNext(budget int) int {
	made := 0
	for y := int32(0); uint32(y) < s.gen.SizeY && made < budget; y++ {
		for x := int32(0); uint32(x) < s.gen.SizeX && made < budget; x++ {
			coord := ChunkCoord{X: x, Y: y}
			if _, ok := s.chunks[coord]; ok {
				continue
			}
			s.Materialize(coord)
			made++
		}
	}
	return made
}

// SetAlt mutates a single altitude column, materializing the owning chunk on
// demand and recording the chunk as modified when the value changed.
func (s *ChunkStore) SetAlt(coord ChunkCoord, x, y int, alt int32) {
	if x < 0 || x >= ChunkDim || y < 0 || y >= ChunkDim {
		return
	}
	ch := s.Materialize(coord)
	if ch == nil {
		return
	}
	if ch.SetAlt(x, y, alt) {
		s.changes.MarkModified(coord)
	}
}

// Remove drops a materialized chunk and records the removal. Removing an
// absent chunk is a no-op.
func (s *ChunkStore) Remove(coord ChunkCoord) {
	if _, ok := s.chunks[coord]; !ok {
		return
	}
	delete(s.chunks, coord)
	s.changes.MarkRemoved(coord)
}

// LoadedCoords returns the materialized chunk coordinates sorted (X, Y).
func (s *ChunkStore) LoadedCoords() []ChunkCoord {
	coords := make([]ChunkCoord, 0, len(s.chunks))
	for coord := range s.chunks {
		coords = append(coords, coord)
	}
	SortCoords(coords)
	return coords
}

func (s *ChunkStore) generate(ch *Chunk) {
	for y := 0; y < ChunkDim; y++ {
		for x := 0; x < ChunkDim; x++ {
			wx := int(ch.Coord.X)*ChunkDim + x
			wy := int(ch.Coord.Y)*ChunkDim + y
			// Altitude in [-32, +96) around sea level, from hashed noise.
			roll := hash2(s.gen.Seed, wx, wy) % 128
			ch.Alt[ch.index(x, y)] = s.gen.SeaLevel + int32(roll) - 32
		}
	}
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

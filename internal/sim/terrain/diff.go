package terrain

// Changes accumulates the chunk coordinates touched during one simulation
// tick. Sets are unordered; NormalizeChanges produces the deterministic form.
type Changes struct {
	New      map[ChunkCoord]struct{}
	Modified map[ChunkCoord]struct{}
	Removed  map[ChunkCoord]struct{}
}

func NewChanges() *Changes {
	return &Changes{
		New:      map[ChunkCoord]struct{}{},
		Modified: map[ChunkCoord]struct{}{},
		Removed:  map[ChunkCoord]struct{}{},
	}
}

func (c *Changes) MarkNew(coord ChunkCoord)      { c.New[coord] = struct{}{} }
func (c *Changes) MarkModified(coord ChunkCoord) { c.Modified[coord] = struct{}{} }
func (c *Changes) MarkRemoved(coord ChunkCoord)  { c.Removed[coord] = struct{}{} }

// Clear empties all three sets, keeping the allocated maps.
func (c *Changes) Clear() {
	clear(c.New)
	clear(c.Modified)
	clear(c.Removed)
}

// Diff is the normalized snapshot of one tick's terrain changes: each list
// deduplicated and sorted ascending by (X, Y).
type Diff struct {
	NewChunks      []ChunkCoord
	ModifiedChunks []ChunkCoord
	RemovedChunks  []ChunkCoord
}

// NormalizeChanges converts an unordered change set into a Diff.
func NormalizeChanges(c *Changes) Diff {
	return Diff{
		NewChunks:      collectSorted(c.New),
		ModifiedChunks: collectSorted(c.Modified),
		RemovedChunks:  collectSorted(c.Removed),
	}
}

// NormalizeLists builds a Diff from raw coordinate slices that may contain
// duplicates in any order.
func NormalizeLists(newChunks, modifiedChunks, removedChunks []ChunkCoord) Diff {
	return Diff{
		NewChunks:      SortedUnique(newChunks),
		ModifiedChunks: SortedUnique(modifiedChunks),
		RemovedChunks:  SortedUnique(removedChunks),
	}
}

func (d Diff) IsEmpty() bool {
	return len(d.NewChunks) == 0 && len(d.ModifiedChunks) == 0 && len(d.RemovedChunks) == 0
}

func collectSorted(set map[ChunkCoord]struct{}) []ChunkCoord {
	if len(set) == 0 {
		return nil
	}
	out := make([]ChunkCoord, 0, len(set))
	for coord := range set {
		out = append(out, coord)
	}
	SortCoords(out)
	return out
}

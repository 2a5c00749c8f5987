// Package core is the deterministic gameplay core exposed to external
// engine hosts through internal/boundary. It owns the time resources, the
// terrain chunk store and the per-tick terrain change snapshot; it runs
// synchronously on whatever thread the host calls into and holds no locks.
package core

import (
	"majestik.world/internal/sim/terrain"
)

// TickOptions influences how a single tick executes.
type TickOptions struct {
	// UpdateTerrain materializes pending map chunks during the tick so
	// the resulting diff reports them.
	UpdateTerrain bool
}

// Chunks materialized per terrain-updating tick. Bounds single-tick work on
// large maps; the fill order stays deterministic across runs.
const chunksPerTick = 64

// Core holds one simulation instance. Exclusively owned by its handle; the
// handle is exclusively owned by the host once returned from create.
type Core struct {
	cfg InitConfig

	timeSeconds        float64
	programTimeSeconds float64
	timeOfDaySeconds   float64
	tick               uint64

	changes  *terrain.Changes
	chunks   *terrain.ChunkStore
	lastDiff terrain.Diff
}

// New validates cfg and builds a core. No state is retained on error.
func New(cfg InitConfig) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	changes := terrain.NewChanges()
	gen := terrain.Gen{
		Seed:     cfg.Seed,
		SeaLevel: cfg.SeaLevel,
		SizeX:    1 << cfg.MapSizeLgX,
		SizeY:    1 << cfg.MapSizeLgY,
	}
	return &Core{
		cfg:     cfg,
		changes: changes,
		chunks:  terrain.NewChunkStore(gen, changes),
	}, nil
}

func (c *Core) GameMode() GameMode  { return c.cfg.GameMode }
func (c *Core) Seed() int64         { return c.cfg.Seed }
func (c *Core) CurrentTick() uint64 { return c.tick }

// Tick advances the simulation by dtSeconds. The caller has already
// validated dt; the core applies it unconditionally. After integration the
// tick's terrain changes are snapshotted into the last diff and transient
// per-tick state is cleared.
func (c *Core) Tick(dtSeconds float64, opts TickOptions) {
	c.tick++
	c.timeSeconds += dtSeconds
	c.programTimeSeconds += dtSeconds
	c.timeOfDaySeconds += dtSeconds * c.cfg.DayCycleCoefficient

	if opts.UpdateTerrain {
		c.chunks.MaterializeNext(chunksPerTick)
	}

	c.lastDiff = terrain.NormalizeChanges(c.changes)
	c.changes.Clear()
}

func (c *Core) TimeSeconds() float64        { return c.timeSeconds }
func (c *Core) ProgramTimeSeconds() float64 { return c.programTimeSeconds }
func (c *Core) TimeOfDaySeconds() float64   { return c.timeOfDaySeconds }

// Chunks exposes the terrain store for mutation between ticks (block edits,
// chunk eviction). Changes land in the next tick's diff.
func (c *Core) Chunks() *terrain.ChunkStore { return c.chunks }

// LastTerrainDiff reads the diff captured by the previous tick without
// consuming it.
func (c *Core) LastTerrainDiff() terrain.Diff { return c.lastDiff }

// TakeLastTerrainDiff consumes the captured diff, resetting it to empty.
func (c *Core) TakeLastTerrainDiff() terrain.Diff {
	diff := c.lastDiff
	c.lastDiff = terrain.Diff{}
	return diff
}

// InjectLastTerrainDiff overrides the captured diff. Test instrumentation
// for boundary failure paths; never called from production code.
func (c *Core) InjectLastTerrainDiff(diff terrain.Diff) {
	c.lastDiff = diff
}

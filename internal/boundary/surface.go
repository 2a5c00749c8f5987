package boundary

import (
	"math"

	"majestik.world/internal/debug"
	"majestik.world/internal/sim/core"
)

// Upper bound on per-tick delta time. Engine hosts hand the simulation
// arbitrarily long pauses after hitch recovery or background suspends;
// clamping at ten seconds bounds the work a single tick can demand and
// refuses forwarding of pathological pauses.
const MaxDeltaTimeSeconds float32 = 10.0

// CoreCreate validates cfg and builds one simulation instance, returning its
// handle. Configuration errors are rejected before any state is constructed.
func CoreCreate(cfg Config) (Handle, Result) {
	initCfg, res := cfg.toInitConfig()
	if res != ResultSuccess {
		return 0, res
	}
	c, err := core.New(initCfg)
	if err != nil {
		return 0, resultFromInitError(err)
	}

	sidecar := debug.OpenFromEnv(debug.Info{
		Seed:     initCfg.Seed,
		MapSizeX: 1 << initCfg.MapSizeLgX,
		MapSizeY: 1 << initCfg.MapSizeLgY,
		SeaLevel: initCfg.SeaLevel,
		GameMode: initCfg.GameMode.String(),
	})
	return storeInstance(&instance{core: c, debug: sidecar}), ResultSuccess
}

// CoreDestroy drops the instance behind h. Exactly one destroy per handle is
// valid; handle 0 and repeated destroys are no-ops.
func CoreDestroy(h Handle) {
	if h == 0 {
		return
	}
	v, ok := handles.LoadAndDelete(h)
	if !ok {
		return
	}
	inst := v.(*instance)
	inst.debug.Close(inst.core.Chunks())
}

// Delta-time policy: +0.0 and positive subnormals are accepted; -0.0,
// negatives, NaN, infinities and values above MaxDeltaTimeSeconds are
// rejected. -0.0 is refused to avoid ambiguous floating-point comparisons
// downstream.
func validateDeltaTime(dt float32) Result {
	dt64 := float64(dt)
	if math.IsNaN(dt64) || math.IsInf(dt64, 0) {
		return ResultInvalidDeltaTime
	}
	if dt64 < 0 || dt64 > float64(MaxDeltaTimeSeconds) {
		return ResultInvalidDeltaTime
	}
	if dt == 0 && math.Signbit(dt64) {
		return ResultInvalidDeltaTime
	}
	return ResultSuccess
}

// CoreTick advances the simulation behind h by dtSeconds. dt is validated
// before the handle is resolved, so a rejected tick leaves all state
// untouched.
func CoreTick(h Handle, dtSeconds float32, updateTerrain bool) Result {
	if res := validateDeltaTime(dtSeconds); res != ResultSuccess {
		return res
	}
	inst, ok := lookupInstance(h)
	if !ok {
		return ResultNullPointer
	}
	inst.core.Tick(float64(dtSeconds), core.TickOptions{UpdateTerrain: updateTerrain})
	inst.debug.RecordTick(debug.TickRecord{
		Tick:               inst.core.CurrentTick(),
		TimeSeconds:        inst.core.TimeSeconds(),
		ProgramTimeSeconds: inst.core.ProgramTimeSeconds(),
		TimeOfDaySeconds:   inst.core.TimeOfDaySeconds(),
		Diff:               inst.core.LastTerrainDiff(),
	})
	return ResultSuccess
}

// CoreTimeSeconds reads accumulated simulation time.
func CoreTimeSeconds(h Handle) (float64, Result) {
	inst, ok := lookupInstance(h)
	if !ok {
		return 0, ResultNullPointer
	}
	return inst.core.TimeSeconds(), ResultSuccess
}

// CoreProgramTimeSeconds reads accumulated program time.
func CoreProgramTimeSeconds(h Handle) (float64, Result) {
	inst, ok := lookupInstance(h)
	if !ok {
		return 0, ResultNullPointer
	}
	return inst.core.ProgramTimeSeconds(), ResultSuccess
}

// CoreTimeOfDaySeconds reads accumulated in-game time of day.
func CoreTimeOfDaySeconds(h Handle) (float64, Result) {
	inst, ok := lookupInstance(h)
	if !ok {
		return 0, ResultNullPointer
	}
	return inst.core.TimeOfDaySeconds(), ResultSuccess
}

// CoreGameMode reports the mode the instance was created with.
func CoreGameMode(h Handle) (GameMode, Result) {
	inst, ok := lookupInstance(h)
	if !ok {
		return GameModeServer, ResultNullPointer
	}
	return gameModeToBoundary(inst.core.GameMode()), ResultSuccess
}

// CoreTakeLastTerrainDiff consumes the diff captured by the previous tick
// and returns it as boundary-safe buffers. On any failure the pending diff
// is left in place and no partial buffer set escapes, so the host can retry
// after a transient failure without losing data: any list above
// MaxChunkCoords returns ResultBufferTooLarge, and any non-empty list whose
// buffer came back empty (allocation or registration failure) frees the
// buffers built so far and returns ResultInternalError.
func CoreTakeLastTerrainDiff(h Handle) (TerrainDiffBuffers, Result) {
	inst, ok := lookupInstance(h)
	if !ok {
		return TerrainDiffBuffers{}, ResultNullPointer
	}

	last := inst.core.LastTerrainDiff()
	if len(last.NewChunks) > MaxChunkCoords ||
		len(last.ModifiedChunks) > MaxChunkCoords ||
		len(last.RemovedChunks) > MaxChunkCoords {
		return TerrainDiffBuffers{}, ResultBufferTooLarge
	}

	diff := TerrainDiffBuffers{
		NewChunks:      MakeChunkBuffer(last.NewChunks),
		ModifiedChunks: MakeChunkBuffer(last.ModifiedChunks),
		RemovedChunks:  MakeChunkBuffer(last.RemovedChunks),
	}

	newFailed := len(last.NewChunks) > 0 && diff.NewChunks.Ptr == nil
	modifiedFailed := len(last.ModifiedChunks) > 0 && diff.ModifiedChunks.Ptr == nil
	removedFailed := len(last.RemovedChunks) > 0 && diff.RemovedChunks.Ptr == nil
	if newFailed || modifiedFailed || removedFailed {
		FreeTerrainDiffBuffers(&diff)
		return TerrainDiffBuffers{}, ResultInternalError
	}

	inst.core.TakeLastTerrainDiff()
	inst.debug.RecordDiffTaken(inst.core.CurrentTick(), last)
	return diff, ResultSuccess
}

// The bridge flattens the boundary package to the literal C ABI declared in
// bridge.h. It contains no logic of its own beyond null checks on out
// parameters and struct conversion; everything testable lives in
// internal/boundary.
package main

/*
#include "bridge.h"
*/
import "C"

import (
	"unsafe"

	"majestik.world/internal/boundary"
	"majestik.world/internal/sim/terrain"
)

//export mw_core_config_default
func mw_core_config_default(outConfig *C.mw_core_config_t) C.mw_result_t {
	if outConfig == nil {
		return C.mw_result_t(boundary.ResultNullPointer)
	}
	cfg := boundary.ConfigDefaults()
	outConfig.map_size_lg_x = C.uint32_t(cfg.MapSizeLgX)
	outConfig.map_size_lg_y = C.uint32_t(cfg.MapSizeLgY)
	outConfig.sea_level = C.int32_t(cfg.SeaLevel)
	outConfig.day_cycle_coefficient = C.double(cfg.DayCycleCoefficient)
	outConfig.game_mode = C.mw_game_mode_t(cfg.GameMode)
	return C.mw_result_t(boundary.ResultSuccess)
}

//export mw_core_create
func mw_core_create(config *C.mw_core_config_t, outHandle *C.mw_state_handle_t) C.mw_result_t {
	if outHandle == nil {
		return C.mw_result_t(boundary.ResultNullPointer)
	}
	var cfg *boundary.Config
	if config != nil {
		cfg = &boundary.Config{
			MapSizeLgX:          uint32(config.map_size_lg_x),
			MapSizeLgY:          uint32(config.map_size_lg_y),
			SeaLevel:            int32(config.sea_level),
			DayCycleCoefficient: float64(config.day_cycle_coefficient),
			GameMode:            int32(config.game_mode),
		}
	}
	h, res := createCore(cfg)
	if res != boundary.ResultSuccess {
		return C.mw_result_t(res)
	}
	*outHandle = C.mw_state_handle_t(h)
	return C.mw_result_t(boundary.ResultSuccess)
}

//export mw_core_destroy
func mw_core_destroy(handle C.mw_state_handle_t) {
	boundary.CoreDestroy(boundary.Handle(handle))
}

//export mw_core_tick
func mw_core_tick(handle C.mw_state_handle_t, dtSeconds C.float, updateTerrain C.bool) C.mw_result_t {
	res := boundary.CoreTick(boundary.Handle(handle), float32(dtSeconds), bool(updateTerrain))
	return C.mw_result_t(res)
}

//export mw_core_time_seconds
func mw_core_time_seconds(handle C.mw_state_handle_t, outSeconds *C.double) C.mw_result_t {
	if outSeconds == nil {
		return C.mw_result_t(boundary.ResultNullPointer)
	}
	v, res := boundary.CoreTimeSeconds(boundary.Handle(handle))
	if res != boundary.ResultSuccess {
		return C.mw_result_t(res)
	}
	*outSeconds = C.double(v)
	return C.mw_result_t(boundary.ResultSuccess)
}

//export mw_core_program_time_seconds
func mw_core_program_time_seconds(handle C.mw_state_handle_t, outSeconds *C.double) C.mw_result_t {
	if outSeconds == nil {
		return C.mw_result_t(boundary.ResultNullPointer)
	}
	v, res := boundary.CoreProgramTimeSeconds(boundary.Handle(handle))
	if res != boundary.ResultSuccess {
		return C.mw_result_t(res)
	}
	*outSeconds = C.double(v)
	return C.mw_result_t(boundary.ResultSuccess)
}

//export mw_core_time_of_day_seconds
func mw_core_time_of_day_seconds(handle C.mw_state_handle_t, outSeconds *C.double) C.mw_result_t {
	if outSeconds == nil {
		return C.mw_result_t(boundary.ResultNullPointer)
	}
	v, res := boundary.CoreTimeOfDaySeconds(boundary.Handle(handle))
	if res != boundary.ResultSuccess {
		return C.mw_result_t(res)
	}
	*outSeconds = C.double(v)
	return C.mw_result_t(boundary.ResultSuccess)
}

//export mw_core_game_mode
func mw_core_game_mode(handle C.mw_state_handle_t, outMode *C.mw_game_mode_t) C.mw_result_t {
	if outMode == nil {
		return C.mw_result_t(boundary.ResultNullPointer)
	}
	mode, res := boundary.CoreGameMode(boundary.Handle(handle))
	if res != boundary.ResultSuccess {
		return C.mw_result_t(res)
	}
	*outMode = C.mw_game_mode_t(mode)
	return C.mw_result_t(boundary.ResultSuccess)
}

//export mw_core_last_terrain_diff_take
func mw_core_last_terrain_diff_take(handle C.mw_state_handle_t, outDiff *C.mw_terrain_diff_t) C.mw_result_t {
	if outDiff == nil {
		return C.mw_result_t(boundary.ResultNullPointer)
	}
	diff, res := boundary.CoreTakeLastTerrainDiff(boundary.Handle(handle))
	if res != boundary.ResultSuccess {
		return C.mw_result_t(res)
	}
	outDiff.new_chunks = bufferToC(diff.NewChunks)
	outDiff.modified_chunks = bufferToC(diff.ModifiedChunks)
	outDiff.removed_chunks = bufferToC(diff.RemovedChunks)
	return C.mw_result_t(boundary.ResultSuccess)
}

//export mw_terrain_chunk_buffer_free
func mw_terrain_chunk_buffer_free(buffer *C.mw_terrain_chunk_buffer_t) {
	if buffer == nil {
		return
	}
	buf := bufferFromC(buffer)
	boundary.FreeChunkBuffer(&buf)
	*buffer = bufferToC(buf)
}

//export mw_terrain_diff_free
func mw_terrain_diff_free(diff *C.mw_terrain_diff_t) {
	if diff == nil {
		return
	}
	mw_terrain_chunk_buffer_free(&diff.new_chunks)
	mw_terrain_chunk_buffer_free(&diff.modified_chunks)
	mw_terrain_chunk_buffer_free(&diff.removed_chunks)
}

func bufferToC(b boundary.ChunkBuffer) C.mw_terrain_chunk_buffer_t {
	return C.mw_terrain_chunk_buffer_t{
		ptr:      (*C.mw_terrain_chunk_coord_t)(unsafe.Pointer(b.Ptr)),
		len:      C.uint64_t(b.Len),
		owner:    b.Owner,
		owner_id: C.uint64_t(b.OwnerID),
	}
}

func bufferFromC(b *C.mw_terrain_chunk_buffer_t) boundary.ChunkBuffer {
	return boundary.ChunkBuffer{
		Ptr:     (*terrain.ChunkCoord)(unsafe.Pointer(b.ptr)),
		Len:     int(b.len),
		Owner:   unsafe.Pointer(b.owner),
		OwnerID: uint64(b.owner_id),
	}
}

func main() {}

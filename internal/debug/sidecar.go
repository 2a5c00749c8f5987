// Package debug wires the optional observability sidecar onto a core
// instance: a zstd-compressed diff journal, a SQLite tick index, a loopback
// websocket observer, and world-map exports. Everything here is gated by
// environment variables and strictly best-effort; a sidecar failure is
// logged and never surfaces to the boundary caller. A nil *Sidecar is valid
// and all methods are no-ops on it.
package debug

import (
	"log"
	"os"
	"path/filepath"

	"majestik.world/internal/civ/routemap"
	"majestik.world/internal/persistence/indexdb"
	persistlog "majestik.world/internal/persistence/log"
	"majestik.world/internal/sim/terrain"
	"majestik.world/internal/sim/tuning"
	"majestik.world/internal/transport/observer"
)

// Environment variables gating the sidecar.
const (
	// EnvDebugDir enables the diff journal and tick index inside this
	// directory. A tuning.yaml in the same directory shapes both.
	EnvDebugDir = "MAJESTIK_DEBUG_DIR"
	// EnvObserverAddr enables the websocket observer on this listen address.
	EnvObserverAddr = "MAJESTIK_OBSERVER_ADDR"
)

var diag = log.New(os.Stderr, "[debug] ", log.LstdFlags|log.Lmicroseconds)

// Info describes the instance a sidecar is attached to.
type Info struct {
	Seed     int64
	MapSizeX uint32
	MapSizeY uint32
	SeaLevel int32
	GameMode string
}

// TickRecord is the per-tick snapshot handed to the sidecar after the core
// advanced.
type TickRecord struct {
	Tick               uint64
	TimeSeconds        float64
	ProgramTimeSeconds float64
	TimeOfDaySeconds   float64
	Diff               terrain.Diff
}

// Sidecar fans per-tick records out to whichever sinks the environment
// enabled. All methods tolerate a nil receiver.
type Sidecar struct {
	info Info
	tun  tuning.Tuning

	journal  *persistlog.DiffJournal
	index    *indexdb.Index
	observer *observer.Server

	// Directory for world-map PNG exports on Close, "" when disabled.
	routesDir string
}

// OpenFromEnv builds a sidecar from the process environment. It returns nil
// when no debug variable is set, which is the normal production path. Sink
// setup failures are logged and the remaining sinks still come up.
func OpenFromEnv(info Info) *Sidecar {
	return open(os.Getenv(EnvDebugDir), os.Getenv(EnvObserverAddr),
		os.Getenv(routemap.EnvRoutesLogFolder), info)
}

func open(debugDir, observerAddr, routesDir string, info Info) *Sidecar {
	if debugDir == "" && observerAddr == "" && routesDir == "" {
		return nil
	}

	s := &Sidecar{info: info, tun: tuning.Defaults(), routesDir: routesDir}

	if debugDir != "" {
		tun, err := tuning.Load(filepath.Join(debugDir, "tuning.yaml"))
		if err != nil {
			diag.Printf("WARNING tuning load: %v (using defaults)", err)
		} else {
			s.tun = tun
		}
		if s.tun.JournalEnabled {
			j, err := persistlog.OpenDiffJournal(debugDir, info.Seed)
			if err != nil {
				diag.Printf("WARNING diff journal disabled: %v", err)
			} else {
				s.journal = j
			}
		}
		if s.tun.IndexEnabled {
			idx, err := indexdb.Open(debugDir, s.tun.IndexQueueDepth)
			if err != nil {
				diag.Printf("WARNING tick index disabled: %v", err)
			} else {
				s.index = idx
			}
		}
	}

	if observerAddr != "" {
		srv := observer.NewServer(observer.WorldInfo{
			MapSizeX: info.MapSizeX,
			MapSizeY: info.MapSizeY,
			SeaLevel: info.SeaLevel,
			Seed:     info.Seed,
			GameMode: info.GameMode,
		}, s.tun.ObserverMaxCoords, s.tun.ObserverSendBuffer, s.tun.ObserverWriteBufferK, diag)
		if err := srv.Start(observerAddr); err != nil {
			diag.Printf("WARNING observer disabled: %v", err)
		} else {
			s.observer = srv
		}
	}

	if s.journal == nil && s.index == nil && s.observer == nil && s.routesDir == "" {
		return nil
	}
	return s
}

// ObserverAddr returns the observer's bound address, or "" when the observer
// is not running.
func (s *Sidecar) ObserverAddr() string {
	if s == nil || s.observer == nil {
		return ""
	}
	return s.observer.Addr()
}

// RecordTick mirrors one advanced tick into every enabled sink.
func (s *Sidecar) RecordTick(rec TickRecord) {
	if s == nil {
		return
	}

	newPairs := coordPairs(rec.Diff.NewChunks)
	modifiedPairs := coordPairs(rec.Diff.ModifiedChunks)
	removedPairs := coordPairs(rec.Diff.RemovedChunks)

	if s.journal != nil {
		err := s.journal.Write(persistlog.DiffEntry{
			Kind:               "tick",
			Tick:               rec.Tick,
			TimeSeconds:        rec.TimeSeconds,
			ProgramTimeSeconds: rec.ProgramTimeSeconds,
			TimeOfDaySeconds:   rec.TimeOfDaySeconds,
			New:                newPairs,
			Modified:           modifiedPairs,
			Removed:            removedPairs,
		})
		if err != nil {
			diag.Printf("WARNING journal write: %v", err)
		}
	}

	if s.index != nil {
		s.index.WriteTick(indexdb.TickRow{
			Tick:               rec.Tick,
			TimeSeconds:        rec.TimeSeconds,
			ProgramTimeSeconds: rec.ProgramTimeSeconds,
			TimeOfDaySeconds:   rec.TimeOfDaySeconds,
			NewChunks:          len(rec.Diff.NewChunks),
			ModifiedChunks:     len(rec.Diff.ModifiedChunks),
			RemovedChunks:      len(rec.Diff.RemovedChunks),
		})
		s.index.WriteDiffs(diffRows(rec.Tick, rec.Diff))
	}

	if s.observer != nil {
		s.observer.Publish(observer.TickUpdate{
			Tick:               rec.Tick,
			TimeSeconds:        rec.TimeSeconds,
			ProgramTimeSeconds: rec.ProgramTimeSeconds,
			TimeOfDaySeconds:   rec.TimeOfDaySeconds,
			New:                newPairs,
			Modified:           modifiedPairs,
			Removed:            removedPairs,
		})
	}
}

// RecordDiffTaken journals that the host consumed the pending diff. The diff
// contents were already journaled by the tick that produced them, so only
// counts travel here.
func (s *Sidecar) RecordDiffTaken(tick uint64, diff terrain.Diff) {
	if s == nil || s.journal == nil {
		return
	}
	err := s.journal.Write(persistlog.DiffEntry{
		Kind:     "take",
		Tick:     tick,
		New:      coordPairs(diff.NewChunks),
		Modified: coordPairs(diff.ModifiedChunks),
		Removed:  coordPairs(diff.RemovedChunks),
	})
	if err != nil {
		diag.Printf("WARNING journal write: %v", err)
	}
}

// Close flushes and stops every sink. When world-map export is enabled the
// final materialized terrain is rendered from chunks before shutdown.
func (s *Sidecar) Close(chunks *terrain.ChunkStore) {
	if s == nil {
		return
	}
	if s.routesDir != "" && chunks != nil {
		err := routemap.ExportWorldMap(s.routesDir, s.info.Seed, chunks,
			s.info.SeaLevel, s.info.MapSizeX, s.info.MapSizeY)
		if err != nil {
			diag.Printf("WARNING world map export: %v", err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			diag.Printf("WARNING journal close: %v", err)
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			diag.Printf("WARNING index close: %v", err)
		}
	}
	if s.observer != nil {
		s.observer.Close()
	}
}

func coordPairs(coords []terrain.ChunkCoord) [][2]int32 {
	if len(coords) == 0 {
		return nil
	}
	pairs := make([][2]int32, len(coords))
	for i, c := range coords {
		pairs[i] = [2]int32{c.X, c.Y}
	}
	return pairs
}

func diffRows(tick uint64, diff terrain.Diff) []indexdb.DiffRow {
	n := len(diff.NewChunks) + len(diff.ModifiedChunks) + len(diff.RemovedChunks)
	if n == 0 {
		return nil
	}
	rows := make([]indexdb.DiffRow, 0, n)
	for _, c := range diff.NewChunks {
		rows = append(rows, indexdb.DiffRow{Tick: tick, Kind: "new", X: c.X, Y: c.Y})
	}
	for _, c := range diff.ModifiedChunks {
		rows = append(rows, indexdb.DiffRow{Tick: tick, Kind: "modified", X: c.X, Y: c.Y})
	}
	for _, c := range diff.RemovedChunks {
		rows = append(rows, indexdb.DiffRow{Tick: tick, Kind: "removed", X: c.X, Y: c.Y})
	}
	return rows
}

// Package indexdb maintains a queryable SQLite index of tick and diff
// history next to the JSONL journal. The index is a secondary artifact:
// writes are queued to a single writer goroutine and dropped under
// backpressure rather than stalling the simulation thread.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

type TickRow struct {
	Tick               uint64
	TimeSeconds        float64
	ProgramTimeSeconds float64
	TimeOfDaySeconds   float64
	NewChunks          int
	ModifiedChunks     int
	RemovedChunks      int
}

type DiffRow struct {
	Tick uint64
	Kind string // "new", "modified", "removed"
	X    int32
	Y    int32
}

type Index struct {
	db *sql.DB

	// mu lets Close exclude in-flight enqueues before closing ch, so a
	// racing write can never hit a closed channel.
	mu   sync.RWMutex
	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqDiff
)

type req struct {
	kind  reqKind
	tick  TickRow
	diffs []DiffRow
}

// Open creates or opens <dir>/index.db with a writer queue of depth
// queueDepth.
func Open(dir string, queueDepth int) (*Index, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty index dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if queueDepth <= 0 {
		queueDepth = 8192
	}
	s := &Index{
		db: db,
		ch: make(chan req, queueDepth),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL durability is enough for
	// a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			time_seconds REAL NOT NULL,
			program_time_seconds REAL NOT NULL,
			time_of_day_seconds REAL NOT NULL,
			new_chunks INTEGER NOT NULL,
			modified_chunks INTEGER NOT NULL,
			removed_chunks INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS diffs (
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_diffs_tick ON diffs(tick);`,
		`CREATE INDEX IF NOT EXISTS idx_diffs_pos ON diffs(x, y, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteTick enqueues one tick row; dropped if the writer is behind.
func (s *Index) WriteTick(row TickRow) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTick, tick: row}:
	default:
		s.dropped.Add(1)
	}
}

// WriteDiffs enqueues the coordinate rows of one taken diff.
func (s *Index) WriteDiffs(rows []DiffRow) {
	if s == nil || len(rows) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqDiff, diffs: rows}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many writes were shed under backpressure.
func (s *Index) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

func (s *Index) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqTick:
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO ticks
				 (tick, time_seconds, program_time_seconds, time_of_day_seconds,
				  new_chunks, modified_chunks, removed_chunks)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.tick.Tick, r.tick.TimeSeconds, r.tick.ProgramTimeSeconds,
				r.tick.TimeOfDaySeconds, r.tick.NewChunks, r.tick.ModifiedChunks,
				r.tick.RemovedChunks,
			)
		case reqDiff:
			tx, err := s.db.Begin()
			if err != nil {
				continue
			}
			for _, d := range r.diffs {
				_, _ = tx.Exec(
					`INSERT INTO diffs (tick, kind, x, y) VALUES (?, ?, ?, ?)`,
					d.Tick, d.Kind, d.X, d.Y,
				)
			}
			_ = tx.Commit()
		}
	}
}

// TickCount reports the number of indexed ticks. Used by tooling and tests;
// reads race benignly with the async writer.
func (s *Index) TickCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n)
	return n, err
}

// DiffCountByKind reports indexed diff rows per kind for one tick.
func (s *Index) DiffCountByKind(tick uint64, kind string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM diffs WHERE tick = ? AND kind = ?`, tick, kind,
	).Scan(&n)
	return n, err
}

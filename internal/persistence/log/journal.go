// Package log persists the debug sidecar's per-tick records as compressed
// JSONL. One journal file is opened per core instance and closed when the
// instance is destroyed.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DiffEntry is one journal line: either a tick record or a take event.
type DiffEntry struct {
	Kind string `json:"kind"` // "tick" or "take"
	Tick uint64 `json:"tick"`

	TimeSeconds        float64 `json:"time_seconds,omitempty"`
	ProgramTimeSeconds float64 `json:"program_time_seconds,omitempty"`
	TimeOfDaySeconds   float64 `json:"time_of_day_seconds,omitempty"`

	New      [][2]int32 `json:"new,omitempty"`
	Modified [][2]int32 `json:"modified,omitempty"`
	Removed  [][2]int32 `json:"removed,omitempty"`
}

type DiffJournal struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// OpenDiffJournal creates <dir>/diffs/diffs-<seed>-<stamp>.jsonl.zst.
func OpenDiffJournal(dir string, seed int64) (*DiffJournal, error) {
	sub := filepath.Join(dir, "diffs")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return nil, err
	}
	stamp := time.Now().UTC().Format("20060102-150405")
	path := filepath.Join(sub, fmt.Sprintf("diffs-%d-%s.jsonl.zst", seed, stamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &DiffJournal{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (j *DiffJournal) Write(entry DiffEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	return j.w.Flush()
}

func (j *DiffJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var first error
	if j.w != nil {
		if err := j.w.Flush(); err != nil {
			first = err
		}
		j.w = nil
	}
	if j.enc != nil {
		if err := j.enc.Close(); err != nil && first == nil {
			first = err
		}
		j.enc = nil
	}
	if j.f != nil {
		if err := j.f.Close(); err != nil && first == nil {
			first = err
		}
		j.f = nil
	}
	return first
}

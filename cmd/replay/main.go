// replay inspects a diff journal written by a core running with
// MAJESTIK_DEBUG_DIR set, printing a per-tick summary and verifying the
// invariants every published diff must hold: each coordinate list strictly
// ascending on (x, y), which also rules out duplicates within a list. A
// coordinate may legitimately appear in more than one list in the same tick
// (modified then removed, for example).
//
//	replay -journal debug/diffs/diffs-1337-20260826-120000.jsonl.zst
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	persistlog "majestik.world/internal/persistence/log"
)

func main() {
	var (
		journalPath = flag.String("journal", "", "path to diffs-*.jsonl.zst")
		fromTick    = flag.Uint64("from_tick", 0, "start at tick (inclusive, optional)")
		toTick      = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		quiet       = flag.Bool("quiet", false, "suppress per-tick lines, verify only")
	)
	flag.Parse()

	if *journalPath == "" {
		fmt.Fprintln(os.Stderr, "missing -journal")
		os.Exit(2)
	}

	f, err := os.Open(*journalPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open journal:", err)
		os.Exit(1)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "zstd:", err)
		os.Exit(1)
	}
	defer dec.Close()

	var (
		ticks, takes, violations int
		scanner                  = bufio.NewScanner(dec)
	)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		var entry persistlog.DiffEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			fmt.Fprintln(os.Stderr, "bad journal line:", err)
			os.Exit(1)
		}
		if entry.Tick < *fromTick {
			continue
		}
		if *toTick > 0 && entry.Tick > *toTick {
			break
		}

		switch entry.Kind {
		case "tick":
			ticks++
		case "take":
			takes++
		default:
			fmt.Fprintf(os.Stderr, "tick %d: unknown entry kind %q\n", entry.Tick, entry.Kind)
			os.Exit(1)
		}

		violations += verifyDiff(entry)
		if !*quiet {
			fmt.Printf("%-4s tick=%-8d t=%-10.3f new=%d modified=%d removed=%d\n",
				entry.Kind, entry.Tick, entry.TimeSeconds,
				len(entry.New), len(entry.Modified), len(entry.Removed))
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}

	fmt.Printf("%d tick entries, %d take entries, %d invariant violations\n", ticks, takes, violations)
	if violations > 0 {
		os.Exit(1)
	}
}

func verifyDiff(entry persistlog.DiffEntry) int {
	violations := 0
	lists := []struct {
		kind   string
		coords [][2]int32
	}{
		{"new", entry.New},
		{"modified", entry.Modified},
		{"removed", entry.Removed},
	}
	for _, list := range lists {
		for i, c := range list.coords {
			if i > 0 && !pairLess(list.coords[i-1], c) {
				fmt.Fprintf(os.Stderr, "tick %d: %s list unordered at index %d: %v !< %v\n",
					entry.Tick, list.kind, i, list.coords[i-1], c)
				violations++
			}
		}
	}
	return violations
}

func pairLess(a, b [2]int32) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

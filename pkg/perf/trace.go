package perf

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadTrace decodes one JSON event per line. Blank lines are skipped; errors
// carry the line number.
func ReadTrace(r io.Reader) ([]Event, error) {
	var trace []Event
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		trace = append(trace, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return trace, nil
}

// WriteTrace encodes events as JSON lines.
func WriteTrace(w io.Writer, trace []Event) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, e := range trace {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// LoadTrace reads a trace file written by SaveTrace or `cyber run --trace`.
func LoadTrace(filename string) ([]Event, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return ReadTrace(f)
}

// SaveTrace replaces filename with trace. The file is written next to its
// destination and renamed, so readers never see a partial trace.
func SaveTrace(filename string, trace []Event) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteTrace(tmp, trace); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}
	return os.Rename(tmp.Name(), filename)
}

// CountByKind tallies events per routine and kind.
func CountByKind(trace []Event) map[uint64]map[Kind]int {
	out := make(map[uint64]map[Kind]int)
	for _, e := range trace {
		counts, ok := out[e.RoutineID]
		if !ok {
			counts = make(map[Kind]int)
			out[e.RoutineID] = counts
		}
		counts[e.Kind]++
	}
	return out
}

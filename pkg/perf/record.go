package perf

import (
	"sync"
)

// Recorder keeps events in memory and can save them to a trace file.
// It doesn't enforce anything - just observes.
type Recorder struct {
	trace     []Event
	mu        sync.Mutex
	traceFile string
}

// NewRecorder creates a recorder. traceFile may be empty when the trace is
// only inspected in memory.
func NewRecorder(traceFile string) *Recorder {
	return &Recorder{traceFile: traceFile}
}

// Record appends the event without blocking on I/O.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	r.trace = append(r.trace, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.trace))
	copy(out, r.trace)
	return out
}

// Flush saves the recorded trace to the trace file, if one is configured.
func (r *Recorder) Flush() error {
	if r.traceFile == "" {
		return nil
	}
	return SaveTrace(r.traceFile, r.Events())
}

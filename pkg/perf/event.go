// Package perf records scheduling events for auditing.
package perf

import "time"

// Kind represents the type of event
type Kind uint8

const (
	KindDispatch Kind = iota + 1
	KindNotify
	KindRun
	KindWait
	KindFinish
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindDispatch:
		return "dispatch"
	case KindNotify:
		return "notify"
	case KindRun:
		return "run"
	case KindWait:
		return "wait"
	case KindFinish:
		return "finish"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) Kind {
	for k := KindDispatch; k <= KindShutdown; k++ {
		if k.String() == s {
			return k
		}
	}
	return 0
}

// Event represents a single scheduling event
type Event struct {
	Time      time.Time `json:"time"`
	Kind      Kind      `json:"kind"`
	RoutineID uint64    `json:"routine_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Processor int       `json:"processor"`
}

// Sink receives scheduling events. Record must not block the caller for long;
// its result is never consumed.
type Sink interface {
	Record(e Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Record(Event) {}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Record(e Event) {
	for _, s := range m {
		s.Record(e)
	}
}

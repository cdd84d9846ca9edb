package croutine_test

import (
	"testing"

	"github.com/jediknight00/apollo/pkg/croutine"
)

func TestRoutine_Lifecycle(t *testing.T) {
	runs := 0
	r := croutine.New(1, "r", func() croutine.Result {
		runs++
		return croutine.Wait
	})

	if r.State() != croutine.StateReady {
		t.Fatalf("new routine state = %s, want ready", r.State())
	}
	if r.Processor() != croutine.NoProcessor {
		t.Errorf("Processor() = %d, want NoProcessor", r.Processor())
	}
	if !r.Acquire() {
		t.Fatal("Acquire on ready routine = false")
	}
	if r.Acquire() {
		t.Fatal("Acquire on running routine = true")
	}
	if got := r.Release(r.Run()); got != croutine.StateWaiting {
		t.Fatalf("Release(Wait) = %s, want waiting", got)
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}

	if !r.Wake() {
		t.Fatal("Wake on waiting routine = false")
	}
	if r.Wake() {
		t.Error("Wake on ready routine = true")
	}
	if r.State() != croutine.StateReady {
		t.Errorf("state after Wake = %s, want ready", r.State())
	}
}

func TestRoutine_WakeWhileRunning(t *testing.T) {
	r := croutine.New(1, "r", nil)
	r.Acquire()

	if r.Wake() {
		t.Fatal("Wake on running routine asked for enqueue")
	}
	if got := r.Release(croutine.Wait); got != croutine.StateReady {
		t.Fatalf("Release(Wait) with pending wake = %s, want ready", got)
	}

	// The pending flag is consumed.
	r.Acquire()
	if got := r.Release(croutine.Wait); got != croutine.StateWaiting {
		t.Errorf("second Release(Wait) = %s, want waiting", got)
	}
}

func TestRoutine_Results(t *testing.T) {
	tests := []struct {
		res  croutine.Result
		want croutine.State
	}{
		{croutine.Finish, croutine.StateFinished},
		{croutine.Yield, croutine.StateReady},
		{croutine.Wait, croutine.StateWaiting},
	}
	for _, tt := range tests {
		t.Run(tt.res.String(), func(t *testing.T) {
			r := croutine.New(1, "r", nil)
			r.Acquire()
			if got := r.Release(tt.res); got != tt.want {
				t.Errorf("Release(%s) = %s, want %s", tt.res, got, tt.want)
			}
		})
	}
}

func TestRoutine_FinishedIsTerminal(t *testing.T) {
	r := croutine.New(1, "r", croutine.Once(func() {}))
	r.Acquire()
	if got := r.Release(r.Run()); !got.IsTerminal() {
		t.Fatalf("Once body left routine %s", got)
	}
	if r.Wake() {
		t.Error("Wake on finished routine = true")
	}
	if r.Acquire() {
		t.Error("Acquire on finished routine = true")
	}

	w := croutine.New(2, "w", nil)
	w.Abort()
	if w.State() != croutine.StateFinished {
		t.Errorf("Abort left state %s", w.State())
	}
}

func TestRoutine_String(t *testing.T) {
	r := croutine.New(7, "planning", nil)
	if got := r.String(); got != "planning(7)" {
		t.Errorf("String() = %q", got)
	}
	if got := croutine.State(9).String(); got != "State(9)" {
		t.Errorf("unknown state = %q", got)
	}
}

func TestRoutine_AbortWhileRunning(t *testing.T) {
	r := croutine.New(1, "r", nil)
	r.Acquire()
	r.Wake()
	r.Abort()
	for _, res := range []croutine.Result{croutine.Wait, croutine.Yield} {
		if got := r.Release(res); got != croutine.StateFinished {
			t.Errorf("Release(%s) after Abort = %s, want finished", res, got)
		}
	}
}

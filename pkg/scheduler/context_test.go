package scheduler_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jediknight00/apollo/pkg/croutine"
	"github.com/jediknight00/apollo/pkg/scheduler"
)

func routine(id uint64, prio uint32) *croutine.Routine {
	r := croutine.New(id, "r", func() croutine.Result { return croutine.Finish })
	r.SetPriority(prio)
	return r
}

func TestContext_PriorityOrder(t *testing.T) {
	c := scheduler.NewContext(0)
	low := routine(1, 1)
	mid := routine(2, 5)
	high := routine(3, scheduler.MaxPrio-1)
	over := routine(4, scheduler.MaxPrio+5) // clamped to the top level

	for _, r := range []*croutine.Routine{low, mid, high, over} {
		if err := c.Add(r); err != nil {
			t.Fatalf("Add(%s): %v", r, err)
		}
	}

	want := []*croutine.Routine{high, over, mid, low}
	for i, w := range want {
		got, ok := c.Next()
		if !ok {
			t.Fatalf("Next #%d: context closed", i)
		}
		if got != w {
			t.Errorf("Next #%d = %s, want %s", i, got, w)
		}
	}
}

func TestContext_AddDuplicate(t *testing.T) {
	c := scheduler.NewContext(0)
	if err := c.Add(routine(7, 0)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := c.Add(routine(7, 0))
	if !errors.Is(err, scheduler.ErrRoutineExists) {
		t.Fatalf("Add duplicate = %v, want ErrRoutineExists", err)
	}
	if c.Load() != 1 {
		t.Errorf("Load = %d, want 1", c.Load())
	}
}

func TestContext_NoMissedWakeup(t *testing.T) {
	const n = 1000
	c := scheduler.NewContext(0)

	got := make(chan int, 1)
	go func() {
		count := 0
		for count < n {
			if _, ok := c.Next(); !ok {
				break
			}
			count++
		}
		got <- count
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < n/4; i++ {
				if err := c.Add(routine(uint64(w*n+i), 0)); err != nil {
					t.Errorf("Add: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	select {
	case count := <-got:
		if count != n {
			t.Errorf("consumed %d routines, want %d", count, n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer stalled with routines queued")
	}
	c.ShutDown()
}

func TestContext_ShutDownUnblocksNext(t *testing.T) {
	c := scheduler.NewContext(0)
	done := make(chan bool)
	go func() {
		_, ok := c.Next()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	c.ShutDown()
	c.ShutDown()

	select {
	case ok := <-done:
		if ok {
			t.Error("Next returned a routine after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("Next still blocked after ShutDown")
	}

	if err := c.Add(routine(1, 0)); !errors.Is(err, scheduler.ErrContextClosed) {
		t.Errorf("Add after shutdown = %v, want ErrContextClosed", err)
	}
	if !c.Closed() {
		t.Error("Closed() = false after ShutDown")
	}
}

func TestContext_Notify(t *testing.T) {
	c := scheduler.NewContext(3)
	r := routine(42, 0)
	if err := c.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, _ := c.Next()
	if !got.Acquire() {
		t.Fatal("Acquire failed on a ready routine")
	}
	if s := got.Release(croutine.Wait); s != croutine.StateWaiting {
		t.Fatalf("Release(Wait) = %s, want waiting", s)
	}

	if !c.Notify(42) {
		t.Fatal("Notify on owned routine returned false")
	}
	if r.State() != croutine.StateReady {
		t.Errorf("state after Notify = %s, want ready", r.State())
	}
	if again, ok := c.Next(); !ok || again != r {
		t.Errorf("Next after Notify = %v, want %s", again, r)
	}

	if c.Notify(99) {
		t.Error("Notify on unknown id returned true")
	}

	st := c.Stats()
	if st.Processor != 3 || st.Owned != 1 || st.Ready != 0 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestContext_ShutDownFinishesOwnedRoutines(t *testing.T) {
	c := scheduler.NewContext(0)
	queued := routine(1, 0)
	running := routine(2, 0)
	for _, r := range []*croutine.Routine{queued, running} {
		if err := c.Add(r); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	got, _ := c.Next()
	got.Acquire()

	c.ShutDown()

	if queued.State() != croutine.StateFinished {
		t.Errorf("queued routine state = %s, want finished", queued.State())
	}
	if s := got.Release(croutine.Wait); s != croutine.StateFinished {
		t.Errorf("running routine released as %s, want finished", s)
	}
	c.Notify(queued.ID())
	if queued.State() != croutine.StateFinished {
		t.Errorf("Notify after shutdown moved routine to %s", queued.State())
	}
}

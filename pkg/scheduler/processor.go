package scheduler

import (
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/jediknight00/apollo/pkg/croutine"
	"github.com/jediknight00/apollo/pkg/perf"
)

// Processor runs the routines of one context on a single goroutine.
type Processor struct {
	ctx     *Context
	logger  *slog.Logger
	sink    perf.Sink
	metrics *Metrics
}

func newProcessor(ctx *Context, logger *slog.Logger, sink perf.Sink, metrics *Metrics) *Processor {
	return &Processor{
		ctx:     ctx,
		logger:  logger.With("processor", ctx.ID()),
		sink:    sink,
		metrics: metrics,
	}
}

// Run drains the context until it is shut down.
func (p *Processor) Run() {
	p.logger.Debug("processor started")
	for {
		r, ok := p.ctx.Next()
		if !ok {
			p.logger.Debug("processor stopped")
			return
		}
		p.step(r)
	}
}

func (p *Processor) step(r *croutine.Routine) {
	if !r.Acquire() {
		// Only ready routines are queued, so this is a routine aborted by
		// shutdown between Next and Acquire.
		p.logger.Debug("skipping routine that is not ready", "routine_id", r.ID(), "state", r.State())
		return
	}
	p.record(perf.KindRun, r)

	res := p.execute(r)
	p.ctx.countRun()
	p.metrics.observeRun(res)

	switch r.Release(res) {
	case croutine.StateFinished:
		p.ctx.release(r)
		p.record(perf.KindFinish, r)
	case croutine.StateReady:
		if err := p.ctx.Push(r); err != nil {
			p.logger.Debug("requeue after shutdown", "routine_id", r.ID(), "error", err)
		}
	case croutine.StateWaiting:
		p.record(perf.KindWait, r)
	}
}

// execute runs the body, treating a panic as the end of the routine.
func (p *Processor) execute(r *croutine.Routine) croutine.Result {
	res := croutine.Finish
	var pc panics.Catcher
	pc.Try(func() { res = r.Run() })
	if rec := pc.Recovered(); rec != nil {
		p.logger.Error("routine panicked", "routine_id", r.ID(), "name", r.Name(), "panic", rec.Value)
		return croutine.Finish
	}
	return res
}

func (p *Processor) record(kind perf.Kind, r *croutine.Routine) {
	p.sink.Record(perf.Event{
		Time:      time.Now(),
		Kind:      kind,
		RoutineID: r.ID(),
		Name:      r.Name(),
		Processor: p.ctx.ID(),
	})
}

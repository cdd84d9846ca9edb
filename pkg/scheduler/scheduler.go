// Package scheduler multiplexes cooperative routines onto a fixed pool of
// processors. Placement and wake routing are delegated to a Policy chosen
// once at construction.
package scheduler

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/jediknight00/apollo/internal/config"
	"github.com/jediknight00/apollo/pkg/croutine"
	"github.com/jediknight00/apollo/pkg/data"
	"github.com/jediknight00/apollo/pkg/perf"
	"github.com/jediknight00/apollo/pkg/registry"
)

// Scheduler owns the processor pool and the active policy.
type Scheduler struct {
	id       string
	policy   Policy
	registry registry.Registry
	sink     perf.Sink
	metrics  *Metrics
	logger   *slog.Logger

	stopped atomic.Bool

	mu         sync.Mutex
	contexts   []*Context
	processors []*Processor

	wg conc.WaitGroup
}

// New builds a scheduler running conf.Policy on conf.ProcessorNum processors
// and starts the processors. A ProcessorNum of zero means one per CPU.
func New(conf config.SchedulerConf, opts ...Option) (*Scheduler, error) {
	o := buildOptions(opts)

	n := conf.ProcessorNum
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProcessorNum, n)
	}
	if n == 0 {
		n = runtime.NumCPU()
	}

	contexts := make([]*Context, n)
	for i := range contexts {
		contexts[i] = NewContext(i)
	}

	id := uuid.NewString()
	logger := o.logger.With("component", "scheduler", "scheduler_id", id)

	policy, err := NewPolicy(conf.Policy, contexts, conf, logger)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		id:       id,
		policy:   policy,
		registry: o.registry,
		sink:     o.sink,
		metrics:  o.metrics,
		logger:   logger.With("policy", policy.Name()),
		contexts: contexts,
	}

	s.processors = make([]*Processor, n)
	for i, c := range contexts {
		p := newProcessor(c, s.logger, s.sink, s.metrics)
		s.processors[i] = p
		s.wg.Go(p.Run)
	}
	s.metrics.Processors.Set(float64(n))

	s.logger.Info("scheduler started", "processor_num", n)
	return s, nil
}

// FromConfig loads <workRoot>/conf/<schedName>.yaml and builds a scheduler
// from it. A missing or unreadable file or an unrecognized policy falls back
// to classic, and a negative processor_num to one processor per CPU, each
// with a warning. Config problems never fail startup.
func FromConfig(workRoot, schedName string, opts ...Option) (*Scheduler, error) {
	o := buildOptions(opts)

	cfg, err := config.Load(workRoot, schedName)
	policy := config.ResolvePolicy(cfg, err, o.logger)
	if cfg == nil {
		cfg = config.Default()
	}

	conf := cfg.SchedulerConf
	conf.Policy = policy
	if conf.ProcessorNum < 0 {
		o.logger.Warn("invalid processor_num in scheduler config, using one per CPU",
			"processor_num", conf.ProcessorNum, "sched_name", schedName)
		conf.ProcessorNum = 0
	}
	return New(conf, opts...)
}

// ID is a unique identifier of this scheduler instance.
func (s *Scheduler) ID() string { return s.id }

// PolicyName returns the name of the active policy.
func (s *Scheduler) PolicyName() string { return s.policy.Name() }

// Stopped reports whether ShutDown has been called.
func (s *Scheduler) Stopped() bool { return s.stopped.Load() }

// CreateTask registers name, wraps body in a ready routine and dispatches it.
// When visitor is non-nil, data arrivals notify the routine. It returns false
// if the scheduler is stopped or the routine could not be placed; in that case
// nothing stays reachable from any context and no callback is registered.
func (s *Scheduler) CreateTask(body croutine.Func, name string, visitor data.Visitor) bool {
	if s.stopped.Load() {
		s.logger.Error("scheduler is stopped, cannot create task", "name", name)
		return false
	}

	id := s.registry.Register(name)
	r := croutine.New(id, name, body)

	if err := s.policy.DispatchTask(r); err != nil {
		s.logger.Error("dispatch task", "routine_id", id, "name", name, "error", err)
		return false
	}
	s.metrics.Dispatched.Inc()
	s.sink.Record(perf.Event{
		Time:      time.Now(),
		Kind:      perf.KindDispatch,
		RoutineID: id,
		Name:      name,
		Processor: r.Processor(),
	})
	s.logger.Debug("task created", "routine_id", id, "name", name, "processor", r.Processor())

	if visitor != nil {
		// Bound to r: once r finishes, a later task reusing the name is not
		// woken by this visitor.
		visitor.RegisterNotifyCallback(func() { s.notifyRoutine(r) })
	}
	return true
}

// CreateTaskFromFactory creates a task from the factory's body and visitor.
func (s *Scheduler) CreateTaskFromFactory(f croutine.Factory, name string) bool {
	if f.Create == nil {
		s.logger.Error("routine factory has no body", "name", name)
		return false
	}
	return s.CreateTask(f.Create(), name, f.Visitor)
}

// NotifyTask marks the routine with id ready to run. Once the scheduler is
// stopped it is a no-op that returns true.
func (s *Scheduler) NotifyTask(id uint64) bool {
	if s.stopped.Load() {
		return true
	}
	if !s.policy.NotifyProcessor(id) {
		return false
	}
	s.observeNotify(id, -1)
	return true
}

// notifyRoutine is the data-arrival path of a visitor callback.
func (s *Scheduler) notifyRoutine(r *croutine.Routine) {
	if s.stopped.Load() || r.State().IsTerminal() {
		return
	}
	var ok bool
	if rn, isRN := s.policy.(routineNotifier); isRN {
		ok = rn.NotifyRoutine(r)
	} else {
		ok = s.policy.NotifyProcessor(r.ID())
	}
	if ok {
		s.observeNotify(r.ID(), r.Processor())
	}
}

func (s *Scheduler) observeNotify(id uint64, processor int) {
	s.metrics.Notified.Inc()
	s.sink.Record(perf.Event{
		Time:      time.Now(),
		Kind:      perf.KindNotify,
		RoutineID: id,
		Processor: processor,
	})
}

// ShutDown stops every processor context and releases the pool. Only the
// first call does any work and reports true; routines already running finish
// their current body. Use Wait to block until processors have exited.
func (s *Scheduler) ShutDown() bool {
	if !s.stopped.CompareAndSwap(false, true) {
		return false
	}

	s.mu.Lock()
	contexts := s.contexts
	s.contexts = nil
	s.processors = nil
	s.mu.Unlock()

	for _, c := range contexts {
		c.ShutDown()
	}
	s.metrics.Processors.Set(0)
	s.sink.Record(perf.Event{Time: time.Now(), Kind: perf.KindShutdown, Processor: -1})
	s.logger.Info("scheduler shut down", "processor_num", len(contexts))
	return true
}

// Wait blocks until every processor goroutine has returned. It only returns
// after ShutDown.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Processors returns the number of live processors; zero after ShutDown.
func (s *Scheduler) Processors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processors)
}

// Snapshot returns per-processor counters.
func (s *Scheduler) Snapshot() []ContextStats {
	s.mu.Lock()
	contexts := s.contexts
	s.mu.Unlock()

	out := make([]ContextStats, 0, len(contexts))
	for _, c := range contexts {
		out = append(out, c.Stats())
	}
	return out
}

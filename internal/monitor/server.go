// Package monitor exposes a running scheduler over HTTP.
package monitor

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jediknight00/apollo/pkg/registry"
	"github.com/jediknight00/apollo/pkg/scheduler"
)

// Scheduler is the subset of *scheduler.Scheduler the monitor reads from.
type Scheduler interface {
	ID() string
	PolicyName() string
	Stopped() bool
	Processors() int
	Snapshot() []scheduler.ContextStats
	NotifyTask(id uint64) bool
}

// Names resolves routine ids back to task names, as registry.NameRegistry does.
type Names interface {
	Name(id uint64) (string, bool)
}

// Server is the monitor HTTP handler.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	sched     Scheduler
	gatherer  prometheus.Gatherer
	names     Names
	startTime time.Time
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithNames lets responses carry task names next to routine ids.
func WithNames(n Names) Option {
	return func(s *Server) { s.names = n }
}

// New creates a monitor for sched. When gatherer is nil the /metrics route
// is not registered.
func New(sched Scheduler, gatherer prometheus.Gatherer, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "monitor"),
		sched:     sched,
		gatherer:  gatherer,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(logRequests(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/processors", s.handleProcessors)
		r.Post("/tasks/{id}/notify", s.handleNotify)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	SchedulerID string `json:"scheduler_id"`
	Policy      string `json:"policy"`
	Processors  int    `json:"processors"`
	Uptime      string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	status, code := "healthy", http.StatusOK
	if s.sched.Stopped() {
		status, code = "stopped", http.StatusServiceUnavailable
	}
	respondJSON(w, code, reqID, healthResponse{
		Status:      status,
		SchedulerID: s.sched.ID(),
		Policy:      s.sched.PolicyName(),
		Processors:  s.sched.Processors(),
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
	}, "")
}

func (s *Server) handleProcessors(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RequestIDFromContext(r.Context()), s.sched.Snapshot())
}

type notifyResponse struct {
	RoutineID string `json:"routine_id"`
	Name      string `json:"name,omitempty"`
	Notified  bool   `json:"notified"`
}

// handleNotify accepts either a numeric routine id or a task name.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		id = registry.Hash(raw)
	}
	resp := notifyResponse{RoutineID: strconv.FormatUint(id, 10)}
	if s.names != nil {
		resp.Name, _ = s.names.Name(id)
	}

	if !s.sched.NotifyTask(id) {
		respondError(w, reqID, http.StatusNotFound, "no live routine "+raw)
		return
	}
	resp.Notified = true
	respondOK(w, reqID, resp)
}

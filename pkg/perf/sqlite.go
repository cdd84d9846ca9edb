package perf

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sched_events (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		time       TEXT NOT NULL,
		kind       TEXT NOT NULL,
		routine_id TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL DEFAULT '',
		processor  INTEGER NOT NULL DEFAULT -1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sched_events_routine_id ON sched_events(routine_id)`,
}

const defaultQueueDepth = 1024

// SQLiteSink persists events to a SQLite database. Record hands events to a
// background writer through a bounded queue; when the queue is full the
// event is dropped and counted rather than blocking the scheduler.
type SQLiteSink struct {
	db     *sql.DB
	logger *slog.Logger

	queue    chan Event
	done     chan struct{}
	once     sync.Once
	mu       sync.RWMutex
	closed   bool
	inflight atomic.Int64
	dropped  atomic.Uint64
}

// NewSQLiteSink opens (or creates) a database at dbPath. Use ":memory:" in
// tests. Migrate must be called before events are recorded.
func NewSQLiteSink(dbPath string, logger *slog.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// A single connection keeps ":memory:" databases shared between the
	// writer and readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	s := &SQLiteSink{
		db:     db,
		logger: logger.With("component", "perf"),
		queue:  make(chan Event, defaultQueueDepth),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Migrate creates the event table.
func (s *SQLiteSink) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSink) Record(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.inflight.Add(1)
	select {
	case s.queue <- e:
	default:
		s.inflight.Add(-1)
		s.dropped.Add(1)
	}
}

func (s *SQLiteSink) run() {
	defer close(s.done)
	for e := range s.queue {
		if err := s.insert(context.Background(), e); err != nil {
			s.logger.Error("insert event", "kind", e.Kind, "routine_id", e.RoutineID, "error", err)
		}
		s.inflight.Add(-1)
	}
}

func (s *SQLiteSink) insert(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sched_events (time, kind, routine_id, name, processor) VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339Nano), e.Kind.String(), strconv.FormatUint(e.RoutineID, 10), e.Name, e.Processor)
	return err
}

// Sync blocks until every event recorded so far has been written.
func (s *SQLiteSink) Sync(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for s.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Events returns up to limit events in recording order. A non-positive
// limit returns all of them.
func (s *SQLiteSink) Events(ctx context.Context, limit int) ([]Event, error) {
	q := `SELECT seq, time, kind, routine_id, name, processor FROM sched_events ORDER BY seq`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                   Event
			seq                 int64
			ts, kind, routineID string
		)
		if err := rows.Scan(&seq, &ts, &kind, &routineID, &e.Name, &e.Processor); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("event %d: time: %w", seq, err)
		}
		if e.Kind = ParseKind(kind); e.Kind == 0 {
			return nil, fmt.Errorf("event %d: unknown kind %q", seq, kind)
		}
		if e.RoutineID, err = strconv.ParseUint(routineID, 10, 64); err != nil {
			return nil, fmt.Errorf("event %d: routine id: %w", seq, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Dropped returns how many events were discarded because the queue was full.
func (s *SQLiteSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close drains pending events and closes the database.
func (s *SQLiteSink) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})
	<-s.done
	return s.db.Close()
}

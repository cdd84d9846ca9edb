package perf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jediknight00/apollo/internal/logging"
)

func TestSQLiteSink_CorruptRows(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name, time, kind, routineID string
	}{
		{"bad time", "yesterday", "run", "1"},
		{"bad kind", "2024-01-02T03:04:05Z", "jump", "1"},
		{"bad routine id", "2024-01-02T03:04:05Z", "run", "cam"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "events.db"), logging.Discard())
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()
			if err := s.Migrate(ctx); err != nil {
				t.Fatal(err)
			}
			_, err = s.db.ExecContext(ctx,
				`INSERT INTO sched_events (time, kind, routine_id, name, processor) VALUES (?, ?, ?, 'x', 0)`,
				tt.time, tt.kind, tt.routineID)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.Events(ctx, 0); err == nil {
				t.Error("Events accepted a corrupt row")
			}
		})
	}
}

package trace

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wrrsched/internal/sched"

	_ "modernc.org/sqlite"
)

// schema contains the DDL for the trace tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		run_id      TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		clock_ns    INTEGER NOT NULL,
		cpu         INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		task_id     INTEGER NOT NULL,
		policy      INTEGER NOT NULL,
		level       INTEGER NOT NULL,
		time_slice  INTEGER NOT NULL,
		weight      INTEGER NOT NULL,
		runtime_ns  INTEGER NOT NULL,
		vruntime    REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_task ON events(run_id, task_id)`,
}

// SQLite stores the events of one run in a SQLite database. All rows of a
// run are written in a single transaction committed by Close.
type SQLite struct {
	db    *sql.DB
	tx    *sql.Tx
	stmt  *sql.Stmt
	runID string
	seq   int64
}

// NewSQLite opens (or creates) the database at path and starts a new run.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	s := &SQLite{db: db, runID: "run_" + uuid.New().String()}
	if _, err := db.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		s.runID, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		db.Close()
		return nil, fmt.Errorf("insert run: %w", err)
	}

	if s.tx, err = db.BeginTx(ctx, nil); err != nil {
		db.Close()
		return nil, fmt.Errorf("begin: %w", err)
	}
	s.stmt, err = s.tx.PrepareContext(ctx, `INSERT INTO events
		(run_id, seq, clock_ns, cpu, kind, task_id, policy, level, time_slice, weight, runtime_ns, vruntime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		s.tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("prepare: %w", err)
	}
	return s, nil
}

// RunID identifies the rows written by this sink.
func (s *SQLite) RunID() string { return s.runID }

func (s *SQLite) Write(ev sched.StatusEvent) error {
	s.seq++
	_, err := s.stmt.Exec(
		s.runID, s.seq,
		int64(ev.Clock), ev.CPU, ev.Kind.String(), int64(ev.TaskID),
		int(ev.Policy), ev.Level, int64(ev.TimeSlice), int64(ev.Weight),
		int64(ev.Runtime), ev.Vruntime,
	)
	return err
}

// Close commits the run and closes the database.
func (s *SQLite) Close() error {
	s.stmt.Close()
	if err := s.tx.Commit(); err != nil {
		s.db.Close()
		return fmt.Errorf("commit: %w", err)
	}
	return s.db.Close()
}

// CountEvents returns how many events of kind were stored for runID in the
// database at path. An empty runID or kind matches every run or kind.
func CountEvents(ctx context.Context, path, runID, kind string) (int, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	q := `SELECT COUNT(*) FROM events WHERE 1 = 1`
	var args []any
	if runID != "" {
		q += ` AND run_id = ?`
		args = append(args, runID)
	}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind)
	}
	var n int
	if err := db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

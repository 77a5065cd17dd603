// Package report persists the decisions of rewrite runs in SQLite so runs
// can be compared and audited after the fact.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/linkopt/rewrite"
)

var log = commonlog.GetLogger("linkopt.report")

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	started TEXT NOT NULL,
	rewritten INTEGER NOT NULL,
	removed_insns INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS decisions (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	module TEXT NOT NULL,
	class TEXT NOT NULL,
	method TEXT NOT NULL,
	insn INTEGER NOT NULL,
	line INTEGER NOT NULL,
	target TEXT NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS handlers (
	run_id TEXT NOT NULL REFERENCES runs(id),
	module TEXT NOT NULL,
	class TEXT NOT NULL,
	method TEXT NOT NULL,
	type TEXT NOT NULL,
	body_start INTEGER NOT NULL,
	body_end INTEGER NOT NULL
);`

// Run summarizes one recorded pass.
type Run struct {
	ID           uuid.UUID
	Mode         string
	Started      time.Time
	Rewritten    int
	RemovedInsns int
}

// Store is a decision database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection so an in-memory database is shared by every query
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record writes res as a new run in one transaction and returns its ID.
func (s *Store) Record(ctx context.Context, res *rewrite.Result, mode rewrite.Mode) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating run id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, mode, started, rewritten, removed_insns) VALUES (?, ?, ?, ?, ?)",
		id.String(), mode.String(), time.Now().UTC().Format(time.RFC3339Nano),
		res.Count(rewrite.Rewritten), res.RemovedInsns,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving run: %w", err)
	}

	for i, d := range res.Decisions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO decisions (run_id, seq, module, class, method, insn, line, target, outcome, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id.String(), i, d.Module, d.Class, d.Method, d.Insn, d.Line, d.Target, d.Outcome.String(), d.Reason,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("saving decision %d: %w", i, err)
		}
	}
	for _, h := range res.Handlers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO handlers (run_id, module, class, method, type, body_start, body_end)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id.String(), h.Module, h.Class, h.Method, h.Type, h.BodyStart, h.BodyEnd,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("saving handler: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("committing run: %w", err)
	}
	log.Infof("recorded run %s: %d decision(s)", id, len(res.Decisions))
	return id, nil
}

// Run loads the summary of one run.
func (s *Store) Run(ctx context.Context, id uuid.UUID) (*Run, error) {
	var (
		r       = Run{ID: id}
		started string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT mode, started, rewritten, removed_insns FROM runs WHERE id = ?", id.String(),
	).Scan(&r.Mode, &started, &r.Rewritten, &r.RemovedInsns)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("run %s: bad start time: %w", id, err)
	}
	return &r, nil
}

// Runs lists every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM runs ORDER BY started, id")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.FromString(raw)
		if err != nil {
			return nil, fmt.Errorf("bad run id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Decisions reads back the decisions of a run in their original order.
func (s *Store) Decisions(ctx context.Context, id uuid.UUID) ([]rewrite.Decision, error) {
	if _, err := s.Run(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT module, class, method, insn, line, target, outcome, reason
		FROM decisions WHERE run_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []rewrite.Decision
	for rows.Next() {
		var (
			d       rewrite.Decision
			outcome string
		)
		if err := rows.Scan(&d.Module, &d.Class, &d.Method, &d.Insn, &d.Line, &d.Target, &outcome, &d.Reason); err != nil {
			return nil, err
		}
		if d.Outcome, err = rewrite.ParseOutcome(outcome); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Handlers reads back the handlers removed in a run.
func (s *Store) Handlers(ctx context.Context, id uuid.UUID) ([]rewrite.RemovedHandler, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT module, class, method, type, body_start, body_end
		FROM handlers WHERE run_id = ? ORDER BY rowid`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying handlers: %w", err)
	}
	defer rows.Close()

	var out []rewrite.RemovedHandler
	for rows.Next() {
		var h rewrite.RemovedHandler
		if err := rows.Scan(&h.Module, &h.Class, &h.Method, &h.Type, &h.BodyStart, &h.BodyEnd); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Package store persists run records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/colsim/colsim/sim"
	"github.com/colsim/colsim/sim/record"
	"github.com/colsim/colsim/sim/shower"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	process         TEXT NOT NULL,
	seed            INTEGER NOT NULL,
	created_at      TEXT NOT NULL,
	estimate        REAL,
	std_error       REAL,
	variance        REAL,
	max_weight      REAL,
	max_point       TEXT,
	evaluations     INTEGER,
	invalid_samples INTEGER
);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	weight      REAL NOT NULL,
	point       TEXT NOT NULL,
	diagnostics TEXT NOT NULL,
	particles   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS histories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	start_scale REAL NOT NULL,
	cutoff      REAL NOT NULL,
	trials      INTEGER NOT NULL,
	termination TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS emissions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	history_id INTEGER NOT NULL,
	seq        INTEGER NOT NULL,
	t          REAL NOT NULL,
	z          REAL NOT NULL,
	pt2        REAL NOT NULL,
	m2         REAL NOT NULL,
	FOREIGN KEY (history_id) REFERENCES histories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_histories_run ON histories(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_emissions_history ON emissions(history_id, seq);
`

// Store manages run records in SQLite.
type Store struct {
	db *sql.DB
}

// RunInfo is a row of ListRuns.
type RunInfo struct {
	ID        string
	Kind      record.Kind
	Process   string
	Seed      int64
	CreatedAt time.Time
	Events    int
	Histories int
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes a run with all its events and histories in one transaction.
func (s *Store) SaveRun(ctx context.Context, r *record.Run) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("save run: missing run ID")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		estimate, stdErr, variance, maxWeight sql.NullFloat64
		maxPoint                              sql.NullString
		evaluations, invalid                  sql.NullInt64
	)
	if res := r.Result; res != nil {
		estimate = sql.NullFloat64{Float64: res.Estimate, Valid: true}
		stdErr = sql.NullFloat64{Float64: res.StandardError, Valid: true}
		variance = sql.NullFloat64{Float64: res.Variance, Valid: true}
		maxWeight = sql.NullFloat64{Float64: res.MaxWeight, Valid: true}
		pointJSON, err := json.Marshal(res.MaxPoint)
		if err != nil {
			return fmt.Errorf("marshal max point: %w", err)
		}
		maxPoint = sql.NullString{String: string(pointJSON), Valid: true}
		evaluations = sql.NullInt64{Int64: res.Evaluations, Valid: true}
		invalid = sql.NullInt64{Int64: res.InvalidSamples, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, kind, process, seed, created_at, estimate, std_error, variance,
		                   max_weight, max_point, evaluations, invalid_samples)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.Process, r.Seed, r.CreatedAt.UTC().Format(time.RFC3339Nano),
		estimate, stdErr, variance, maxWeight, maxPoint, evaluations, invalid,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := insertEvents(ctx, tx, r.ID, r.Events); err != nil {
		return err
	}
	if err := insertHistories(ctx, tx, r.ID, r.Histories); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, runID string, events []sim.Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run_id, seq, weight, point, diagnostics, particles) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare events: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		point, err := json.Marshal(ev.Point)
		if err != nil {
			return fmt.Errorf("marshal event %d point: %w", i, err)
		}
		diag, err := json.Marshal(ev.Diagnostics)
		if err != nil {
			return fmt.Errorf("marshal event %d diagnostics: %w", i, err)
		}
		particles, err := json.Marshal(ev.Particles)
		if err != nil {
			return fmt.Errorf("marshal event %d particles: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, i, ev.Weight, string(point), string(diag), string(particles)); err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}
	return nil
}

func insertHistories(ctx context.Context, tx *sql.Tx, runID string, histories []*shower.History) error {
	if len(histories) == 0 {
		return nil
	}
	hstmt, err := tx.PrepareContext(ctx,
		`INSERT INTO histories (run_id, seq, start_scale, cutoff, trials, termination) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare histories: %w", err)
	}
	defer hstmt.Close()
	estmt, err := tx.PrepareContext(ctx,
		`INSERT INTO emissions (history_id, seq, t, z, pt2, m2) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare emissions: %w", err)
	}
	defer estmt.Close()

	for i, h := range histories {
		res, err := hstmt.ExecContext(ctx, runID, i, h.StartScale, h.Cutoff, h.Trials, string(h.Termination))
		if err != nil {
			return fmt.Errorf("insert history %d: %w", i, err)
		}
		historyID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("history %d id: %w", i, err)
		}
		for j, em := range h.Emissions {
			if _, err := estmt.ExecContext(ctx, historyID, j, em.T, em.Z, em.PT2, em.M2); err != nil {
				return fmt.Errorf("insert emission %d of history %d: %w", j, i, err)
			}
		}
	}
	return nil
}

// LoadRun reads a run with all its events and histories.
func (s *Store) LoadRun(ctx context.Context, id string) (*record.Run, error) {
	r := &record.Run{ID: id}
	var (
		kind, createdStr                      string
		estimate, stdErr, variance, maxWeight sql.NullFloat64
		maxPoint                              sql.NullString
		evaluations, invalid                  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, process, seed, created_at, estimate, std_error, variance, max_weight,
		        max_point, evaluations, invalid_samples
		 FROM runs WHERE run_id = ?`, id,
	).Scan(&kind, &r.Process, &r.Seed, &createdStr, &estimate, &stdErr, &variance, &maxWeight,
		&maxPoint, &evaluations, &invalid)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	r.Kind = record.Kind(kind)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if estimate.Valid {
		r.Result = &sim.IntegrationResult{
			Estimate:       estimate.Float64,
			StandardError:  stdErr.Float64,
			Variance:       variance.Float64,
			MaxWeight:      maxWeight.Float64,
			Evaluations:    evaluations.Int64,
			InvalidSamples: invalid.Int64,
		}
		if maxPoint.Valid {
			if err := json.Unmarshal([]byte(maxPoint.String), &r.Result.MaxPoint); err != nil {
				return nil, fmt.Errorf("unmarshal max point: %w", err)
			}
		}
	}

	if r.Events, err = s.loadEvents(ctx, id); err != nil {
		return nil, err
	}
	if r.Histories, err = s.loadHistories(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) loadEvents(ctx context.Context, runID string) ([]sim.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT weight, point, diagnostics, particles FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]sim.Event, 0)
	for rows.Next() {
		var ev sim.Event
		var point, diag, particles string
		if err := rows.Scan(&ev.Weight, &point, &diag, &particles); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(point), &ev.Point); err != nil {
			return nil, fmt.Errorf("unmarshal event point: %w", err)
		}
		if err := json.Unmarshal([]byte(diag), &ev.Diagnostics); err != nil {
			return nil, fmt.Errorf("unmarshal event diagnostics: %w", err)
		}
		if err := json.Unmarshal([]byte(particles), &ev.Particles); err != nil {
			return nil, fmt.Errorf("unmarshal event particles: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) loadHistories(ctx context.Context, runID string) ([]*shower.History, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.start_scale, h.cutoff, h.trials, h.termination, e.t, e.z, e.pt2, e.m2
		 FROM histories h LEFT JOIN emissions e ON e.history_id = h.id
		 WHERE h.run_id = ? ORDER BY h.seq, e.seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query histories: %w", err)
	}
	defer rows.Close()

	histories := make([]*shower.History, 0)
	var current *shower.History
	lastID := int64(-1)
	for rows.Next() {
		var (
			id          int64
			h           shower.History
			termination string
			t, z, pt2   sql.NullFloat64
			m2          sql.NullFloat64
		)
		if err := rows.Scan(&id, &h.StartScale, &h.Cutoff, &h.Trials, &termination, &t, &z, &pt2, &m2); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if id != lastID {
			h.Termination = shower.Termination(termination)
			current = &h
			histories = append(histories, current)
			lastID = id
		}
		if t.Valid {
			current.Emissions = append(current.Emissions, shower.Emission{
				T:         t.Float64,
				Z:         z.Float64,
				PT2:       pt2.Float64,
				M2:        m2.Float64,
				Generated: true,
				Continue:  true,
			})
		}
	}
	return histories, rows.Err()
}

// ListRuns returns every stored run, newest first, with its record counts.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.run_id, r.kind, r.process, r.seed, r.created_at,
		        (SELECT COUNT(*) FROM events e WHERE e.run_id = r.run_id),
		        (SELECT COUNT(*) FROM histories h WHERE h.run_id = r.run_id)
		 FROM runs r ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var kind, createdStr string
		if err := rows.Scan(&info.ID, &kind, &info.Process, &info.Seed, &createdStr, &info.Events, &info.Histories); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		info.Kind = record.Kind(kind)
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through cascading keys, its events,
// histories and emissions.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Package store keeps the SQLite catalog of generated runs.
//
// The catalog is an index over what the step logger writes to disk. It can
// be deleted and the run directories remain complete.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
	"github.com/be2rlab/OpenSemanticMapping/internal/steplog"
)

// Run status values.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoActiveRun is returned when steps or goals are written before BeginRun.
var ErrNoActiveRun = errors.New("no active run")

// Run is one catalog row.
type Run struct {
	ID         string     `json:"id"`
	Dataset    string     `json:"dataset"`
	Scene      string     `json:"scene"`
	RunDir     string     `json:"run_dir"`
	Seed       int64      `json:"seed"`
	NavPoints  int        `json:"nav_points"`
	Status     string     `json:"status"`
	Steps      int        `json:"steps"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Goal is the stored outcome of one navigation goal.
type Goal struct {
	Index       int       `json:"index"`
	Point       geom.Vec3 `json:"point"`
	LightSetup  string    `json:"light_setup,omitempty"`
	Outcome     string    `json:"outcome"`
	FirstStep   int       `json:"first_step"`
	Steps       int       `json:"steps"`
	FinalAction string    `json:"final_action,omitempty"`
}

// Catalog is a SQLite backed run index. It implements steplog.Indexer for
// the run started by the last BeginRun.
type Catalog struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	runID  string
	nowFn  func() time.Time
	closed bool
}

var _ steplog.Indexer = (*Catalog)(nil)

// Open opens or creates the catalog database at path.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Catalog{db: db, path: path, nowFn: time.Now}, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

// BeginRun inserts a running row and makes it the target of later writes.
func (c *Catalog) BeginRun(ctx context.Context, r Run) (Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.Status = StatusRunning
	r.StartedAt = c.nowFn().UTC()
	r.FinishedAt = nil

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, dataset, scene, run_dir, seed, nav_points, status, steps, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		r.ID, r.Dataset, r.Scene, r.RunDir, r.Seed, r.NavPoints, r.Status, r.StartedAt.Format(timeLayout))
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}

	c.runID = r.ID
	return r, nil
}

// FinishRun stamps the active run with its final status and step count.
func (c *Catalog) FinishRun(ctx context.Context, status string, steps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runID == "" {
		return ErrNoActiveRun
	}
	_, err := c.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, steps = ?, finished_at = ? WHERE id = ?`,
		status, steps, c.nowFn().UTC().Format(timeLayout), c.runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	c.runID = ""
	return nil
}

// RecordGoal stores the outcome of one goal of the active run.
func (c *Catalog) RecordGoal(ctx context.Context, g Goal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runID == "" {
		return ErrNoActiveRun
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO goals (run_id, goal_index, x, y, z, light_setup, outcome, first_step, steps, final_action)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.runID, g.Index, g.Point.X, g.Point.Y, g.Point.Z, nullString(g.LightSetup),
		g.Outcome, g.FirstStep, g.Steps, nullString(g.FinalAction))
	if err != nil {
		return fmt.Errorf("failed to insert goal %d: %w", g.Index, err)
	}
	return nil
}

// IndexStep stores one recorded step of the active run.
func (c *Catalog) IndexStep(ctx context.Context, e steplog.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runID == "" {
		return ErrNoActiveRun
	}
	transform, err := json.Marshal(e.Transform[:])
	if err != nil {
		return fmt.Errorf("failed to encode transform: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO steps (run_id, step_index, transform, color_file, depth_file, semantic_file)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.runID, e.Index, string(transform),
		nullString(e.Files[sim.SensorColor]),
		nullString(e.Files[sim.SensorDepth]),
		nullString(e.Files[sim.SensorSemantic]))
	if err != nil {
		return fmt.Errorf("failed to insert step %d: %w", e.Index, err)
	}
	return nil
}

// ListRuns returns runs newest first. A limit <= 0 returns all runs.
func (c *Catalog) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, dataset, scene, run_dir, seed, nav_points, status, steps, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Scene, &r.RunDir, &r.Seed, &r.NavPoints,
			&r.Status, &r.Steps, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %s: %w", r.ID, err)
		}
		if finished.Valid {
			t, err := time.Parse(timeLayout, finished.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse finished_at for run %s: %w", r.ID, err)
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Goals returns the goals of a run in order.
func (c *Catalog) Goals(ctx context.Context, runID string) ([]Goal, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT goal_index, x, y, z, light_setup, outcome, first_step, steps, final_action
		FROM goals WHERE run_id = ? ORDER BY goal_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var (
			g           Goal
			light, last sql.NullString
		)
		if err := rows.Scan(&g.Index, &g.Point.X, &g.Point.Y, &g.Point.Z, &light,
			&g.Outcome, &g.FirstStep, &g.Steps, &last); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.LightSetup = light.String
		g.FinalAction = last.String
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// StepCount returns the number of indexed steps of a run.
func (c *Catalog) StepCount(ctx context.Context, runID string) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM steps WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count steps: %w", err)
	}
	return n, nil
}

// Close closes the database. It is safe to call more than once.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Package store persists sampling runs in SQLite so generated sequences can
// be reloaded by downstream scenario tooling without re-sampling.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/hazard-sim/hazard-sim/sim"
	"github.com/hazard-sim/hazard-sim/sim/store/migrations"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a stored run without its occurrences.
type RunInfo struct {
	ID           string
	CreatedAt    time.Time
	Seed         int64
	Seeded       bool
	Years        int
	Replications int
	StepLength   float64
	Mode         sim.RNGMode
	Events       int
}

// StoredRun is a run reloaded from the store.
type StoredRun struct {
	Info   RunInfo
	Result *sim.RunResult
}

// Store persists runs in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite run store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRun stores result under a new run ID. Only true cells are written.
func (s *Store) SaveRun(ctx context.Context, result *sim.RunResult, cfg sim.RunConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if result == nil || result.Tensor == nil {
		return "", fmt.Errorf("run result is required")
	}
	reps, years, events := result.Tensor.Shape()
	if result.Catalog.Len() != events {
		return "", fmt.Errorf("%w: catalog has %d events, tensor %d", sim.ErrShapeMismatch, result.Catalog.Len(), events)
	}
	mode := cfg.Mode
	if mode == "" {
		mode = sim.RNGModeSingle
	}

	id := uuid.NewString()
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, seed, seeded, years, replications, step_length, rng_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.now().UTC().UnixMilli(), int64(result.Key), boolToInt(result.Seeded),
		years, reps, cfg.StepLength, string(mode),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	eventStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_events (run_id, event_index, event_id, probability) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare run events: %w", err)
	}
	defer eventStmt.Close()
	for e, eventID := range result.Catalog.EventIDs {
		if _, err := eventStmt.ExecContext(ctx, id, e, eventID, result.Catalog.Probabilities[e]); err != nil {
			return "", fmt.Errorf("insert event %q: %w", eventID, err)
		}
	}

	occStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO occurrences (run_id, replication, year, event_index) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare occurrences: %w", err)
	}
	defer occStmt.Close()
	written := 0
	for r := 0; r < reps; r++ {
		for y := 0; y < years; y++ {
			for e, hit := range result.Tensor.Year(r, y) {
				if !hit {
					continue
				}
				if _, err := occStmt.ExecContext(ctx, id, r, y, e); err != nil {
					return "", fmt.Errorf("insert occurrence (%d, %d, %d): %w", r, y, e, err)
				}
				written++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save run: %w", err)
	}
	logrus.Debugf("store: saved run %s (%d occurrences)", id, written)
	return id, nil
}

// LoadRun reloads a run, rebuilding its tensor and sequences.
func (s *Store) LoadRun(ctx context.Context, runID string) (*StoredRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	info, err := s.getRunInfo(ctx, strings.TrimSpace(runID))
	if err != nil {
		return nil, err
	}

	catalog, err := s.loadCatalog(ctx, info.ID)
	if err != nil {
		return nil, err
	}

	nested := make([][][]bool, info.Replications)
	for r := range nested {
		nested[r] = make([][]bool, info.Years)
		for y := range nested[r] {
			nested[r][y] = make([]bool, catalog.Len())
		}
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT replication, year, event_index FROM occurrences WHERE run_id = ?`, info.ID)
	if err != nil {
		return nil, fmt.Errorf("query occurrences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r, y, e int
		if err := rows.Scan(&r, &y, &e); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		if r < 0 || y < 0 || e < 0 || r >= info.Replications || y >= info.Years || e >= catalog.Len() {
			return nil, fmt.Errorf("occurrence (%d, %d, %d) outside stored shape", r, y, e)
		}
		nested[r][y][e] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}

	tensor, err := sim.NewOccurrenceTensor(nested)
	if err != nil {
		return nil, fmt.Errorf("rebuild tensor: %w", err)
	}
	sequences, err := sim.AssembleSequences(tensor, catalog.EventIDs)
	if err != nil {
		return nil, fmt.Errorf("rebuild sequences: %w", err)
	}
	return &StoredRun{
		Info: info,
		Result: &sim.RunResult{
			Key:       sim.NewSimulationKey(info.Seed),
			Seeded:    info.Seeded,
			Catalog:   catalog,
			Tensor:    tensor,
			Sequences: sequences,
		},
	}, nil
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, runInfoQuery+` GROUP BY r.id ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

const runInfoQuery = `SELECT r.id, r.created_at, r.seed, r.seeded, r.years, r.replications, r.step_length, r.rng_mode,
       COUNT(e.event_index)
  FROM runs r LEFT JOIN run_events e ON e.run_id = r.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(row rowScanner) (RunInfo, error) {
	var (
		info      RunInfo
		createdAt int64
		seeded    int
		mode      string
	)
	if err := row.Scan(&info.ID, &createdAt, &info.Seed, &seeded, &info.Years, &info.Replications,
		&info.StepLength, &mode, &info.Events); err != nil {
		return RunInfo{}, err
	}
	info.CreatedAt = time.UnixMilli(createdAt).UTC()
	info.Seeded = seeded != 0
	info.Mode = sim.RNGMode(mode)
	return info, nil
}

func (s *Store) getRunInfo(ctx context.Context, runID string) (RunInfo, error) {
	row := s.sqlDB.QueryRowContext(ctx, runInfoQuery+` WHERE r.id = ? GROUP BY r.id`, runID)
	info, err := scanRunInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("get run: %w", err)
	}
	return info, nil
}

func (s *Store) loadCatalog(ctx context.Context, runID string) (sim.FilteredCatalog, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT event_id, probability FROM run_events WHERE run_id = ? ORDER BY event_index`, runID)
	if err != nil {
		return sim.FilteredCatalog{}, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()
	catalog := sim.FilteredCatalog{EventIDs: []string{}, Probabilities: []float64{}}
	for rows.Next() {
		var (
			id string
			p  float64
		)
		if err := rows.Scan(&id, &p); err != nil {
			return sim.FilteredCatalog{}, fmt.Errorf("scan run event: %w", err)
		}
		catalog.EventIDs = append(catalog.EventIDs, id)
		catalog.Probabilities = append(catalog.Probabilities, p)
	}
	if err := rows.Err(); err != nil {
		return sim.FilteredCatalog{}, fmt.Errorf("iterate run events: %w", err)
	}
	return catalog, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shipit/internal/config"
)

// Run is one completed workflow run.
type Run struct {
	ID          int64
	RunID       string
	Workflow    string
	Label       string
	ProjectDir  string
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     bool
	Simulate    bool
	FailedStage string
	Diagnostic  string
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database under the state
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JournalPath())
}

// OpenPath opens the journal database at path.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a completed run and returns its row id.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            run_id, workflow, label, project_dir, started_at, finished_at,
            success, simulate, failed_stage, diagnostic
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Workflow,
		run.Label,
		nullableString(run.ProjectDir),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(run.Success),
		boolToInt(run.Simulate),
		nullableString(run.FailedStage),
		nullableString(run.Diagnostic),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, run_id, workflow, label, project_dir, started_at, finished_at,
        success, simulate, failed_stage, diagnostic
        FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Stats summarizes the journal per workflow.
type Stats struct {
	Workflow string
	Total    int
	Failed   int
}

// StatsByWorkflow returns run counts grouped by workflow name.
func (s *Store) StatsByWorkflow(ctx context.Context) ([]Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT workflow, COUNT(1), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END)
        FROM runs GROUP BY workflow ORDER BY workflow`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats []Stats
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.Workflow, &st.Total, &st.Failed); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Clear removes every run and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                         Run
		project, failed, diagnostic sql.NullString
		startedAt, finishedAt       string
		success, simulate           int
	)
	if err := row.Scan(&run.ID, &run.RunID, &run.Workflow, &run.Label, &project, &startedAt, &finishedAt,
		&success, &simulate, &failed, &diagnostic); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.ProjectDir = project.String
	run.FailedStage = failed.String
	run.Diagnostic = diagnostic.String
	run.Success = success != 0
	run.Simulate = simulate != 0
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveRun persists a run and all of its recommendations in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run *Run, recs []*models.Recommendation) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := `
		INSERT INTO runs (id, strategy, window_spec, targets, succeeded, failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, runQuery,
		run.ID, run.Strategy, run.Window,
		run.Targets, run.Succeeded, run.Failed, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	recQuery := `
		INSERT INTO recommendations (
			id, run_id, namespace, workload, container, strategy,
			current_cpu_request, current_cpu_limit,
			current_memory_request, current_memory_limit,
			cpu_request, cpu_limit, memory_request, memory_limit,
			confidence, severity, cpu_severity, memory_severity,
			cpu_clamped, memory_clamped, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = run.CreatedAt
		}

		if _, err := tx.ExecContext(ctx, recQuery,
			rec.ID, run.ID,
			rec.Container.Namespace, rec.Container.Workload, rec.Container.Container,
			rec.Strategy,
			rec.Current.CPURequest, rec.Current.CPULimit,
			rec.Current.MemoryRequest, rec.Current.MemoryLimit,
			rec.Recommended.CPURequest, rec.Recommended.CPULimit,
			rec.Recommended.MemoryRequest, rec.Recommended.MemoryLimit,
			rec.Confidence, rec.Severity, rec.CPUSeverity, rec.MemorySeverity,
			rec.CPUClamped, rec.MemoryClamped, rec.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert recommendation %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run with its recommendations.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, []*models.Recommendation, error) {
	runQuery := `
		SELECT id, strategy, window_spec, targets, succeeded, failed, created_at
		FROM runs
		WHERE id = $1
	`

	var run Run
	err := s.db.QueryRowContext(ctx, runQuery, id).Scan(
		&run.ID, &run.Strategy, &run.Window,
		&run.Targets, &run.Succeeded, &run.Failed, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, nil, err
	}

	recQuery := `
		SELECT id, namespace, workload, container, strategy,
			current_cpu_request, current_cpu_limit,
			current_memory_request, current_memory_limit,
			cpu_request, cpu_limit, memory_request, memory_limit,
			confidence, severity, cpu_severity, memory_severity,
			cpu_clamped, memory_clamped, created_at
		FROM recommendations
		WHERE run_id = $1
		ORDER BY namespace, workload, container
	`

	rows, err := s.db.QueryContext(ctx, recQuery, run.ID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	recs, err := scanRecommendations(rows)
	if err != nil {
		return nil, nil, err
	}

	return &run, recs, nil
}

// ListRuns retrieves the most recent runs.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `
		SELECT id, strategy, window_spec, targets, succeeded, failed, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Strategy, &run.Window,
			&run.Targets, &run.Succeeded, &run.Failed, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// ListContainerHistory retrieves past recommendations for one container,
// newest first.
func (s *PostgresStore) ListContainerHistory(ctx context.Context, id models.ContainerID, limit int) ([]*models.Recommendation, error) {
	query := `
		SELECT id, namespace, workload, container, strategy,
			current_cpu_request, current_cpu_limit,
			current_memory_request, current_memory_limit,
			cpu_request, cpu_limit, memory_request, memory_limit,
			confidence, severity, cpu_severity, memory_severity,
			cpu_clamped, memory_clamped, created_at
		FROM recommendations
		WHERE namespace = $1 AND workload = $2 AND container = $3
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := s.db.QueryContext(ctx, query, id.Namespace, id.Workload, id.Container, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecommendations(rows)
}

func scanRecommendations(rows *sql.Rows) ([]*models.Recommendation, error) {
	var recs []*models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		if err := rows.Scan(
			&rec.ID,
			&rec.Container.Namespace, &rec.Container.Workload, &rec.Container.Container,
			&rec.Strategy,
			&rec.Current.CPURequest, &rec.Current.CPULimit,
			&rec.Current.MemoryRequest, &rec.Current.MemoryLimit,
			&rec.Recommended.CPURequest, &rec.Recommended.CPULimit,
			&rec.Recommended.MemoryRequest, &rec.Recommended.MemoryLimit,
			&rec.Confidence, &rec.Severity, &rec.CPUSeverity, &rec.MemorySeverity,
			&rec.CPUClamped, &rec.MemoryClamped, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

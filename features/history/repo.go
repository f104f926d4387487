package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type Repository interface {
	Save(ctx context.Context, run *Run, collections []CollectionRun) error
	List(ctx context.Context, limit int) ([]Run, error)
	Collections(ctx context.Context, runID string) ([]CollectionRun, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Save writes the run and its collection rows in one transaction.
func (r *PostgresRepo) Save(ctx context.Context, run *Run, collections []CollectionRun) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO sync_runs (id, started_at, finished_at, succeeded, failed, files, chunks, points) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query, run.ID, run.StartedAt, run.FinishedAt, run.Succeeded, run.Failed, run.Files, run.Chunks, run.Points); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	query = `INSERT INTO sync_collection_results (run_id, name, target, store, state, success, error, files, chunks, written, zero_vectors, warnings, duration_ms) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	for _, c := range collections {
		warnings := c.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		if _, err := tx.ExecContext(ctx, query, run.ID, c.Name, c.Target, c.Store, c.State, c.Success, c.Error,
			c.Files, c.Chunks, c.Written, c.ZeroVectors, pq.Array(warnings), c.DurationMS); err != nil {
			return fmt.Errorf("insert collection result %s: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, succeeded, failed, files, chunks, points FROM sync_runs ORDER BY started_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Succeeded, &run.Failed, &run.Files, &run.Chunks, &run.Points); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRepo) Collections(ctx context.Context, runID string) ([]CollectionRun, error) {
	query := `SELECT run_id, name, target, store, state, success, error, files, chunks, written, zero_vectors, warnings, duration_ms FROM sync_collection_results WHERE run_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CollectionRun
	for rows.Next() {
		var c CollectionRun
		if err := rows.Scan(&c.RunID, &c.Name, &c.Target, &c.Store, &c.State, &c.Success, &c.Error,
			&c.Files, &c.Chunks, &c.Written, &c.ZeroVectors, pq.Array(&c.Warnings), &c.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS quality_runs (
    id UUID PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL,
    input TEXT NOT NULL,
    output TEXT NOT NULL,
    fps DOUBLE PRECISION NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    columns TEXT[] NOT NULL,
    ranking_column TEXT NOT NULL,
    ranking_direction TEXT NOT NULL,
    worst_cluster INTEGER NOT NULL,
    clusters JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS quality_frames (
    run_id UUID REFERENCES quality_runs(id) ON DELETE CASCADE,
    frame_index INTEGER NOT NULL,
    cluster INTEGER NOT NULL,
    flagged BOOLEAN NOT NULL,
    features vector NOT NULL,
    normalized vector NOT NULL,
    PRIMARY KEY (run_id, frame_index)
);

CREATE INDEX IF NOT EXISTS idx_quality_frames_flagged ON quality_frames(run_id) WHERE flagged;
`

// Postgres stores runs in quality_runs and their frames, with feature
// vectors as pgvector columns, in quality_frames.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// OpenPostgres connects and creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string, logger zerolog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{
		pool:   pool,
		logger: logger.With().Str("component", "report.postgres").Logger(),
	}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) Name() string { return "postgres" }

// Write stores the run and all of its frames in one transaction.
func (p *Postgres) Write(ctx context.Context, run *Run) error {
	clusters, err := json.Marshal(run.Clusters)
	if err != nil {
		return fmt.Errorf("encode clusters: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO quality_runs
        (id, created_at, input, output, fps, width, height, columns,
         ranking_column, ranking_direction, worst_cluster, clusters)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.CreatedAt, run.Input, run.Output, run.FPS, run.Width, run.Height,
		run.Columns, run.RankingColumn, run.RankingDirection, run.Worst, clusters)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, f := range run.Frames {
		batch.Queue(
			`INSERT INTO quality_frames
            (run_id, frame_index, cluster, flagged, features, normalized)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID, f.Index, f.Cluster, f.Flagged,
			pgvector.NewVector(toFloat32(f.Values)),
			pgvector.NewVector(toFloat32(f.Normalized)))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store frames: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	p.logger.Debug().
		Str("run_id", run.ID.String()).
		Int("frames", len(run.Frames)).
		Msg("run stored")
	return nil
}

// Neighbour is a stored frame close to a query vector.
type Neighbour struct {
	Index    int
	Cluster  int
	Flagged  bool
	Distance float64
}

// NearestFrames returns the frames of a run whose standardized features are
// closest (L2) to the given vector.
func (p *Postgres) NearestFrames(ctx context.Context, runID uuid.UUID, normalized []float64, limit int) ([]Neighbour, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT frame_index, cluster, flagged, normalized <-> $1 AS distance
        FROM quality_frames
        WHERE run_id = $2
        ORDER BY normalized <-> $1
        LIMIT $3`,
		pgvector.NewVector(toFloat32(normalized)), runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search frames: %w", err)
	}
	defer rows.Close()

	var out []Neighbour
	for rows.Next() {
		var n Neighbour
		if err := rows.Scan(&n.Index, &n.Cluster, &n.Flagged, &n.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan frames: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// FlaggedCount reads back how many frames of a run were flagged.
func (p *Postgres) FlaggedCount(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		"SELECT count(*) FROM quality_frames WHERE run_id = $1 AND flagged",
		runID).Scan(&n)
	return n, err
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

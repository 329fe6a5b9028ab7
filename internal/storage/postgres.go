package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bdougie/flowvision/internal/models"
)

// PostgresStorage writes predictions to PostgreSQL, one row per batch row,
// with the model output kept as a pgvector column.
type PostgresStorage struct {
	pool    *pgxpool.Pool
	runID   int
	runName string
}

// NewPostgresStorage connects to databaseURL and registers runName
func NewPostgresStorage(ctx context.Context, databaseURL, runName string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	storage := &PostgresStorage{
		pool:    pool,
		runName: runName,
	}

	runID, err := storage.getOrCreateRun(ctx, runName)
	if err != nil {
		pool.Close()
		return nil, err
	}
	storage.runID = runID

	return storage, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStorage) getOrCreateRun(ctx context.Context, runName string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM runs WHERE name = $1",
		runName).Scan(&id)

	if err == nil {
		return id, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("error checking for existing run: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"INSERT INTO runs (name, created_at) VALUES ($1, $2) RETURNING id",
		runName, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create run entry: %w", err)
	}

	return id, nil
}

// AddResult stores a prediction immediately
func (s *PostgresStorage) AddResult(ctx context.Context, result models.Prediction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO predictions
        (run_id, row_index, first_frame, last_frame, score, output, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (run_id, row_index) DO UPDATE
        SET first_frame = EXCLUDED.first_frame, last_frame = EXCLUDED.last_frame,
            score = EXCLUDED.score, output = EXCLUDED.output`,
		s.runID, result.Index, result.FirstFrame, result.LastFrame, result.Score,
		pgvector.NewVector(result.Output), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store prediction %d: %w", result.Index, err)
	}
	return nil
}

// Flush is a no-op for Postgres as results are saved immediately
func (s *PostgresStorage) Flush(ctx context.Context) error {
	return nil
}

// TopScores returns the highest scoring predictions of this run
func (s *PostgresStorage) TopScores(ctx context.Context, limit int) ([]models.Prediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT row_index, first_frame, last_frame, score, output
        FROM predictions
        WHERE run_id = $1
        ORDER BY score DESC
        LIMIT $2`,
		s.runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var results []models.Prediction
	for rows.Next() {
		var p models.Prediction
		var vec pgvector.Vector
		if err := rows.Scan(&p.Index, &p.FirstFrame, &p.LastFrame, &p.Score, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.Output = vec.Slice()
		results = append(results, p)
	}
	return results, rows.Err()
}

// InitSchema creates the vector extension and tables if they don't exist
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS runs (
            id SERIAL PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(name)
        );

        CREATE TABLE IF NOT EXISTS predictions (
            id SERIAL PRIMARY KEY,
            run_id INTEGER REFERENCES runs(id) ON DELETE CASCADE,
            row_index INTEGER NOT NULL,
            first_frame VARCHAR(255) NOT NULL,
            last_frame VARCHAR(255) NOT NULL,
            score REAL NOT NULL,
            output vector NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(run_id, row_index)
        );

        CREATE INDEX IF NOT EXISTS idx_predictions_run_id ON predictions(run_id);
    `)
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}
	return nil
}

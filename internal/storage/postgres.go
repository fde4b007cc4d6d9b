package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"spyosint/internal/models"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS investigations (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    query       JSONB NOT NULL,
    query_type  TEXT NOT NULL DEFAULT '',
    data_points INTEGER NOT NULL DEFAULT 0,
    results     JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS investigations_created_at_idx ON investigations (created_at DESC);
`

// Postgres investigation repository backed by a pgx pool
type Postgres struct {
	Pool *pgxpool.Pool
}

// Connect opens the pool, checks connectivity and ensures the schema exists
func Connect(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

func (db *Postgres) Close() { db.Pool.Close() }

// Ping checks the database connection
func (db *Postgres) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func (db *Postgres) Save(ctx context.Context, inv *models.Investigation) error {
	prepare(inv)
	query, err := json.Marshal(inv.Query)
	if err != nil {
		return err
	}
	results, err := json.Marshal(inv.Results)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
        INSERT INTO investigations (id, title, query, query_type, data_points, results, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            query = EXCLUDED.query,
            query_type = EXCLUDED.query_type,
            data_points = EXCLUDED.data_points,
            results = EXCLUDED.results
    `, inv.ID, inv.Title, query, string(inv.Type), inv.DataPoints, results, inv.CreatedAt)
	return err
}

func (db *Postgres) Get(ctx context.Context, id string) (*models.Investigation, error) {
	row := db.Pool.QueryRow(ctx, `
        SELECT id, title, query, query_type, data_points, results, created_at
        FROM investigations WHERE id = $1
    `, id)
	inv, err := scanInvestigation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (db *Postgres) List(ctx context.Context) ([]models.Investigation, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, title, query, query_type, data_points, results, created_at
        FROM investigations ORDER BY created_at DESC, id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Investigation{}
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (db *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM investigations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInvestigation(row pgx.Row) (*models.Investigation, error) {
	var (
		inv            models.Investigation
		queryType      string
		query, results []byte
	)
	if err := row.Scan(&inv.ID, &inv.Title, &query, &queryType, &inv.DataPoints, &results, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.Type = models.QueryType(queryType)
	if err := json.Unmarshal(query, &inv.Query); err != nil {
		return nil, fmt.Errorf("investigation %s: %w", inv.ID, err)
	}
	if err := json.Unmarshal(results, &inv.Results); err != nil {
		return nil, fmt.Errorf("investigation %s: %w", inv.ID, err)
	}
	inv.CreatedAt = inv.CreatedAt.UTC()
	return &inv, nil
}

package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the gateway uses; satisfied by
// pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresGateway stores artifacts in a postgres bytea table, for runs
// whose artifacts must be shared across operator machines.
type PostgresGateway struct {
	pool Pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS captable_artifacts (
	key           TEXT PRIMARY KEY,
	content       BYTEA NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	last_modified TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captable_artifacts_last_modified ON captable_artifacts(last_modified);
`

// NewPostgres creates a PostgresGateway with a connection pool and
// ensures the artifact table exists.
func NewPostgres(ctx context.Context, connString string) (*PostgresGateway, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "gateway: postgres parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "gateway: postgres connect")
	}

	g := &PostgresGateway{pool: pool}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "gateway: postgres migrate")
	}
	return g, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresGateway {
	return &PostgresGateway{pool: pool}
}

// Write stores data under key and returns "postgres:{key}" as the location.
func (g *PostgresGateway) Write(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := g.pool.Exec(ctx,
		`INSERT INTO captable_artifacts (key, content, content_type, last_modified) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET content = EXCLUDED.content, content_type = EXCLUDED.content_type, last_modified = EXCLUDED.last_modified`,
		key, data, contentType, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "gateway: postgres write %s", key)
	}
	return "postgres:" + key, nil
}

func (g *PostgresGateway) Read(ctx context.Context, key string) ([]byte, error) {
	var content []byte
	err := g.pool.QueryRow(ctx, `SELECT content FROM captable_artifacts WHERE key = $1`, key).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "gateway: postgres read %s", key)
	}
	return content, nil
}

func (g *PostgresGateway) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT key, last_modified FROM captable_artifacts WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, eris.Wrapf(err, "gateway: postgres list %s", prefix)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.LastModified); err != nil {
			return nil, eris.Wrap(err, "gateway: postgres scan entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "gateway: postgres iterate entries")
	}
	return entries, nil
}

func (g *PostgresGateway) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := g.pool.QueryRow(ctx, `SELECT 1 FROM captable_artifacts WHERE key = $1`, key).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "gateway: postgres exists %s", key)
	}
	return true, nil
}

func (g *PostgresGateway) Delete(ctx context.Context, key string) error {
	if _, err := g.pool.Exec(ctx, `DELETE FROM captable_artifacts WHERE key = $1`, key); err != nil {
		return eris.Wrapf(err, "gateway: postgres delete %s", key)
	}
	return nil
}

func (g *PostgresGateway) Close() error {
	g.pool.Close()
	return nil
}

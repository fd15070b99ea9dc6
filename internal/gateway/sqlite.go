package gateway

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteGateway stores artifacts in a single-file SQLite database,
// useful when a run's artifacts should travel as one file.
type SQLiteGateway struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the artifact database at the given path
// and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "gateway: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "gateway: sqlite exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS artifacts (
	key           TEXT PRIMARY KEY,
	content       BLOB NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	last_modified DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_last_modified ON artifacts(last_modified);
`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "gateway: sqlite migrate")
	}

	return &SQLiteGateway{db: db}, nil
}

// Write stores data under key and returns "sqlite:{key}" as the location.
func (g *SQLiteGateway) Write(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO artifacts (key, content, content_type, last_modified) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET content = excluded.content, content_type = excluded.content_type, last_modified = excluded.last_modified`,
		key, data, contentType, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "gateway: sqlite write %s", key)
	}
	return "sqlite:" + key, nil
}

func (g *SQLiteGateway) Read(ctx context.Context, key string) ([]byte, error) {
	var content []byte
	err := g.db.QueryRowContext(ctx, `SELECT content FROM artifacts WHERE key = ?`, key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "gateway: sqlite read %s", key)
	}
	return content, nil
}

func (g *SQLiteGateway) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT key, last_modified FROM artifacts WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, eris.Wrapf(err, "gateway: sqlite list %s", prefix)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.LastModified); err != nil {
			return nil, eris.Wrap(err, "gateway: sqlite scan entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "gateway: sqlite iterate entries")
	}
	return entries, nil
}

func (g *SQLiteGateway) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := g.db.QueryRowContext(ctx, `SELECT 1 FROM artifacts WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "gateway: sqlite exists %s", key)
	}
	return true, nil
}

func (g *SQLiteGateway) Delete(ctx context.Context, key string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM artifacts WHERE key = ?`, key); err != nil {
		return eris.Wrapf(err, "gateway: sqlite delete %s", key)
	}
	return nil
}

func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

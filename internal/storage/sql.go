package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLBackend stores slots in a kv_slots table. The same queries serve
// SQLite and Postgres; only the placeholder style differs.
type SQLBackend struct {
	db     *sql.DB
	dollar bool
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_slots (
	installation_id TEXT NOT NULL,
	slot            TEXT NOT NULL,
	value           TEXT NOT NULL,
	updated_at      DATETIME NOT NULL,
	PRIMARY KEY (installation_id, slot)
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_slots (
	installation_id TEXT NOT NULL,
	slot            TEXT NOT NULL,
	value           TEXT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (installation_id, slot)
);
`

func OpenSQLite(path string) (*SQLBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func OpenPostgres(ctx context.Context, databaseURL string) (*SQLBackend, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating postgres schema: %w", err)
	}
	return &SQLBackend{db: db, dollar: true}, nil
}

func (b *SQLBackend) Get(ctx context.Context, installation, slot string) ([]byte, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		b.rebind(`SELECT value FROM kv_slots WHERE installation_id = ? AND slot = ?`),
		installation, slot,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return []byte(value), true, nil
}

func (b *SQLBackend) Set(ctx context.Context, installation, slot string, value []byte) error {
	_, err := b.db.ExecContext(ctx,
		b.rebind(`INSERT INTO kv_slots (installation_id, slot, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (installation_id, slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		installation, slot, string(value), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", slot, err)
	}
	return nil
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// rebind rewrites ? placeholders to $1, $2... for Postgres.
func (b *SQLBackend) rebind(query string) string {
	if !b.dollar {
		return query
	}
	var out strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&out, "$%d", n)
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

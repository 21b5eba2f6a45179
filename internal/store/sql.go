package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const createStateTable = `
	CREATE TABLE IF NOT EXISTS entity_state (
		state_key  TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`

const upsertState = `
	INSERT INTO entity_state (state_key, payload, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT (state_key) DO UPDATE
	SET payload = excluded.payload, updated_at = excluded.updated_at`

const selectState = `SELECT payload FROM entity_state WHERE state_key = ?`

// SQLBackend stores records in a single table through sqlx. Each Put is one upsert
// statement, which the engine applies atomically.
type SQLBackend struct {
	db *sqlx.DB
}

// OpenSQL connects with driver ("sqlite" or "postgres"), pings and migrates.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLBackend, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s state database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One writer connection avoids SQLITE_BUSY between concurrent upserts.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s state database: %w", driver, err)
	}

	b := NewSQLBackend(db)
	if err := b.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("INFO: store: %s state database ready", driver)
	return b, nil
}

// NewSQLBackend wraps an open connection.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

// Migrate creates the state table if it does not exist.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, createStateTable); err != nil {
		return fmt.Errorf("failed to create entity_state table: %w", err)
	}
	return nil
}

// Get reads the record for key.
func (b *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := b.db.GetContext(ctx, &payload, b.db.Rebind(selectState), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return []byte(payload), nil
}

// Put upserts the record for key.
func (b *SQLBackend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.db.ExecContext(ctx, b.db.Rebind(upsertState), key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}

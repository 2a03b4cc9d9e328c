package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store records lookup tables created by this tool so later runs can extend
// an existing table instead of creating a new one. The registry is optional;
// the rest of the tool works without it.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Table is a recorded lookup table.
type Table struct {
	Address         string
	Authority       string
	RecentSlot      int64
	CreateSignature string
	CreatedAt       time.Time
}

// Entry is a single address appended to a recorded table.
type Entry struct {
	TableAddress    string
	Position        int32
	Address         string
	ExtendSignature string
	CreatedAt       time.Time
}

// EnsureSchema creates the registry tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS lookup_tables (
			address          TEXT PRIMARY KEY,
			authority        TEXT NOT NULL,
			recent_slot      BIGINT NOT NULL,
			create_signature TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS lookup_table_entries (
			table_address    TEXT NOT NULL REFERENCES lookup_tables(address) ON DELETE CASCADE,
			position         INTEGER NOT NULL,
			address          TEXT NOT NULL,
			extend_signature TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (table_address, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure registry schema: %w", err)
	}
	return nil
}

// RecordTable inserts a newly created lookup table.
func (s *Store) RecordTable(ctx context.Context, address, authority string, recentSlot int64, createSignature string) (*Table, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO lookup_tables (address, authority, recent_slot, create_signature)
		VALUES ($1, $2, $3, $4)
		RETURNING address, authority, recent_slot, create_signature, created_at
	`, address, authority, recentSlot, createSignature)

	var t Table
	if err := row.Scan(&t.Address, &t.Authority, &t.RecentSlot, &t.CreateSignature, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to record table: %w", err)
	}
	return &t, nil
}

// RecordEntries appends addresses to a recorded table starting at the given
// position. Positions mirror the on-chain index space.
func (s *Store) RecordEntries(ctx context.Context, tableAddress string, startPosition int, addresses []string, extendSignature string) error {
	batch := &pgx.Batch{}
	for i, addr := range addresses {
		batch.Queue(`
			INSERT INTO lookup_table_entries (table_address, position, address, extend_signature)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (table_address, position) DO NOTHING
		`, tableAddress, startPosition+i, addr, extendSignature)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range addresses {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to record table entries: %w", err)
		}
	}
	return nil
}

// GetTable retrieves a recorded table by address. A table that was never
// recorded yields (nil, nil).
func (s *Store) GetTable(ctx context.Context, address string) (*Table, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, authority, recent_slot, create_signature, created_at
		FROM lookup_tables
		WHERE address = $1
	`, address)

	var t Table
	err := row.Scan(&t.Address, &t.Authority, &t.RecentSlot, &t.CreateSignature, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return &t, nil
}

// ListTables retrieves all recorded tables, newest first.
func (s *Store) ListTables(ctx context.Context) ([]*Table, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, authority, recent_slot, create_signature, created_at
		FROM lookup_tables
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []*Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Address, &t.Authority, &t.RecentSlot, &t.CreateSignature, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, &t)
	}
	return tables, rows.Err()
}

// ListEntries retrieves the recorded addresses of a table in index order.
func (s *Store) ListEntries(ctx context.Context, tableAddress string) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_address, position, address, extend_signature, created_at
		FROM lookup_table_entries
		WHERE table_address = $1
		ORDER BY position
	`, tableAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to list table entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TableAddress, &e.Position, &e.Address, &e.ExtendSignature, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Package store persists the device's trust state in a local sqlite
// database: paired peers with their session keys, per-vault salts and
// per-device sync permissions. Schema is managed with embedded goose
// migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/vaultlink/vaultlink/internal/store/migrations"
	_ "modernc.org/sqlite"
)

// Store owns the database handle and vends the repositories.
type Store struct {
	db *sql.DB

	Peers       *PeerRepository
	Salts       *SaltRepository
	SyncConfigs *SyncConfigRepository
}

// gooseUpContext is a seam for testing migration failures.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to the given database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// Open opens (or creates) the sqlite database at dsn, migrates it and returns
// the repository set.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{
		db:          db,
		Peers:       NewPeerRepository(db),
		Salts:       NewSaltRepository(db),
		SyncConfigs: NewSyncConfigRepository(db),
	}, nil
}

// DB exposes the raw handle for transactional work via dbx.WithTx.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

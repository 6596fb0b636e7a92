package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/dbx"
)

// saltSize matches the key-derivation salt length.
const saltSize = 32

// SaltRepository persists per-vault key-derivation salts. A vault's salt is
// generated at most once and only ever replaced by a completed rekey.
type SaltRepository struct {
	db dbx.DBTX
}

func NewSaltRepository(db dbx.DBTX) *SaltRepository {
	return &SaltRepository{db: db}
}

// EnsureSalt returns the vault's salt, generating and persisting a fresh one
// on first use.
func (r *SaltRepository) EnsureSalt(ctx context.Context, vaultID string) ([]byte, error) {
	salt, err := r.Salt(ctx, vaultID)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	salt = common.GenerateRandByteArray(saltSize)
	// INSERT OR IGNORE keeps a concurrent first use from clobbering the
	// winner's salt; re-read to return whatever actually landed.
	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO vault_salts (vault_id, salt, updated_at) VALUES (?, ?, ?)`,
		vaultID, salt, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert salt: %w", err)
	}
	return r.Salt(ctx, vaultID)
}

// Salt returns the vault's stored salt, or ErrNotFound.
func (r *SaltRepository) Salt(ctx context.Context, vaultID string) ([]byte, error) {
	var salt []byte
	err := r.db.QueryRowContext(ctx, `SELECT salt FROM vault_salts WHERE vault_id = ?`, vaultID).Scan(&salt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: salt for vault %s", common.ErrNotFound, vaultID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select salt: %w", err)
	}
	return salt, nil
}

// ReplaceSalt overwrites the vault's salt. Called from the rekey commit,
// inside the same transaction that rewrites the vault's records.
func (r *SaltRepository) ReplaceSalt(ctx context.Context, vaultID string, salt []byte) error {
	if len(salt) < saltSize {
		return fmt.Errorf("%w: salt too short", common.ErrKey)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vault_salts (vault_id, salt, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(vault_id) DO UPDATE SET salt = excluded.salt, updated_at = excluded.updated_at`,
		vaultID, salt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to replace salt: %w", err)
	}
	return nil
}

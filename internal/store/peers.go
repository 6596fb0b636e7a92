package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/dbx"
	"github.com/vaultlink/vaultlink/internal/models"
)

// PeerRepository persists peer devices and their pairing session keys. It
// satisfies the pairing service's TrustStore.
type PeerRepository struct {
	db dbx.DBTX
}

func NewPeerRepository(db dbx.DBTX) *PeerRepository {
	return &PeerRepository{db: db}
}

// SavePeer upserts the peer together with its session key. Passing a nil
// session key keeps the previously stored one.
func (r *PeerRepository) SavePeer(ctx context.Context, peer *models.PeerDevice, sessionKey []byte) error {
	caps, err := json.Marshal(peer.Capabilities)
	if err != nil {
		return fmt.Errorf("encoding capabilities: %w", err)
	}

	query := `INSERT INTO peers (id, name, address, port, capabilities, status, public_key, session_key, discovered_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name,
				address = excluded.address,
				port = excluded.port,
				capabilities = excluded.capabilities,
				status = excluded.status,
				public_key = excluded.public_key,
				session_key = COALESCE(excluded.session_key, peers.session_key),
				last_seen_at = excluded.last_seen_at
	`
	_, err = r.db.ExecContext(ctx, query,
		peer.ID, peer.Name, peer.Address, peer.Port, string(caps), string(peer.Status),
		peer.PublicKey, sessionKey, peer.DiscoveredAt, peer.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to upsert peer: %w", err)
	}
	return nil
}

// GetByID returns a single peer, or ErrNotFound.
func (r *PeerRepository) GetByID(ctx context.Context, id string) (*models.PeerDevice, error) {
	query := `SELECT id, name, address, port, capabilities, status, public_key, discovered_at, last_seen_at
			FROM peers WHERE id = ?`
	peer, err := scanPeer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: peer %s", common.ErrNotFound, id)
	}
	return peer, err
}

// GetAll lists every known peer.
func (r *PeerRepository) GetAll(ctx context.Context) ([]*models.PeerDevice, error) {
	query := `SELECT id, name, address, port, capabilities, status, public_key, discovered_at, last_seen_at
			FROM peers ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select peers: %w", err)
	}
	defer rows.Close()

	var result []*models.PeerDevice
	for rows.Next() {
		peer, err := scanPeer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, peer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SessionKey returns the stored session key for a paired peer, or ErrNotFound
// when the peer is unknown or has no key.
func (r *PeerRepository) SessionKey(ctx context.Context, id string) ([]byte, error) {
	var key []byte
	err := r.db.QueryRowContext(ctx, `SELECT session_key FROM peers WHERE id = ?`, id).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && key == nil) {
		return nil, fmt.Errorf("%w: session key for peer %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select session key: %w", err)
	}
	return key, nil
}

// DeleteByID forgets a peer entirely, session key included.
func (r *PeerRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM peers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete peer: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: peer %s", common.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeer(row rowScanner) (*models.PeerDevice, error) {
	peer := &models.PeerDevice{}
	var caps string
	var status string
	if err := row.Scan(&peer.ID, &peer.Name, &peer.Address, &peer.Port, &caps, &status,
		&peer.PublicKey, &peer.DiscoveredAt, &peer.LastSeenAt); err != nil {
		return nil, err
	}
	peer.Status = models.PeerStatus(status)
	if err := json.Unmarshal([]byte(caps), &peer.Capabilities); err != nil {
		return nil, fmt.Errorf("decoding capabilities: %w", err)
	}
	return peer, nil
}

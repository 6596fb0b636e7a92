package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/dbx"
	"github.com/vaultlink/vaultlink/internal/models"
)

// SyncConfigRepository persists per-device sync permissions as a JSON
// document keyed by device id.
type SyncConfigRepository struct {
	db dbx.DBTX
}

func NewSyncConfigRepository(db dbx.DBTX) *SyncConfigRepository {
	return &SyncConfigRepository{db: db}
}

// Save upserts the device's sync configuration.
func (r *SyncConfigRepository) Save(ctx context.Context, cfg *models.DeviceSyncConfig) error {
	if cfg == nil || cfg.DeviceID == "" {
		return fmt.Errorf("%w: missing device id", common.ErrPolicy)
	}
	cfg.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding sync config: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sync_configs (device_id, config, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		cfg.DeviceID, string(doc), cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sync config: %w", err)
	}
	return nil
}

// GetByDeviceID returns the device's sync configuration, or ErrNotFound.
func (r *SyncConfigRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.DeviceSyncConfig, error) {
	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT config FROM sync_configs WHERE device_id = ?`, deviceID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync config for device %s", common.ErrNotFound, deviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select sync config: %w", err)
	}

	cfg := &models.DeviceSyncConfig{}
	if err := json.Unmarshal([]byte(doc), cfg); err != nil {
		return nil, fmt.Errorf("decoding sync config: %w", err)
	}
	return cfg, nil
}

// DeleteByDeviceID forgets the device's sync configuration.
func (r *SyncConfigRepository) DeleteByDeviceID(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_configs WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete sync config: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: sync config for device %s", common.ErrNotFound, deviceID)
	}
	return nil
}

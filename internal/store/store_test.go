package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "trust.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPeer(id string) *models.PeerDevice {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.PeerDevice{
		ID:           id,
		Name:         "device-" + id,
		Address:      "192.168.1.20",
		Port:         47800,
		Capabilities: map[string]string{"sync": "v1"},
		DiscoveredAt: now,
		LastSeenAt:   now,
		Status:       models.PeerStatusPaired,
		PublicKey:    []byte{1, 2, 3},
	}
}

func TestPeerRepository_SaveAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Peers.SavePeer(ctx, testPeer("p1"), []byte("session-key-0123456789abcdef0123")))

	got, err := s.Peers.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "device-p1", got.Name)
	require.Equal(t, models.PeerStatusPaired, got.Status)
	require.Equal(t, map[string]string{"sync": "v1"}, got.Capabilities)
	require.Equal(t, []byte{1, 2, 3}, got.PublicKey)

	key, err := s.Peers.SessionKey(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, []byte("session-key-0123456789abcdef0123"), key)
}

func TestPeerRepository_UpsertKeepsSessionKey(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Peers.SavePeer(ctx, testPeer("p1"), []byte("key-1")))

	// Refreshing the peer without a key must not wipe the stored one.
	refreshed := testPeer("p1")
	refreshed.Name = "renamed"
	require.NoError(t, s.Peers.SavePeer(ctx, refreshed, nil))

	got, err := s.Peers.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)

	key, err := s.Peers.SessionKey(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, []byte("key-1"), key)
}

func TestPeerRepository_GetAllAndDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Peers.SavePeer(ctx, testPeer("p1"), nil))
	require.NoError(t, s.Peers.SavePeer(ctx, testPeer("p2"), nil))

	all, err := s.Peers.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, s.Peers.DeleteByID(ctx, "p1"))
	_, err = s.Peers.GetByID(ctx, "p1")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, s.Peers.DeleteByID(ctx, "p1"), common.ErrNotFound)
}

func TestPeerRepository_MissingSessionKey(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Peers.SavePeer(ctx, testPeer("p1"), nil))

	_, err := s.Peers.SessionKey(ctx, "p1")
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.Peers.SessionKey(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaltRepository_EnsureIsStable(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	salt, err := s.Salts.EnsureSalt(ctx, "vault-1")
	require.NoError(t, err)
	require.Len(t, salt, saltSize)

	again, err := s.Salts.EnsureSalt(ctx, "vault-1")
	require.NoError(t, err)
	require.Equal(t, salt, again, "second ensure must return the same salt")

	other, err := s.Salts.EnsureSalt(ctx, "vault-2")
	require.NoError(t, err)
	require.NotEqual(t, salt, other)
}

func TestSaltRepository_Replace(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	old, err := s.Salts.EnsureSalt(ctx, "vault-1")
	require.NoError(t, err)

	fresh := common.GenerateRandByteArray(saltSize)
	require.NoError(t, s.Salts.ReplaceSalt(ctx, "vault-1", fresh))

	got, err := s.Salts.Salt(ctx, "vault-1")
	require.NoError(t, err)
	require.Equal(t, fresh, got)
	require.NotEqual(t, old, got)

	require.ErrorIs(t, s.Salts.ReplaceSalt(ctx, "vault-1", []byte("short")), common.ErrKey)
}

func TestSaltRepository_MissingVault(t *testing.T) {
	s := setupStore(t)
	_, err := s.Salts.Salt(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSyncConfigRepository_RoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	cfg := &models.DeviceSyncConfig{
		DeviceID: "dev-b",
		Vaults: map[string]*models.VaultSyncPermission{
			"vault-1": {
				VaultID:           "vault-1",
				Level:             models.PermissionReadOnly,
				ExcludedEntries:   []string{"e-99"},
				AllowedCategories: []string{"logins"},
			},
		},
	}
	require.NoError(t, s.SyncConfigs.Save(ctx, cfg))

	got, err := s.SyncConfigs.GetByDeviceID(ctx, "dev-b")
	require.NoError(t, err)
	require.Equal(t, "dev-b", got.DeviceID)
	require.Equal(t, models.PermissionReadOnly, got.Vaults["vault-1"].Level)
	require.Equal(t, []string{"e-99"}, got.Vaults["vault-1"].ExcludedEntries)
	require.False(t, got.UpdatedAt.IsZero())

	cfg.Vaults["vault-1"] = &models.VaultSyncPermission{VaultID: "vault-1", Level: models.PermissionNone}
	require.NoError(t, s.SyncConfigs.Save(ctx, cfg))

	got, err = s.SyncConfigs.GetByDeviceID(ctx, "dev-b")
	require.NoError(t, err)
	require.Equal(t, models.PermissionNone, got.Vaults["vault-1"].Level)
}

func TestSyncConfigRepository_Validation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.SyncConfigs.Save(ctx, nil), common.ErrPolicy)
	require.ErrorIs(t, s.SyncConfigs.Save(ctx, &models.DeviceSyncConfig{}), common.ErrPolicy)

	_, err := s.SyncConfigs.GetByDeviceID(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, s.SyncConfigs.DeleteByDeviceID(ctx, "ghost"), common.ErrNotFound)
}

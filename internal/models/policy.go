package models

import "time"

// PermissionLevel is the per-vault sync permission granted to a device.
type PermissionLevel string

const (
	PermissionNone      PermissionLevel = "none"
	PermissionReadOnly  PermissionLevel = "read_only"
	PermissionReadWrite PermissionLevel = "read_write"
	// PermissionLimited permits sync only for entries whose category is
	// explicitly allow-listed.
	PermissionLimited PermissionLevel = "limited"
)

// VaultSyncPermission holds the filtering rules for one (device, vault) pair.
// Mutated only through explicit configuration calls; the sync flow itself
// never writes it.
type VaultSyncPermission struct {
	VaultID string          `json:"vault_id"`
	Level   PermissionLevel `json:"level"`

	// ExcludedEntries lists entry ids that never sync.
	ExcludedEntries []string `json:"excluded_entries,omitempty"`

	// AllowedCategories, when non-empty, is an allow-list: only entries in
	// these categories are eligible.
	AllowedCategories []string `json:"allowed_categories,omitempty"`

	// ExcludedCategories lists categories that never sync.
	ExcludedCategories []string `json:"excluded_categories,omitempty"`

	// SyncInterval is the desired cadence for background syncs with this vault.
	SyncInterval time.Duration `json:"sync_interval,omitempty"`
}

// DeviceSyncConfig is the authorization state for one remote device: which
// vaults it may sync and under which rules.
type DeviceSyncConfig struct {
	DeviceID  string                          `json:"device_id"`
	Vaults    map[string]*VaultSyncPermission `json:"vaults"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// Permission returns the rules for the given vault, or nil when the vault is
// not enabled for this device.
func (c *DeviceSyncConfig) Permission(vaultID string) *VaultSyncPermission {
	if c == nil || c.Vaults == nil {
		return nil
	}
	return c.Vaults[vaultID]
}

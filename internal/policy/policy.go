// Package policy implements selective-sync authorization: pure decision
// functions over DeviceSyncConfig records. Policy state is mutated only
// through explicit configuration calls, never by the sync flow.
package policy

import (
	"fmt"
	"slices"

	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/models"
)

// ShouldSyncEntry decides whether a single entry is eligible to transfer to
// the device described by cfg. The checks run in a fixed order:
//
//  1. vault enabled for the device at all
//  2. permission level not none
//  3. entry not explicitly excluded
//  4. category allow-list, when present, contains the category
//  5. category not explicitly excluded
//  6. permission-level semantics (read_only/read_write permit; limited
//     additionally requires the category to be explicitly allow-listed)
//
// Malformed authorization state yields ErrPolicy.
func ShouldSyncEntry(cfg *models.DeviceSyncConfig, vaultID, entryID, category string) (bool, error) {
	if cfg == nil || cfg.DeviceID == "" {
		return false, fmt.Errorf("%w: missing device configuration", common.ErrPolicy)
	}
	if vaultID == "" || entryID == "" {
		return false, fmt.Errorf("%w: vault and entry ids are required", common.ErrPolicy)
	}

	perm := cfg.Permission(vaultID)
	if perm == nil {
		return false, nil
	}

	switch perm.Level {
	case models.PermissionNone:
		return false, nil
	case models.PermissionReadOnly, models.PermissionReadWrite, models.PermissionLimited:
	case "":
		return false, fmt.Errorf("%w: vault %s has no permission level", common.ErrPolicy, vaultID)
	default:
		return false, fmt.Errorf("%w: unknown permission level %q", common.ErrPolicy, perm.Level)
	}

	if slices.Contains(perm.ExcludedEntries, entryID) {
		return false, nil
	}

	if len(perm.AllowedCategories) > 0 && !slices.Contains(perm.AllowedCategories, category) {
		return false, nil
	}

	if slices.Contains(perm.ExcludedCategories, category) {
		return false, nil
	}

	if perm.Level == models.PermissionLimited {
		// Limited grants share nothing implicitly: only entries whose
		// category was explicitly allow-listed may leave the device.
		return category != "" && slices.Contains(perm.AllowedCategories, category), nil
	}

	return true, nil
}

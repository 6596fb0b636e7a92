package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vaultlink/vaultlink/internal/cipher"
	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/dbx"
	"github.com/vaultlink/vaultlink/internal/models"
	"github.com/vaultlink/vaultlink/internal/store"
)

// vaultExport is the on-disk form of an exported vault: the record set a
// password manager hands to the sync engine.
type vaultExport struct {
	VaultID string                `json:"vault_id"`
	Records []*models.VaultRecord `json:"records"`
}

// Rekey re-encrypts an exported vault file under a new master password. The
// current and new passwords are prompted without echo. The new salt and the
// rewritten file land together: the salt is replaced in the trust store only
// after the migrated records are staged, and the file swap is atomic.
func (a *App) Rekey(ctx context.Context, vaultID, file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading vault export: %w", err)
	}
	export := &vaultExport{}
	if err := json.Unmarshal(raw, export); err != nil {
		return fmt.Errorf("parsing vault export: %w", err)
	}
	if export.VaultID != vaultID {
		return fmt.Errorf("file belongs to vault %s, not %s", export.VaultID, vaultID)
	}

	oldMaster, err := GetPassword("Current master password:")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldMaster)

	newMaster, err := GetPassword("New master password:")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newMaster)

	confirm, err := GetPassword("Repeat new master password:")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	if string(newMaster) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}

	salt, err := a.store.Salts.EnsureSalt(ctx, vaultID)
	if err != nil {
		return err
	}
	session, err := cipher.NewSession(vaultID, oldMaster, salt)
	if err != nil {
		return err
	}
	defer session.Close()

	err = cipher.Rekey(ctx, session, newMaster, export.Records, func(ctx context.Context, newSalt []byte, migrated []*models.VaultRecord) error {
		return a.commitRekey(ctx, vaultID, file, salt, newSalt, migrated)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Vault %s re-encrypted (%d records).\n", vaultID, len(export.Records))
	return nil
}

// renameFile is a test seam for os.Rename.
var renameFile = os.Rename

// commitRekey persists the rekey outcome. Ordering matters: the migrated
// export is staged next to the original, the new salt is committed, and only
// then is the file swapped in. A failure before the swap leaves the old salt
// and file in place; a failed swap puts the old salt back, so the vault is
// decryptable under exactly one password at every step.
func (a *App) commitRekey(ctx context.Context, vaultID, file string, oldSalt, newSalt []byte, migrated []*models.VaultRecord) error {
	out, err := json.MarshalIndent(&vaultExport{VaultID: vaultID, Records: migrated}, "", "  ")
	if err != nil {
		return err
	}
	tmp := file + ".rekey"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}

	err = dbx.WithTx(ctx, a.store.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		return store.NewSaltRepository(tx).ReplaceSalt(ctx, vaultID, newSalt)
	})
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := renameFile(tmp, file); err != nil {
		_ = os.Remove(tmp)
		if restoreErr := a.store.Salts.ReplaceSalt(ctx, vaultID, oldSalt); restoreErr != nil {
			return fmt.Errorf("swapping vault file failed (%v) and restoring the previous salt failed too, vault salt is new: %w", err, restoreErr)
		}
		return fmt.Errorf("swapping vault file, previous salt restored: %w", err)
	}
	return nil
}

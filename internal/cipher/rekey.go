package cipher

import (
	"context"
	"fmt"

	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/models"
)

// CommitFunc persists the outcome of a re-encryption pass: the new vault salt
// and the fully migrated records, in one atomic step (typically a single
// storage transaction). If it returns an error nothing has changed on disk
// and the vault stays decryptable under the old password.
type CommitFunc func(ctx context.Context, newSalt []byte, migrated []*models.VaultRecord) error

// Rekey re-encrypts a vault under a new master password.
//
// The pass is staged entirely in memory: every record is decrypted under the
// old session first, then a new salt and key are created and every record is
// re-encrypted, and only then is commit invoked with the complete result.
// Any failure, including a failing commit, leaves the prior state fully
// intact; the old session is never closed here, so old key material survives
// until the caller discards it after a successful return.
func Rekey(ctx context.Context, oldSession *Session, newMaster []byte, records []*models.VaultRecord, commit CommitFunc) error {

	type plainRecord struct {
		record    *models.VaultRecord
		username  []byte
		password  []byte
		otpSecret []byte
	}

	plains := make([]plainRecord, 0, len(records))
	defer func() {
		for _, p := range plains {
			common.WipeByteArray(p.username)
			common.WipeByteArray(p.password)
			common.WipeByteArray(p.otpSecret)
		}
	}()

	// Stage 1: decrypt everything under the old key. One bad record aborts
	// the whole pass before anything is written.
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := decryptRecord(oldSession, r)
		if d.Failed {
			return fmt.Errorf("record %s not migrated: %w", r.ID, d.Err)
		}
		plains = append(plains, plainRecord{record: r, username: d.Username, password: d.Password, otpSecret: d.OTPSecret})
	}

	// Stage 2: derive the new key and re-encrypt in memory.
	newSalt := NewSalt()
	newSession, err := NewSession(oldSession.VaultID(), newMaster, newSalt)
	if err != nil {
		return err
	}
	defer newSession.Close()

	migrated := make([]*models.VaultRecord, 0, len(plains))
	for _, p := range plains {
		out := p.record.Clone()

		if out.Username, err = newSession.Encrypt(p.username); err != nil {
			return fmt.Errorf("record %s not migrated: %w", p.record.ID, err)
		}
		if out.Password, err = newSession.Encrypt(p.password); err != nil {
			return fmt.Errorf("record %s not migrated: %w", p.record.ID, err)
		}
		if out.OTP != nil && p.otpSecret != nil {
			if out.OTP.Secret, err = newSession.Encrypt(p.otpSecret); err != nil {
				return fmt.Errorf("record %s not migrated: %w", p.record.ID, err)
			}
		}
		migrated = append(migrated, out)
	}

	// Stage 3: hand the complete result to the caller for an all-or-nothing
	// swap of salt and records.
	if err := commit(ctx, newSalt, migrated); err != nil {
		return fmt.Errorf("rekey commit failed, vault unchanged: %w", err)
	}
	return nil
}

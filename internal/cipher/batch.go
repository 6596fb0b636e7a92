package cipher

import (
	"github.com/vaultlink/vaultlink/internal/models"
)

// DecryptedRecord is the outcome of decrypting one vault record in a batch.
// A failed record carries its error and zero-value plaintext fields.
type DecryptedRecord struct {
	Record *models.VaultRecord

	Username  []byte
	Password  []byte
	OTPSecret []byte

	Failed bool
	Err    error
}

// Wipe zeroes the plaintext fields. Callers should invoke it once the
// decrypted values have been handed off.
func (d *DecryptedRecord) Wipe() {
	for _, b := range [][]byte{d.Username, d.Password, d.OTPSecret} {
		for i := range b {
			b[i] = 0
		}
	}
}

// DecryptRecords decrypts every record's protected fields under the session
// key. A record that fails to decrypt is flagged and the batch continues;
// the function itself never fails.
func DecryptRecords(sess *Session, records []*models.VaultRecord) []DecryptedRecord {
	out := make([]DecryptedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, decryptRecord(sess, r))
	}
	return out
}

func decryptRecord(sess *Session, r *models.VaultRecord) DecryptedRecord {
	res := DecryptedRecord{Record: r}

	username, err := sess.Decrypt(r.Username)
	if err != nil {
		res.Failed = true
		res.Err = err
		return res
	}
	password, err := sess.Decrypt(r.Password)
	if err != nil {
		res.Failed = true
		res.Err = err
		return res
	}

	var otpSecret []byte
	if r.OTP != nil && r.OTP.Secret != "" {
		otpSecret, err = sess.Decrypt(r.OTP.Secret)
		if err != nil {
			res.Failed = true
			res.Err = err
			return res
		}
	}

	res.Username = username
	res.Password = password
	res.OTPSecret = otpSecret
	return res
}

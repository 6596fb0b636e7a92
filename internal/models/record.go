// Package models defines the entities exchanged between VaultLink components:
// vault records and metadata, peer devices, pairing invitations, sync
// conflicts and authorization state.
package models

import "time"

// OTPConfig holds a one-time-password generator configuration attached to a
// vault record. The secret is stored and transmitted only in encrypted
// envelope form; the remaining fields are generator parameters.
type OTPConfig struct {
	// Secret is the encrypted TOTP secret (cipher envelope).
	Secret string `json:"secret"`

	// Algorithm is the HMAC algorithm name (e.g. "SHA1").
	Algorithm string `json:"algorithm"`

	// Digits is the number of code digits.
	Digits int `json:"digits"`

	// PeriodSeconds is the code rotation period.
	PeriodSeconds int `json:"period_seconds"`
}

// Equal reports whether two OTP configurations are semantically identical.
// Two nil configs are equal; nil never equals non-nil.
func (o *OTPConfig) Equal(other *OTPConfig) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.Secret == other.Secret &&
		o.Algorithm == other.Algorithm &&
		o.Digits == other.Digits &&
		o.PeriodSeconds == other.PeriodSeconds
}

// VaultRecord is a single account entry inside a vault.
//
// Username, Password and the OTP secret hold cipher envelopes, never
// plaintext. Identifier and timestamps stay unencrypted: merge logic needs
// them on both sides of a sync without a key.
type VaultRecord struct {
	// ID is an opaque identifier, stable across devices.
	ID string `json:"id"`

	// VaultID is the owning vault.
	VaultID string `json:"vault_id"`

	// Title is the display name.
	Title string `json:"title"`

	// Username is the encrypted account username (cipher envelope).
	Username string `json:"username"`

	// Password is the encrypted account password (cipher envelope).
	Password string `json:"password"`

	// URL is an optional site address.
	URL string `json:"url,omitempty"`

	// Notes is optional free-form text.
	Notes string `json:"notes,omitempty"`

	// OTP is an optional one-time-password configuration.
	OTP *OTPConfig `json:"otp,omitempty"`

	// Deleted marks the record as a tombstone, kept so a deletion on one
	// device can be told apart from an entry the other device never had.
	Deleted bool `json:"deleted,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// EntityID returns the stable identifier used for conflict keying.
func (r *VaultRecord) EntityID() string { return r.ID }

// ContentEqual reports whether all user-visible fields of two records match.
// Timestamps other than LastUsedAt are intentionally excluded: two devices
// may carry different modification times for identical content.
func (r *VaultRecord) ContentEqual(other *VaultRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Deleted == other.Deleted &&
		r.Title == other.Title &&
		r.Username == other.Username &&
		r.Password == other.Password &&
		r.URL == other.URL &&
		r.Notes == other.Notes &&
		r.OTP.Equal(other.OTP) &&
		r.LastUsedAt.Equal(other.LastUsedAt)
}

// Clone returns a deep copy of the record.
func (r *VaultRecord) Clone() *VaultRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.OTP != nil {
		otp := *r.OTP
		out.OTP = &otp
	}
	return &out
}

// VaultMetadata describes a vault as a whole. One instance per vault,
// owned by the vault subsystem and read by the conflict resolver.
type VaultMetadata struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Icon           string    `json:"icon"`
	Color          string    `json:"color"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	PasswordCount  int       `json:"password_count"`
	SecurityScore  float64   `json:"security_score"`
}

// EntityID returns the stable identifier used for conflict keying.
func (m *VaultMetadata) EntityID() string { return m.ID }

// ContentEqual reports whether all user-visible fields of two vault
// metadata records match.
func (m *VaultMetadata) ContentEqual(other *VaultMetadata) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Name == other.Name &&
		m.Icon == other.Icon &&
		m.Color == other.Color &&
		m.PasswordCount == other.PasswordCount &&
		m.SecurityScore == other.SecurityScore
}

// Clone returns a copy of the metadata record.
func (m *VaultMetadata) Clone() *VaultMetadata {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}

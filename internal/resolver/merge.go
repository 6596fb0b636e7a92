package resolver

import "github.com/vaultlink/vaultlink/internal/models"

// mergeRecords combines two versions of an account record. Every field is
// taken from whichever side has the later modification timestamp, except
// LastUsedAt, which is the max of both sides. This matches the shipped
// behavior exactly: the account merge is deliberately last-writer-wins plus
// the usage timestamp, not a field-level merge.
func mergeRecords(local, remote *models.VaultRecord) *models.VaultRecord {
	base := local
	if remote.ModifiedAt.After(local.ModifiedAt) {
		base = remote
	}
	out := base.Clone()

	if local.LastUsedAt.After(out.LastUsedAt) {
		out.LastUsedAt = local.LastUsedAt
	}
	if remote.LastUsedAt.After(out.LastUsedAt) {
		out.LastUsedAt = remote.LastUsedAt
	}
	return out
}

// mergeMetadata combines two versions of vault metadata: descriptive fields
// from the most-recently-accessed side, the earliest creation time, the
// larger password count and the arithmetic mean of the security scores.
func mergeMetadata(local, remote *models.VaultMetadata) *models.VaultMetadata {
	recent, other := local, remote
	if remote.LastAccessedAt.After(local.LastAccessedAt) {
		recent, other = remote, local
	}
	out := recent.Clone()

	if other.CreatedAt.Before(out.CreatedAt) {
		out.CreatedAt = other.CreatedAt
	}
	if other.PasswordCount > out.PasswordCount {
		out.PasswordCount = other.PasswordCount
	}
	out.SecurityScore = (local.SecurityScore + remote.SecurityScore) / 2
	return out
}

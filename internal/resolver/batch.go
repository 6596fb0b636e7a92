package resolver

import (
	"sort"

	"github.com/vaultlink/vaultlink/internal/models"
)

// BatchSummary aggregates a batch resolution for progress reporting.
type BatchSummary struct {
	// Examined is the number of distinct identifiers considered.
	Examined int
	// AutoResolved counts conflicts settled without user involvement.
	AutoResolved int
	// NeedsUserInput counts pending user-choice resolutions.
	NeedsUserInput int
}

// ResolveRecordBatch resolves two snapshots of a vault's records. Entries
// are keyed by identifier, the symmetric union of identifiers is walked in
// deterministic order, and each pair is resolved independently. Identical
// pairs produce no conflict and appear only in Examined.
func ResolveRecordBatch(local, remote []*models.VaultRecord, s Strategy) ([]*models.ResolvedConflict[models.VaultRecord], BatchSummary) {
	localByID := make(map[string]*models.VaultRecord, len(local))
	for _, r := range local {
		localByID[r.ID] = r
	}
	remoteByID := make(map[string]*models.VaultRecord, len(remote))
	for _, r := range remote {
		remoteByID[r.ID] = r
	}

	ids := make([]string, 0, len(localByID)+len(remoteByID))
	seen := make(map[string]struct{}, len(localByID)+len(remoteByID))
	for id := range localByID {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range remoteByID {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	summary := BatchSummary{Examined: len(ids)}
	resolved := make([]*models.ResolvedConflict[models.VaultRecord], 0, len(ids))

	for _, id := range ids {
		rc := ResolveRecord(localByID[id], remoteByID[id], s)
		if rc == nil {
			continue
		}
		resolved = append(resolved, rc)
		if rc.RequiresUserInput {
			summary.NeedsUserInput++
		} else {
			summary.AutoResolved++
		}
	}
	return resolved, summary
}

// Package resolver decides which side of a divergent vault edit survives.
// Resolution is a pure computation over immutable snapshots: no locking, no
// storage access, deterministic for identical inputs.
package resolver

import (
	"fmt"
	"time"

	"github.com/vaultlink/vaultlink/internal/models"
)

// Strategy selects the resolution rule. The set is closed; dispatch is a
// plain switch rather than pluggable registrations.
type Strategy string

const (
	// StrategyLastWriterWins compares modification timestamps; ties favor
	// the local side for determinism.
	StrategyLastWriterWins Strategy = "last_writer_wins"
	StrategyLocalWins      Strategy = "local_wins"
	StrategyRemoteWins     Strategy = "remote_wins"
	// StrategyMerge combines fields; see mergeRecords / mergeMetadata.
	StrategyMerge Strategy = "merge"
	// StrategyUserChoice defers to the user: the result is non-terminal and
	// must be completed via ApplyUserChoice.
	StrategyUserChoice Strategy = "user_choice"
)

// entityOps is the per-type behavior the generic core needs. Only two entity
// kinds exist, so the table is filled in-package.
type entityOps[T any] struct {
	modTime   func(*T) time.Time
	deleted   func(*T) bool
	createdAt func(*T) time.Time
	equal     func(a, b *T) bool
	merge     func(local, remote *T) *T
}

var recordOps = entityOps[models.VaultRecord]{
	modTime:   func(r *models.VaultRecord) time.Time { return r.ModifiedAt },
	deleted:   func(r *models.VaultRecord) bool { return r.Deleted },
	createdAt: func(r *models.VaultRecord) time.Time { return r.CreatedAt },
	equal:     func(a, b *models.VaultRecord) bool { return a.ContentEqual(b) },
	merge:     mergeRecords,
}

var metadataOps = entityOps[models.VaultMetadata]{
	// Vault metadata carries no modification timestamp; recency is judged by
	// last access.
	modTime:   func(m *models.VaultMetadata) time.Time { return m.LastAccessedAt },
	deleted:   func(m *models.VaultMetadata) bool { return false },
	createdAt: func(m *models.VaultMetadata) time.Time { return m.CreatedAt },
	equal:     func(a, b *models.VaultMetadata) bool { return a.ContentEqual(b) },
	merge:     mergeMetadata,
}

// ResolveRecord resolves a local/remote pair of account records. It returns
// nil when the two sides do not substantively differ: identical content is
// not a conflict and must not churn every sync.
func ResolveRecord(local, remote *models.VaultRecord, s Strategy) *models.ResolvedConflict[models.VaultRecord] {
	return resolve(local, remote, s, recordOps)
}

// ResolveMetadata resolves a local/remote pair of vault metadata records.
func ResolveMetadata(local, remote *models.VaultMetadata, s Strategy) *models.ResolvedConflict[models.VaultMetadata] {
	return resolve(local, remote, s, metadataOps)
}

func resolve[T any](local, remote *T, s Strategy, ops entityOps[T]) *models.ResolvedConflict[T] {
	if local == nil && remote == nil {
		return nil
	}

	// One-sided existence: there is no content disagreement to arbitrate,
	// so the strategy is not consulted.
	if local == nil {
		c := newConflict(remote, models.ConflictRemoteCreated, local, remote)
		return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionUseRemote, Winner: remote}
	}
	if remote == nil {
		c := newConflict(local, models.ConflictLocalCreated, local, remote)
		return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionUseLocal, Winner: local}
	}

	if ops.equal(local, remote) {
		return nil
	}

	c := newConflict(local, classify(local, remote, ops), local, remote)

	switch s {
	case StrategyLocalWins:
		return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionUseLocal, Winner: local}
	case StrategyRemoteWins:
		return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionUseRemote, Winner: remote}
	case StrategyMerge:
		return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionMerged, Winner: ops.merge(local, remote)}
	case StrategyUserChoice:
		return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionUserChoicePending, RequiresUserInput: true}
	default: // StrategyLastWriterWins
		if ops.modTime(remote).After(ops.modTime(local)) {
			return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionUseRemote, Winner: remote}
		}
		return &models.ResolvedConflict[T]{Conflict: c, Kind: models.ResolutionUseLocal, Winner: local}
	}
}

func classify[T any](local, remote *T, ops entityOps[T]) models.ConflictType {
	switch {
	case ops.deleted(local) && !ops.deleted(remote):
		return models.ConflictDeleteUpdate
	case !ops.deleted(local) && ops.deleted(remote):
		return models.ConflictUpdateDelete
	case !ops.createdAt(local).Equal(ops.createdAt(remote)):
		// Same identifier, different creation times: both sides created the
		// entity independently.
		return models.ConflictCreateCreate
	default:
		return models.ConflictUpdateUpdate
	}
}

func newConflict[T any](keyed *T, t models.ConflictType, local, remote *T) *models.SyncConflict[T] {
	id := ""
	if e, ok := any(keyed).(interface{ EntityID() string }); ok {
		id = e.EntityID()
	}
	return &models.SyncConflict[T]{
		EntityID:   id,
		Type:       t,
		Local:      local,
		Remote:     remote,
		DetectedAt: time.Now().UTC(),
	}
}

// ApplyUserChoice completes a pending user-choice resolution with an explicit
// decision. Only use_local and use_remote are valid decisions.
func ApplyUserChoice[T any](rc *models.ResolvedConflict[T], choice models.ResolutionKind) (*models.ResolvedConflict[T], error) {
	if rc == nil || !rc.RequiresUserInput {
		return nil, fmt.Errorf("resolution is not awaiting user input")
	}
	switch choice {
	case models.ResolutionUseLocal:
		return &models.ResolvedConflict[T]{Conflict: rc.Conflict, Kind: choice, Winner: rc.Conflict.Local}, nil
	case models.ResolutionUseRemote:
		return &models.ResolvedConflict[T]{Conflict: rc.Conflict, Kind: choice, Winner: rc.Conflict.Remote}, nil
	default:
		return nil, fmt.Errorf("invalid user decision %q", choice)
	}
}

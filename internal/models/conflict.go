package models

import "time"

// ConflictType classifies how local and remote snapshots disagree about one
// logical entity.
type ConflictType string

const (
	ConflictUpdateUpdate ConflictType = "update_update"
	ConflictUpdateDelete ConflictType = "update_delete"
	ConflictDeleteUpdate ConflictType = "delete_update"
	ConflictCreateCreate ConflictType = "create_create"

	// ConflictLocalCreated / ConflictRemoteCreated mark one-sided existence:
	// no genuine content disagreement, the entity simply appeared on one side.
	ConflictLocalCreated  ConflictType = "local_created"
	ConflictRemoteCreated ConflictType = "remote_created"
)

// ResolutionKind is the chosen outcome of a conflict.
type ResolutionKind string

const (
	ResolutionUseLocal  ResolutionKind = "use_local"
	ResolutionUseRemote ResolutionKind = "use_remote"
	ResolutionMerged    ResolutionKind = "merged"

	// ResolutionUserChoicePending is non-terminal: the conflict must be
	// re-submitted with an explicit user decision.
	ResolutionUserChoicePending ResolutionKind = "user_choice_pending"
)

// SyncConflict is a local/remote pair for the same logical entity.
// T is the entity type (VaultRecord or VaultMetadata).
type SyncConflict[T any] struct {
	EntityID   string       `json:"entity_id"`
	Type       ConflictType `json:"type"`
	Local      *T           `json:"local,omitempty"`
	Remote     *T           `json:"remote,omitempty"`
	DetectedAt time.Time    `json:"detected_at"`
}

// ResolvedConflict is the resolver's verdict for one conflict. A result with
// RequiresUserInput set is not yet terminal.
type ResolvedConflict[T any] struct {
	Conflict          *SyncConflict[T] `json:"conflict"`
	Kind              ResolutionKind   `json:"kind"`
	Winner            *T               `json:"winner,omitempty"`
	RequiresUserInput bool             `json:"requires_user_input"`
}

package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultlink/vaultlink/internal/models"
)

var base = time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

func record(id string, modified time.Time, mutate ...func(*models.VaultRecord)) *models.VaultRecord {
	r := &models.VaultRecord{
		ID:         id,
		VaultID:    "v1",
		Title:      "title-" + id,
		Username:   "enc-user",
		Password:   "enc-pass",
		CreatedAt:  base,
		ModifiedAt: modified,
		LastUsedAt: base,
	}
	for _, m := range mutate {
		m(r)
	}
	return r
}

func TestResolveRecord_IdenticalContentIsNotAConflict(t *testing.T) {
	local := record("a", base.Add(time.Hour))
	remote := record("a", base.Add(2*time.Hour)) // only the mod time differs

	for _, s := range []Strategy{StrategyLastWriterWins, StrategyLocalWins, StrategyRemoteWins, StrategyMerge, StrategyUserChoice} {
		require.Nil(t, ResolveRecord(local, remote, s), "strategy %s", s)
	}
	require.Nil(t, ResolveRecord(nil, nil, StrategyLastWriterWins))
}

func TestResolveRecord_OTPConfigComparedSemantically(t *testing.T) {
	local := record("a", base)
	remote := record("a", base)
	local.OTP = &models.OTPConfig{Secret: "s", Algorithm: "SHA1", Digits: 6, PeriodSeconds: 30}
	remote.OTP = &models.OTPConfig{Secret: "s", Algorithm: "SHA1", Digits: 6, PeriodSeconds: 30}
	require.Nil(t, ResolveRecord(local, remote, StrategyLastWriterWins))

	remote.OTP.Digits = 8
	rc := ResolveRecord(local, remote, StrategyLastWriterWins)
	require.NotNil(t, rc)
}

func TestResolveRecord_LastWriterWinsDeterminism(t *testing.T) {
	newer := func(r *models.VaultRecord) { r.Title = "changed" }

	local := record("a", base.Add(time.Hour), newer)
	remote := record("a", base)
	rc := ResolveRecord(local, remote, StrategyLastWriterWins)
	require.NotNil(t, rc)
	require.Equal(t, models.ResolutionUseLocal, rc.Kind)
	require.Same(t, local, rc.Winner)

	rc = ResolveRecord(remote, local, StrategyLastWriterWins)
	require.Equal(t, models.ResolutionUseRemote, rc.Kind)
	require.Same(t, local, rc.Winner)
}

func TestResolveRecord_LastWriterWinsTieFavorsLocal(t *testing.T) {
	local := record("a", base)
	remote := record("a", base, func(r *models.VaultRecord) { r.Title = "other" })

	rc := ResolveRecord(local, remote, StrategyLastWriterWins)
	require.NotNil(t, rc)
	require.Equal(t, models.ResolutionUseLocal, rc.Kind)
	require.Same(t, local, rc.Winner)
}

func TestResolveRecord_CreationAsymmetryIgnoresStrategy(t *testing.T) {
	only := record("a", base)

	for _, s := range []Strategy{StrategyLastWriterWins, StrategyLocalWins, StrategyRemoteWins, StrategyMerge, StrategyUserChoice} {
		rc := ResolveRecord(nil, only, s)
		require.NotNil(t, rc, "strategy %s", s)
		require.Equal(t, models.ConflictRemoteCreated, rc.Conflict.Type)
		require.Equal(t, models.ResolutionUseRemote, rc.Kind)
		require.Same(t, only, rc.Winner)
		require.False(t, rc.RequiresUserInput)

		rc = ResolveRecord(only, nil, s)
		require.Equal(t, models.ConflictLocalCreated, rc.Conflict.Type)
		require.Equal(t, models.ResolutionUseLocal, rc.Kind)
	}
}

func TestResolveRecord_FixedStrategies(t *testing.T) {
	local := record("a", base, func(r *models.VaultRecord) { r.Title = "local" })
	remote := record("a", base.Add(time.Hour), func(r *models.VaultRecord) { r.Title = "remote" })

	rc := ResolveRecord(local, remote, StrategyLocalWins)
	require.Equal(t, models.ResolutionUseLocal, rc.Kind)
	require.Same(t, local, rc.Winner)

	rc = ResolveRecord(local, remote, StrategyRemoteWins)
	require.Equal(t, models.ResolutionUseRemote, rc.Kind)
	require.Same(t, remote, rc.Winner)
}

func TestResolveRecord_ConflictClassification(t *testing.T) {
	updated := record("a", base.Add(time.Hour), func(r *models.VaultRecord) { r.Title = "edited" })
	deleted := record("a", base.Add(2*time.Hour), func(r *models.VaultRecord) { r.Deleted = true })

	rc := ResolveRecord(updated, deleted, StrategyLastWriterWins)
	require.Equal(t, models.ConflictUpdateDelete, rc.Conflict.Type)

	rc = ResolveRecord(deleted, updated, StrategyLastWriterWins)
	require.Equal(t, models.ConflictDeleteUpdate, rc.Conflict.Type)

	independent := record("a", base, func(r *models.VaultRecord) {
		r.CreatedAt = base.Add(time.Minute)
		r.Title = "second creation"
	})
	rc = ResolveRecord(record("a", base), independent, StrategyLastWriterWins)
	require.Equal(t, models.ConflictCreateCreate, rc.Conflict.Type)

	rc = ResolveRecord(record("a", base), record("a", base, func(r *models.VaultRecord) { r.Title = "x" }), StrategyLastWriterWins)
	require.Equal(t, models.ConflictUpdateUpdate, rc.Conflict.Type)
}

func TestResolveRecord_MergeIsLastWriterPlusUsage(t *testing.T) {
	local := record("a", base.Add(time.Hour), func(r *models.VaultRecord) {
		r.Title = "local title"
		r.LastUsedAt = base.Add(3 * time.Hour)
	})
	remote := record("a", base.Add(2*time.Hour), func(r *models.VaultRecord) {
		r.Title = "remote title"
		r.LastUsedAt = base.Add(time.Hour)
	})

	rc := ResolveRecord(local, remote, StrategyMerge)
	require.Equal(t, models.ResolutionMerged, rc.Kind)
	require.Equal(t, "remote title", rc.Winner.Title)
	require.Equal(t, base.Add(3*time.Hour), rc.Winner.LastUsedAt)
}

func TestResolveRecord_UserChoiceFlow(t *testing.T) {
	local := record("a", base, func(r *models.VaultRecord) { r.Title = "local" })
	remote := record("a", base, func(r *models.VaultRecord) { r.Title = "remote" })

	pending := ResolveRecord(local, remote, StrategyUserChoice)
	require.NotNil(t, pending)
	require.True(t, pending.RequiresUserInput)
	require.Equal(t, models.ResolutionUserChoicePending, pending.Kind)
	require.Nil(t, pending.Winner)

	final, err := ApplyUserChoice(pending, models.ResolutionUseRemote)
	require.NoError(t, err)
	require.False(t, final.RequiresUserInput)
	require.Same(t, remote, final.Winner)

	_, err = ApplyUserChoice(pending, models.ResolutionMerged)
	require.Error(t, err)

	_, err = ApplyUserChoice(final, models.ResolutionUseLocal)
	require.Error(t, err)
}

func TestResolveMetadata_Merge(t *testing.T) {
	local := &models.VaultMetadata{
		ID: "v1", Name: "Personal", Icon: "key", Color: "blue",
		CreatedAt: base, LastAccessedAt: base.Add(time.Hour),
		PasswordCount: 10, SecurityScore: 80,
	}
	remote := &models.VaultMetadata{
		ID: "v1", Name: "Personal (laptop)", Icon: "lock", Color: "red",
		CreatedAt: base.Add(-time.Hour), LastAccessedAt: base.Add(2 * time.Hour),
		PasswordCount: 7, SecurityScore: 60,
	}

	rc := ResolveMetadata(local, remote, StrategyMerge)
	require.NotNil(t, rc)
	require.Equal(t, models.ResolutionMerged, rc.Kind)

	m := rc.Winner
	require.Equal(t, "Personal (laptop)", m.Name) // most recently accessed side
	require.Equal(t, "lock", m.Icon)
	require.Equal(t, base.Add(-time.Hour), m.CreatedAt) // earliest creation
	require.Equal(t, 10, m.PasswordCount)               // larger count
	require.InDelta(t, 70.0, m.SecurityScore, 1e-9)     // mean score
}

func TestResolveMetadata_NoOpSuppressed(t *testing.T) {
	a := &models.VaultMetadata{ID: "v1", Name: "Personal", PasswordCount: 3, SecurityScore: 50, CreatedAt: base, LastAccessedAt: base}
	b := &models.VaultMetadata{ID: "v1", Name: "Personal", PasswordCount: 3, SecurityScore: 50, CreatedAt: base, LastAccessedAt: base.Add(time.Hour)}
	require.Nil(t, ResolveMetadata(a, b, StrategyMerge))
}

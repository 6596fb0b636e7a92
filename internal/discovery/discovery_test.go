package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultlink/vaultlink/internal/eventhub"
	"github.com/vaultlink/vaultlink/internal/logging"
	"github.com/vaultlink/vaultlink/internal/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testService(t *testing.T, id string, opts Options) *Service {
	t.Helper()
	identity := Identity{ID: id, Name: "device-" + id, Version: "1.0.0", Capabilities: map[string]string{"sync": "v1"}}
	return New(identity, opts, eventhub.New(), testLogger())
}

func TestStartAdvertising_PresenceEndpoint(t *testing.T) {
	s := testService(t, "dev-a", Options{})
	port, err := s.StartAdvertising(context.Background())
	require.NoError(t, err)
	require.NotZero(t, port)
	t.Cleanup(s.StopAdvertising)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, PresencePath))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p Presence
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Equal(t, "dev-a", p.ID)
	require.Equal(t, "device-dev-a", p.Name)
	require.Equal(t, "1.0.0", p.Version)
	require.Equal(t, map[string]string{"sync": "v1"}, p.Capabilities)
	require.False(t, p.Timestamp.IsZero())
}

func TestStartAdvertising_Idempotent(t *testing.T) {
	s := testService(t, "dev-a", Options{})
	port1, err := s.StartAdvertising(context.Background())
	require.NoError(t, err)
	t.Cleanup(s.StopAdvertising)

	port2, err := s.StartAdvertising(context.Background())
	require.NoError(t, err)
	require.Equal(t, port1, port2)
}

func TestProbe_UnreachableIsError(t *testing.T) {
	_, err := probe(context.Background(), "127.0.0.1", 1, 200*time.Millisecond)
	require.Error(t, err)
}

func TestScanOnce_DiscoversPeerAndIgnoresSelf(t *testing.T) {
	// A second device advertises; the scanner under test must find it.
	remote := testService(t, "dev-b", Options{})
	port, err := remote.StartAdvertising(context.Background())
	require.NoError(t, err)
	t.Cleanup(remote.StopAdvertising)

	hub := eventhub.New()
	sub := hub.Subscribe(8)
	scanner := New(Identity{ID: "dev-a", Name: "scanner"}, Options{
		ScanPorts:    []int{port},
		ProbeTimeout: time.Second,
		ScanTimeout:  5 * time.Second,
	}, hub, testLogger())
	scanner.hostsFn = func() ([]string, error) { return []string{"127.0.0.1"}, nil }

	scanner.scanOnce(context.Background())

	peers := scanner.Peers().Snapshot()
	require.Len(t, peers, 1)
	require.Equal(t, "dev-b", peers[0].ID)
	require.Equal(t, models.PeerStatusDiscovered, peers[0].Status)
	require.Equal(t, port, peers[0].Port)

	select {
	case ev := <-sub.Events():
		require.Equal(t, eventhub.EventPeerDiscovered, ev.Type)
	default:
		t.Fatal("expected a peer_discovered event")
	}

	// Scanning again refreshes instead of duplicating.
	scanner.scanOnce(context.Background())
	require.Len(t, scanner.Peers().Snapshot(), 1)
}

func TestScanOnce_OwnIdentityFilteredOut(t *testing.T) {
	self := testService(t, "dev-a", Options{})
	port, err := self.StartAdvertising(context.Background())
	require.NoError(t, err)
	t.Cleanup(self.StopAdvertising)

	self.opts.ScanPorts = []int{port}
	self.hostsFn = func() ([]string, error) { return []string{"127.0.0.1"}, nil }

	self.scanOnce(context.Background())
	require.Empty(t, self.Peers().Snapshot())
}

func TestPeerSet_SweepDemotesAndRemoves(t *testing.T) {
	ps := NewPeerSet()
	now := time.Now().UTC()

	ps.Add(&models.PeerDevice{ID: "fresh", LastSeenAt: now, Status: models.PeerStatusDiscovered})
	ps.Add(&models.PeerDevice{ID: "stale", LastSeenAt: now.Add(-3 * time.Minute), Status: models.PeerStatusDiscovered})
	ps.Add(&models.PeerDevice{ID: "gone", LastSeenAt: now.Add(-10 * time.Minute), Status: models.PeerStatusOffline})

	demoted, removed := ps.Sweep(now, 2*time.Minute, 5*time.Minute, true)
	require.Equal(t, []string{"stale"}, demoted)
	require.Equal(t, []string{"gone"}, removed)

	require.Equal(t, models.PeerStatusOffline, ps.Get("stale").Status)
	require.Nil(t, ps.Get("gone"))
	require.Equal(t, models.PeerStatusDiscovered, ps.Get("fresh").Status)
}

func TestPeerSet_SweepKeepsOfflineWithoutAutoRemove(t *testing.T) {
	ps := NewPeerSet()
	now := time.Now().UTC()
	ps.Add(&models.PeerDevice{ID: "gone", LastSeenAt: now.Add(-time.Hour), Status: models.PeerStatusOffline})

	_, removed := ps.Sweep(now, 2*time.Minute, 5*time.Minute, false)
	require.Empty(t, removed)
	require.NotNil(t, ps.Get("gone"))
}

func TestPeerSet_UpsertPreservesPairing(t *testing.T) {
	ps := NewPeerSet()
	now := time.Now().UTC()

	require.True(t, ps.Upsert(&models.PeerDevice{ID: "p", LastSeenAt: now, Status: models.PeerStatusDiscovered}))
	require.True(t, ps.Promote("p", []byte{1, 2, 3}))

	require.False(t, ps.Upsert(&models.PeerDevice{ID: "p", Name: "renamed", LastSeenAt: now.Add(time.Minute), Status: models.PeerStatusDiscovered}))

	got := ps.Get("p")
	require.Equal(t, models.PeerStatusPaired, got.Status)
	require.Equal(t, []byte{1, 2, 3}, got.PublicKey)
	require.Equal(t, "renamed", got.Name)
}

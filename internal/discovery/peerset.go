package discovery

import (
	"sync"
	"time"

	"github.com/vaultlink/vaultlink/internal/models"
)

// PeerSet is the live, deduplicated view of known devices, keyed by device
// id. It is continuously updated by the scanner and the cleanup sweep;
// readers get cloned snapshots.
type PeerSet struct {
	mu    sync.RWMutex
	peers map[string]*models.PeerDevice
}

func NewPeerSet() *PeerSet {
	return &PeerSet{peers: make(map[string]*models.PeerDevice)}
}

// Upsert adds or refreshes a device and reports whether it was new.
// A paired device keeps its paired status and public key across refreshes.
func (s *PeerSet) Upsert(p *models.PeerDevice) (isNew bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.peers[p.ID]
	if !ok {
		s.peers[p.ID] = p.Clone()
		return true
	}

	existing.Name = p.Name
	existing.Address = p.Address
	existing.Port = p.Port
	existing.Capabilities = p.Clone().Capabilities
	existing.LastSeenAt = p.LastSeenAt
	if existing.Status == models.PeerStatusOffline {
		existing.Status = models.PeerStatusDiscovered
	}
	return false
}

// Promote marks a device as paired and records its public key.
func (s *PeerSet) Promote(id string, publicKey []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.peers[id]
	if !ok {
		return false
	}
	p.Status = models.PeerStatusPaired
	p.PublicKey = append([]byte(nil), publicKey...)
	return true
}

// Add inserts a fully formed device (used when pairing introduces a peer the
// scanner never saw, e.g. via an out-of-band invitation).
func (s *PeerSet) Add(p *models.PeerDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p.ID] = p.Clone()
}

// Get returns a clone of the device, or nil.
func (s *PeerSet) Get(id string) *models.PeerDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peers[id].Clone()
}

// Snapshot returns clones of all known devices.
func (s *PeerSet) Snapshot() []*models.PeerDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.PeerDevice, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p.Clone())
	}
	return out
}

// Sweep demotes devices not seen within offlineAfter to offline and, when
// autoRemove is set, deletes devices that have been offline longer than
// removeAfter. It returns the ids demoted and removed.
func (s *PeerSet) Sweep(now time.Time, offlineAfter, removeAfter time.Duration, autoRemove bool) (demoted, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.peers {
		switch p.Status {
		case models.PeerStatusOffline:
			if autoRemove && now.Sub(p.LastSeenAt) > offlineAfter+removeAfter {
				delete(s.peers, id)
				removed = append(removed, id)
			}
		default:
			if now.Sub(p.LastSeenAt) > offlineAfter {
				p.Status = models.PeerStatusOffline
				demoted = append(demoted, id)
			}
		}
	}
	return demoted, removed
}

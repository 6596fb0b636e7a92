// Package discovery advertises this device on the local network and scans
// for others, maintaining a live set of peer descriptors. Advertising and
// scanning are independent background activities; either may run alone.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/vaultlink/vaultlink/internal/eventhub"
	"github.com/vaultlink/vaultlink/internal/logging"
	"github.com/vaultlink/vaultlink/internal/models"
)

// Options tunes the discovery loops. Zero values fall back to the documented
// defaults.
type Options struct {
	// PresencePort is the advertising port; 0 binds an ephemeral port.
	PresencePort int

	// ScanPorts is the well-known port list probed during a sweep.
	ScanPorts []int

	// ProbeTimeout bounds a single probe (default 2s).
	ProbeTimeout time.Duration

	// ScanTimeout is the hard ceiling for one whole sweep (default 30s).
	ScanTimeout time.Duration

	// ScanInterval is the pause between periodic sweeps (default 1m).
	ScanInterval time.Duration

	// AdvertiseTimeout auto-stops advertising (default 24h).
	AdvertiseTimeout time.Duration

	// CleanupInterval is the cadence of the offline sweep (default 1m).
	CleanupInterval time.Duration

	// StaleTimeout demotes a silent device to offline (default 2m).
	StaleTimeout time.Duration

	// OfflineTimeout removes a device that stayed offline this long,
	// when AutoRemoveOffline is set (default 5m).
	OfflineTimeout time.Duration

	AutoRemoveOffline bool
}

func (o Options) withDefaults() Options {
	if len(o.ScanPorts) == 0 {
		o.ScanPorts = []int{47800, 47801, 47802}
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 2 * time.Second
	}
	if o.ScanTimeout <= 0 {
		o.ScanTimeout = 30 * time.Second
	}
	if o.ScanInterval <= 0 {
		o.ScanInterval = time.Minute
	}
	if o.AdvertiseTimeout <= 0 {
		o.AdvertiseTimeout = 24 * time.Hour
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = time.Minute
	}
	if o.StaleTimeout <= 0 {
		o.StaleTimeout = 2 * time.Minute
	}
	if o.OfflineTimeout <= 0 {
		o.OfflineTimeout = 5 * time.Minute
	}
	return o
}

// Service owns the peer set and the discovery background loops.
type Service struct {
	identity Identity
	opts     Options
	log      logging.Logger
	hub      *eventhub.Hub
	peers    *PeerSet

	// hostsFn enumerates scan candidates; a seam for tests.
	hostsFn func() ([]string, error)

	mu              sync.Mutex
	advertising     *presenceServer
	advertiseCancel context.CancelFunc
	scanCancel      context.CancelFunc
}

func New(identity Identity, opts Options, hub *eventhub.Hub, log logging.Logger) *Service {
	return &Service{
		identity: identity,
		opts:     opts.withDefaults(),
		log:      log.With("module", "discovery"),
		hub:      hub,
		peers:    NewPeerSet(),
		hostsFn:  localSubnetHosts,
	}
}

// Peers exposes the live peer set.
func (s *Service) Peers() *PeerSet { return s.peers }

// StartAdvertising binds the presence listener and returns the bound port.
// A bind failure is fatal to this operation and surfaces as ErrDiscovery.
// Advertising auto-stops after the configured timeout.
func (s *Service) StartAdvertising(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.advertising != nil {
		return s.advertising.port(), nil
	}

	ps := newPresenceServer(s.identity, s.hub, s.log)
	if err := ps.start(s.opts.PresencePort); err != nil {
		return 0, err
	}
	s.advertising = ps

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.AdvertiseTimeout)
	s.advertiseCancel = cancel
	go func() {
		<-actx.Done()
		s.StopAdvertising()
	}()

	s.log.Info(ctx, "advertising started", "port", ps.port())
	return ps.port(), nil
}

// StopAdvertising releases the presence listener. Safe to call when idle.
func (s *Service) StopAdvertising() {
	s.mu.Lock()
	ps := s.advertising
	cancel := s.advertiseCancel
	s.advertising = nil
	s.advertiseCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ps != nil {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		ps.stop(ctx)
		s.log.Info(ctx, "advertising stopped")
	}
}

// AdvertisedPort returns the bound presence port, or 0 when not advertising.
func (s *Service) AdvertisedPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advertising == nil {
		return 0
	}
	return s.advertising.port()
}

// StartScanning launches the periodic subnet sweep. The first sweep runs
// immediately; later sweeps follow ScanInterval. No-op when already running.
func (s *Service) StartScanning(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanCancel != nil {
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	s.scanCancel = cancel

	go func() {
		s.scanOnce(sctx)
		ticker := time.NewTicker(s.opts.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sctx.Done():
				return
			case <-ticker.C:
				s.scanOnce(sctx)
			}
		}
	}()
	s.log.Info(ctx, "scanning started", "ports", s.opts.ScanPorts)
}

// StopScanning cancels the sweep loop. Safe to call when idle.
func (s *Service) StopScanning() {
	s.mu.Lock()
	cancel := s.scanCancel
	s.scanCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// scanOnce performs a single bounded sweep of the local subnets.
func (s *Service) scanOnce(ctx context.Context) {
	hosts, err := s.hostsFn()
	if err != nil {
		s.log.Warn(ctx, "could not enumerate local subnets", "error", err)
		return
	}

	sweep(ctx, hosts, s.opts.ScanPorts, s.opts.ProbeTimeout, s.opts.ScanTimeout, func(addr string, port int, p *Presence) {
		if p.ID == s.identity.ID {
			return
		}
		s.observe(ctx, addr, port, p)
	})
}

// observe records a presence answer in the peer set and emits the matching
// event.
func (s *Service) observe(ctx context.Context, addr string, port int, p *Presence) {
	now := time.Now().UTC()
	peer := &models.PeerDevice{
		ID:           p.ID,
		Name:         p.Name,
		Address:      addr,
		Port:         port,
		Capabilities: p.Capabilities,
		DiscoveredAt: now,
		LastSeenAt:   now,
		Status:       models.PeerStatusDiscovered,
	}

	if s.peers.Upsert(peer) {
		s.log.Info(ctx, "peer discovered", "id", p.ID, "name", p.Name, "addr", addr, "port", port)
		s.hub.Publish(eventhub.EventPeerDiscovered, s.peers.Get(p.ID))
		return
	}
	s.hub.Publish(eventhub.EventPeerUpdated, s.peers.Get(p.ID))
}

// RunCleanup runs the periodic offline sweep until ctx is cancelled.
func (s *Service) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			demoted, removed := s.peers.Sweep(time.Now().UTC(), s.opts.StaleTimeout, s.opts.OfflineTimeout, s.opts.AutoRemoveOffline)
			for _, id := range demoted {
				s.hub.Publish(eventhub.EventPeerOffline, id)
			}
			for _, id := range removed {
				s.hub.Publish(eventhub.EventPeerRemoved, id)
			}
		}
	}
}

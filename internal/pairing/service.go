package pairing

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/discovery"
	"github.com/vaultlink/vaultlink/internal/eventhub"
	"github.com/vaultlink/vaultlink/internal/logging"
	"github.com/vaultlink/vaultlink/internal/models"
)

// Status is the pairing state machine's current phase. Terminal states are
// completed, failed, expired and cancelled; a new attempt resets to idle.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusGenerating     Status = "generating"
	StatusWaitingForScan Status = "waiting_for_scan"
	StatusScanning       Status = "scanning"
	StatusConnecting     Status = "connecting"
	StatusExchangingKeys Status = "exchanging_keys"
	StatusVerifying      Status = "verifying"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusExpired        Status = "expired"
	StatusCancelled      Status = "cancelled"
)

// Result is the payload of a pairing_result event.
type Result struct {
	Status Status `json:"status"`
	PeerID string `json:"peer_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TrustStore persists paired devices and their session keys.
type TrustStore interface {
	SavePeer(ctx context.Context, peer *models.PeerDevice, sessionKey []byte) error
}

// Options tunes the pairing service. Zero values fall back to defaults.
type Options struct {
	// ListenPort is the handshake listener port; 0 binds an ephemeral port.
	ListenPort int

	// InvitationValidity is the invitation lifetime (default 10m).
	InvitationValidity time.Duration

	// HandshakeTimeout bounds one handshake exchange end to end (default 10s).
	HandshakeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.InvitationValidity <= 0 {
		o.InvitationValidity = models.DefaultInvitationValidity
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	return o
}

// Service runs both sides of the pairing handshake: it issues invitations and
// answers for them on a TCP listener, and it accepts invitations issued by
// other devices.
type Service struct {
	identity discovery.Identity
	opts     Options
	log      logging.Logger
	hub      *eventhub.Hub
	trust    TrustStore
	peers    *discovery.PeerSet

	// addressFn resolves the advertised handshake address; a seam for tests.
	addressFn func() string

	mu          sync.Mutex
	status      Status
	listener    net.Listener
	invitations map[string]*activeInvitation
}

func New(identity discovery.Identity, opts Options, trust TrustStore, peers *discovery.PeerSet, hub *eventhub.Hub, log logging.Logger) *Service {
	return &Service{
		identity:    identity,
		opts:        opts.withDefaults(),
		log:         log.With("module", "pairing"),
		hub:         hub,
		trust:       trust,
		peers:       peers,
		addressFn:   localIPv4,
		status:      StatusIdle,
		invitations: make(map[string]*activeInvitation),
	}
}

// Status returns the current state machine phase.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// setStatus transitions the state machine and emits a pairing_status event.
// Callers must not hold s.mu.
func (s *Service) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.hub.Publish(eventhub.EventPairingStatus, st)
}

func (s *Service) publishResult(res Result) {
	s.hub.Publish(eventhub.EventPairingResult, res)
}

// GenerateInvitation creates a single-use invitation and ensures the
// handshake listener is running. The returned invitation carries everything
// the accepting device needs, including the random challenge; transfer it out
// of band.
func (s *Service) GenerateInvitation(ctx context.Context) (*models.PairingInvitation, error) {
	s.setStatus(StatusGenerating)

	port, err := s.ensureListener(ctx)
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	keys, err := newKeyPair()
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	inv, err := newInvitation(s.identity, s.addressFn(), port, s.opts.InvitationValidity)
	if err != nil {
		keys.wipe()
		s.fail(ctx, err)
		return nil, err
	}
	act := &activeInvitation{inv: inv, keys: keys}
	act.timer = time.AfterFunc(time.Until(inv.ExpiresAt), func() { s.expire(inv.ID) })

	s.mu.Lock()
	s.invitations[inv.ID] = act
	s.mu.Unlock()

	s.setStatus(StatusWaitingForScan)
	s.log.Info(ctx, "invitation generated", "id", inv.ID, "port", port, "expires_at", inv.ExpiresAt)
	return inv, nil
}

// ensureListener binds the handshake listener on first use and returns the
// bound port.
func (s *Service) ensureListener(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().(*net.TCPAddr).Port, nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.ListenPort))
	if err != nil {
		return 0, fmt.Errorf("%w: handshake listener: %v", common.ErrPairing, err)
	}
	s.listener = ln

	go s.acceptLoop(context.WithoutCancel(ctx), ln)
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// expire fires when an invitation's validity window passes. When it was the
// last pending invitation the whole attempt is over.
func (s *Service) expire(id string) {
	s.mu.Lock()
	act, ok := s.invitations[id]
	if ok {
		delete(s.invitations, id)
		act.destroy()
	}
	last := len(s.invitations) == 0 && s.status == StatusWaitingForScan
	s.mu.Unlock()

	if !ok {
		return
	}
	s.log.Info(context.Background(), "invitation expired", "id", id)
	if last {
		s.setStatus(StatusExpired)
		s.publishResult(Result{Status: StatusExpired, Error: "invitation expired"})
	}
}

// Cancel aborts the current attempt: the listener is closed, every pending
// invitation is destroyed and its secrets are wiped before Cancel returns.
func (s *Service) Cancel() {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	pending := s.invitations
	s.invitations = make(map[string]*activeInvitation)
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, act := range pending {
		act.destroy()
	}

	s.setStatus(StatusCancelled)
	s.publishResult(Result{Status: StatusCancelled})
}

func (s *Service) fail(ctx context.Context, err error) {
	s.log.Error(ctx, "pairing failed", "error", err)
	s.setStatus(StatusFailed)
	s.publishResult(Result{Status: StatusFailed, Error: err.Error()})
}

// acceptLoop serves handshake connections until the listener is closed.
func (s *Service) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn runs the inviting side of one handshake exchange.
func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.opts.HandshakeTimeout))

	body, err := readFrame(bufio.NewReader(conn))
	if err != nil {
		s.log.Warn(ctx, "malformed handshake frame", "remote", conn.RemoteAddr().String(), "error", err)
		_ = writeReply(conn, replyError+": malformed request")
		return
	}

	var req PairRequest
	if err := json.Unmarshal(body, &req); err != nil || req.DeviceID == "" {
		_ = writeReply(conn, replyError+": malformed request body")
		return
	}

	act := s.matchInvitation(&req)
	if act == nil {
		s.log.Warn(ctx, "handshake with no matching invitation", "device_id", req.DeviceID)
		_ = writeReply(conn, replyFailed+": unknown or expired invitation")
		return
	}

	s.setStatus(StatusVerifying)
	if err := s.completeAsInviter(ctx, conn, act, &req); err != nil {
		// The invitation was already consumed; a retry needs a fresh one.
		act.destroy()
		_ = writeReply(conn, replyError+": "+err.Error())
		s.fail(ctx, err)
		return
	}
	act.destroy()
}

// matchInvitation finds the pending invitation whose challenge the request
// proves knowledge of, and consumes it. Invitations are single use: a second
// request for the same invitation finds nothing.
func (s *Service) matchInvitation(req *PairRequest) *activeInvitation {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, act := range s.invitations {
		if proofMatches(act.inv.Challenge, req.PublicKey, req.DeviceID, req.ChallengeProof) {
			delete(s.invitations, id)
			return act
		}
	}
	return nil
}

// completeAsInviter finishes the handshake on the inviting side: derive the
// session key, persist the peer, then answer with the signed success token.
func (s *Service) completeAsInviter(ctx context.Context, conn net.Conn, act *activeInvitation, req *PairRequest) error {
	key, err := sessionKey(act.keys.private, req.PublicKey, act.inv.Challenge)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	token, err := signSuccessToken(act.inv.Challenge, s.identity.ID, s.identity.Name, act.keys.public, req.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: signing success token: %v", common.ErrPairing, err)
	}

	now := time.Now().UTC()
	addr := ""
	if tcp, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		addr = tcp.IP.String()
	}
	peer := &models.PeerDevice{
		ID:           req.DeviceID,
		Name:         req.DeviceName,
		Address:      addr,
		Capabilities: req.Capabilities,
		DiscoveredAt: now,
		LastSeenAt:   now,
		Status:       models.PeerStatusPaired,
		PublicKey:    append([]byte(nil), req.PublicKey...),
	}
	if err := s.trust.SavePeer(ctx, peer, key); err != nil {
		return fmt.Errorf("%w: persisting peer: %v", common.ErrPairing, err)
	}
	if s.peers != nil {
		s.peers.Add(peer)
	}

	if err := writeReply(conn, replySuccess+" "+token); err != nil {
		return fmt.Errorf("%w: sending reply: %v", common.ErrPairing, err)
	}

	s.log.Info(ctx, "device paired", "peer_id", peer.ID, "peer_name", peer.Name)
	s.setStatus(StatusCompleted)
	s.publishResult(Result{Status: StatusCompleted, PeerID: peer.ID})
	return nil
}

// AcceptInvitation runs the accepting side of the handshake against the
// device that issued the invitation. On success the inviter is recorded as a
// paired peer and returned.
func (s *Service) AcceptInvitation(ctx context.Context, inv *models.PairingInvitation) (*models.PeerDevice, error) {
	if inv.Expired(time.Now().UTC()) {
		err := fmt.Errorf("%w: invitation %s", common.ErrInvitationExpired, inv.ID)
		s.setStatus(StatusExpired)
		s.publishResult(Result{Status: StatusExpired, Error: err.Error()})
		return nil, err
	}

	address, port, err := s.resolveInviter(inv)
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	s.setStatus(StatusConnecting)
	dialer := &net.Dialer{Timeout: s.opts.HandshakeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		err = fmt.Errorf("%w: connecting to %s:%d: %v", common.ErrPairing, address, port, err)
		s.fail(ctx, err)
		return nil, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.opts.HandshakeTimeout))

	peer, err := s.completeAsAccepter(ctx, conn, inv)
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	s.log.Info(ctx, "paired with inviter", "peer_id", peer.ID, "peer_name", peer.Name)
	s.setStatus(StatusCompleted)
	s.publishResult(Result{Status: StatusCompleted, PeerID: peer.ID})
	return peer, nil
}

// resolveInviter locates the inviting device's handshake endpoint. An
// invitation without an address falls back to the discovery peer set.
func (s *Service) resolveInviter(inv *models.PairingInvitation) (string, int, error) {
	if inv.Address != "" {
		return inv.Address, inv.Port, nil
	}
	if s.peers == nil {
		return "", 0, fmt.Errorf("%w: invitation has no address", common.ErrPairing)
	}

	s.setStatus(StatusScanning)
	peer := s.peers.Get(inv.DeviceID)
	if peer == nil {
		return "", 0, fmt.Errorf("%w: inviting device %s not found on the network", common.ErrPairing, inv.DeviceID)
	}
	return peer.Address, inv.Port, nil
}

// completeAsAccepter sends the pair request, verifies the success token and
// derives the shared session key.
func (s *Service) completeAsAccepter(ctx context.Context, conn net.Conn, inv *models.PairingInvitation) (*models.PeerDevice, error) {
	keys, err := newKeyPair()
	if err != nil {
		return nil, err
	}
	defer keys.wipe()

	s.setStatus(StatusExchangingKeys)
	body, err := json.Marshal(PairRequest{
		DeviceID:       s.identity.ID,
		DeviceName:     s.identity.Name,
		PublicKey:      keys.public,
		ChallengeProof: challengeProof(inv.Challenge, keys.public, s.identity.ID),
		Capabilities:   s.identity.Capabilities,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", common.ErrPairing, err)
	}
	if err := writeFrame(conn, body); err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", common.ErrPairing, err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: reading reply: %v", common.ErrPairing, err)
	}

	s.setStatus(StatusVerifying)
	token, err := parseReply(line)
	if err != nil {
		return nil, err
	}
	inviterID, inviterName, inviterPublic, err := verifySuccessToken(token, inv.Challenge)
	if err != nil {
		return nil, err
	}
	if inviterID != inv.DeviceID {
		return nil, fmt.Errorf("%w: token issued by %s, invitation from %s", common.ErrPairing, inviterID, inv.DeviceID)
	}

	key, err := sessionKey(keys.private, inviterPublic, inv.Challenge)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	now := time.Now().UTC()
	peer := &models.PeerDevice{
		ID:           inv.DeviceID,
		Name:         inviterName,
		Address:      inv.Address,
		Port:         inv.Port,
		Capabilities: inv.Capabilities,
		DiscoveredAt: now,
		LastSeenAt:   now,
		Status:       models.PeerStatusPaired,
		PublicKey:    inviterPublic,
	}
	if err := s.trust.SavePeer(ctx, peer, key); err != nil {
		return nil, fmt.Errorf("%w: persisting peer: %v", common.ErrPairing, err)
	}
	if s.peers != nil {
		s.peers.Add(peer)
	}
	return peer, nil
}

package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// PeerStatus is the lifecycle state of a known device.
type PeerStatus string

const (
	// PeerStatusDiscovered marks a device seen on the network but not trusted.
	PeerStatusDiscovered PeerStatus = "discovered"
	// PeerStatusPaired marks a device that completed the pairing handshake.
	PeerStatusPaired PeerStatus = "paired"
	// PeerStatusOffline marks a device that stopped answering presence probes.
	PeerStatusOffline PeerStatus = "offline"
)

// PeerDevice describes a remote device: created by discovery, promoted to
// paired by the pairing service, demoted to offline by the cleanup sweep.
type PeerDevice struct {
	// ID is the stable device UUID.
	ID string `json:"id"`

	// Name is the human-readable device name.
	Name string `json:"name"`

	// Address and Port locate the device on the local network.
	Address string `json:"address"`
	Port    int    `json:"port"`

	// Capabilities advertises optional features as free-form key/value pairs.
	Capabilities map[string]string `json:"capabilities,omitempty"`

	// DiscoveredAt is when the device was first seen.
	DiscoveredAt time.Time `json:"discovered_at"`

	// LastSeenAt is the most recent successful presence exchange.
	LastSeenAt time.Time `json:"last_seen_at"`

	Status PeerStatus `json:"status"`

	// PublicKey is the peer's key-exchange public key, set once paired.
	PublicKey []byte `json:"public_key,omitempty"`
}

// Clone returns a deep copy of the peer descriptor.
func (p *PeerDevice) Clone() *PeerDevice {
	if p == nil {
		return nil
	}
	out := *p
	if p.Capabilities != nil {
		out.Capabilities = make(map[string]string, len(p.Capabilities))
		for k, v := range p.Capabilities {
			out.Capabilities[k] = v
		}
	}
	if p.PublicKey != nil {
		out.PublicKey = append([]byte(nil), p.PublicKey...)
	}
	return &out
}

// DefaultInvitationValidity is how long a pairing invitation stays usable.
const DefaultInvitationValidity = 10 * time.Minute

// PairingInvitation is a single-use ephemeral pairing credential, transferred
// out of band (e.g. rendered as a scannable code). It is destroyed on
// success, expiry or cancellation.
type PairingInvitation struct {
	// ID identifies the invitation itself.
	ID string `json:"id"`

	// DeviceID / DeviceName identify the inviting device.
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`

	// Address and Port locate the inviting device's handshake listener.
	Address string `json:"address"`
	Port    int    `json:"port"`

	// Challenge is random; the accepting side must prove knowledge of it.
	Challenge []byte `json:"challenge"`

	Capabilities map[string]string `json:"capabilities,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the invitation's validity window has passed.
func (i *PairingInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EncodePayload serializes the invitation into its out-of-band form:
// base64 over the JSON representation, suitable for a QR code.
func (i *PairingInvitation) EncodePayload() (string, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeInvitationPayload parses the out-of-band invitation form produced by
// EncodePayload.
func DecodeInvitationPayload(payload string) (*PairingInvitation, error) {
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid invitation payload: %w", err)
	}
	inv := &PairingInvitation{}
	if err := json.Unmarshal(b, inv); err != nil {
		return nil, fmt.Errorf("invalid invitation payload: %w", err)
	}
	return inv, nil
}

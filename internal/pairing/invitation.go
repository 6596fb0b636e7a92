package pairing

import (
	"net"
	"time"

	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/discovery"
	"github.com/vaultlink/vaultlink/internal/models"
)

// activeInvitation is a registered, not-yet-expired invitation together with
// the inviter's ephemeral key pair and its expiry timer.
type activeInvitation struct {
	inv   *models.PairingInvitation
	keys  *keyPair
	timer *time.Timer
}

// destroy stops the expiry timer and wipes the ephemeral secrets. Invitations
// are single use: success, expiry and cancellation all end here.
func (a *activeInvitation) destroy() {
	if a.timer != nil {
		a.timer.Stop()
	}
	common.WipeByteArray(a.inv.Challenge)
	a.keys.wipe()
}

// newInvitation builds the invitation credential advertised out of band.
func newInvitation(identity discovery.Identity, address string, port int, validity time.Duration) (*models.PairingInvitation, error) {
	id, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &models.PairingInvitation{
		ID:           id,
		DeviceID:     identity.ID,
		DeviceName:   identity.Name,
		Address:      address,
		Port:         port,
		Challenge:    common.GenerateRandByteArray(32),
		Capabilities: identity.Capabilities,
		CreatedAt:    now,
		ExpiresAt:    now.Add(validity),
	}, nil
}

// localIPv4 returns this device's primary non-loopback IPv4 address, used as
// the invitation's advertised address. Falls back to loopback when the
// device has no network.
func localIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
					return ip4.String()
				}
			}
		}
	}
	return "127.0.0.1"
}

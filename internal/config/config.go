// Package config handles runtime settings for the sync daemon and CLI:
// defaults, optional .env file, JSON overlay and command-line flags, applied
// in that order.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings shared by the daemon and the CLI.
//
// Fields:
//   - DeviceID / DeviceName: this device's identity on the local network.
//   - DatabaseDSN: sqlite file holding the trust store.
//   - PresencePort: discovery listener port (0 binds an ephemeral port).
//   - PairingPort: pairing handshake listener port.
//   - ScanPorts: well-known ports probed during a discovery sweep.
//   - ProbeTimeout / ScanTimeout / ScanInterval: sweep tuning.
//   - AdvertiseTimeout: advertising auto-stop.
//   - StaleTimeout / OfflineTimeout / AutoRemoveOffline: peer cleanup.
//   - InvitationValidity: pairing invitation lifetime.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DeviceID           string
	DeviceName         string
	DatabaseDSN        string
	PresencePort       int
	PairingPort        int
	ScanPorts          []int
	ProbeTimeout       time.Duration
	ScanTimeout        time.Duration
	ScanInterval       time.Duration
	AdvertiseTimeout   time.Duration
	StaleTimeout       time.Duration
	OfflineTimeout     time.Duration
	AutoRemoveOffline  bool
	InvitationValidity time.Duration
	LogLevel           string
}

// LoadDefaults populates Config with sensible defaults. DeviceID stays empty
// here; the app generates and persists one on first start.
func (c *Config) LoadDefaults() {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "vaultlink-device"
	}
	c.DeviceName = host
	c.DatabaseDSN = "vaultlink.db"
	c.PresencePort = 47800
	c.PairingPort = 47810
	c.ScanPorts = []int{47800, 47801, 47802}
	c.ProbeTimeout = 2 * time.Second
	c.ScanTimeout = 30 * time.Second
	c.ScanInterval = time.Minute
	c.AdvertiseTimeout = 24 * time.Hour
	c.StaleTimeout = 2 * time.Minute
	c.OfflineTimeout = 5 * time.Minute
	c.InvitationValidity = 10 * time.Minute
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional .env file, an optional JSON file and finally from
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vaultlink/vaultlink/internal/flagx"
	"github.com/vaultlink/vaultlink/internal/timex"
)

// JsonConfig is the DTO used for reading JSON configuration files. It uses
// timex.Duration for interval fields, which parses both string values such
// as "30s" and integer nanoseconds. After unmarshalling, set fields are
// copied into the runtime Config.
type JsonConfig struct {
	DeviceID           string         `json:"device_id"`
	DeviceName         string         `json:"device_name"`
	DatabaseDSN        string         `json:"database_dsn"`
	PresencePort       *int           `json:"presence_port"`
	PairingPort        *int           `json:"pairing_port"`
	ScanPorts          []int          `json:"scan_ports"`
	ProbeTimeout       timex.Duration `json:"probe_timeout"`
	ScanTimeout        timex.Duration `json:"scan_timeout"`
	ScanInterval       timex.Duration `json:"scan_interval"`
	AdvertiseTimeout   timex.Duration `json:"advertise_timeout"`
	StaleTimeout       timex.Duration `json:"stale_timeout"`
	OfflineTimeout     timex.Duration `json:"offline_timeout"`
	AutoRemoveOffline  *bool          `json:"auto_remove_offline"`
	InvitationValidity timex.Duration `json:"invitation_validity"`
	LogLevel           string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config command-line
// flags; when neither is set no JSON file is loaded. An unreadable or
// invalid file panics: a config file that was asked for but cannot be used
// is not recoverable.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DeviceID != "" {
		config.DeviceID = c.DeviceID
	}
	if c.DeviceName != "" {
		config.DeviceName = c.DeviceName
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.PresencePort != nil {
		config.PresencePort = *c.PresencePort
	}
	if c.PairingPort != nil {
		config.PairingPort = *c.PairingPort
	}
	if len(c.ScanPorts) > 0 {
		config.ScanPorts = c.ScanPorts
	}
	if c.ProbeTimeout.Duration > 0 {
		config.ProbeTimeout = time.Duration(c.ProbeTimeout.Duration)
	}
	if c.ScanTimeout.Duration > 0 {
		config.ScanTimeout = time.Duration(c.ScanTimeout.Duration)
	}
	if c.ScanInterval.Duration > 0 {
		config.ScanInterval = time.Duration(c.ScanInterval.Duration)
	}
	if c.AdvertiseTimeout.Duration > 0 {
		config.AdvertiseTimeout = time.Duration(c.AdvertiseTimeout.Duration)
	}
	if c.StaleTimeout.Duration > 0 {
		config.StaleTimeout = time.Duration(c.StaleTimeout.Duration)
	}
	if c.OfflineTimeout.Duration > 0 {
		config.OfflineTimeout = time.Duration(c.OfflineTimeout.Duration)
	}
	if c.AutoRemoveOffline != nil {
		config.AutoRemoveOffline = *c.AutoRemoveOffline
	}
	if c.InvitationValidity.Duration > 0 {
		config.InvitationValidity = time.Duration(c.InvitationValidity.Duration)
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}

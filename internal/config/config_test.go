package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Empty(t, cfg.DeviceID)
	assert.NotEmpty(t, cfg.DeviceName)
	assert.Equal(t, "vaultlink.db", cfg.DatabaseDSN)
	assert.Equal(t, 47800, cfg.PresencePort)
	assert.Equal(t, 47810, cfg.PairingPort)
	assert.Equal(t, []int{47800, 47801, 47802}, cfg.ScanPorts)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 10*time.Minute, cfg.InvitationValidity)
	assert.Equal(t, "info", cfg.LogLevel)
}

func Test_parseEnv(t *testing.T) {
	t.Setenv("VAULTLINK_DEVICE_ID", "env-device")
	t.Setenv("VAULTLINK_DATABASE_DSN", "env.db")
	t.Setenv("VAULTLINK_LOG_LEVEL", "debug")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "env-device", cfg.DeviceID)
	assert.Equal(t, "env.db", cfg.DatabaseDSN)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"device_name":         "kitchen-laptop",
		"database_dsn":        "json.db",
		"presence_port":       48000,
		"pairing_port":        48010,
		"scan_ports":          []int{48000, 48001},
		"probe_timeout":       "5s",
		"scan_interval":       "2m",
		"auto_remove_offline": true,
		"invitation_validity": "15m",
		"log_level":           "warn",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "kitchen-laptop", cfg.DeviceName)
		assert.Equal(t, "json.db", cfg.DatabaseDSN)
		assert.Equal(t, 48000, cfg.PresencePort)
		assert.Equal(t, 48010, cfg.PairingPort)
		assert.Equal(t, []int{48000, 48001}, cfg.ScanPorts)
		assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
		assert.Equal(t, 2*time.Minute, cfg.ScanInterval)
		assert.True(t, cfg.AutoRemoveOffline)
		assert.Equal(t, 15*time.Minute, cfg.InvitationValidity)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("unset json fields keep defaults", func(t *testing.T) {
		partial := writeTempJSON(t, map[string]any{"device_name": "only-name"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "only-name", cfg.DeviceName)
		assert.Equal(t, "vaultlink.db", cfg.DatabaseDSN)
		assert.Equal(t, 47800, cfg.PresencePort)
		assert.Equal(t, 30*time.Second, cfg.ScanTimeout)
	})

	t.Run("no config flag means no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "vaultlink.db", cfg.DatabaseDSN)
	})
}

func Test_parseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin",
		"-n", "flag-device",
		"-d", "flag.db",
		"-p", "48100",
		"-q", "48110",
		"-s", "48100,48101",
		"-i", "120",
		"-v", "5",
		"-l", "error",
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "flag-device", cfg.DeviceName)
	assert.Equal(t, "flag.db", cfg.DatabaseDSN)
	assert.Equal(t, 48100, cfg.PresencePort)
	assert.Equal(t, 48110, cfg.PairingPort)
	assert.Equal(t, []int{48100, 48101}, cfg.ScanPorts)
	assert.Equal(t, 2*time.Minute, cfg.ScanInterval)
	assert.Equal(t, 5*time.Minute, cfg.InvitationValidity)
	assert.Equal(t, "error", cfg.LogLevel)
}

func Test_parsePortList(t *testing.T) {
	ports, err := parsePortList("47800, 47801,47802")
	require.NoError(t, err)
	assert.Equal(t, []int{47800, 47801, 47802}, ports)

	_, err = parsePortList("47800,nope")
	require.Error(t, err)
}

package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays values from the process environment, after loading an
// optional .env file from the working directory. A missing .env file is not
// an error.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("VAULTLINK_DEVICE_ID"); v != "" {
		config.DeviceID = v
	}
	if v := os.Getenv("VAULTLINK_DEVICE_NAME"); v != "" {
		config.DeviceName = v
	}
	if v := os.Getenv("VAULTLINK_DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("VAULTLINK_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
}

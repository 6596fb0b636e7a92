package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vaultlink/vaultlink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-n string   device name
//	-d string   trust store sqlite DSN
//	-p int      presence (discovery) listener port
//	-q int      pairing handshake listener port
//	-s string   scan ports, comma-separated (e.g. "47800,47801")
//	-i int      scan interval, seconds
//	-v int      invitation validity, minutes
//	-l string   log level (debug|info|warn|error)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-n", "-d", "-p", "-q", "-s", "-i", "-v", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DeviceName, "n", config.DeviceName, "device name")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "trust store sqlite DSN")
	fs.IntVar(&config.PresencePort, "p", config.PresencePort, "presence listener port")
	fs.IntVar(&config.PairingPort, "q", config.PairingPort, "pairing listener port")

	scanPorts := fs.String("s", "", "scan ports, comma-separated")
	scanInterval := fs.Int("i", int(config.ScanInterval.Seconds()), "scan interval (in seconds)")
	invitationValidity := fs.Int("v", int(config.InvitationValidity.Minutes()), "invitation validity (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *scanPorts != "" {
		ports, err := parsePortList(*scanPorts)
		if err != nil {
			panic(err)
		}
		config.ScanPorts = ports
	}
	config.ScanInterval = time.Duration(*scanInterval) * time.Second
	config.InvitationValidity = time.Duration(*invitationValidity) * time.Minute
}

func parsePortList(s string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(s, ",") {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, nil
}

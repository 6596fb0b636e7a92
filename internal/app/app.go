// Package app wires the daemon together: configuration, logging, the trust
// store, the event hub and the discovery and pairing services, with
// signal-driven shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/vaultlink/vaultlink/internal/config"
	"github.com/vaultlink/vaultlink/internal/discovery"
	"github.com/vaultlink/vaultlink/internal/eventhub"
	"github.com/vaultlink/vaultlink/internal/logging"
	"github.com/vaultlink/vaultlink/internal/pairing"
	"github.com/vaultlink/vaultlink/internal/store"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	store     *store.Store
	hub       *eventhub.Hub
	discovery *discovery.Service
	pairing   *pairing.Service
}

// NewLogger builds the slog-backed logger at the configured level.
func NewLogger(level string) logging.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return logging.NewSlogLogger(slog.New(h))
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := NewLogger(cfg.LogLevel)

	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
		logger.Warn(ctx, "no device id configured, generated an ephemeral one; set VAULTLINK_DEVICE_ID for a stable identity", "device_id", cfg.DeviceID)
	}

	st, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("trust store init error: %w", err)
	}

	hub := eventhub.New()
	identity := discovery.Identity{
		ID:           cfg.DeviceID,
		Name:         cfg.DeviceName,
		Version:      "1.0.0",
		Capabilities: map[string]string{"sync": "v1"},
	}

	ds := discovery.New(identity, discovery.Options{
		PresencePort:      cfg.PresencePort,
		ScanPorts:         cfg.ScanPorts,
		ProbeTimeout:      cfg.ProbeTimeout,
		ScanTimeout:       cfg.ScanTimeout,
		ScanInterval:      cfg.ScanInterval,
		AdvertiseTimeout:  cfg.AdvertiseTimeout,
		StaleTimeout:      cfg.StaleTimeout,
		OfflineTimeout:    cfg.OfflineTimeout,
		AutoRemoveOffline: cfg.AutoRemoveOffline,
	}, hub, logger)

	ps := pairing.New(identity, pairing.Options{
		ListenPort:         cfg.PairingPort,
		InvitationValidity: cfg.InvitationValidity,
	}, st.Peers, ds.Peers(), hub, logger)

	return &App{
		config:    cfg,
		logger:    logger,
		store:     st,
		hub:       hub,
		discovery: ds,
		pairing:   ps,
	}, nil
}

// Store exposes the trust store repositories.
func (app *App) Store() *store.Store { return app.store }

// Discovery exposes the discovery service.
func (app *App) Discovery() *discovery.Service { return app.discovery }

// Pairing exposes the pairing service.
func (app *App) Pairing() *pairing.Service { return app.pairing }

// Hub exposes the event hub.
func (app *App) Hub() *eventhub.Hub { return app.hub }

// Logger exposes the app logger.
func (app *App) Logger() logging.Logger { return app.logger }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts advertising, scanning and the cleanup sweep and blocks until a
// signal or context cancellation, then shuts everything down.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting daemon", "device_id", app.config.DeviceID, "device_name", app.config.DeviceName)

	app.initSignalHandler(cancelFunc)

	if _, err := app.discovery.StartAdvertising(ctx); err != nil {
		return err
	}
	app.discovery.StartScanning(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.discovery.RunCleanup(ctx)
	}()

	<-ctx.Done()

	app.discovery.StopScanning()
	app.discovery.StopAdvertising()
	app.pairing.Cancel()
	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing trust store", "error", err)
	}
	app.logger.Info(ctx, "daemon stopped")
	return nil
}

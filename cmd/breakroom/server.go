package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harybot/breakroom/internal/bot"
	"github.com/harybot/breakroom/internal/config"
	"github.com/harybot/breakroom/internal/metrics"
	"github.com/harybot/breakroom/internal/storage"
	"github.com/harybot/breakroom/internal/storage/bolt"
	"github.com/harybot/breakroom/internal/storage/file"
	storageredis "github.com/harybot/breakroom/internal/storage/redis"
	"github.com/harybot/breakroom/internal/systemd"
	"github.com/harybot/breakroom/internal/tracking"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the breakroom bot",
	Long:  `Start the Telegram bot, snapshot persistence and metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required (set BREAKROOM_TELEGRAM_TOKEN or the config file)")
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting breakroom")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	// Load the last snapshot. A corrupt snapshot is logged and replaced
	// by an empty one: availability over history, decided here and
	// nowhere else.
	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	snap, err := store.Load(loadCtx)
	cancel()
	switch {
	case errors.Is(err, storage.ErrCorruptSnapshot):
		logger.Warn().Err(err).Msg("Snapshot unreadable, starting with empty state")
		snap = storage.NewSnapshot()
	case err != nil:
		return fmt.Errorf("failed to load snapshot: %w", err)
	default:
		logger.Info().
			Int("users", len(snap.Users)).
			Msg("Snapshot loaded")
	}

	// Initialize Session Engine
	loc, err := cfg.Tracking.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	limits, err := cfg.Tracking.ActionLimits()
	if err != nil {
		return fmt.Errorf("invalid limits: %w", err)
	}

	engine := tracking.NewEngine(store, snap, tracking.Config{
		Limits:          limits,
		Location:        loc,
		DoubleDeparture: tracking.DoubleDeparturePolicy(cfg.Tracking.DoubleDeparture),
		OnSaveError:     tracking.SaveErrorPolicy(cfg.Storage.OnSaveError),
	}, logger)

	logger.Info().
		Str("timezone", cfg.Tracking.Timezone).
		Str("double_departure", cfg.Tracking.DoubleDeparture).
		Str("on_save_error", cfg.Storage.OnSaveError).
		Msg("Session engine initialized")

	// Initialize Telegram bot
	handler := bot.NewHandler(engine, logger)
	tgBot, err := bot.NewBot(cfg.Telegram, handler, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	if sdListeners.Webhook != nil {
		tgBot.SetListener(sdListeners.Webhook)
	}

	if err := tgBot.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	logger.Info().
		Str("bot", tgBot.Username()).
		Str("mode", cfg.Telegram.Mode).
		Msg("Bot started")

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(metricsAddr, logger)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		logger.Info().Str("addr", metricsAddr).Msg("Metrics server started")
	}

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}

	logger.Info().Msg("Breakroom startup complete")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")
	_ = systemd.NotifyStopping()

	tgBot.Stop()

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("Breakroom stopped")
	return nil
}

// openStorage opens the configured snapshot store.
func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "file":
		return file.Open(cfg.Path)
	case "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return storageredis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

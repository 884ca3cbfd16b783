package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WauDev/telegram-bot-control-acces/internal/auth"
	"github.com/WauDev/telegram-bot-control-acces/internal/catalog"
	"github.com/WauDev/telegram-bot-control-acces/internal/config"
	"github.com/WauDev/telegram-bot-control-acces/internal/dispatch"
	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
	"github.com/WauDev/telegram-bot-control-acces/internal/feature/owner"
	"github.com/WauDev/telegram-bot-control-acces/internal/feature/registration"
	"github.com/WauDev/telegram-bot-control-acces/internal/health"
	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
	"github.com/WauDev/telegram-bot-control-acces/internal/store"
	"github.com/WauDev/telegram-bot-control-acces/internal/telegram"
)

const (
	storeProbeTimeout       = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":         "startup",
		"database_file": cfg.DatabaseFile,
		"commands_file": cfg.CommandsFile,
	}).Info("configuration loaded")

	userStore, err := store.NewFileStore(cfg.DatabaseFile, logger)
	if err != nil {
		logger.WithError(err).Error("store setup error")
		fmt.Fprintf(os.Stderr, "store setup error: %v\n", err)
		os.Exit(1)
	}

	probeCtx, cancelProbe := context.WithTimeout(context.Background(), storeProbeTimeout)
	if err := userStore.Ping(probeCtx); err != nil {
		cancelProbe()
		logger.WithError(err).Error("store probe error")
		fmt.Fprintf(os.Stderr, "store probe error: %v\n", err)
		os.Exit(1)
	}
	cancelProbe()

	logger.WithField("event", "store_ready").Info("user store is readable")

	commandCatalog, err := catalog.NewFileCatalog(cfg.CommandsFile, logger)
	if err != nil {
		logger.WithError(err).Error("catalog setup error")
		fmt.Fprintf(os.Stderr, "catalog setup error: %v\n", err)
		os.Exit(1)
	}

	registrar := registration.NewRegistrar(userStore, logger)
	levelResolver := owner.NewResolver(userStore, cfg.BotOwnerID, logger)
	engine := auth.NewEngine(commandCatalog, logger)
	statsProvider := store.NewStatsProvider(userStore)

	dispatcher := dispatch.NewDispatcher(levelResolver, engine, logger)
	dispatcher.Handle(dispatch.CommandRegister, dispatch.NewRegisterHandler(registrar))
	dispatcher.HandleWithFallback(dispatch.CommandHelp, domain.LevelUnregistered, dispatch.NewHelpHandler(levelResolver, commandCatalog))
	dispatcher.HandleWithFallback(dispatch.CommandStats, domain.LevelOwner, dispatch.NewStatsHandler(statsProvider))

	tgClient, err := telegram.NewClient(cfg, logger,
		telegram.WithRegistrar(registrar),
		telegram.WithDispatcher(dispatcher),
	)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, userStore, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	} else {
		logger.WithField("event", "health_shutdown").Info("health server stopped")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/noahxzhu/contract-reminder/internal/config"
	"github.com/noahxzhu/contract-reminder/internal/credential"
	"github.com/noahxzhu/contract-reminder/internal/logger"
	"github.com/noahxzhu/contract-reminder/internal/mailer"
	"github.com/noahxzhu/contract-reminder/internal/metrics"
	"github.com/noahxzhu/contract-reminder/internal/notify"
	"github.com/noahxzhu/contract-reminder/internal/reminder"
	"github.com/noahxzhu/contract-reminder/internal/storage"
	"github.com/noahxzhu/contract-reminder/internal/web"
)

func main() {
	configPath := pflag.String("config", "configs/config.yaml", "path to the YAML config file")
	pflag.Parse()

	// Load Config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Storage
	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("Failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	fallback, err := mailer.FromConfig(cfg.Mail, log)
	if err != nil {
		log.Error("Failed to configure mail transport", "error", err)
		os.Exit(1)
	}

	metrics.InitAPIMetrics()
	metrics.InitDispatchMetrics()

	engine := reminder.NewEngine(store, reminder.WithLogger(log))
	resolver := credential.NewResolver(store, cfg.Mail, fallback, credential.WithLogger(log))
	dispatcher := notify.NewDispatcher(engine, resolver, store, notify.WithLogger(log))

	// Init Web Server
	srv := web.NewServer(store, engine, resolver, dispatcher,
		web.WithWindowDays(cfg.Reminders.WindowDays),
		web.WithAPIToken(cfg.Server.APIToken),
		web.WithLogger(log),
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP Server
	go func() {
		log.Info("Starting server", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver, "mail_provider", cfg.Mail.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("Server exited")
}

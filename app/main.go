package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkaae/kinogram/app/api"
	"github.com/jkaae/kinogram/app/cfg"
	"github.com/jkaae/kinogram/app/config"
	"github.com/jkaae/kinogram/app/database"
	"github.com/jkaae/kinogram/app/fetcher"
	"github.com/jkaae/kinogram/app/program"
	"github.com/jkaae/kinogram/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Kinogram server", "version", appCfg.Version, "site", appCfg.BaseURL)

	profile, err := config.Load(appCfg.SiteConfig)
	if err != nil {
		slog.Error("Failed to load site profile", "path", appCfg.SiteConfig, "error", err)
		os.Exit(1)
	}

	client, err := fetcher.NewClient(fetcher.Options{
		BaseURL:   appCfg.BaseURL,
		UserAgent: appCfg.UserAgent,
		Timeout:   time.Duration(appCfg.FetchTimeout) * time.Second,
		Delay:     time.Duration(appCfg.FetchDelay) * time.Millisecond,
	})
	if err != nil {
		slog.Error("Failed to build HTTP client", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration", migrationVersion, "dirty", dirty)

	snapshotRepo := database.NewSnapshotRepository(db)
	engine := program.NewEngine(client, profile, appCfg.BaseURL, appCfg.MaxPages)

	var scheduler tasks.TaskSchedulerInterface
	if appCfg.RefreshInterval > 0 {
		slog.Info("Starting background refresh", "interval_minutes", appCfg.RefreshInterval)
		scheduler = tasks.NewScheduler(engine, snapshotRepo)
		scheduler.Start()
		defer scheduler.Stop()
	}

	handler := api.NewHandler(engine, snapshotRepo, scheduler,
		time.Duration(appCfg.SnapshotTTL)*time.Minute)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	// A cold /program request crawls the whole site before responding, so
	// the write timeout has to cover a full extraction.
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

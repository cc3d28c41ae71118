package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/eyes-on-docs/app/api"
	"github.com/lysyi3m/eyes-on-docs/app/cfg"
	"github.com/lysyi3m/eyes-on-docs/app/cosmos"
	"github.com/lysyi3m/eyes-on-docs/app/database"
	"github.com/lysyi3m/eyes-on-docs/app/feed"
	"github.com/lysyi3m/eyes-on-docs/app/tasks"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}

	setupLogger(c)

	slog.Info("Starting Eyes on Docs", "version", c.Version, "store", c.Store, "port", c.Port)

	updateRepo, visitRepo, closeStore, err := openStore(c)
	if err != nil {
		slog.Error("Failed to open document store", "store", c.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	catalog := feed.NewCatalog(c.ProductsFile)
	if err := catalog.Run(); err != nil {
		slog.Warn("Product catalog unavailable, serving fallback list", "path", c.ProductsFile, "error", err)
	} else {
		slog.Info("Product catalog loaded", "path", c.ProductsFile, "count", catalog.GetProductCount())
	}

	if c.SessionSecret == "" {
		slog.Warn("SESSION_SECRET not set: session identities are disabled and usage tokens do not survive restarts")
	}
	gate, err := usage.NewGate(c.AdminPassword, c.SessionSecret)
	if err != nil {
		slog.Error("Failed to initialize usage gate", "error", err)
		os.Exit(1)
	}
	if !gate.Configured() {
		slog.Warn("ADMIN_PASSWORD not set: usage view is disabled")
	}

	slog.Info("Starting background scheduler", "workers", c.WorkerCount, "catalog_reload_interval", c.CatalogReloadInterval.String())
	scheduler := tasks.NewScheduler(catalog, c.CatalogReloadInterval, c.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(feed.NewService(updateRepo), catalog, visitRepo, gate, scheduler, c.Store, c.BaseUrl)
	server := api.NewServer(handler, api.ServerOptions{
		SessionSecret:  c.SessionSecret,
		RequireSession: c.RequireSession,
		Debug:          c.Debug,
	})

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Eyes on Docs shutdown complete")
}

func setupLogger(c *cfg.Cfg) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openStore returns the repositories for the configured backend. visitRepo is
// a nil interface when the backend has nowhere to keep visits.
func openStore(c *cfg.Cfg) (feed.UpdateRepository, usage.VisitRepository, func(), error) {
	switch c.Store {
	case cfg.StoreCosmos:
		store, err := cosmos.NewStore(c)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("Connected to Cosmos DB", "endpoint", c.CosmosEndpoint, "database", c.CosmosDatabase)

		var visitRepo usage.VisitRepository
		if store.Visits != nil {
			visitRepo = store.Visits
		}
		return store.Updates, visitRepo, func() {}, nil

	default:
		db, err := database.NewConnection(c.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		slog.Info("Database ready", "path", c.SQLitePath, "schema_version", version, "dirty", dirty)

		updateRepo := database.NewUpdateRepository(db)

		if c.SeedFile != "" {
			count, err := database.SeedRecords(context.Background(), updateRepo, c.SeedFile)
			if err != nil {
				db.Close()
				return nil, nil, nil, err
			}
			total, err := updateRepo.GetRecordCount(context.Background())
			if err != nil {
				slog.Warn("Failed to count update records", "error", err)
			}
			slog.Info("Seeded update records", "file", c.SeedFile, "imported", count, "total", total)
		}

		return updateRepo, database.NewVisitRepository(db), func() { db.Close() }, nil
	}
}

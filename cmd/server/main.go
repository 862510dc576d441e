package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/config"
	"github.com/JonMunkholm/calsrv/internal/database"
	"github.com/JonMunkholm/calsrv/internal/i18n"
	"github.com/JonMunkholm/calsrv/internal/importresult"
	"github.com/JonMunkholm/calsrv/internal/logging"
	"github.com/JonMunkholm/calsrv/internal/serializer"
	"github.com/JonMunkholm/calsrv/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"require_api_key", cfg.Security.RequireAPIKey,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	service := calendar.NewService(database.New(pool), calendar.Config{
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
	})

	// Translation catalog for import status messages
	catalog := i18n.NewCatalog(cfg.I18n.Locale)
	if cfg.I18n.TranslationsFile != "" {
		catalog, err = i18n.LoadFile(cfg.I18n.TranslationsFile, cfg.I18n.Locale)
		if err != nil {
			slog.Error("failed to load translations", "path", cfg.I18n.TranslationsFile, "error", err)
			os.Exit(1)
		}
		slog.Info("translations loaded", "path", cfg.I18n.TranslationsFile, "locale", catalog.Locale())
	}

	server := web.NewServer(service, importresult.NewFormatter(catalog), serializer.New(), cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go func() {
		err := service.StartHistoryCleanup(jobCtx, calendar.CleanupConfig{
			Retention: cfg.Import.Retention(),
			Schedule:  cfg.Import.CleanupSchedule,
		})
		if err != nil {
			slog.Error("import history cleanup not started", "error", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if active := service.ImportsActive(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/gobang-online/internal/api"
	"github.com/mcoot/gobang-online/internal/config"
	"github.com/mcoot/gobang-online/internal/factory"
	"github.com/mcoot/gobang-online/internal/services/auth"
	"github.com/mcoot/gobang-online/internal/web/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (env: "+config.EnvConfigPath+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	authCfg := auth.DefaultConfig()
	authCfg.SessionTimeout = cfg.Session.IdleTimeout

	// Create application factory
	app, err := factory.New(factory.Config{
		AuthConfig:     authCfg,
		Logger:         logger,
		StorageType:    cfg.Storage.Type,
		RedisConfig:    &cfg.Storage.Redis,
		PostgresConfig: &cfg.Storage.Postgres,
		DenyList:       cfg.Chat.DenyList,
		SecureCookie:   cfg.Session.SecureCookie,
		CheckOrigin:    ws.OriginChecker(cfg.Web.AllowedOrigins),
	})
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if _, err := os.Stat(cfg.Web.Root); err != nil {
		logger.Warn("web root not found, static files will 404",
			slog.String("web_root", cfg.Web.Root),
			slog.String("error", err.Error()))
	}

	server := api.NewServer(app.Handler(cfg.Web.Root), cfg.APIServerConfig(), logger)
	server.OnShutdown(app.Hub.Close)
	if err := server.Listen(); err != nil {
		logger.Error("failed to listen", slog.String("error", err.Error()))
		_ = app.Close()
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type))

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	if err := app.Close(); err != nil {
		logger.Error("failed to close application", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	os.Exit(exitCode)
}

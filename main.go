package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain/recommend"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/cache"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/config"
	"github.com/aayushkdev/vellorun-backend/internal/routes"
	"github.com/aayushkdev/vellorun-backend/internal/server"
	"github.com/aayushkdev/vellorun-backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), zap.String("service", cfg.Observability.ServiceName)); err != nil {
		return err
	}
	zlog := logger.Log
	defer func() { _ = zlog.Sync() }()

	// Initialize observability
	otelShutdown, err := server.InitObservability(cfg.Observability, zlog)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			zlog.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	ctx := context.Background()

	// Create server
	srv, err := server.New(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer srv.Close()

	completer, err := recommend.NewCompleter(ctx, cfg.Recommender, zlog)
	if err != nil {
		return err
	}

	// Setup router
	router := server.SetupRouter(routes.Dependencies{
		Pool:      srv.GetDBPool(),
		Config:    cfg,
		Cache:     cache.NewCacheManager(cfg.CacheTTL, zlog),
		Completer: completer,
		Logger:    zlog,
	})
	srv.SetRouter(router)

	// Start pprof server (on separate port, not exposed publicly)
	pprofServer := server.StartPprofServer(cfg.Observability.PprofAddr, zlog)

	// Create HTTP server
	httpServer := srv.HTTPServer()

	// Setup graceful shutdown
	done := make(chan struct{})
	go server.GracefulShutdown(zlog, done, httpServer, pprofServer)

	// Start server
	zlog.Info("Server starting", zap.String("port", cfg.ServerPort))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Error("Server error", zap.Error(err))
		return err
	}

	// Wait for graceful shutdown to complete
	<-done
	zlog.Info("Graceful shutdown complete")

	return nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/renderstack/pdfserve/internal/api"
	"github.com/renderstack/pdfserve/internal/config"
	"github.com/renderstack/pdfserve/internal/storage"
)

// setupLogger initializes structured logging for the service
func setupLogger() *slog.Logger {
	var handler slog.Handler

	if os.Getenv("ENV") == "production" {
		// JSON handler for production environment
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		// Text handler for development with readable timestamps
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					t := a.Value.Time()
					return slog.String("time", t.Format(time.DateTime))
				}
				return a
			},
		})
	}

	return slog.New(handler)
}

func main() {
	logger := setupLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	mode := "local"
	if cfg.RemoteDebugAddr != "" {
		mode = "remote"
	}
	slog.Info("PDF render service starting",
		"server_port", cfg.ServerPort,
		"mode", mode,
		"chromium", cfg.ChromiumPath)

	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		slog.Error("failed to initialize artifact store", "error", err)
		os.Exit(1)
	}

	// Redis cache is optional: the service runs uncached without it
	var cache *storage.RenderCache
	if cfg.RedisAddr != "" {
		cache, err = storage.NewRenderCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			slog.Warn("Redis unavailable, rendering uncached", "addr", cfg.RedisAddr, "error", err)
			cache = nil
		} else {
			defer cache.Close()
			slog.Info("render cache connected", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	handlers := api.NewHandlers(cfg, store, cache)
	server := api.NewServer(cfg.ServerPort, handlers)

	// Run the server in the background so we can wait for signals
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown initiated", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dstilesr/mini-chats/internal/adapter/httpserver"
	"github.com/dstilesr/mini-chats/internal/adapter/metrics"
	"github.com/dstilesr/mini-chats/internal/adapter/websocket"
	"github.com/dstilesr/mini-chats/internal/dispatch"
	"github.com/dstilesr/mini-chats/internal/platform/config"
	"github.com/dstilesr/mini-chats/internal/platform/logging"
	"github.com/dstilesr/mini-chats/internal/platform/version"
	"github.com/jonboulle/clockwork"
)

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, dispatcher *dispatch.Dispatcher) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Closes every mailbox; connection writers send a close frame and exit.
		dispatcher.Stop()

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	registry := metrics.NewRegistry()

	dispatcher := dispatch.NewDispatcher(cfg.DeliveryBuffer, clock, metrics.NewDispatcherMetrics(registry))

	wsHandler := websocket.NewHandler(dispatcher, clock, metrics.NewWebSocketMetrics(registry), websocket.Options{
		MaxMessageSize: cfg.MaxMessageSize,
		MessageRate:    cfg.MessageRate,
		MessageBurst:   cfg.MessageBurst,
		CheckOrigin:    websocket.NewCheckOrigin(cfg.AllowedOrigin, cfg.IsDevelopment()),
	})

	srv := httpserver.NewServer(cfg, clock, wsHandler, registry, httpserver.RelayHealthChecks(dispatcher))

	done := runGracefulShutdown(cfg, srv, dispatcher)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		dispatcher.Stop()
		os.Exit(1)
	}

	<-done
	slog.Info("Server stopped")
}

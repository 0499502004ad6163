package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatdesk/internal/config"
	"chatdesk/internal/relay"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := relay.NewHub(logger)
	defer hub.Close()

	if strings.TrimSpace(cfg.RelayRedisURL) != "" {
		source, err := relay.NewRedisSource(cfg.RelayRedisURL, cfg.RelayRedisChannel, hub, logger)
		if err != nil {
			logger.Error("redis source setup failed", "error", err)
			os.Exit(1)
		}
		defer source.Close()
		go func() {
			if err := source.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("redis source stopped", "error", err)
			}
		}()
	}

	if strings.TrimSpace(cfg.RelayAMQPURL) != "" {
		source, err := relay.NewAMQPSource(cfg.RelayAMQPURL, cfg.RelayAMQPQueue, hub, logger)
		if err != nil {
			logger.Error("amqp source setup failed", "error", err)
			os.Exit(1)
		}
		defer source.Close()
		go func() {
			if err := source.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("amqp source stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.RelayAddr,
		Handler:           relay.NewServer(hub, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("relay listening", "addr", cfg.RelayAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("relay server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

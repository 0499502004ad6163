package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatdesk/internal/app"
	"chatdesk/internal/config"
	"chatdesk/internal/export"
	"chatdesk/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	alAzhar, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer alAzhar.Close()

	// Lestari gets its own pool only when configured; otherwise its
	// queries fall through to the al-azhar pool.
	lestari := alAzhar
	if strings.TrimSpace(cfg.LestariDBURL) != "" {
		lestari, err = store.Open(ctx, cfg.LestariDBURL)
		if err != nil {
			log.Fatalf("lestari database connection failed: %v", err)
		}
		defer lestari.Close()
	}

	dataStore := store.NewPostgresStore(store.NewTenants(alAzhar, lestari))

	var service *app.Service
	if strings.TrimSpace(cfg.ArchiveEndpoint) != "" {
		archiver, err := export.NewArchiver(cfg.ArchiveEndpoint, cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, cfg.ArchiveBucket, cfg.ArchiveUseSSL)
		if err != nil {
			log.Fatalf("export archive setup failed: %v", err)
		}
		log.Printf("Mirroring exports to %s/%s", cfg.ArchiveEndpoint, cfg.ArchiveBucket)
		service = app.NewWithArchiver(cfg, dataStore, archiver)
	} else {
		service = app.New(cfg, dataStore)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Chatdesk API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

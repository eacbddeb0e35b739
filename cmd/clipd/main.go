package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lillie/clipd/internal/config"
	"github.com/lillie/clipd/internal/media"
	"github.com/lillie/clipd/internal/middleware"
	"github.com/lillie/clipd/internal/notify"
	"github.com/lillie/clipd/internal/routes"
	"github.com/lillie/clipd/internal/server"
	"github.com/lillie/clipd/internal/services"
	"github.com/lillie/clipd/internal/store"
	"github.com/lillie/clipd/internal/util"
)

func main() {
	godotenv.Load()
	config.Load()

	util.CheckDependencies()
	util.EnsureDataDirs()
	util.ClearStagingDir()
	util.StartStagingCleanup()
	middleware.StartRateLimitCleanup()

	st, err := store.Open(config.DSN)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	registry := services.NewRegistry()
	registry.StartExpiry(config.JobTTL)

	pipeline := &services.Pipeline{
		Store:        st,
		Prober:       media.FFProber{},
		Engine:       media.Engine{},
		Registry:     registry,
		Notifier:     notify.NewDispatcher(config.WebhookURL),
		ProcessedDir: config.ProcessedDir,
		ThumbnailDir: config.ThumbnailDir,
		BaseURL:      config.BaseURL,
	}

	srv := server.New(&routes.Deps{Pipeline: pipeline, Registry: registry})

	server.PrintBanner()
	go func() {
		log.Printf("Listening on :%s", config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped.")
}

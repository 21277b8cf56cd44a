package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/colenew1/Upload-BPO/config"
	"github.com/colenew1/Upload-BPO/database"
	"github.com/colenew1/Upload-BPO/server"
)

func main() {
	log.Println("Starting coaching/KPI upload server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogger(cfg.LogLevel)

	// Папка для базы должна существовать до открытия
	if dir := filepath.Dir(cfg.ServiceDatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory %s: %v", dir, err)
		}
	}

	serviceDB, err := database.NewServiceDB(cfg.ServiceDatabasePath, database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to open service database: %v", err)
	}
	defer serviceDB.Close()

	// Фоновая чистка истекших превью-сессий
	stopPurge := make(chan struct{})
	go purgeLoop(serviceDB, stopPurge)

	router := server.NewRouter(cfg, serviceDB)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	close(stopPurge)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// setupLogger настраивает глобальный slog по уровню из конфигурации
func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

// purgeLoop периодически вычищает истекшие превью-сессии
func purgeLoop(serviceDB *database.ServiceDB, stop <-chan struct{}) {
	logger := slog.Default().With("component", "preview_purge")
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			purged, err := serviceDB.PurgeExpiredPreviews(context.Background())
			if err != nil {
				logger.Warn("Failed to purge expired previews", "error", err)
				continue
			}
			if purged > 0 {
				logger.Info("Purged expired preview sessions", "count", purged)
			}
		}
	}
}

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
	"time"

	"github.com/aman-churiwal/gatekeeper/internal/config"
	"github.com/aman-churiwal/gatekeeper/internal/ratelimit"
	"github.com/aman-churiwal/gatekeeper/internal/repository"
	"github.com/aman-churiwal/gatekeeper/internal/server"
	"github.com/aman-churiwal/gatekeeper/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	// Load env if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.json"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	postgres, err := storage.NewPostgres(cfg.Database.URL, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer postgres.Close()

	if err := postgres.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Connected to database successfully")

	checks := map[string]server.Pinger{"database": postgres}

	// Rejection counters go to Redis when it is configured, memory otherwise
	var recorder ratelimit.Recorder = ratelimit.NewMemoryRecorder()
	if cfg.Redis.Addr != "" {
		redis, err := storage.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()

		redisRecorder := ratelimit.NewRedisRecorder(redis, 4096, 5*time.Second)
		defer redisRecorder.Stop()

		recorder = redisRecorder
		checks["redis"] = redis
		log.Println("Connected to redis successfully")
	}

	srv, err := server.New(cfg, server.Deps{
		Users:    repository.NewUserRepository(postgres),
		Recorder: recorder,
		Logger:   logger,
		Checks:   checks,
	})
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}
	srv.StartSweeper()

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/nuwe/site-forms/internal/api"
	"github.com/nuwe/site-forms/internal/config"
	"github.com/nuwe/site-forms/internal/notify"
	"github.com/nuwe/site-forms/internal/pkg/distlock"
	"github.com/nuwe/site-forms/internal/pkg/logger"
	"github.com/nuwe/site-forms/internal/repository/postgres"
	"github.com/nuwe/site-forms/internal/submission"
)

// lockTTL bounds how long a crashed request can hold a newsletter address.
const lockTTL = 10 * time.Second

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	// Configuration is read exactly once.
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCloser := logger.Configure(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := connectRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	notifier, err := notify.New(ctx, cfg.Mail)
	if err != nil {
		logger.Error("mail provider setup failed", "error", err)
		os.Exit(1)
	}
	if !cfg.Mail.Enabled() {
		logger.Warn("AWS SES credentials not set; contact notifications will be skipped")
	}

	server := api.NewServer(cfg, api.Deps{
		Contacts:   submission.NewContactService(postgres.NewContactRepo(db), notifier),
		Newsletter: submission.NewNewsletterService(postgres.NewNewsletterRepo(db), newsletterLocker(redisClient)),
		DB:         db,
		Redis:      redisClient,
	})

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := server.Addr()
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		// Keep serving; requests fail with 500 and readiness reports it.
		logger.Warn("database ping failed", "error", err)
	}
	return db, nil
}

// newsletterLocker returns nil without Redis; the unique index on
// newsletter_subscriptions.email then settles concurrent subscriptions alone.
func newsletterLocker(redisClient *redis.Client) submission.KeyLocker {
	if redisClient == nil {
		return nil
	}
	return distlock.NewLocker(redisClient, lockTTL)
}

// connectRedis returns nil when Redis is not configured or unreachable, in
// which case newsletter subscriptions run without the per-address lock.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Info("redis not configured, newsletter lock disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, newsletter lock disabled", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"

	"ward-status-backend/config"
	"ward-status-backend/internal/api"
	"ward-status-backend/internal/cache"
	"ward-status-backend/internal/db"
	"ward-status-backend/internal/logger"
	"ward-status-backend/internal/metrics"
	"ward-status-backend/internal/notification"
	"ward-status-backend/internal/parse"
	"ward-status-backend/internal/store"
	"ward-status-backend/internal/sweeper"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format, "wardd")
	log.WithField("path", configPath).Info("configuration loaded")

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	log.WithField("driver", cfg.Database.Driver).Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	m := metrics.New()

	var webpushOptions *webpush.Options
	var notifier api.Dispatcher
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, m)
		pool.Start(ctx)
		notifier = pool
	} else {
		log.Warn("VAPID keys not configured; push notifications are disabled")
	}

	if err := seedBeds(ctx, appStore, cfg.Seed.Beds, notifier); err != nil {
		log.Fatalf("failed to seed beds: %v", err)
	}

	sweeperSvc := sweeper.NewService(cfg.Sweeper, appStore, m)
	go sweeperSvc.Run(ctx)

	readCache := cache.New(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	router := api.NewRouter(cfg.Server, appStore, readCache, notifier, webpushOptions, m)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Info("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server Shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}

// seedBeds creates the configured beds that do not exist yet. Unparseable codes are skipped.
func seedBeds(ctx context.Context, s store.Store, codes []string, notifier api.Dispatcher) error {
	if len(codes) == 0 {
		return nil
	}
	parsed, errs := parse.ParseBedCodes(codes)
	for _, err := range errs {
		log.WithError(err).Warn("skipping seed bed")
	}

	created, err := s.UpsertBeds(ctx, parsed)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"configured": len(codes), "created": len(created)}).Info("beds seeded")

	if notifier != nil {
		for _, bed := range created {
			notifier.Dispatch(bed.ID)
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/evanlinks/shortlink/config"
	apprepository "github.com/evanlinks/shortlink/internal/app/repository"
	appserver "github.com/evanlinks/shortlink/internal/app/server"
	appservice "github.com/evanlinks/shortlink/internal/app/service"
	"github.com/evanlinks/shortlink/internal/infra/logger"
	infraNATS "github.com/evanlinks/shortlink/internal/infra/nats"
	infraPrometheus "github.com/evanlinks/shortlink/internal/infra/prometheus"
	infraRedis "github.com/evanlinks/shortlink/internal/infra/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("base_domain", cfg.App.BaseDomain),
		zap.Int("server_port", cfg.Server.Port),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	// Redis is the persistence slot; without it the service still runs,
	// holding links in memory only.
	var kv apprepository.KV
	var redisClient *goredis.Client
	redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, links will not survive restarts", zap.Error(err))
		kv = apprepository.NewMemoryKV()
		redisClient = nil
	} else {
		defer redisClient.Close()
		kv = apprepository.NewRedisKV(redisClient)
		log.Info("Connected to Redis successfully")
	}

	linkStore, err := apprepository.NewLinkStore(ctx, kv, log)
	if err != nil {
		log.Fatal("Failed to load link store", zap.Error(err))
	}
	prefStore := apprepository.NewPrefStore(kv)

	linkService, err := appservice.NewLinkService(ctx, linkStore, log, appservice.Options{
		BaseDomain:  cfg.App.BaseDomain,
		CreateDelay: time.Duration(cfg.App.CreateDelayMS) * time.Millisecond,
	})
	if err != nil {
		log.Fatal("Failed to build link service", zap.Error(err))
	}

	// The click pipeline needs both NATS (transport) and Redis (counter);
	// clicks on records are still counted synchronously without it.
	var clickPublisher *appservice.ClickPublisher
	var clickCounter apprepository.ClickCounter
	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Warn("NATS unavailable, click events disabled", zap.Error(err))
	} else {
		defer natsConn.Drain()
		clickPublisher = appservice.NewClickPublisher(js)
		log.Info("Connected to NATS successfully")

		if redisClient != nil {
			clickCounter = apprepository.NewClickCounter(redisClient)
			consumer := appservice.NewClickConsumer(js, log, clickCounter)
			if err := consumer.Start(); err != nil {
				log.Error("Failed to start click consumer", zap.Error(err))
			}
		}
	}

	statsService := appservice.NewStatsService(linkService, clickCounter, log)

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	srv := appserver.New(appserver.Dependencies{
		Logger:              log,
		Redis:               redisClient,
		Links:               linkService,
		Stats:               statsService,
		Prefs:               prefStore,
		ClickPublisher:      clickPublisher,
		InterstitialSeconds: cfg.App.InterstitialSeconds,
	})

	if err := srv.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clothstock/config"
	"clothstock/engine"
	"clothstock/logging"
	"clothstock/messaging"
	"clothstock/metrics"
	"clothstock/stockcache"
	"clothstock/store"
	"clothstock/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "clothstock.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if *showVersion {
		fmt.Println("clothstock", Version)
		return
	}

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envPath, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	log.Info("database open", zap.String("driver", cfg.Database.Driver))

	m := metrics.New()

	// Stock cache
	opts := www.Options{Logger: log, Metrics: m}
	var redisCache *stockcache.RedisStore
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis not available, running without cache", zap.String("addr", cfg.Redis.Address), zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Redis.Address))
			redisCache = stockcache.NewRedisStore(client, cfg.Redis.StockTTL)
			opts.Cache = redisCache
		}
	}
	stock := stockcache.NewManager(db, redisCache, log)
	if err := stock.SyncFromSQL(ctx); err != nil {
		log.Warn("redis sync from SQL", zap.Error(err))
	}

	// Messaging
	var drainer *messaging.OutboxDrainer
	if cfg.MessagingEnabled() {
		msgClient := messaging.NewClient(&cfg.Messaging, log)
		if err := msgClient.Connect(ctx); err != nil {
			log.Warn("messaging connect failed, movements stay queued", zap.String("backend", cfg.Messaging.Backend), zap.Error(err))
		} else {
			log.Info("messaging connected", zap.String("backend", cfg.Messaging.Backend))
		}
		defer msgClient.Close()
		drainer = messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval, cfg.Messaging.OutboxBatchSize, log)
		opts.Messaging = msgClient
	}

	// Engine
	eng := engine.New(engine.Config{
		AppConfig: cfg,
		DB:        db,
		Stock:     stock,
		Outbox:    drainer,
		Metrics:   m,
		Logger:    log,
	})
	eng.Start(ctx)

	// Web server
	handler, stopWeb := www.NewRouter(eng, opts)
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("web server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("web server", zap.Error(err))
		}
	}()

	log.Info("ready", zap.String("version", Version))
	<-ctx.Done()

	log.Info("shutting down")
	stopWeb()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"address-validator/internal/activitylog"
	"address-validator/internal/address"
	"address-validator/internal/auth"
	"address-validator/internal/config"
	"address-validator/internal/locality"
	"address-validator/internal/metrics"
	"address-validator/internal/state"
	"address-validator/pkg/logger"
	"address-validator/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New("address_validator")

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	} else {
		log.Warn("redis disabled: no lookup cache, no rate limiting, session state in memory")
	}

	store, err := openActivityStore(rootCtx, cfg, log)
	if err != nil {
		log.Error("activity store init failed", "store", cfg.Activity.Store, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	activity := activitylog.NewService(store.Repo)
	recorder := activitylog.NewRecorder(activity,
		activitylog.WithBufferSize(cfg.Activity.BufferSize),
		activitylog.WithDrainTimeout(cfg.Activity.DrainTimeout),
		activitylog.WithLogger(log),
		activitylog.WithObserver(m),
	)

	if !cfg.Locality.Configured() {
		log.Warn("Australia Post API credentials missing; lookups will fail until configured")
	}
	var lookup locality.Lookuper = locality.New(cfg.Locality.APIURL, cfg.Locality.Token,
		locality.WithTimeout(cfg.Locality.Timeout),
		locality.WithObserver(m),
	)

	var states state.Store = state.NewMemoryStore()
	if rdb != nil {
		lookup = locality.NewCachedClient(lookup, locality.NewRedisCache(rdb), cfg.Locality.CacheTTL, log, m)
		states = state.NewRedisStore(rdb, cfg.State.TTL)
	}

	var authManager *auth.Manager
	if cfg.Auth.Enabled() {
		authManager, err = auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Warn("operator auth disabled: GET /logs is open")
	}

	deps := routeDeps{
		cfg:     cfg,
		metrics: m,
		auth:    authManager,
		ready:   store.Ready,
	}
	if rdb != nil {
		deps.limiter = newLimiter(rdb, cfg.RateLimit.PerMinute)
	}

	h := handlersFor(cfg, lookup, address.NewService(lookup, recorder, m, log), activity, states)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(m.Middleware())

	registerRoutes(r, h, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "activity_store", cfg.Activity.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Requests are done; flush activity still queued for the store.
	recorder.Close()
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"inigma/internal/app"
	"inigma/internal/config"
	"inigma/internal/ratelimit"
	"inigma/internal/secret"
	"inigma/internal/store"
	"inigma/internal/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	sugar := logger.Sugar()
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, rdb, err := newStore(ctx, cfg)
	if err != nil {
		sugar.Fatalw("failed to initialize store", "store", cfg.Store, "error", err)
	}
	defer st.Close()

	// the limiter shares the redis connection when there is one, so a
	// multi-instance deployment counts requests globally
	var counters ratelimit.CounterStore
	if rdb != nil {
		counters = ratelimit.NewRedisCounterStore(rdb)
	} else {
		counters = ratelimit.NewMemoryCounterStore()
	}
	limiter := ratelimit.New(counters, cfg.Rules(), cfg.FallbackRule(), sugar)

	svc := secret.NewService(st, sugar, secret.Options{
		RequireViewerUID: cfg.RequireViewerUID,
	})

	sweeper := sweep.New(st, sugar, time.Duration(cfg.RetentionDays)*24*time.Hour)
	go sweeper.Run(ctx, cfg.SweepInterval)

	router := app.NewRouter(app.NewHandler(svc, sugar), app.NewRateLimitGate(limiter), sugar)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("starting server", "addr", srv.Addr, "store", cfg.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sugar.Infow("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("shutdown failed", "error", err)
	}
}

// newStore builds the configured store backend. The redis client is also
// returned when one was opened so the rate limiter can reuse it.
func newStore(ctx context.Context, cfg config.Config) (store.Store, *redis.Client, error) {
	switch cfg.Store {
	case config.StoreRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		return store.NewRedisStore(rdb), rdb, nil
	case config.StoreSQL:
		st, err := store.NewSQLStore(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	default:
		return store.NewMemoryStore(), nil, nil
	}
}

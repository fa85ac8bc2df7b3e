package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/garbagewatch/internal/auth"
	"github.com/geocoder89/garbagewatch/internal/cache"
	"github.com/geocoder89/garbagewatch/internal/config"
	"github.com/geocoder89/garbagewatch/internal/db"
	httpx "github.com/geocoder89/garbagewatch/internal/http"
	"github.com/geocoder89/garbagewatch/internal/http/handlers"
	"github.com/geocoder89/garbagewatch/internal/observability"
	"github.com/geocoder89/garbagewatch/internal/ratelimit"
	"github.com/geocoder89/garbagewatch/internal/repo"
	"github.com/geocoder89/garbagewatch/internal/repo/memory"
	"github.com/geocoder89/garbagewatch/internal/repo/postgres"
	"github.com/geocoder89/garbagewatch/internal/service/accounts"
	"github.com/geocoder89/garbagewatch/internal/service/reports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Check{}

	var (
		usersRepo   repo.Users
		reportsRepo repo.Reports
	)

	// wire up repositories
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		usersRepo = memory.NewUsersRepo(store)
		reportsRepo = memory.NewReportsRepo(store)

	default:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := db.NewMigrator(pool, log).Up(ctx); err != nil {
				return err
			}
		}

		usersRepo = postgres.NewUsersRepo(pool, prom)
		reportsRepo = postgres.NewReportsRepo(pool, prom)
		checks["db"] = pool.Ping
	}

	if err := db.EnsureAdminUser(ctx, usersRepo, cfg); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	var (
		authLimiter  ratelimit.Limiter = ratelimit.NewWindow(cfg.AuthRateLimit, cfg.AuthRateWindow)
		writeLimiter ratelimit.Limiter = ratelimit.NewWindow(cfg.WriteRateLimit, cfg.WriteRateWindow)
	)

	if cfg.RedisAddr != "" {
		rl, err := ratelimit.NewRedis(ctx, ratelimit.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.AuthRateLimit, cfg.AuthRateWindow, log)

		if err != nil {
			log.Warn("redis unavailable, rate limiting per instance", "addr", cfg.RedisAddr, "err", err)
		} else {
			defer rl.Close()
			authLimiter = rl
			writeLimiter = rl.WithLimit("writes", cfg.WriteRateLimit, cfg.WriteRateWindow)
			checks["redis"] = rl.Ping
		}
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	// per instance; LIST_CACHE_TTL=0 turns it off when replicas share a database
	var listCache *cache.Cache
	if cfg.ListCacheTTL > 0 {
		listCache = cache.New(cfg.ListCacheTTL)
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:          log,
		Config:       cfg,
		Prom:         prom,
		Gatherer:     reg,
		Accounts:     accounts.New(usersRepo, tokens, log),
		Reports:      reports.New(reportsRepo, listCache, prom, log),
		Tokens:       tokens,
		Users:        usersRepo,
		AuthLimiter:  authLimiter,
		WriteLimiter: writeLimiter,
		Checks:       checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

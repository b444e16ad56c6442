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

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	authHandler "bonds/internal/auth/handler"
	authService "bonds/internal/auth/service"
	"bonds/internal/auth/store/account"
	"bonds/internal/auth/store/token"
	bondHandler "bonds/internal/bond/handler"
	bondMetrics "bonds/internal/bond/metrics"
	bondService "bonds/internal/bond/service"
	bondStore "bonds/internal/bond/store"
	"bonds/internal/lei"
	"bonds/internal/platform/config"
	"bonds/internal/platform/httpserver"
	"bonds/internal/platform/logger"
	"bonds/internal/platform/metrics"
	"bonds/internal/platform/postgres"
	"bonds/internal/platform/redis"
	httptransport "bonds/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bonds: %v\n", err)
		os.Exit(1)
	}
}

// run wires the stores, services and router, serves until SIGINT or SIGTERM
// and then drains in-flight requests.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := cfg.Server.Level()
	if err != nil {
		return err
	}
	log := logger.New(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	accounts, tokens, bonds := buildStores(pool, redisClient, log)

	m := metrics.New()
	auth, err := authService.New(accounts, tokens, authService.WithLogger(log))
	if err != nil {
		return err
	}
	resolver := lei.NewClient(cfg.GLEIF.BaseURL, cfg.GLEIF.Timeout, log)
	bondSvc, err := bondService.New(bonds, resolver,
		bondService.WithLogger(log),
		bondService.WithMetrics(bondMetrics.New(m.Registry())),
		bondService.WithPageSize(cfg.Server.PageSize),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:     log,
		Metrics:    m,
		Tokens:     auth,
		Auth:       authHandler.New(auth, log),
		Bonds:      bondHandler.New(bondSvc, log),
		AdminToken: cfg.Server.AdminToken,
	})
	if cfg.Server.AdminToken == "" {
		log.Warn("BONDS_ADMIN_TOKEN is not set; account provisioning is disabled")
	}

	srv := httpserver.New(cfg.Server.Addr, router, cfg.GLEIF.Timeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting bonds api", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// buildStores picks Postgres when a pool is configured and in-memory stores
// otherwise. Tokens go to Redis whenever it is configured.
func buildStores(pool *pgxpool.Pool, redisClient *redis.Client, log *slog.Logger) (authService.AccountStore, authService.TokenStore, bondService.Store) {
	var (
		accounts authService.AccountStore = account.NewInMemory()
		tokens   authService.TokenStore   = token.NewInMemory()
		bonds    bondService.Store        = bondStore.NewInMemory()
	)
	if pool != nil {
		accounts = account.NewPostgres(pool)
		tokens = token.NewPostgres(pool)
		bonds = bondStore.NewPostgres(pool)
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL is not set; using in-memory stores")
	}
	if redisClient != nil {
		tokens = token.NewRedis(redisClient.Client)
		log.Info("using redis token store")
	}
	return accounts, tokens, bonds
}

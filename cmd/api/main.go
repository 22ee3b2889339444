package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	paymentcontrollers "github.com/angelmondragon/geonmarket-backend/api/controllers/payments"
	"github.com/angelmondragon/geonmarket-backend/api/routes"
	"github.com/angelmondragon/geonmarket-backend/internal/accounts"
	"github.com/angelmondragon/geonmarket-backend/internal/auth"
	"github.com/angelmondragon/geonmarket-backend/internal/cart"
	"github.com/angelmondragon/geonmarket-backend/internal/chat"
	"github.com/angelmondragon/geonmarket-backend/internal/counters"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	"github.com/angelmondragon/geonmarket-backend/internal/listings"
	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/angelmondragon/geonmarket-backend/internal/profiles"
	"github.com/angelmondragon/geonmarket-backend/internal/ranking"
	"github.com/angelmondragon/geonmarket-backend/internal/users"
	"github.com/angelmondragon/geonmarket-backend/pkg/auth/session"
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/env"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
	"github.com/angelmondragon/geonmarket-backend/pkg/metrics"
	"github.com/angelmondragon/geonmarket-backend/pkg/migrate"
	"github.com/angelmondragon/geonmarket-backend/pkg/redis"
	"github.com/angelmondragon/geonmarket-backend/pkg/tosspayments"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	addr := ":" + env.First(cfg.App.Port, "PORT")
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(registry)
	gatewayMetrics := metrics.NewGatewayMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, err
	}

	local, err := localstore.NewRedisStore(redisClient, cfg.LocalStore.TTL)
	if err != nil {
		return routes.Dependencies{}, err
	}
	counterStore, err := counters.NewStore(redisClient)
	if err != nil {
		return routes.Dependencies{}, err
	}

	gdb := dbClient.DB()
	userRepo := users.NewRepository(gdb)
	profileRepo := profiles.NewRepository(gdb)
	listingRepo := listings.NewRepository(gdb)

	rankingService, err := ranking.NewService(listingRepo, counterStore,
		ranking.RandomSeeder(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), cfg.Ranking))
	if err != nil {
		return routes.Dependencies{}, err
	}

	listingService, err := listings.NewService(listings.ServiceParams{
		Tx:       dbClient,
		Repo:     listingRepo,
		Counters: counterStore,
		Counts:   rankingService,
		Local:    local,
		Config:   cfg.Listings,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	accountService, err := accounts.NewService(dbClient, accounts.NewRepository(gdb))
	if err != nil {
		return routes.Dependencies{}, err
	}

	trades, err := ledger.NewLocalTradeLog(local)
	if err != nil {
		return routes.Dependencies{}, err
	}
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Tx:       dbClient,
		Repo:     ledger.NewRepository(gdb),
		Accounts: accountService,
		Trades:   trades,
		Market:   cfg.TokenMarket,
		Metrics:  ledgerMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	cartService, err := cart.NewService(local, tosspayments.Redirects{
		ClientKey:  cfg.Toss.ClientKey,
		SuccessURL: cfg.Toss.SuccessURL,
		FailURL:    cfg.Toss.FailURL,
	}, nil)
	if err != nil {
		return routes.Dependencies{}, err
	}

	chatService, err := chat.NewService(local, listingRepo, profileRepo, nil)
	if err != nil {
		return routes.Dependencies{}, err
	}

	profileService, err := profiles.NewService(profiles.ServiceParams{
		Repo:     profileRepo,
		Users:    userRepo,
		Listings: listingService,
		History:  ledgerService,
		Rooms:    chatService,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Profiles:       profileService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	var gateway paymentcontrollers.Confirmer
	if cfg.Toss.SecretKey != "" {
		client, err := tosspayments.NewClient(cfg.Toss.SecretKey,
			tosspayments.WithBaseURL(cfg.Toss.BaseURL),
			tosspayments.WithHTTPClient(&http.Client{Timeout: cfg.Toss.Timeout}),
		)
		if err != nil {
			return routes.Dependencies{}, err
		}
		gateway = client
	} else {
		logg.Warn(context.Background(), "TOSS_SECRET_KEY not set, payment confirm disabled")
	}

	return routes.Dependencies{
		DB:             dbClient,
		Redis:          redisClient,
		Sessions:       sessionManager,
		Gatherer:       registry,
		Auth:           authService,
		Listings:       listingService,
		Ranking:        rankingService,
		Cart:           cartService,
		Ledger:         ledgerService,
		Profiles:       profileService,
		Accounts:       accountService,
		Chat:           chatService,
		Local:          local,
		Gateway:        gateway,
		GatewayMetrics: gatewayMetrics,
	}, nil
}

// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/config"
	payAdapters "github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/adapters/payment"
	pg "github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/db/postgres"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/logging"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/metrics"
	red "github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/redis"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/sched"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/web"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	subRepo := pg.NewSubscriptionRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	metaRepo := pg.NewMetadataRepo(pool)

	// ---- Payment gateway ----
	gateway, err := payAdapters.NewAirwallexGateway(
		cfg.Gateway.BaseURL, cfg.Gateway.ClientID, cfg.Gateway.APIKey, cfg.Gateway.TokenTTL.Std(),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway")
	}

	// ---- Use cases ----
	bridge := usecase.NewMetadataBridge(metaRepo, logger)
	purchaseUC := usecase.NewPurchaseUseCase(gateway, bridge, planRepo, subRepo, orderRepo, planRepo, logger)
	expiryUC := usecase.NewExpiryUseCase(subRepo, txManager, logger)

	// ---- Background workers ----
	expiryWorker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval.Std(), expiryUC, logger)
	go func() { _ = expiryWorker.Run(ctx) }()

	reconciler := sched.NewPaymentReconciler(
		purchaseUC, bridge, cfg.Scheduler.ReconcileInterval.Std(), cfg.Scheduler.ReconcileStaleAfter.Std(), logger,
	)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Server.AdminJWTSecret, 30*time.Minute)
	srv := web.NewServer(purchaseUC, expiryUC, rateLimiter, auth, cfg.Server.APIKey, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

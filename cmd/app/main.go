// File: cmd/app/main.go
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

	"elearn-entitlements/internal/config"
	pg "elearn-entitlements/internal/infra/db/postgres"
	"elearn-entitlements/internal/infra/i18n"
	"elearn-entitlements/internal/infra/logging"
	"elearn-entitlements/internal/infra/metrics"
	red "elearn-entitlements/internal/infra/redis"
	"elearn-entitlements/internal/infra/sched"
	"elearn-entitlements/internal/infra/web"
	"elearn-entitlements/internal/infra/worker"
	"elearn-entitlements/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed secrets)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	codeRepo := pg.NewCodeRepo(pool)
	redemptionRepo := pg.NewRedemptionRepo(pool)
	accountRepo := pg.NewAccountRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	entitlementRepo := pg.NewEntitlementRepo(pool)

	// ---- Entitlement cache with async fan-out ----
	cachePool := worker.NewPool(cfg.Worker.CacheWorkers)
	cachePool.Start(ctx)
	defer cachePool.Stop()
	entCache := worker.NewAsyncCache(red.NewEntitlementCache(redisClient, cfg.Redis.TTL), cachePool, logger)

	// ---- Use cases ----
	accountUC := usecase.NewAccountUseCase(accountRepo, txManager, logger)
	validatorUC := usecase.NewValidatorUseCase(codeRepo, redemptionRepo, logger)
	entitlementUC := usecase.NewEntitlementUseCase(accountRepo, codeRepo, redemptionRepo, planRepo, purchaseRepo, entitlementRepo, entCache, txManager, logger)
	redemptionUC := usecase.NewRedemptionUseCase(validatorUC, redemptionRepo, entitlementUC, entCache, txManager, logger)
	codeAdminUC := usecase.NewCodeAdminUseCase(codeRepo, redemptionRepo, entitlementUC, entCache, entitlementRepo, txManager, logger)
	planUC := usecase.NewPlanUseCase(planRepo)

	// ---- HTTP server ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	authSecret := cfg.Server.AuthSecret
	if authSecret == "" {
		logger.Warn().Msg("server.auth_secret not set; using dev secret (INSECURE)")
		authSecret = "dev-only-secret"
	}
	auth := web.NewAuthManager(authSecret, !cfg.Runtime.Dev, "", cfg.Server.SessionTTL)
	srv := web.NewServer(accountUC, validatorUC, redemptionUC, entitlementUC, codeAdminUC, planUC,
		auth, cfg.Server.AdminAPIKey, cfg.Billing.WebhookSecret, translator, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Routes(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Expiry sweep ----
	sweeper := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, entitlementUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/voxhive/backoffice/internal/adapter/api"
	"github.com/voxhive/backoffice/internal/adapter/api/middleware"
	"github.com/voxhive/backoffice/internal/adapter/jwks"
	"github.com/voxhive/backoffice/internal/adapter/metrics"
	"github.com/voxhive/backoffice/internal/adapter/pii"
	kafkaqueue "github.com/voxhive/backoffice/internal/adapter/queue/kafka"
	"github.com/voxhive/backoffice/internal/adapter/repository/postgres"
	redisrepo "github.com/voxhive/backoffice/internal/adapter/repository/redis"
	"github.com/voxhive/backoffice/internal/adapter/tenantmgmt"
	"github.com/voxhive/backoffice/internal/pkg/config"
	"github.com/voxhive/backoffice/internal/pkg/logger"
	"github.com/voxhive/backoffice/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewAuthMetrics()

	// --- Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// --- Verification Pipeline ---
	resolver := jwks.NewResolver(cfg.JWKSURL, cfg.JWKSTimeout, logger, m)
	verifier := usecase.NewTokenVerifier(resolver, cfg.Audience, cfg.ClockSkew, logger, m)
	contextCache := usecase.NewContextCache(verifier, cfg.ContextTTL, cfg.NegativeTTL, m)

	// --- Usage, Audit, Token Issuance ---
	usageRepo := redisrepo.NewUsageRepository(redisClient, logger, cfg.UsageTTL)
	auditRepo := postgres.NewAuditRepository(db, logger)
	redactor := pii.NewRedactor(strings.Split(cfg.AuditRedactedFields, ","), logger)
	usageService := usecase.NewUsageService(usageRepo, auditRepo, redactor, cfg.UsageTTL, logger, m)

	go usageService.StartRetentionSweep(ctx, cfg.AuditRetention, time.Hour)

	tokenCache := redisrepo.NewTokenCache(redisClient, logger)
	tmClient := tenantmgmt.NewClient(cfg.TenantTokenURL, cfg.TenantClientID, cfg.TenantClientSecret, cfg.TokenFetchTimeout, tokenCache, logger)

	// --- Campaign Launch Queue ---
	campaignQueue := kafkaqueue.NewCampaignPublisher(cfg.KafkaBrokers, cfg.KafkaCampaignTopic, logger)
	defer campaignQueue.Close()

	// --- HTTP Router ---
	defaultLimits, err := config.ParseLimits(cfg.DefaultLimits)
	if err != nil {
		logger.Error("failed to parse default limits", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterDeps{
		Logger:   logger,
		Metrics:  m,
		Resolver: contextCache,
		TenantConfig: middleware.TenantContextConfig{
			SkipPaths:       cfg.SkipPaths,
			DefaultTenantID: cfg.DefaultTenantID,
			DefaultLimits:   defaultLimits,
			Elevated:        middleware.AdminKeyElevation(cfg.AdminKey),
		},
		PlanMatcher:   middleware.NewPlanMatcher(cfg.PlanRanking),
		Usage:         usageService,
		TenantMgmt:    tmClient,
		CampaignQueue: campaignQueue,
		ValidateCreds: cfg.ValidateClientCred,
	})

	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		logger.Info("starting api server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}

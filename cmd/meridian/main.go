package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/projects"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/vendors"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/treasury"
	"github.com/meridian-erp/meridian-erp/jobs"
)

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	registry := policy.NewRegistry()
	registry.OnDenial(func(doc policy.DocType, action policy.Action) {
		metrics.PolicyDenial(string(doc), string(action))
	})

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	vendorRepo := vendors.NewRepository(dbpool)
	vendorService := vendors.NewService(vendorRepo, registry, auditLogger, logger)
	vendorHandler := vendors.NewHandler(logger, vendorService, rbacMiddleware)

	projectRepo := projects.NewRepository(dbpool)
	projectService := projects.NewService(projectRepo, registry, auditLogger, logger)
	projectHandler := projects.NewHandler(logger, projectService, rbacMiddleware)

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(procurementRepo, registry, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware)

	invoiceRepo := ap.NewRepository(dbpool)
	invoiceService := ap.NewService(invoiceRepo, registry, auditLogger)
	invoiceHandler := ap.NewHandler(logger, invoiceService, rbacMiddleware)

	treasuryRepo := treasury.NewRepository(dbpool)
	requisitionService := treasury.NewRequisitionService(treasuryRepo, registry, auditLogger, approvalRecorder)
	requisitionHandler := treasury.NewRequisitionHandler(logger, requisitionService, rbacMiddleware)
	disbursementService := treasury.NewDisbursementService(treasuryRepo, registry, auditLogger, invoiceService, idempotencyStore)
	disbursementHandler := treasury.NewDisbursementHandler(logger, disbursementService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		RBACMiddleware:      rbacMiddleware,
		AuthHandler:         authHandler,
		RBACHandler:         rbacHandler,
		VendorsHandler:      vendorHandler,
		ProjectsHandler:     projectHandler,
		ProcurementHandler:  procurementHandler,
		InvoicesHandler:     invoiceHandler,
		RequisitionHandler:  requisitionHandler,
		DisbursementHandler: disbursementHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
		ReadyChecks: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    redisPinger{client: redisClient},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

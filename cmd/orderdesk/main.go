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

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/orderdesk/internal/app"
	"github.com/odyssey-erp/orderdesk/internal/observability"
	"github.com/odyssey-erp/orderdesk/internal/ordernumber"
	"github.com/odyssey-erp/orderdesk/internal/orders"
	"github.com/odyssey-erp/orderdesk/internal/platform/cache"
	"github.com/odyssey-erp/orderdesk/internal/platform/db"
	"github.com/odyssey-erp/orderdesk/internal/shared"
	"github.com/odyssey-erp/orderdesk/internal/stockledger"
	"github.com/odyssey-erp/orderdesk/jobs"
)

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
	metrics := observability.NewMetrics()

	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	}

	var redisClient *redis.Client
	if cfg.CounterBackend == app.BackendRedis {
		redisClient, err = cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	store, err := app.OpenCounterStore(cfg, app.Backends{Pool: pool, Redis: redisClient})
	if err != nil {
		logger.Error("open counter store", slog.Any("error", err))
		os.Exit(1)
	}
	generator := ordernumber.NewGenerator(store, ordernumber.GeneratorConfig{Observer: metrics})
	defer func() {
		if err := generator.Close(); err != nil {
			logger.Warn("close counter store", slog.Any("error", err))
		}
	}()
	logger.Info("order number counters ready", slog.String("backend", cfg.CounterBackend))

	reconcilerCfg := stockledger.ReconcilerConfig{Logger: logger, Observer: metrics}
	if cfg.NATSURL != "" {
		publisher, err := stockledger.NewNATSPublisher(cfg.NATSURL, cfg.DriftSubject)
		if err != nil {
			logger.Warn("nats unavailable, drift events will only be logged", slog.Any("error", err))
		} else {
			defer app.CloseQuietly(logger, "nats", publisher)
			reconcilerCfg.Publisher = publisher
		}
	}
	var auditor shared.AuditPort = shared.SlogAuditor{Logger: logger}
	var orderRepo orders.Repository = orders.NewMemoryRepository()
	var idempotency shared.IdempotencyPort = shared.NewMemoryIdempotencyStore()
	if pool != nil {
		idempotency = shared.NewIdempotencyStore(pool)
		reconcilerCfg.Journal = stockledger.NewPostgresJournal(pool)
		auditor = shared.NewAuditLogger(pool)
		orderRepo = orders.NewRepository(pool)
	}
	reconciler := stockledger.NewReconciler(stockledger.NewLedger(), reconcilerCfg)

	orderService := orders.NewService(orderRepo, generator, reconciler)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer app.CloseQuietly(logger, "asynq client", jobClient)
	inspector := asynq.NewInspector(redisOpts)
	defer app.CloseQuietly(logger, "asynq inspector", inspector)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		OrderNumberHandler: ordernumber.NewHandler(logger, generator, auditor),
		StockHandler:       stockledger.NewHandler(logger, reconciler, auditor),
		OrdersHandler:      orders.NewHandler(logger, orderService, idempotency),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
		AdminGuard:         shared.NewAdminGuard(cfg.AdminToken, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

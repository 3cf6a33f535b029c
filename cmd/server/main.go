package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/config"
	"github.com/hmiyata/battrack/internal/repository"
	"github.com/hmiyata/battrack/internal/repository/memory"
	"github.com/hmiyata/battrack/internal/repository/mongodb"
	"github.com/hmiyata/battrack/internal/repository/sheets"
	"github.com/hmiyata/battrack/internal/scheduler"
	"github.com/hmiyata/battrack/internal/server/handlers"
	"github.com/hmiyata/battrack/internal/server/router"
	lifecyclesvc "github.com/hmiyata/battrack/internal/service/lifecycle"
	reportingsvc "github.com/hmiyata/battrack/internal/service/reporting"
	stocktakesvc "github.com/hmiyata/battrack/internal/service/stocktake"
	"github.com/hmiyata/battrack/pkg/clients/notify"
	"github.com/hmiyata/battrack/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := time.LoadLocation(cfg.Clock.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid clock timezone", zap.String("timezone", cfg.Clock.Timezone), zap.Error(err))
	}
	clock := func() time.Time { return time.Now().In(loc) }

	var store repository.RecordStore
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		store = memory.NewStore()
		baseLogger.Warn("using in-memory record store, data will not survive restarts")
	default:
		unitStore, err := sheets.NewUnitStore(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets record store", zap.Error(err))
		}
		store = unitStore
	}

	var snapshotRepo mongodb.Repository
	if cfg.Mongo.URI != "" {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.Mongo.URI, cfg.Mongo.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		snapshotRepo = mongoRepo
	} else {
		baseLogger.Warn("mongodb uri missing, weekly snapshot archiving disabled")
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookClient(cfg.Notify)
		baseLogger.Info("webhook notifier enabled")
	} else {
		baseLogger.Warn("notify webhook url missing, weekly summaries disabled")
	}

	lifecycleEngine := lifecyclesvc.NewEngine(store, clock, baseLogger.Named("svc.lifecycle"))
	reportingSvc := reportingsvc.NewService(store, snapshotRepo, clock, baseLogger.Named("svc.reporting"))
	reconciler := stocktakesvc.NewReconciler(lifecycleEngine, baseLogger.Named("svc.stocktake"))

	inventoryHandler := handlers.NewInventoryHandler(lifecycleEngine, reportingSvc, clock, baseLogger.Named("handlers.inventory"))
	stocktakeHandler := handlers.NewStocktakeHandler(reconciler, clock, baseLogger.Named("handlers.stocktake"))
	engine := router.New(inventoryHandler, stocktakeHandler, baseLogger.Named("router"))

	// Initialize Scheduler
	sched := scheduler.NewScheduler(cfg.Jobs, loc, lifecycleEngine, reportingSvc, notifier, clock, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appmonitor "github.com/resell/backoffice/internal/application/monitor"
	"github.com/resell/backoffice/internal/application/notify"
	appsync "github.com/resell/backoffice/internal/application/sync"
	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/infrastructure/config"
	"github.com/resell/backoffice/internal/infrastructure/event"
	"github.com/resell/backoffice/internal/infrastructure/logger"
	"github.com/resell/backoffice/internal/infrastructure/oms"
	"github.com/resell/backoffice/internal/infrastructure/persistence"
	"github.com/resell/backoffice/internal/infrastructure/scheduler"
	"github.com/resell/backoffice/internal/infrastructure/sourcing"
	"github.com/resell/backoffice/internal/interfaces/http/handler"
	"github.com/resell/backoffice/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Log)
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := persistence.NewDatabase(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := persistence.Migrate(db.DB); err != nil {
		return err
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)
	mappingRepo := persistence.NewGormCategoryMappingRepository(db.DB)

	// Event bus and notifications
	bus := event.NewInMemoryEventBus(log)
	sinks := []notify.Sink{}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify))
	}
	hub := notify.NewHub(log, sinks...)
	bus.Subscribe(notify.NewNotifier(cfg.Notify, hub, log))

	// Platform client and services
	client := oms.NewClient(cfg.Platform, &oms.SettingsCredentials{Settings: settingsRepo}, log)
	matcher := appsync.NewMatcher(productRepo, orderRepo, log)
	syncService := appsync.NewService(cfg.Platform, cfg.Sync, client, orderRepo, matcher, syncLogRepo, settingsRepo, bus, log)
	trackingService := appsync.NewTrackingService(client, orderRepo, bus, log)
	checker := sourcing.NewHTTPChecker(cfg.Sourcing.BaseURL, cfg.Sourcing.Timeout, log)
	monitorService := appmonitor.NewService(productRepo, checker, bus, hub, log)

	// Scheduled cycles
	syncCycle := scheduler.NewCycle("order-sync", cfg.Sync.Interval,
		channel.SettingSyncEnabled, channel.SettingSyncInterval, settingsRepo,
		func(ctx context.Context) error {
			_, err := syncService.Run(ctx)
			return err
		}, log)
	trackingCycle := scheduler.NewCycle("tracking-upload", cfg.Sync.TrackingInterval,
		channel.SettingTrackingEnabled, channel.SettingTrackingInterval, settingsRepo,
		func(ctx context.Context) error {
			_, err := trackingService.Run(ctx)
			return err
		}, log)
	monitorCycle := scheduler.NewCycle("source-monitor", cfg.Sync.MonitorInterval,
		"", "", settingsRepo,
		func(ctx context.Context) error {
			_, err := monitorService.Run(ctx)
			return err
		}, log)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sync.Enabled {
		if err := syncCycle.Start(rootCtx); err != nil {
			return err
		}
	}
	if cfg.Sync.TrackingEnabled {
		if err := trackingCycle.Start(rootCtx); err != nil {
			return err
		}
	}
	if cfg.Sync.MonitorEnabled {
		if err := monitorCycle.Start(rootCtx); err != nil {
			return err
		}
	}

	// HTTP server
	engine := router.New(log, db, router.Handlers{
		Sync:     handler.NewSyncHandler(syncCycle, syncLogRepo, settingsRepo),
		Order:    handler.NewOrderHandler(orderRepo, matcher),
		Category: handler.NewCategoryHandler(mappingRepo),
	})
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	for _, cycle := range []*scheduler.Cycle{syncCycle, trackingCycle, monitorCycle} {
		if err := cycle.Stop(shutdownCtx); err != nil {
			log.Error("cycle shutdown failed", zap.Error(err))
		}
	}

	log.Info("server stopped")
	return nil
}

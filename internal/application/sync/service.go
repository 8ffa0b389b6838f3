package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/order"
	"github.com/resell/backoffice/internal/domain/shared"
	"github.com/resell/backoffice/internal/infrastructure/config"
)

// Service runs one order-sync cycle: it computes the fetch window from the
// stored watermark, pulls pages from the platform, persists each order
// idempotently, matches lines against the catalog, and records a SyncLog.
//
// Watermark rules: an OK run advances the watermark to the window end, a
// FAILED run leaves it untouched, and a PARTIAL run advances it to the newest
// order timestamp that made it into the database, so the failed remainder is
// re-fetched next cycle.
type Service struct {
	platform config.PlatformConfig
	sync     config.SyncConfig

	client   channel.OrderPlatform
	orders   order.Repository
	matcher  *Matcher
	syncLogs channel.SyncLogRepository
	settings channel.SettingsRepository
	events   shared.EventPublisher
	logger   *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewService creates a sync Service
func NewService(
	platformCfg config.PlatformConfig,
	syncCfg config.SyncConfig,
	client channel.OrderPlatform,
	orders order.Repository,
	matcher *Matcher,
	syncLogs channel.SyncLogRepository,
	settings channel.SettingsRepository,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		platform: platformCfg,
		sync:     syncCfg,
		client:   client,
		orders:   orders,
		matcher:  matcher,
		syncLogs: syncLogs,
		settings: settings,
		events:   events,
		logger:   logger.Named("sync"),
		now:      time.Now,
	}
}

// Run executes one sync cycle and returns its audit record. The record is
// persisted before Run returns, whatever the outcome.
func (s *Service) Run(ctx context.Context) (*channel.SyncLog, error) {
	started := s.now()
	windowStart, windowEnd, err := s.window(ctx)
	if err != nil {
		return nil, err
	}

	log := channel.NewSyncLog(windowStart, windowEnd, channel.SyncStatusOK)

	s.logger.Info("sync run started",
		zap.Time("window_start", windowStart),
		zap.Time("window_end", windowEnd),
	)

	var (
		runErr        error
		orderFailures int
		maxPersisted  time.Time
	)

	for page := 1; page <= s.platform.MaxPages; page++ {
		req := &channel.FetchRequest{
			Start:    windowStart,
			End:      windowEnd,
			Page:     page,
			PageSize: s.platform.PageSize,
		}

		fetched, err := s.client.FetchOrders(ctx, req)
		if err != nil {
			runErr = fmt.Errorf("page %d: %w", page, err)
			break
		}

		log.Fetched += len(fetched.Orders)
		for i := range fetched.Orders {
			persistedAt, err := s.processOrder(ctx, &fetched.Orders[i], log)
			if err != nil {
				// One bad order never aborts the page, but the run must
				// not finish OK: an OK watermark advance would skip this
				// order forever
				orderFailures++
				s.logger.Error("order processing failed",
					zap.String("external_order_id", fetched.Orders[i].ExternalOrderID),
					zap.Error(err),
				)
				continue
			}
			if persistedAt.After(maxPersisted) {
				maxPersisted = persistedAt
			}
		}

		if !fetched.HasMore {
			break
		}
	}

	// The terminal record and watermark must land even when the run context
	// was cancelled mid-run
	ctx = context.WithoutCancel(ctx)

	log.Duration = s.now().Sub(started)
	s.finalize(ctx, log, runErr, orderFailures, maxPersisted)

	if err := s.syncLogs.Save(ctx, log); err != nil {
		s.logger.Error("failed to persist sync log", zap.Error(err))
	}

	s.logger.Info("sync run finished",
		zap.String("status", log.Status.String()),
		zap.Int("fetched", log.Fetched),
		zap.Int("newly_persisted", log.NewlyPersisted),
		zap.Int("matched", log.Matched),
		zap.Int("unmatched", log.Unmatched),
		zap.Duration("duration", log.Duration),
	)

	return log, runErr
}

// processOrder persists one platform order and matches its lines, returning
// the order timestamp when the order is now present in the database
func (s *Service) processOrder(ctx context.Context, co *channel.ChannelOrder, log *channel.SyncLog) (time.Time, error) {
	o, err := order.FromChannelOrder(co)
	if err != nil {
		return time.Time{}, err
	}

	result, err := s.orders.Upsert(ctx, o)
	if err != nil {
		return time.Time{}, err
	}

	if result.IsNew {
		log.NewlyPersisted++
		if err := s.events.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Error("failed to publish order events", zap.Error(err))
		}
		o.ClearDomainEvents()
	}

	// Re-load through the repository so matching always sees the stored
	// lines, including ones inserted by earlier runs
	stored, err := s.orders.FindByExternalID(ctx, co.ExternalOrderID)
	if err != nil {
		return time.Time{}, err
	}

	stats, err := s.matcher.MatchOrder(ctx, stored)
	if err != nil {
		return co.OrderedAt, err
	}
	log.Matched += stats.Resolved
	log.Unmatched += stats.Unmatched

	return co.OrderedAt, nil
}

// finalize decides the run status and applies the watermark rules
func (s *Service) finalize(ctx context.Context, log *channel.SyncLog, runErr error, orderFailures int, maxPersisted time.Time) {
	switch {
	case runErr == nil && orderFailures == 0:
		log.Status = channel.SyncStatusOK
		s.saveWatermark(ctx, log.WindowEnd)

	case log.NewlyPersisted > 0 || log.Fetched > 0:
		log.Status = channel.SyncStatusPartial
		if runErr != nil {
			log.Error = runErr.Error()
		} else {
			log.Error = fmt.Sprintf("%d orders failed processing", orderFailures)
		}
		if maxPersisted.After(log.WindowStart) {
			s.saveWatermark(ctx, maxPersisted)
		}

	default:
		log.Status = channel.SyncStatusFailed
		log.Error = runErr.Error()
	}
}

// window computes the fetch window from the stored watermark. The start is
// pulled back by the overlap margin so orders that landed around the previous
// window edge are re-fetched; idempotent persistence absorbs the duplicates.
func (s *Service) window(ctx context.Context) (time.Time, time.Time, error) {
	end := s.now()

	raw, err := s.settings.Get(ctx, channel.SettingSyncWatermark)
	if errors.Is(err, shared.ErrNotFound) {
		return end.Add(-s.sync.InitialLookback), end, nil
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	watermark, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("unparseable sync watermark, falling back to initial lookback",
			zap.String("value", raw),
		)
		return end.Add(-s.sync.InitialLookback), end, nil
	}

	return watermark.Add(-s.sync.OverlapMargin), end, nil
}

// saveWatermark stores the new watermark, logging rather than failing the run
func (s *Service) saveWatermark(ctx context.Context, t time.Time) {
	if err := s.settings.Save(ctx, channel.SettingSyncWatermark, t.Format(time.RFC3339)); err != nil {
		s.logger.Error("failed to save sync watermark", zap.Error(err))
	}
}

package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/order"
	"github.com/resell/backoffice/internal/domain/shared"
)

// TrackingStats summarizes one tracking-upload cycle
type TrackingStats struct {
	Uploaded int
	Failed   int
}

// TrackingService uploads tracking numbers of fulfilled orders back to the
// platform. A failed upload leaves the order FULFILLED so the next cycle
// retries it.
type TrackingService struct {
	client channel.OrderPlatform
	orders order.Repository
	events shared.EventPublisher
	logger *zap.Logger
}

// NewTrackingService creates a TrackingService
func NewTrackingService(client channel.OrderPlatform, orders order.Repository, events shared.EventPublisher, logger *zap.Logger) *TrackingService {
	return &TrackingService{
		client: client,
		orders: orders,
		events: events,
		logger: logger.Named("tracking"),
	}
}

// Run uploads the tracking number of every fulfilled, not yet tracked order
func (s *TrackingService) Run(ctx context.Context) (TrackingStats, error) {
	var stats TrackingStats

	orders, err := s.orders.FindFulfilledUntracked(ctx)
	if err != nil {
		return stats, err
	}

	for i := range orders {
		o := &orders[i]
		if err := s.uploadOne(ctx, o); err != nil {
			stats.Failed++
			s.logger.Error("tracking upload failed",
				zap.String("external_order_id", o.ExternalOrderID),
				zap.Error(err),
			)
			continue
		}
		stats.Uploaded++
	}

	if stats.Uploaded > 0 || stats.Failed > 0 {
		s.logger.Info("tracking cycle finished",
			zap.Int("uploaded", stats.Uploaded),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats, nil
}

// uploadOne pushes one tracking number and records the transition
func (s *TrackingService) uploadOne(ctx context.Context, o *order.Order) error {
	if err := s.client.UploadTracking(ctx, o.ExternalOrderID, o.ChannelCode, o.Carrier, o.TrackingNumber); err != nil {
		return err
	}
	if err := o.MarkTracked(); err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(ctx, o); err != nil {
		return err
	}
	if err := s.events.Publish(ctx, o.GetDomainEvents()...); err != nil {
		s.logger.Error("failed to publish tracking events", zap.Error(err))
	}
	o.ClearDomainEvents()
	return nil
}

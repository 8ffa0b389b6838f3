package monitor

import (
	"context"

	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/application/notify"
	"github.com/resell/backoffice/internal/domain/catalog"
	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
)

// Stats summarizes one monitoring cycle
type Stats struct {
	Checked     int
	CostUpdated int
	Failed      int
}

// Service checks the supplier page of every monitored product. An observed
// price becomes the product's new sourcing cost; the resulting cost-changed
// event drives the price and margin notifications. A product whose source
// reports anything but AVAILABLE raises a source_status notification so an
// operator can react before the next order arrives.
type Service struct {
	products catalog.ProductRepository
	checker  channel.StatusChecker
	events   shared.EventPublisher
	hub      *notify.Hub
	logger   *zap.Logger
}

// NewService creates a monitoring Service
func NewService(products catalog.ProductRepository, checker channel.StatusChecker, events shared.EventPublisher, hub *notify.Hub, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		checker:  checker,
		events:   events,
		hub:      hub,
		logger:   logger.Named("monitor"),
	}
}

// Run checks every active product that has a monitoring source
func (s *Service) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	products, err := s.products.FindActiveWithSource(ctx)
	if err != nil {
		return stats, err
	}

	for i := range products {
		p := &products[i]
		stats.Checked++
		updated, err := s.checkOne(ctx, p)
		if err != nil {
			stats.Failed++
			s.logger.Error("source check failed",
				zap.String("product_id", p.ID.String()),
				zap.String("source", p.SourceName),
				zap.Error(err),
			)
			continue
		}
		if updated {
			stats.CostUpdated++
		}
	}

	s.logger.Info("monitor cycle finished",
		zap.Int("checked", stats.Checked),
		zap.Int("cost_updated", stats.CostUpdated),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// checkOne observes one product's source and applies the result
func (s *Service) checkOne(ctx context.Context, p *catalog.Product) (bool, error) {
	obs, err := s.checker.Check(ctx, p.SourceURL, p.SourceName)
	if err != nil {
		return false, err
	}

	if obs.Status != channel.ProductStatusAvailable {
		s.hub.Dispatch(ctx, &notify.Notification{
			Type:       notify.TypeSourceStatus,
			OccurredAt: p.UpdatedAt,
			Payload: map[string]any{
				"product_id":   p.ID.String(),
				"product_name": p.Name,
				"source":       p.SourceName,
				"status":       string(obs.Status),
			},
		})
	}
	if obs.Price.IsZero() || obs.Price.Equal(p.CostPrice) {
		return false, nil
	}

	if err := p.UpdateCostPrice(obs.Price); err != nil {
		return false, err
	}
	if err := s.products.Save(ctx, p); err != nil {
		return false, err
	}
	if err := s.events.Publish(ctx, p.GetDomainEvents()...); err != nil {
		s.logger.Error("failed to publish cost events", zap.Error(err))
	}
	p.ClearDomainEvents()
	return true, nil
}

package notify

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/catalog"
	"github.com/resell/backoffice/internal/domain/order"
	"github.com/resell/backoffice/internal/domain/shared"
	"github.com/resell/backoffice/internal/infrastructure/config"
)

// Notifier turns domain events into outbound notifications.
//
// Thresholds: every newly received order notifies. A cost change notifies
// when the relative change against the old cost reaches the configured
// percentage, boundary inclusive. A cost change additionally raises a margin
// alert when the new margin drops below the configured floor (HIGH) or below
// zero (CRITICAL).
type Notifier struct {
	hub            *Hub
	priceThreshold decimal.Decimal // relative change, e.g. 0.01 for 1%
	marginFloor    decimal.Decimal // margin rate floor, e.g. 0.05 for 5%
	logger         *zap.Logger
}

// NewNotifier creates a Notifier from notification configuration
func NewNotifier(cfg config.NotifyConfig, hub *Hub, logger *zap.Logger) *Notifier {
	return &Notifier{
		hub:            hub,
		priceThreshold: decimal.NewFromFloat(cfg.PriceChangePercent).Div(decimal.NewFromInt(100)),
		marginFloor:    decimal.NewFromFloat(cfg.MarginFloorPercent).Div(decimal.NewFromInt(100)),
		logger:         logger.Named("notifier"),
	}
}

// EventTypes implements shared.EventHandler
func (n *Notifier) EventTypes() []string {
	return []string{
		order.EventTypeOrderReceived,
		catalog.EventTypeProductCostChanged,
	}
}

// Handle implements shared.EventHandler
func (n *Notifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderReceivedEvent:
		n.onOrderReceived(ctx, e)
	case *catalog.ProductCostChangedEvent:
		n.onCostChanged(ctx, e)
	}
	return nil
}

// onOrderReceived emits an order_created notification for every new order
func (n *Notifier) onOrderReceived(ctx context.Context, e *order.OrderReceivedEvent) {
	n.hub.Dispatch(ctx, &Notification{
		Type:       TypeOrderCreated,
		OccurredAt: e.OccurredAt(),
		Payload: map[string]any{
			"external_order_id": e.ExternalOrderID,
			"channel_code":      e.ChannelCode,
			"total_amount":      e.TotalAmount.String(),
			"line_count":        e.LineCount,
		},
	})
}

// onCostChanged applies the price and margin thresholds
func (n *Notifier) onCostChanged(ctx context.Context, e *catalog.ProductCostChangedEvent) {
	if n.priceChanged(e.OldCost, e.NewCost) {
		n.hub.Dispatch(ctx, &Notification{
			Type:       TypePriceChanged,
			OccurredAt: e.OccurredAt(),
			Payload: map[string]any{
				"product_id":   e.AggregateID().String(),
				"product_name": e.Name,
				"old_cost":     e.OldCost.String(),
				"new_cost":     e.NewCost.String(),
			},
		})
	}

	severity, alert := n.marginSeverity(e.NewCost, e.SellingPrice)
	if alert {
		n.hub.Dispatch(ctx, &Notification{
			Type:       TypeMarginAlert,
			OccurredAt: e.OccurredAt(),
			Payload: map[string]any{
				"product_id":    e.AggregateID().String(),
				"product_name":  e.Name,
				"cost_price":    e.NewCost.String(),
				"selling_price": e.SellingPrice.String(),
				"severity":      severity,
			},
		})
	}
}

// priceChanged reports whether the relative change reaches the threshold.
// The boundary is inclusive: a change of exactly the threshold notifies.
func (n *Notifier) priceChanged(oldCost, newCost decimal.Decimal) bool {
	if oldCost.IsZero() {
		return !newCost.IsZero()
	}
	change := newCost.Sub(oldCost).Abs().Div(oldCost)
	return change.GreaterThanOrEqual(n.priceThreshold)
}

// marginSeverity grades the margin at the new cost
func (n *Notifier) marginSeverity(cost, selling decimal.Decimal) (string, bool) {
	margin := selling.Sub(cost)
	if margin.LessThanOrEqual(decimal.Zero) {
		return SeverityCritical, true
	}
	if cost.IsZero() {
		return "", false
	}
	if margin.Div(cost).LessThan(n.marginFloor) {
		return SeverityHigh, true
	}
	return "", false
}

var _ shared.EventHandler = (*Notifier)(nil)

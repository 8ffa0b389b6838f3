package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notification types
const (
	TypeOrderCreated = "order_created"
	TypePriceChanged = "price_changed"
	TypeMarginAlert  = "margin_alert"
	TypeSourceStatus = "source_status"
)

// Margin alert severities
const (
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Notification is one outbound change notification
type Notification struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// Sink delivers notifications to one destination
type Sink interface {
	// Send delivers a notification. Errors are reported, not retried.
	Send(ctx context.Context, n *Notification) error
}

// Hub fans one notification out to every registered sink. A failing sink is
// logged and never blocks the others, and never fails the cycle that
// produced the notification.
type Hub struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewHub creates a Hub
func NewHub(logger *zap.Logger, sinks ...Sink) *Hub {
	return &Hub{
		sinks:  sinks,
		logger: logger.Named("notify"),
	}
}

// Dispatch delivers a notification to all sinks
func (h *Hub) Dispatch(ctx context.Context, n *Notification) {
	for _, sink := range h.sinks {
		if err := sink.Send(ctx, n); err != nil {
			h.logger.Error("notification delivery failed",
				zap.String("type", n.Type),
				zap.Error(err),
			)
		}
	}
}

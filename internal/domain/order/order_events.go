package order

import (
	"github.com/shopspring/decimal"

	"github.com/resell/backoffice/internal/domain/shared"
)

// Event types for the order context
const (
	EventTypeOrderReceived = "order.received"
	EventTypeOrderTracked  = "order.tracked"
)

// OrderReceivedEvent is emitted when an order is persisted for the first time
type OrderReceivedEvent struct {
	shared.BaseDomainEvent
	ExternalOrderID string          `json:"external_order_id"`
	ChannelCode     string          `json:"channel_code"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	LineCount       int             `json:"line_count"`
}

// NewOrderReceivedEvent creates an OrderReceivedEvent
func NewOrderReceivedEvent(o *Order) *OrderReceivedEvent {
	return &OrderReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReceived, "Order", o.ID),
		ExternalOrderID: o.ExternalOrderID,
		ChannelCode:     o.ChannelCode.String(),
		TotalAmount:     o.TotalAmount,
		LineCount:       len(o.Lines),
	}
}

// OrderTrackedEvent is emitted when a tracking number reaches the platform
type OrderTrackedEvent struct {
	shared.BaseDomainEvent
	ExternalOrderID string `json:"external_order_id"`
	Carrier         string `json:"carrier"`
	TrackingNumber  string `json:"tracking_number"`
}

// NewOrderTrackedEvent creates an OrderTrackedEvent
func NewOrderTrackedEvent(o *Order) *OrderTrackedEvent {
	return &OrderTrackedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderTracked, "Order", o.ID),
		ExternalOrderID: o.ExternalOrderID,
		Carrier:         o.Carrier,
		TrackingNumber:  o.TrackingNumber,
	}
}

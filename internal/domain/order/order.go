package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
)

// Status represents the lifecycle status of an order
type Status string

const (
	// StatusReceived means the order has been persisted from the platform
	StatusReceived Status = "RECEIVED"
	// StatusMatched means every line resolved to a catalog product
	StatusMatched Status = "MATCHED"
	// StatusFulfilled means the shipment has been handed to a carrier
	StatusFulfilled Status = "FULFILLED"
	// StatusTracked means the tracking number was uploaded to the platform
	StatusTracked Status = "TRACKED"
)

// IsValid checks if the status is a valid order status
func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusMatched, StatusFulfilled, StatusTracked:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusReceived:
		return target == StatusMatched || target == StatusFulfilled
	case StatusMatched:
		return target == StatusFulfilled
	case StatusFulfilled:
		return target == StatusTracked
	case StatusTracked:
		return false // terminal
	}
	return false
}

// MatchMethod records which lookup resolved an order line
type MatchMethod string

const (
	// MatchMethodChannelCode is the exact (group, channel code, listing) lookup
	MatchMethodChannelCode MatchMethod = "CHANNEL_CODE"
	// MatchMethodListingID is the listing-identifier-only fallback lookup
	MatchMethodListingID MatchMethod = "LISTING_ID"
	// MatchMethodManual is an operator assignment from the pending-items view
	MatchMethodManual MatchMethod = "MANUAL"
	// MatchMethodNone means no catalog product was found
	MatchMethodNone MatchMethod = "NONE"
)

// MatchConfidence grades a line's catalog resolution
type MatchConfidence string

const (
	// MatchConfidenceExact is a deterministic channel-code hit
	MatchConfidenceExact MatchConfidence = "EXACT"
	// MatchConfidenceHigh is a listing-identifier-only hit
	MatchConfidenceHigh MatchConfidence = "HIGH"
	// MatchConfidenceNone means the line is unresolved
	MatchConfidenceNone MatchConfidence = "NONE"
)

// Line is one product line within an order. Lines are keyed by their ordinal
// within the order because the platform does not guarantee stable external
// line identifiers.
type Line struct {
	ID      uuid.UUID
	OrderID uuid.UUID
	// Ordinal is the stable per-order line key (0-indexed fetch position)
	Ordinal int
	// ProductName is the free-text description as received from the channel
	ProductName string
	// ChannelProductCode is the channel's product code for the line
	ChannelProductCode string
	// ListingID is the channel-internal listing identifier for the line
	ListingID string
	// Quantity is the ordered quantity
	Quantity decimal.Decimal
	// UnitPrice is the channel-reported unit price
	UnitPrice decimal.Decimal
	// ProductID is the resolved catalog product, nil until matched
	ProductID *uuid.UUID
	// MatchMethod records which lookup resolved the line
	MatchMethod MatchMethod
	// MatchConfidence grades the resolution
	MatchConfidence MatchConfidence
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the database table name for Line
func (Line) TableName() string {
	return "order_lines"
}

// IsResolved returns true once the line references a catalog product
func (l *Line) IsResolved() bool {
	return l.ProductID != nil
}

// Resolve sets the catalog reference. The first successful match wins: a
// resolved line is never re-resolved, so fulfillment routing cannot change
// silently after the fact.
func (l *Line) Resolve(productID uuid.UUID, method MatchMethod, confidence MatchConfidence) error {
	if l.IsResolved() {
		return shared.NewDomainError("LINE_ALREADY_RESOLVED", "Order line already has a catalog reference")
	}
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	l.ProductID = &productID
	l.MatchMethod = method
	l.MatchConfidence = confidence
	l.UpdatedAt = time.Now()
	return nil
}

// Order represents one external sale pulled from the order-management
// platform. Orders are created only by the sync cycle and never deleted.
type Order struct {
	shared.BaseAggregateRoot
	// ExternalOrderID is the platform's order identifier, unique across
	// orders and the natural key for idempotent persistence
	ExternalOrderID string
	// ChannelCode identifies the sales channel the order was placed on
	ChannelCode channel.Code
	// BuyerName is the buyer's name
	BuyerName string
	// BuyerPhone is the buyer's phone number
	BuyerPhone string
	// Address is the delivery address
	Address string
	// TotalAmount is the monetary total
	TotalAmount decimal.Decimal
	// Status is the lifecycle status
	Status Status
	// OrderedAt is when the order was placed on the channel
	OrderedAt time.Time
	// Carrier is the shipping carrier, set on fulfillment
	Carrier string
	// TrackingNumber is the shipment tracking number, set on fulfillment
	TrackingNumber string
	// TrackedAt is when the tracking number was uploaded to the platform
	TrackedAt *time.Time
	// Lines holds the product lines
	Lines []Line
}

// TableName returns the database table name for Order
func (Order) TableName() string {
	return "orders"
}

// FromChannelOrder builds an order aggregate from a normalized platform
// order, assigning line ordinals in fetch position
func FromChannelOrder(co *channel.ChannelOrder) (*Order, error) {
	if err := co.Validate(); err != nil {
		return nil, err
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ExternalOrderID:   co.ExternalOrderID,
		ChannelCode:       co.ChannelCode,
		BuyerName:         co.BuyerName,
		BuyerPhone:        co.BuyerPhone,
		Address:           co.Address,
		TotalAmount:       co.TotalAmount,
		Status:            StatusReceived,
		OrderedAt:         co.OrderedAt,
		Lines:             make([]Line, 0, len(co.Lines)),
	}

	now := time.Now()
	for i, cl := range co.Lines {
		o.Lines = append(o.Lines, Line{
			ID:                 uuid.New(),
			OrderID:            o.ID,
			Ordinal:            i,
			ProductName:        cl.ProductName,
			ChannelProductCode: cl.ChannelProductCode,
			ListingID:          cl.ListingID,
			Quantity:           cl.Quantity,
			UnitPrice:          cl.UnitPrice,
			MatchMethod:        MatchMethodNone,
			MatchConfidence:    MatchConfidenceNone,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	o.AddDomainEvent(NewOrderReceivedEvent(o))

	return o, nil
}

// AllLinesResolved returns true when every line references a catalog product
func (o *Order) AllLinesResolved() bool {
	for i := range o.Lines {
		if !o.Lines[i].IsResolved() {
			return false
		}
	}
	return len(o.Lines) > 0
}

// MarkMatched transitions the order to MATCHED once all lines are resolved
func (o *Order) MarkMatched() error {
	if !o.Status.CanTransitionTo(StatusMatched) {
		return shared.ErrInvalidState
	}
	if !o.AllLinesResolved() {
		return shared.NewDomainError("UNRESOLVED_LINES", "Cannot mark matched while lines lack a catalog reference")
	}
	o.Status = StatusMatched
	o.Touch()
	return nil
}

// MarkFulfilled records the carrier handoff
func (o *Order) MarkFulfilled(carrier, trackingNumber string) error {
	if !o.Status.CanTransitionTo(StatusFulfilled) {
		return shared.ErrInvalidState
	}
	if carrier == "" || trackingNumber == "" {
		return shared.NewDomainError("INVALID_TRACKING", "Carrier and tracking number are required")
	}
	o.Status = StatusFulfilled
	o.Carrier = carrier
	o.TrackingNumber = trackingNumber
	o.Touch()
	return nil
}

// MarkTracked records a successful tracking-number upload to the platform
func (o *Order) MarkTracked() error {
	if !o.Status.CanTransitionTo(StatusTracked) {
		return shared.ErrInvalidState
	}
	now := time.Now()
	o.Status = StatusTracked
	o.TrackedAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderTrackedEvent(o))
	return nil
}

package channel

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Normalized platform order shape
// ---------------------------------------------------------------------------

// ChannelOrder is the fixed internal shape every platform order record is
// normalized into at the client boundary, regardless of which legacy field
// names the platform used in a given response version. All downstream code
// operates only on this shape.
type ChannelOrder struct {
	// ExternalOrderID is the order identifier assigned by the platform.
	// It is the natural key for idempotent persistence.
	ExternalOrderID string
	// ChannelCode identifies the sales channel the order was placed on
	ChannelCode Code
	// BuyerName is the buyer's name
	BuyerName string
	// BuyerPhone is the buyer's phone number
	BuyerPhone string
	// Address is the delivery address
	Address string
	// TotalAmount is the monetary total the buyer paid
	TotalAmount decimal.Decimal
	// OrderedAt is when the order was placed on the channel
	OrderedAt time.Time
	// Lines contains the product lines of the order
	Lines []ChannelOrderLine
}

// ChannelOrderLine is one product line within a normalized platform order
type ChannelOrderLine struct {
	// ProductName is the free-text product description from the channel
	ProductName string
	// ChannelProductCode is the per-channel product code assigned when the
	// product was published to the channel. May be empty when code
	// population lags the listing registration.
	ChannelProductCode string
	// ListingID is the channel-internal listing identifier
	ListingID string
	// Quantity is the ordered quantity
	Quantity decimal.Decimal
	// UnitPrice is the channel-reported unit price
	UnitPrice decimal.Decimal
}

// Validate checks the minimal invariants required to persist the order
func (o *ChannelOrder) Validate() error {
	if o.ExternalOrderID == "" {
		return errors.New("channel: external order ID is required")
	}
	if !o.ChannelCode.IsValid() {
		return errors.New("channel: unknown channel code")
	}
	if len(o.Lines) == 0 {
		return errors.New("channel: order has no lines")
	}
	return nil
}

// ---------------------------------------------------------------------------
// OrderPlatform Port
// ---------------------------------------------------------------------------

// FetchRequest describes one page of an order-search call against the
// order-management platform. The caller owns the windowing policy.
type FetchRequest struct {
	// Start is the inclusive start of the time window
	Start time.Time
	// End is the inclusive end of the time window
	End time.Time
	// Page is the page number (1-indexed)
	Page int
	// PageSize is the number of orders per page
	PageSize int
}

// Validate validates the fetch request and normalizes paging defaults
func (r *FetchRequest) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("channel: fetch window is required")
	}
	if r.Start.After(r.End) {
		return errors.New("channel: window start must not be after end")
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 || r.PageSize > 200 {
		r.PageSize = 50
	}
	return nil
}

// FetchPage is the result of one order-search page
type FetchPage struct {
	// Orders contains the normalized orders of this page
	Orders []ChannelOrder
	// Total is the total number of orders matching the window
	Total int64
	// HasMore indicates whether further pages exist
	HasMore bool
}

// OrderPlatform is the port to the external order-management platform.
// The concrete HTTP client lives in the infrastructure layer.
type OrderPlatform interface {
	// FetchOrders fetches one page of orders placed inside the window
	FetchOrders(ctx context.Context, req *FetchRequest) (*FetchPage, error)

	// UploadTracking registers a shipment tracking number for an order
	UploadTracking(ctx context.Context, externalOrderID string, channelCode Code, carrier, trackingNumber string) error
}

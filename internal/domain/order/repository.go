package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UpsertResult reports what an idempotent upsert actually wrote
type UpsertResult struct {
	// OrderID is the ID of the stored order (existing or new)
	OrderID uuid.UUID
	// IsNew is true when the order header was inserted by this call
	IsNew bool
	// InsertedLines is the number of line rows written by this call. For an
	// existing order only lines with unseen ordinals are inserted.
	InsertedLines int
}

// PendingLine is an unmatched order line joined with its order context,
// surfaced so an operator can resolve it manually
type PendingLine struct {
	LineID             uuid.UUID
	OrderID            uuid.UUID
	ExternalOrderID    string
	ChannelCode        string
	Ordinal            int
	ProductName        string
	ChannelProductCode string
	ListingID          string
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	OrderedAt          time.Time
}

// Repository persists orders and their lines. Upsert is the sole writer of
// order rows; pending-item readers may run concurrently and must see each
// order either fully absent or fully present.
type Repository interface {
	// FindByID finds an order with its lines, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByExternalID finds an order by the platform's order identifier,
	// or shared.ErrNotFound
	FindByExternalID(ctx context.Context, externalOrderID string) (*Order, error)

	// Upsert inserts the order and its lines in one transaction. When an
	// order with the same external identifier already exists the header is
	// left untouched and only lines with unseen ordinals are inserted;
	// existing lines are never updated, preserving their catalog
	// resolution.
	Upsert(ctx context.Context, o *Order) (*UpsertResult, error)

	// ResolveLine sets the catalog reference of a stored line. The write is
	// guarded so a line that already has a reference is left unchanged; the
	// returned bool reports whether the write happened.
	ResolveLine(ctx context.Context, lineID, productID uuid.UUID, method MatchMethod, confidence MatchConfidence) (bool, error)

	// UpdateStatus persists a lifecycle transition
	UpdateStatus(ctx context.Context, o *Order) error

	// FindPendingLines returns unmatched lines, oldest order first
	FindPendingLines(ctx context.Context) ([]PendingLine, error)

	// FindFulfilledUntracked returns orders whose tracking number has not
	// yet been uploaded to the platform
	FindFulfilledUntracked(ctx context.Context) ([]Order, error)
}

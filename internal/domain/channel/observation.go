package channel

import (
	"context"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Monitoring collaborator port
// ---------------------------------------------------------------------------

// ProductStatus is the availability reported by a monitoring source
type ProductStatus string

const (
	// ProductStatusAvailable indicates the product can currently be sourced
	ProductStatusAvailable ProductStatus = "AVAILABLE"
	// ProductStatusOutOfStock indicates the source is temporarily out of stock
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
	// ProductStatusDiscontinued indicates the source no longer sells the product
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
	// ProductStatusError indicates the check itself failed
	ProductStatusError ProductStatus = "ERROR"
)

// IsValid returns true if the status is a known product status
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusAvailable, ProductStatusOutOfStock, ProductStatusDiscontinued, ProductStatusError:
		return true
	default:
		return false
	}
}

// Observation is one price/stock reading from a monitoring source
type Observation struct {
	// Status is the sourcing availability at observation time
	Status ProductStatus
	// Price is the observed selling price
	Price decimal.Decimal
	// OriginalPrice is the pre-discount price, when the source exposes one
	OriginalPrice decimal.Decimal
}

// StatusChecker is the capability contract the monitoring collaborator
// satisfies. How the observation is computed is not this system's concern.
type StatusChecker interface {
	// Check returns the current observation for a product URL
	Check(ctx context.Context, productURL, source string) (*Observation, error)
}

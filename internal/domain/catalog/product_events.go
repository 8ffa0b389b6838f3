package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/resell/backoffice/internal/domain/shared"
)

// Event types for the catalog context
const (
	EventTypeProductCreated     = "catalog.product.created"
	EventTypeProductCostChanged = "catalog.product.cost_changed"
)

// ProductCreatedEvent is emitted when a catalog product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// NewProductCreatedEvent creates a ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, "Product", p.ID),
		Name:            p.Name,
		SellingPrice:    p.SellingPrice,
	}
}

// ProductCostChangedEvent is emitted when a product's sourcing price changes
type ProductCostChangedEvent struct {
	shared.BaseDomainEvent
	Name         string          `json:"name"`
	OldCost      decimal.Decimal `json:"old_cost"`
	NewCost      decimal.Decimal `json:"new_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// NewProductCostChangedEvent creates a ProductCostChangedEvent
func NewProductCostChangedEvent(p *Product, oldCost, newCost decimal.Decimal) *ProductCostChangedEvent {
	return &ProductCostChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCostChanged, "Product", p.ID),
		Name:            p.Name,
		OldCost:         oldCost,
		NewCost:         newCost,
		SellingPrice:    p.SellingPrice,
	}
}

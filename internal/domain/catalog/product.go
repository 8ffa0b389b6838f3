package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
)

// ChannelListing records that a catalog product has been published to one
// channel group. The channel code and listing identifier are assigned by the
// platform after a manual publish action, so either may arrive with a delay:
// a fresh listing can carry a listing identifier before its channel code.
type ChannelListing struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	// Group is the channel group this listing covers
	Group channel.Group `gorm:"column:channel_group"`
	// ChannelCode is the per-channel product code (may be empty until the
	// platform backfills it)
	ChannelCode string
	// ListingID is the channel-internal listing identifier
	ListingID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product represents a product the business sells, independent of any
// channel. It is the aggregate root for its channel listings.
type Product struct {
	shared.BaseAggregateRoot
	// Name is the display name
	Name string
	// CostPrice is the current sourcing price
	CostPrice decimal.Decimal
	// SellingPrice is the current selling price across channels
	SellingPrice decimal.Decimal
	// SourceURL is the supplier page the monitoring collaborator watches.
	// Empty for products without automated sourcing checks.
	SourceURL string
	// SourceName identifies the monitoring source adapter
	SourceName string
	// IsActive indicates the product is currently sold
	IsActive bool
	// Listings holds the per-channel-group publish records
	Listings []ChannelListing
}

// TableName returns the database table name for ChannelListing
func (ChannelListing) TableName() string {
	return "channel_listings"
}

// TableName returns the database table name for Product
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new catalog product
func NewProduct(name string, costPrice, sellingPrice decimal.Decimal) (*Product, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if costPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST_PRICE", "Cost price cannot be negative")
	}
	if sellingPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SELLING_PRICE", "Selling price cannot be negative")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		CostPrice:         costPrice,
		SellingPrice:      sellingPrice,
		IsActive:          true,
		Listings:          make([]ChannelListing, 0),
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// AddListing records a publish to a channel group. At most one listing per
// group is kept; publishing again replaces the codes for that group.
func (p *Product) AddListing(group channel.Group, channelCode, listingID string) error {
	if !group.IsValid() {
		return shared.NewDomainError("INVALID_CHANNEL_GROUP", "Unknown channel group")
	}
	if channelCode == "" && listingID == "" {
		return shared.NewDomainError("INVALID_LISTING", "Listing needs a channel code or listing identifier")
	}

	now := time.Now()
	for i := range p.Listings {
		if p.Listings[i].Group == group {
			p.Listings[i].ChannelCode = channelCode
			p.Listings[i].ListingID = listingID
			p.Listings[i].UpdatedAt = now
			p.UpdatedAt = now
			return nil
		}
	}

	p.Listings = append(p.Listings, ChannelListing{
		ID:          uuid.New(),
		ProductID:   p.ID,
		Group:       group,
		ChannelCode: channelCode,
		ListingID:   listingID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	p.UpdatedAt = now
	return nil
}

// ListingFor returns the listing for a channel group, if published there
func (p *Product) ListingFor(group channel.Group) (*ChannelListing, bool) {
	for i := range p.Listings {
		if p.Listings[i].Group == group {
			return &p.Listings[i], true
		}
	}
	return nil, false
}

// UpdateCostPrice records a new sourcing price
func (p *Product) UpdateCostPrice(costPrice decimal.Decimal) error {
	if costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_COST_PRICE", "Cost price cannot be negative")
	}
	old := p.CostPrice
	p.CostPrice = costPrice
	p.Touch()
	if !old.Equal(costPrice) {
		p.AddDomainEvent(NewProductCostChangedEvent(p, old, costPrice))
	}
	return nil
}

// UpdateSellingPrice records a new selling price
func (p *Product) UpdateSellingPrice(sellingPrice decimal.Decimal) error {
	if sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_SELLING_PRICE", "Selling price cannot be negative")
	}
	p.SellingPrice = sellingPrice
	p.Touch()
	return nil
}

// SetSource attaches a monitoring source to the product
func (p *Product) SetSource(url, name string) {
	p.SourceURL = url
	p.SourceName = name
	p.Touch()
}

// Margin returns the absolute margin (selling price minus cost price)
func (p *Product) Margin() decimal.Decimal {
	return p.SellingPrice.Sub(p.CostPrice)
}

// MarginRate returns the margin relative to the cost price. Zero cost
// products report a zero rate rather than dividing by zero.
func (p *Product) MarginRate() decimal.Decimal {
	if p.CostPrice.IsZero() {
		return decimal.Zero
	}
	return p.Margin().Div(p.CostPrice)
}

// Deactivate marks the product as no longer sold
func (p *Product) Deactivate() {
	p.IsActive = false
	p.Touch()
}

// Activate marks the product as sold again
func (p *Product) Activate() {
	p.IsActive = true
	p.Touch()
}

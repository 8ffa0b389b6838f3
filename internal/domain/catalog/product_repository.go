package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/resell/backoffice/internal/domain/channel"
)

// ProductRepository persists catalog products and their channel listings
type ProductRepository interface {
	// FindByID finds a product by its ID, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByChannelCode finds products published under the given channel
	// code and listing identifier within a channel group. Uniqueness of
	// (group, code, listing) is the intended invariant; when operator error
	// has produced duplicates all matches are returned, most recently
	// updated first, so the caller can break the tie deterministically.
	FindByChannelCode(ctx context.Context, group channel.Group, channelCode, listingID string) ([]Product, error)

	// FindByListingID finds products by listing identifier alone within a
	// channel group, most recently updated first
	FindByListingID(ctx context.Context, group channel.Group, listingID string) ([]Product, error)

	// FindActiveWithSource returns active products that have a monitoring
	// source attached
	FindActiveWithSource(ctx context.Context) ([]Product, error)

	// Save creates or updates a product and its listings
	Save(ctx context.Context, product *Product) error
}

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resell/backoffice/internal/domain/catalog"
	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product with its listings
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Preload("Listings").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindByChannelCode finds products published under the given channel code and
// listing identifier within a channel group, most recently updated first
func (r *GormProductRepository) FindByChannelCode(ctx context.Context, group channel.Group, channelCode, listingID string) ([]catalog.Product, error) {
	var products []catalog.Product
	err := r.db.WithContext(ctx).
		Preload("Listings").
		Joins("JOIN channel_listings ON channel_listings.product_id = products.id").
		Where("channel_listings.channel_group = ? AND channel_listings.channel_code = ? AND channel_listings.listing_id = ?",
			group, channelCode, listingID).
		Order("products.updated_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FindByListingID finds products by listing identifier alone within a channel
// group, most recently updated first
func (r *GormProductRepository) FindByListingID(ctx context.Context, group channel.Group, listingID string) ([]catalog.Product, error) {
	var products []catalog.Product
	err := r.db.WithContext(ctx).
		Preload("Listings").
		Joins("JOIN channel_listings ON channel_listings.product_id = products.id").
		Where("channel_listings.channel_group = ? AND channel_listings.listing_id = ?", group, listingID).
		Order("products.updated_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FindActiveWithSource returns active products with a monitoring source
func (r *GormProductRepository) FindActiveWithSource(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	err := r.db.WithContext(ctx).
		Preload("Listings").
		Where("is_active = ? AND source_url <> ''", true).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Save creates or updates a product and its listings
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			return err
		}

		// Remove listings dropped from the aggregate, then save the rest
		currentIDs := make([]uuid.UUID, len(product.Listings))
		for i, listing := range product.Listings {
			currentIDs[i] = listing.ID
		}
		del := tx.Where("product_id = ?", product.ID)
		if len(currentIDs) > 0 {
			del = del.Where("id NOT IN ?", currentIDs)
		}
		if err := del.Delete(&catalog.ChannelListing{}).Error; err != nil {
			return err
		}
		for i := range product.Listings {
			if err := tx.Save(&product.Listings[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/resell/backoffice/internal/domain/catalog"
	"github.com/resell/backoffice/internal/domain/shared"
)

// GormCategoryMappingRepository implements catalog.CategoryMappingRepository
// using GORM
type GormCategoryMappingRepository struct {
	db *gorm.DB
}

// NewGormCategoryMappingRepository creates a new GormCategoryMappingRepository
func NewGormCategoryMappingRepository(db *gorm.DB) *GormCategoryMappingRepository {
	return &GormCategoryMappingRepository{db: db}
}

// FindByLocalPath returns the mapping for a local category path
func (r *GormCategoryMappingRepository) FindByLocalPath(ctx context.Context, localPath string) (*catalog.CategoryMapping, error) {
	var mapping catalog.CategoryMapping
	if err := r.db.WithContext(ctx).
		First(&mapping, "local_path = ?", localPath).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// List returns all mappings, optionally filtered by tier
func (r *GormCategoryMappingRepository) List(ctx context.Context, tier *catalog.MappingTier) ([]catalog.CategoryMapping, error) {
	query := r.db.WithContext(ctx).Model(&catalog.CategoryMapping{})
	if tier != nil {
		query = query.Where("tier = ?", *tier)
	}
	var mappings []catalog.CategoryMapping
	if err := query.Order("local_path ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// Save inserts a mapping row
func (r *GormCategoryMappingRepository) Save(ctx context.Context, mapping *catalog.CategoryMapping) error {
	return r.db.WithContext(ctx).Create(mapping).Error
}

var _ catalog.CategoryMappingRepository = (*GormCategoryMappingRepository)(nil)

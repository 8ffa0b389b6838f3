package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MappingTier is the confidence tier of a category mapping, computed once at
// data-migration time from the similarity score
type MappingTier string

const (
	MappingTierHigh     MappingTier = "HIGH"
	MappingTierMedium   MappingTier = "MEDIUM"
	MappingTierLow      MappingTier = "LOW"
	MappingTierUnmapped MappingTier = "UNMAPPED"
)

// IsValid returns true if the tier is a known mapping tier
func (t MappingTier) IsValid() bool {
	switch t {
	case MappingTierHigh, MappingTierMedium, MappingTierLow, MappingTierUnmapped:
		return true
	default:
		return false
	}
}

// TierForScore derives the confidence tier from a similarity score in [0,1]
func TierForScore(score float64) MappingTier {
	switch {
	case score >= 0.85:
		return MappingTierHigh
	case score >= 0.60:
		return MappingTierMedium
	case score > 0:
		return MappingTierLow
	default:
		return MappingTierUnmapped
	}
}

// CategoryMapping maps a local category path to a platform category code.
// The runtime engine treats the table as a static lookup; rows are written
// once at migration time and never mutated by the sync cycle.
type CategoryMapping struct {
	ID uuid.UUID
	// LocalPath is the local category path, e.g. "가전/주방/커피머신"
	LocalPath string
	// PlatformCategoryCode is the matched platform category code
	PlatformCategoryCode string
	// Similarity is the match score computed at migration time
	Similarity float64
	// Tier is the confidence tier derived from the score
	Tier      MappingTier
	CreatedAt time.Time
}

// TableName returns the database table name for CategoryMapping
func (CategoryMapping) TableName() string {
	return "category_mappings"
}

// NewCategoryMapping creates a mapping row with its derived tier
func NewCategoryMapping(localPath, platformCategoryCode string, similarity float64) *CategoryMapping {
	return &CategoryMapping{
		ID:                   uuid.New(),
		LocalPath:            localPath,
		PlatformCategoryCode: platformCategoryCode,
		Similarity:           similarity,
		Tier:                 TierForScore(similarity),
		CreatedAt:            time.Now(),
	}
}

// CategoryMappingRepository reads the static category lookup table
type CategoryMappingRepository interface {
	// FindByLocalPath returns the mapping for a local category path, or
	// shared.ErrNotFound
	FindByLocalPath(ctx context.Context, localPath string) (*CategoryMapping, error)

	// List returns all mappings, optionally filtered by tier
	List(ctx context.Context, tier *MappingTier) ([]CategoryMapping, error)

	// Save inserts a mapping row (migration-time only)
	Save(ctx context.Context, mapping *CategoryMapping) error
}

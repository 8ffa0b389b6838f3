package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
)

// GormSyncLogRepository implements channel.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save appends a completed run record
func (r *GormSyncLogRepository) Save(ctx context.Context, log *channel.SyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Latest returns the most recent run record
func (r *GormSyncLogRepository) Latest(ctx context.Context) (*channel.SyncLog, error) {
	var log channel.SyncLog
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// List returns the most recent run records, newest first
func (r *GormSyncLogRepository) List(ctx context.Context, limit int) ([]channel.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []channel.SyncLog
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

var _ channel.SyncLogRepository = (*GormSyncLogRepository)(nil)

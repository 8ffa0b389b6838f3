package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resell/backoffice/internal/domain/order"
	"github.com/resell/backoffice/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal ASC") }).
		First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByExternalID finds an order by the platform's order identifier
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, externalOrderID string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal ASC") }).
		First(&o, "external_order_id = ?", externalOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Upsert inserts the order and its lines in one transaction. When an order
// with the same external identifier already exists the header is left
// untouched and only lines with unseen ordinals are inserted, so a re-fetch
// of an overlapping window never clobbers earlier catalog resolutions.
func (r *GormOrderRepository) Upsert(ctx context.Context, o *order.Order) (*order.UpsertResult, error) {
	result := &order.UpsertResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing order.Order
		err := tx.Where("external_order_id = ?", o.ExternalOrderID).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
				return err
			}
			if len(o.Lines) > 0 {
				if err := tx.Create(&o.Lines).Error; err != nil {
					return err
				}
			}
			result.OrderID = o.ID
			result.IsNew = true
			result.InsertedLines = len(o.Lines)
			return nil
		}
		if err != nil {
			return err
		}

		var ordinals []int
		if err := tx.Model(&order.Line{}).
			Where("order_id = ?", existing.ID).
			Pluck("ordinal", &ordinals).Error; err != nil {
			return err
		}
		seen := make(map[int]bool, len(ordinals))
		for _, ord := range ordinals {
			seen[ord] = true
		}

		now := time.Now()
		for i := range o.Lines {
			if seen[o.Lines[i].Ordinal] {
				continue
			}
			line := o.Lines[i]
			line.ID = uuid.New()
			line.OrderID = existing.ID
			line.CreatedAt = now
			line.UpdatedAt = now
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			result.InsertedLines++
		}

		result.OrderID = existing.ID
		result.IsNew = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveLine sets the catalog reference of a stored line. The WHERE guard
// makes the write a no-op for lines that already carry a reference.
func (r *GormOrderRepository) ResolveLine(ctx context.Context, lineID, productID uuid.UUID, method order.MatchMethod, confidence order.MatchConfidence) (bool, error) {
	res := r.db.WithContext(ctx).Model(&order.Line{}).
		Where("id = ? AND product_id IS NULL", lineID).
		Updates(map[string]any{
			"product_id":       productID,
			"match_method":     method,
			"match_confidence": confidence,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateStatus persists a lifecycle transition
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ?", o.ID).
		Updates(map[string]any{
			"status":          o.Status,
			"carrier":         o.Carrier,
			"tracking_number": o.TrackingNumber,
			"tracked_at":      o.TrackedAt,
			"updated_at":      time.Now(),
		}).Error
}

// FindPendingLines returns unmatched lines joined with their order context,
// oldest order first
func (r *GormOrderRepository) FindPendingLines(ctx context.Context) ([]order.PendingLine, error) {
	var lines []order.PendingLine
	err := r.db.WithContext(ctx).
		Table("order_lines").
		Select("order_lines.id AS line_id, order_lines.order_id, orders.external_order_id, " +
			"orders.channel_code, order_lines.ordinal, order_lines.product_name, " +
			"order_lines.channel_product_code, order_lines.listing_id, order_lines.quantity, " +
			"order_lines.unit_price, orders.ordered_at").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("order_lines.product_id IS NULL").
		Order("orders.ordered_at ASC, order_lines.ordinal ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// FindFulfilledUntracked returns orders awaiting a tracking upload
func (r *GormOrderRepository) FindFulfilledUntracked(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal ASC") }).
		Where("status = ?", order.StatusFulfilled).
		Order("ordered_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

var _ order.Repository = (*GormOrderRepository)(nil)

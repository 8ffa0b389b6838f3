package sync

import (
	"context"

	"github.com/google/uuid"

	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/catalog"
	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/order"
)

// Matcher resolves order lines to catalog products. Resolution is layered:
// the exact (group, channel code, listing) lookup first, the
// listing-identifier-only lookup second, otherwise the line stays pending for
// manual review. A line that is already resolved is never touched again.
type Matcher struct {
	products catalog.ProductRepository
	orders   order.Repository
	logger   *zap.Logger
}

// NewMatcher creates a Matcher
func NewMatcher(products catalog.ProductRepository, orders order.Repository, logger *zap.Logger) *Matcher {
	return &Matcher{
		products: products,
		orders:   orders,
		logger:   logger.Named("matcher"),
	}
}

// MatchStats summarizes one matching pass
type MatchStats struct {
	Resolved  int
	Unmatched int
}

// MatchOrder resolves every unresolved line of an order and promotes the
// order to MATCHED when all lines carry a catalog reference afterwards
func (m *Matcher) MatchOrder(ctx context.Context, o *order.Order) (MatchStats, error) {
	var stats MatchStats

	for i := range o.Lines {
		line := &o.Lines[i]
		if line.IsResolved() {
			continue
		}

		productID, method, confidence, found, err := m.lookup(ctx, o.ChannelCode, line.ChannelProductCode, line.ListingID)
		if err != nil {
			return stats, err
		}
		if !found {
			stats.Unmatched++
			continue
		}

		wrote, err := m.orders.ResolveLine(ctx, line.ID, productID, method, confidence)
		if err != nil {
			return stats, err
		}
		if !wrote {
			// Another pass resolved the line first; keep the stored result
			continue
		}
		if err := line.Resolve(productID, method, confidence); err != nil {
			return stats, err
		}
		stats.Resolved++
	}

	if o.Status == order.StatusReceived && o.AllLinesResolved() {
		if err := o.MarkMatched(); err != nil {
			return stats, err
		}
		if err := m.orders.UpdateStatus(ctx, o); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// RematchPending re-runs matching over every line still without a catalog
// reference, typically after new listings were registered
func (m *Matcher) RematchPending(ctx context.Context) (MatchStats, error) {
	var stats MatchStats

	pending, err := m.orders.FindPendingLines(ctx)
	if err != nil {
		return stats, err
	}

	touched := make(map[string]bool)
	for _, p := range pending {
		code := channel.Code(p.ChannelCode)
		productID, method, confidence, found, err := m.lookup(ctx, code, p.ChannelProductCode, p.ListingID)
		if err != nil {
			m.logger.Warn("rematch lookup failed",
				zap.String("external_order_id", p.ExternalOrderID),
				zap.Int("ordinal", p.Ordinal),
				zap.Error(err),
			)
			stats.Unmatched++
			continue
		}
		if !found {
			stats.Unmatched++
			continue
		}

		wrote, err := m.orders.ResolveLine(ctx, p.LineID, productID, method, confidence)
		if err != nil {
			return stats, err
		}
		if wrote {
			stats.Resolved++
			touched[p.ExternalOrderID] = true
		}
	}

	// Promote orders whose last pending line was just resolved
	for externalID := range touched {
		o, err := m.orders.FindByExternalID(ctx, externalID)
		if err != nil {
			return stats, err
		}
		if o.Status == order.StatusReceived && o.AllLinesResolved() {
			if err := o.MarkMatched(); err != nil {
				return stats, err
			}
			if err := m.orders.UpdateStatus(ctx, o); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

// lookup runs the layered catalog search for one line
func (m *Matcher) lookup(ctx context.Context, code channel.Code, channelProductCode, listingID string) (productID uuid.UUID, method order.MatchMethod, confidence order.MatchConfidence, found bool, err error) {
	group, ok := channel.GroupForCode(code)
	if !ok {
		return uuid.Nil, order.MatchMethodNone, order.MatchConfidenceNone, false, nil
	}

	if channelProductCode != "" && listingID != "" {
		candidates, err := m.products.FindByChannelCode(ctx, group, channelProductCode, listingID)
		if err != nil {
			return uuid.Nil, "", "", false, err
		}
		if len(candidates) > 0 {
			m.warnOnTie(code, channelProductCode, listingID, candidates)
			return candidates[0].ID, order.MatchMethodChannelCode, order.MatchConfidenceExact, true, nil
		}
	}

	if listingID != "" {
		candidates, err := m.products.FindByListingID(ctx, group, listingID)
		if err != nil {
			return uuid.Nil, "", "", false, err
		}
		if len(candidates) > 0 {
			m.warnOnTie(code, channelProductCode, listingID, candidates)
			return candidates[0].ID, order.MatchMethodListingID, order.MatchConfidenceHigh, true, nil
		}
	}

	return uuid.Nil, order.MatchMethodNone, order.MatchConfidenceNone, false, nil
}

// warnOnTie logs when a lookup that should be unique returned several
// products. The most recently updated one wins so the outcome is stable.
func (m *Matcher) warnOnTie(code channel.Code, channelProductCode, listingID string, candidates []catalog.Product) {
	if len(candidates) < 2 {
		return
	}
	m.logger.Warn("multiple catalog products share one listing, using most recently updated",
		zap.String("channel_code", code.String()),
		zap.String("channel_product_code", channelProductCode),
		zap.String("listing_id", listingID),
		zap.Int("candidates", len(candidates)),
		zap.String("chosen_product_id", candidates[0].ID.String()),
	)
}

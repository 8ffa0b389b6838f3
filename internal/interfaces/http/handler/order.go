package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsync "github.com/resell/backoffice/internal/application/sync"
	"github.com/resell/backoffice/internal/domain/order"
)

// OrderHandler exposes order queries and the manual operator actions
type OrderHandler struct {
	BaseHandler
	orders  order.Repository
	matcher *appsync.Matcher
}

// NewOrderHandler creates an OrderHandler
func NewOrderHandler(orders order.Repository, matcher *appsync.Matcher) *OrderHandler {
	return &OrderHandler{orders: orders, matcher: matcher}
}

// pendingLineResponse serializes one unmatched order line
type pendingLineResponse struct {
	LineID             string `json:"line_id"`
	OrderID            string `json:"order_id"`
	ExternalOrderID    string `json:"external_order_id"`
	ChannelCode        string `json:"channel_code"`
	Ordinal            int    `json:"ordinal"`
	ProductName        string `json:"product_name"`
	ChannelProductCode string `json:"channel_product_code,omitempty"`
	ListingID          string `json:"listing_id,omitempty"`
	Quantity           string `json:"quantity"`
	UnitPrice          string `json:"unit_price"`
	OrderedAt          string `json:"ordered_at"`
}

// PendingItems lists order lines awaiting a catalog match, oldest first
// GET /api/v1/orders/pending-items
func (h *OrderHandler) PendingItems(c *gin.Context) {
	pending, err := h.orders.FindPendingLines(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]pendingLineResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, pendingLineResponse{
			LineID:             p.LineID.String(),
			OrderID:            p.OrderID.String(),
			ExternalOrderID:    p.ExternalOrderID,
			ChannelCode:        p.ChannelCode,
			Ordinal:            p.Ordinal,
			ProductName:        p.ProductName,
			ChannelProductCode: p.ChannelProductCode,
			ListingID:          p.ListingID,
			Quantity:           p.Quantity.String(),
			UnitPrice:          p.UnitPrice.String(),
			OrderedAt:          p.OrderedAt.Format(time.RFC3339),
		})
	}
	h.Success(c, out)
}

// Rematch re-runs catalog matching over every pending line, typically after
// new listings were registered
// POST /api/v1/orders/rematch
func (h *OrderHandler) Rematch(c *gin.Context) {
	stats, err := h.matcher.RematchPending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"resolved":  stats.Resolved,
		"unmatched": stats.Unmatched,
	})
}

// resolveLineRequest is the body of the manual line resolution endpoint
type resolveLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// ResolveLine assigns a catalog product to a pending line by hand
// POST /api/v1/orders/lines/:lineID/resolve
func (h *OrderHandler) ResolveLine(c *gin.Context) {
	lineID, err := uuid.Parse(c.Param("lineID"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID")
		return
	}

	var req resolveLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	wrote, err := h.orders.ResolveLine(c.Request.Context(), lineID, productID,
		order.MatchMethodManual, order.MatchConfidenceExact)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !wrote {
		h.Conflict(c, "Line is already resolved")
		return
	}
	h.Success(c, gin.H{"resolved": true})
}

// fulfillRequest is the body of the fulfillment endpoint
type fulfillRequest struct {
	Carrier        string `json:"carrier" binding:"required"`
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// Fulfill records the carrier handoff for an order; the tracking cycle
// uploads the number to the platform afterwards
// POST /api/v1/orders/:id/fulfill
func (h *OrderHandler) Fulfill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	o, err := h.orders.FindByID(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := o.MarkFulfilled(req.Carrier, req.TrackingNumber); err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.orders.UpdateStatus(ctx, o); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"status": o.Status.String()})
}

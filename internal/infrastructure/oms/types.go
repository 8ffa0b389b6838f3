package oms

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/resell/backoffice/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Wire shapes
// ---------------------------------------------------------------------------

// envelope is the common response wrapper of the order-management platform
type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// loginResponse is the body of a successful auth call
type loginResponse struct {
	envelope
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

// orderSearchResponse is the body of an order-search page
type orderSearchResponse struct {
	envelope
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	HasMore bool        `json:"has_more"`
	Orders  []wireOrder `json:"orders"`
}

// wireOrder is one order record as the platform serializes it. Older API
// versions used mall_id and shop_cd for what is now the channel field, so all
// three aliases are accepted and collapsed during normalization.
type wireOrder struct {
	OrderID   string     `json:"order_id"`
	Channel   string     `json:"channel"`
	MallID    string     `json:"mall_id"`
	ShopCd    string     `json:"shop_cd"`
	Buyer     string     `json:"buyer_name"`
	Phone     string     `json:"buyer_phone"`
	Address   string     `json:"address"`
	Total     string     `json:"total_amount"`
	OrderedAt string     `json:"ordered_at"`
	Lines     []wireLine `json:"lines"`
}

// wireLine is one product line as the platform serializes it
type wireLine struct {
	ProductName string `json:"product_name"`
	ProductCode string `json:"product_code"`
	ListingID   string `json:"listing_id"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// channelAliases maps the channel spellings seen across platform API versions
// to internal channel codes
var channelAliases = map[string]channel.Code{
	"gmarket":     channel.CodeGmarket,
	"auction":     channel.CodeAuction,
	"smartstore":  channel.CodeSmartStore,
	"smart_store": channel.CodeSmartStore,
	"coupang":     channel.CodeCoupang,
	"11st":        channel.CodeElevenSt,
	"st11":        channel.CodeElevenSt,
}

// channelCodeOf collapses the legacy channel field aliases into one value and
// resolves it to an internal code
func (w *wireOrder) channelCodeOf() (channel.Code, bool) {
	raw := w.Channel
	if raw == "" {
		raw = w.MallID
	}
	if raw == "" {
		raw = w.ShopCd
	}
	code, ok := channelAliases[strings.ToLower(strings.TrimSpace(raw))]
	return code, ok
}

// normalize converts a wire order into the internal shape, reporting a
// malformed record with a descriptive error
func (w *wireOrder) normalize() (*channel.ChannelOrder, error) {
	if w.OrderID == "" {
		return nil, errMissingField("order_id")
	}
	code, ok := w.channelCodeOf()
	if !ok {
		return nil, errMissingField("channel")
	}
	total, err := decimal.NewFromString(w.Total)
	if err != nil {
		return nil, errBadField("total_amount", w.Total)
	}
	orderedAt, err := time.Parse(time.RFC3339, w.OrderedAt)
	if err != nil {
		return nil, errBadField("ordered_at", w.OrderedAt)
	}

	co := &channel.ChannelOrder{
		ExternalOrderID: w.OrderID,
		ChannelCode:     code,
		BuyerName:       w.Buyer,
		BuyerPhone:      w.Phone,
		Address:         w.Address,
		TotalAmount:     total,
		OrderedAt:       orderedAt,
		Lines:           make([]channel.ChannelOrderLine, 0, len(w.Lines)),
	}
	for _, l := range w.Lines {
		unitPrice, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, errBadField("unit_price", l.UnitPrice)
		}
		co.Lines = append(co.Lines, channel.ChannelOrderLine{
			ProductName:        l.ProductName,
			ChannelProductCode: l.ProductCode,
			ListingID:          l.ListingID,
			Quantity:           decimal.NewFromInt(l.Quantity),
			UnitPrice:          unitPrice,
		})
	}
	return co, co.Validate()
}

package notify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/catalog"
	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/order"
	"github.com/resell/backoffice/internal/infrastructure/config"
)

// captureSink records every delivered notification
type captureSink struct {
	sent []*Notification
	err  error
}

func (s *captureSink) Send(_ context.Context, n *Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *captureSink) byType(typ string) []*Notification {
	var out []*Notification
	for _, n := range s.sent {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func newTestNotifier(t *testing.T) (*Notifier, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	hub := NewHub(zap.NewNop(), sink)
	notifier := NewNotifier(config.NotifyConfig{
		PriceChangePercent: 1.0,
		MarginFloorPercent: 5.0,
	}, hub, zap.NewNop())
	return notifier, sink
}

func costEvent(t *testing.T, oldCost, newCost, selling int64) *catalog.ProductCostChangedEvent {
	t.Helper()
	p, err := catalog.NewProduct("커피머신", decimal.NewFromInt(oldCost), decimal.NewFromInt(selling))
	require.NoError(t, err)
	return catalog.NewProductCostChangedEvent(p, decimal.NewFromInt(oldCost), decimal.NewFromInt(newCost))
}

func TestNotifier_OrderReceivedAlwaysNotifies(t *testing.T) {
	notifier, sink := newTestNotifier(t)

	co := &channel.ChannelOrder{
		ExternalOrderID: "ORD-1",
		ChannelCode:     channel.CodeGmarket,
		BuyerName:       "김민수",
		TotalAmount:     decimal.NewFromInt(25000),
		Lines: []channel.ChannelOrderLine{
			{ProductName: "커피머신", ListingID: "L-1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25000)},
		},
	}
	o, err := order.FromChannelOrder(co)
	require.NoError(t, err)

	require.NoError(t, notifier.Handle(context.Background(), order.NewOrderReceivedEvent(o)))

	created := sink.byType(TypeOrderCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "ORD-1", created[0].Payload["external_order_id"])
	assert.Equal(t, "25000", created[0].Payload["total_amount"])
	assert.Equal(t, 1, created[0].Payload["line_count"])
}

func TestNotifier_PriceChangeThreshold(t *testing.T) {
	tests := []struct {
		name    string
		oldCost int64
		newCost int64
		notify  bool
	}{
		{"exactly one percent notifies", 10000, 10100, true},
		{"above threshold notifies", 10000, 10500, true},
		{"drop at threshold notifies", 10000, 9900, true},
		{"below threshold is silent", 10000, 10050, false},
		{"unchanged is silent", 10000, 10000, false},
		{"from zero notifies", 0, 5000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier, sink := newTestNotifier(t)
			// Selling price high enough to keep the margin healthy
			err := notifier.Handle(context.Background(), costEvent(t, tt.oldCost, tt.newCost, 50000))
			require.NoError(t, err)

			got := sink.byType(TypePriceChanged)
			if tt.notify {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestNotifier_MarginAlert(t *testing.T) {
	tests := []struct {
		name     string
		newCost  int64
		selling  int64
		severity string
	}{
		{"negative margin is critical", 16000, 15000, SeverityCritical},
		{"zero margin is critical", 15000, 15000, SeverityCritical},
		{"margin under the floor is high", 14500, 15000, SeverityHigh},
		{"healthy margin is silent", 10000, 15000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier, sink := newTestNotifier(t)
			err := notifier.Handle(context.Background(), costEvent(t, 10000, tt.newCost, tt.selling))
			require.NoError(t, err)

			alerts := sink.byType(TypeMarginAlert)
			if tt.severity == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.severity, alerts[0].Payload["severity"])
		})
	}
}

func TestHub_FailingSinkDoesNotBlockOthers(t *testing.T) {
	broken := &captureSink{err: assert.AnError}
	working := &captureSink{}
	hub := NewHub(zap.NewNop(), broken, working)

	hub.Dispatch(context.Background(), &Notification{Type: TypeOrderCreated})

	assert.Empty(t, broken.sent)
	require.Len(t, working.sent, 1)
}

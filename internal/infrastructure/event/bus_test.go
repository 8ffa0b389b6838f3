package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/shared"
)

type recordingHandler struct {
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	if h.err != nil {
		return h.err
	}
	h.handled = append(h.handled, event)
	return nil
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func newEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Test", uuid.New())
	return &e
}

func TestInMemoryEventBus_RoutesByEventType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	orders := &recordingHandler{types: []string{"order.received"}}
	costs := &recordingHandler{types: []string{"catalog.product.cost_changed"}}
	bus.Subscribe(orders)
	bus.Subscribe(costs)

	require.NoError(t, bus.Publish(context.Background(), newEvent("order.received")))

	assert.Len(t, orders.handled, 1)
	assert.Empty(t, costs.handled)
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	broken := &recordingHandler{types: []string{"order.received"}, err: errors.New("boom")}
	healthy := &recordingHandler{types: []string{"order.received"}}
	bus.Subscribe(broken)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newEvent("order.received")))
	assert.Len(t, healthy.handled, 1)
}

func TestInMemoryEventBus_PanickingHandlerIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	panicky := &recordingHandler{types: []string{"order.received"}, panics: true}
	healthy := &recordingHandler{types: []string{"order.received"}}
	bus.Subscribe(panicky)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newEvent("order.received")))
	assert.Len(t, healthy.handled, 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{"order.received"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newEvent("order.received")))
	assert.Empty(t, h.handled)
}

package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resell/backoffice/internal/domain/channel"
)

func testChannelOrder() *channel.ChannelOrder {
	return &channel.ChannelOrder{
		ExternalOrderID: "ORD-20260901-001",
		ChannelCode:     channel.CodeGmarket,
		BuyerName:       "김민수",
		BuyerPhone:      "010-1234-5678",
		Address:         "서울특별시 강남구",
		TotalAmount:     decimal.NewFromInt(25000),
		OrderedAt:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Lines: []channel.ChannelOrderLine{
			{ProductName: "커피머신", ChannelProductCode: "GM-100", ListingID: "L-1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(20000)},
			{ProductName: "필터", ChannelProductCode: "GM-101", ListingID: "L-2", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(2500)},
		},
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		canTrans bool
	}{
		{StatusReceived, StatusMatched, true},
		{StatusReceived, StatusFulfilled, true},
		{StatusReceived, StatusTracked, false},
		{StatusMatched, StatusFulfilled, true},
		{StatusMatched, StatusTracked, false},
		{StatusMatched, StatusReceived, false},
		{StatusFulfilled, StatusTracked, true},
		{StatusFulfilled, StatusMatched, false},
		{StatusTracked, StatusReceived, false},
		{StatusTracked, StatusFulfilled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestFromChannelOrder(t *testing.T) {
	o, err := FromChannelOrder(testChannelOrder())
	require.NoError(t, err)

	assert.Equal(t, "ORD-20260901-001", o.ExternalOrderID)
	assert.Equal(t, StatusReceived, o.Status)
	require.Len(t, o.Lines, 2)

	// Ordinals follow fetch position
	assert.Equal(t, 0, o.Lines[0].Ordinal)
	assert.Equal(t, 1, o.Lines[1].Ordinal)
	assert.Equal(t, o.ID, o.Lines[0].OrderID)
	assert.False(t, o.Lines[0].IsResolved())
	assert.Equal(t, MatchMethodNone, o.Lines[0].MatchMethod)

	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderReceived, events[0].EventType())
}

func TestFromChannelOrder_Invalid(t *testing.T) {
	co := testChannelOrder()
	co.ExternalOrderID = ""
	_, err := FromChannelOrder(co)
	assert.Error(t, err)

	co = testChannelOrder()
	co.Lines = nil
	_, err = FromChannelOrder(co)
	assert.Error(t, err)
}

func TestLine_Resolve_IsMonotonic(t *testing.T) {
	o, err := FromChannelOrder(testChannelOrder())
	require.NoError(t, err)

	line := &o.Lines[0]
	first := uuid.New()
	require.NoError(t, line.Resolve(first, MatchMethodChannelCode, MatchConfidenceExact))
	assert.True(t, line.IsResolved())

	// A second resolution must not change the stored reference
	err = line.Resolve(uuid.New(), MatchMethodListingID, MatchConfidenceHigh)
	assert.Error(t, err)
	assert.Equal(t, first, *line.ProductID)
	assert.Equal(t, MatchMethodChannelCode, line.MatchMethod)
}

func TestLine_Resolve_RejectsNilProduct(t *testing.T) {
	o, err := FromChannelOrder(testChannelOrder())
	require.NoError(t, err)
	assert.Error(t, o.Lines[0].Resolve(uuid.Nil, MatchMethodManual, MatchConfidenceExact))
}

func TestOrder_MarkMatched(t *testing.T) {
	o, err := FromChannelOrder(testChannelOrder())
	require.NoError(t, err)

	// Not all lines resolved yet
	require.NoError(t, o.Lines[0].Resolve(uuid.New(), MatchMethodChannelCode, MatchConfidenceExact))
	assert.Error(t, o.MarkMatched())

	require.NoError(t, o.Lines[1].Resolve(uuid.New(), MatchMethodListingID, MatchConfidenceHigh))
	require.NoError(t, o.MarkMatched())
	assert.Equal(t, StatusMatched, o.Status)
}

func TestOrder_FulfillmentFlow(t *testing.T) {
	o, err := FromChannelOrder(testChannelOrder())
	require.NoError(t, err)

	// An unmatched order can still be fulfilled directly
	require.NoError(t, o.MarkFulfilled("CJ대한통운", "123456789"))
	assert.Equal(t, StatusFulfilled, o.Status)
	assert.Equal(t, "123456789", o.TrackingNumber)

	o.ClearDomainEvents()
	require.NoError(t, o.MarkTracked())
	assert.Equal(t, StatusTracked, o.Status)
	require.NotNil(t, o.TrackedAt)

	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderTracked, events[0].EventType())

	// Terminal state
	assert.Error(t, o.MarkFulfilled("CJ대한통운", "987654321"))
}

func TestOrder_MarkFulfilled_RequiresTracking(t *testing.T) {
	o, err := FromChannelOrder(testChannelOrder())
	require.NoError(t, err)
	assert.Error(t, o.MarkFulfilled("", "123"))
	assert.Error(t, o.MarkFulfilled("CJ대한통운", ""))
}

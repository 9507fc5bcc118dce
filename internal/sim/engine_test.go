package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
)

func newTestEngine() *Engine {
	return NewEngineWithSeed(42)
}

func TestMarketOrderFillsImmediately(t *testing.T) {
	e := newTestEngine()

	order, err := e.SubmitOrder("AAPL", domain.Buy, 100, domain.Market, 0)

	require.NoError(t, err)
	assert.Equal(t, SimFilled, order.Status)
	assert.Equal(t, 100.0, order.FilledQty)
	assert.Greater(t, order.FillPrice, 0.0)
}

func TestMarketOrderFillsAtOpposingTouch(t *testing.T) {
	e := newTestEngine()
	// Seed the quote cache so the fill price is checkable against a snapshot.
	q := e.Quote("SPY")

	buy, err := e.SubmitOrder("SPY", domain.Buy, 10, domain.Market, 0)
	require.NoError(t, err)
	sell, err := e.SubmitOrder("SPY", domain.Sell, 10, domain.Market, 0)
	require.NoError(t, err)

	// The quote drifts at most ±0.1% per observation, so fills stay near the
	// seeded snapshot.
	assert.InEpsilon(t, q.Ask, buy.FillPrice, 0.01)
	assert.InEpsilon(t, q.Bid, sell.FillPrice, 0.01)
}

func TestNonMarketableLimitRests(t *testing.T) {
	e := newTestEngine()
	q := e.Quote("AAPL")

	order, err := e.SubmitOrder("AAPL", domain.Buy, 100, domain.Limit, q.Bid*0.5)

	require.NoError(t, err)
	assert.Equal(t, SimSubmitted, order.Status)
	assert.Equal(t, 0.0, order.FilledQty)
	assert.Equal(t, 0.0, order.FillPrice)
}

func TestMarketableLimitFillsWithinBounds(t *testing.T) {
	e := newTestEngine()
	q := e.Quote("MSFT")

	// A buy limit well through the ask must fill, and never above the limit.
	order, err := e.SubmitOrder("MSFT", domain.Buy, 5, domain.Limit, q.Ask*1.1)

	require.NoError(t, err)
	assert.Equal(t, SimFilled, order.Status)
	assert.LessOrEqual(t, order.FillPrice, order.LimitPrice)
	assert.Greater(t, order.FillPrice, 0.0)
}

func TestMarketableSellLimitFillsAtOrAboveLimit(t *testing.T) {
	e := newTestEngine()
	q := e.Quote("MSFT")

	order, err := e.SubmitOrder("MSFT", domain.Sell, 5, domain.Limit, q.Bid*0.9)

	require.NoError(t, err)
	assert.Equal(t, SimFilled, order.Status)
	assert.GreaterOrEqual(t, order.FillPrice, order.LimitPrice)
}

func TestTrailingOrderRests(t *testing.T) {
	e := newTestEngine()

	order, err := e.SubmitLeg("AAPL", domain.OrderLeg{
		Side:            domain.Sell,
		Quantity:        100,
		OrderType:       domain.Trail,
		TrailingPercent: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, SimSubmitted, order.Status)
	assert.Equal(t, 0.0, order.FilledQty)
	assert.Equal(t, 2.0, order.TrailingPercent)

	assert.True(t, e.CancelOrder(order.OrderID))
}

func TestTrailingOrderValidation(t *testing.T) {
	e := newTestEngine()

	// Exactly one of amount or percent.
	_, err := e.SubmitLeg("AAPL", domain.OrderLeg{Side: domain.Sell, Quantity: 100, OrderType: domain.Trail})
	assert.ErrorIs(t, err, ports.ErrOrderValidation)

	_, err = e.SubmitLeg("AAPL", domain.OrderLeg{
		Side: domain.Sell, Quantity: 100, OrderType: domain.Trail,
		TrailingAmount: 5, TrailingPercent: 2,
	})
	assert.ErrorIs(t, err, ports.ErrOrderValidation)

	// Trailing limit additionally needs a limit price.
	_, err = e.SubmitLeg("AAPL", domain.OrderLeg{
		Side: domain.Sell, Quantity: 100, OrderType: domain.TrailLimit,
		TrailingAmount: 5,
	})
	assert.ErrorIs(t, err, ports.ErrOrderValidation)

	order, err := e.SubmitLeg("AAPL", domain.OrderLeg{
		Side: domain.Sell, Quantity: 100, OrderType: domain.TrailLimit,
		TrailingAmount: 5, LimitPrice: 180,
	})
	require.NoError(t, err)
	assert.Equal(t, SimSubmitted, order.Status)
}

func TestStopOrderRests(t *testing.T) {
	e := newTestEngine()

	order, err := e.SubmitStopOrder("AAPL", domain.Sell, 100, domain.Stop, 0, 175)

	require.NoError(t, err)
	assert.Equal(t, SimSubmitted, order.Status)
	assert.Equal(t, 0.0, order.FilledQty)
}

func TestCancelRestingOrder(t *testing.T) {
	e := newTestEngine()
	q := e.Quote("AAPL")
	order, err := e.SubmitOrder("AAPL", domain.Buy, 100, domain.Limit, q.Bid*0.5)
	require.NoError(t, err)

	assert.True(t, e.CancelOrder(order.OrderID))

	got, ok := e.Order(order.OrderID)
	require.True(t, ok)
	assert.Equal(t, SimCancelled, got.Status)

	// A second cancel of the same id is an idempotent failure.
	assert.False(t, e.CancelOrder(order.OrderID))
}

func TestCancelFilledOrderFails(t *testing.T) {
	e := newTestEngine()
	order, err := e.SubmitOrder("AAPL", domain.Buy, 100, domain.Market, 0)
	require.NoError(t, err)
	require.Equal(t, SimFilled, order.Status)

	assert.False(t, e.CancelOrder(order.OrderID))
}

func TestCancelUnknownOrderFails(t *testing.T) {
	e := newTestEngine()
	assert.False(t, e.CancelOrder(99999))
}

func TestOrderIDsStrictlyIncrease(t *testing.T) {
	e := newTestEngine()
	var prev int64
	for i := 0; i < 5; i++ {
		order, err := e.SubmitOrder("AAPL", domain.Buy, 1, domain.Market, 0)
		require.NoError(t, err)
		assert.Greater(t, order.OrderID, prev)
		prev = order.OrderID
	}
}

func TestSubmitValidation(t *testing.T) {
	e := newTestEngine()
	cases := []struct {
		name      string
		symbol    string
		side      domain.OrderSide
		quantity  float64
		orderType domain.OrderType
		limit     float64
	}{
		{"empty symbol", "", domain.Buy, 100, domain.Market, 0},
		{"bad side", "AAPL", "HOLD", 100, domain.Market, 0},
		{"zero quantity", "AAPL", domain.Buy, 0, domain.Market, 0},
		{"negative quantity", "AAPL", domain.Buy, -5, domain.Market, 0},
		{"limit without price", "AAPL", domain.Buy, 100, domain.Limit, 0},
		{"unsupported type", "AAPL", domain.Buy, 100, domain.Bracket, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.SubmitOrder(tc.symbol, tc.side, tc.quantity, tc.orderType, tc.limit)
			assert.ErrorIs(t, err, ports.ErrOrderValidation)
		})
	}
}

func TestStopLimitRequiresBothPrices(t *testing.T) {
	e := newTestEngine()

	_, err := e.SubmitStopOrder("AAPL", domain.Sell, 100, domain.StopLimit, 170, 0)
	assert.ErrorIs(t, err, ports.ErrOrderValidation)

	order, err := e.SubmitStopOrder("AAPL", domain.Sell, 100, domain.StopLimit, 170, 175)
	require.NoError(t, err)
	assert.Equal(t, SimSubmitted, order.Status)
}

func TestQuoteDriftIsBoundedAndSpreadPreserved(t *testing.T) {
	e := newTestEngine()
	q := e.Quote("AAPL")
	spread := q.Ask - q.Bid

	for i := 0; i < 50; i++ {
		next := e.Quote("AAPL")
		assert.InDelta(t, q.Mid(), next.Mid(), q.Mid()*0.0011, "drift step %d", i)
		assert.InDelta(t, spread, next.Ask-next.Bid, 1e-9)
		assert.Less(t, next.Bid, next.Ask)
		q = next
	}
}

func TestQuoteUsesBasePrice(t *testing.T) {
	e := newTestEngine()

	// Known symbols seed near their table price, unknown ones near the default.
	aapl := e.Quote("AAPL")
	assert.InEpsilon(t, 190.0, aapl.Mid(), 0.03)

	other := e.Quote("ZZZZ")
	assert.InEpsilon(t, 100.0, other.Mid(), 0.03)
}

func TestClearResetsRegistry(t *testing.T) {
	e := newTestEngine()
	order, err := e.SubmitOrder("AAPL", domain.Buy, 1, domain.Market, 0)
	require.NoError(t, err)

	e.Clear()

	_, ok := e.Order(order.OrderID)
	assert.False(t, ok)
}

func TestOrderReturnsCopy(t *testing.T) {
	e := newTestEngine()
	submitted, err := e.SubmitOrder("AAPL", domain.Buy, 1, domain.Market, 0)
	require.NoError(t, err)

	got, ok := e.Order(submitted.OrderID)
	require.True(t, ok)
	got.Status = SimCancelled

	again, ok := e.Order(submitted.OrderID)
	require.True(t, ok)
	assert.Equal(t, SimFilled, again.Status, "mutating a returned copy must not touch the registry")
}

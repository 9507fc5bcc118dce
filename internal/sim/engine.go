package sim

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
)

// SimStatus is the lifecycle of an order inside the matching engine.
type SimStatus string

const (
	SimPendingSubmit SimStatus = "PendingSubmit"
	SimSubmitted     SimStatus = "Submitted"
	SimFilled        SimStatus = "Filled"
	SimCancelled     SimStatus = "Cancelled"
)

// SimulatedOrder is one registry entry. Owned exclusively by the engine;
// callers receive copies.
type SimulatedOrder struct {
	OrderID         int64
	Symbol          string
	Side            domain.OrderSide
	Quantity        float64
	OrderType       domain.OrderType
	LimitPrice      float64
	StopPrice       float64
	TrailingAmount  float64
	TrailingPercent float64
	Status          SimStatus
	FilledQty       float64
	FillPrice       float64
	Submitted       time.Time
}

// quote is the per-symbol synthetic market state.
type quote struct {
	bid float64
	ask float64
}

func (q quote) mid() float64 { return (q.bid + q.ask) / 2 }

// Base prices for familiar symbols; anything else starts at defaultBasePrice.
var basePrices = map[string]float64{
	"AAPL": 190, "MSFT": 420, "GOOG": 175, "AMZN": 185, "TSLA": 250,
	"SPY": 550, "QQQ": 480, "IWM": 220,
	"ES": 5500, "MES": 5500, "NQ": 19500, "MNQ": 19500,
	"CL": 78, "GC": 2400, "SPX": 5500, "VIX": 14,
	"BTCUSDT": 65000, "ETHUSDT": 3400,
}

const defaultBasePrice = 100.0

// Engine is a self-contained matching engine: an order registry plus a
// synthetic quote cache, both behind one mutex so concurrent submissions
// cannot corrupt state. Fill decisions are made synchronously inside
// SubmitOrder against the quote snapshot of that same call.
type Engine struct {
	mu     sync.Mutex
	orders map[int64]*SimulatedOrder
	quotes map[string]quote
	nextID int64
	rng    *rand.Rand
}

// NewEngine creates an engine with a time-seeded price path.
func NewEngine() *Engine {
	return NewEngineWithSeed(time.Now().UnixNano())
}

// NewEngineWithSeed creates an engine with a fixed seed for reproducible
// price paths in tests.
func NewEngineWithSeed(seed int64) *Engine {
	return &Engine{
		orders: make(map[int64]*SimulatedOrder),
		quotes: make(map[string]quote),
		nextID: 1000,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// quoteLocked returns the current synthetic quote for a symbol, generating or
// drifting it. Caller must hold e.mu.
func (e *Engine) quoteLocked(symbol string) quote {
	q, ok := e.quotes[symbol]
	if !ok {
		base, known := basePrices[symbol]
		if !known {
			base = defaultBasePrice
		}
		// First sight: base price plus a bounded offset, narrow spread.
		mid := base * (1 + (e.rng.Float64()-0.5)*0.04)            // ±2%
		halfSpread := mid * (0.0001 + e.rng.Float64()*0.0004) / 2 // 0.01%..0.05%
		q = quote{bid: mid - halfSpread, ask: mid + halfSpread}
	} else {
		// Small bounded drift, spread preserved.
		mid := q.mid() * (1 + (e.rng.Float64()-0.5)*0.002) // ±0.1%
		halfSpread := (q.ask - q.bid) / 2
		q = quote{bid: mid - halfSpread, ask: mid + halfSpread}
	}
	e.quotes[symbol] = q
	return q
}

// Quote returns the current synthetic market snapshot for a symbol.
func (e *Engine) Quote(symbol string) domain.Quote {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.quoteLocked(symbol)
	return domain.Quote{Bid: q.bid, Ask: q.ask, Last: q.mid()}
}

// validateSubmit mirrors the real builder's per-type field requirements.
func validateSubmit(side domain.OrderSide, quantity float64, orderType domain.OrderType, limitPrice, stopPrice, trailingAmount, trailingPercent float64) error {
	if !side.Valid() {
		return fmt.Errorf("%w: side must be BUY or SELL, got %q", ports.ErrOrderValidation, side)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be strictly positive, got %v", ports.ErrOrderValidation, quantity)
	}
	switch orderType {
	case domain.Market, domain.MarketOnClose, domain.MarketOnOpen:
	case domain.Limit:
		if limitPrice <= 0 {
			return fmt.Errorf("%w: LMT orders require limitPrice", ports.ErrOrderValidation)
		}
	case domain.Stop:
		if stopPrice <= 0 {
			return fmt.Errorf("%w: STP orders require stopPrice", ports.ErrOrderValidation)
		}
	case domain.StopLimit:
		if limitPrice <= 0 || stopPrice <= 0 {
			return fmt.Errorf("%w: STP_LMT orders require limitPrice and stopPrice", ports.ErrOrderValidation)
		}
	case domain.Trail, domain.TrailLimit:
		if (trailingAmount > 0) == (trailingPercent > 0) {
			return fmt.Errorf("%w: %s orders require exactly one of trailingAmount or trailingPercent", ports.ErrOrderValidation, orderType)
		}
		if orderType == domain.TrailLimit && limitPrice <= 0 {
			return fmt.Errorf("%w: TRAIL_LIMIT orders require limitPrice", ports.ErrOrderValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported order type %q", ports.ErrOrderValidation, orderType)
	}
	return nil
}

// SubmitOrder registers an order, transitions it PendingSubmit -> Submitted
// synchronously, then decides fill eligibility against the current quote
// snapshot in the same call. Market orders always fill at the opposing touch;
// limit orders fill only when marketable, otherwise they rest until
// cancelled. Returns a copy of the registry entry.
func (e *Engine) SubmitOrder(symbol string, side domain.OrderSide, quantity float64, orderType domain.OrderType, limitPrice float64) (SimulatedOrder, error) {
	return e.submit(symbol, side, quantity, orderType, limitPrice, 0, 0, 0)
}

// SubmitStopOrder is SubmitOrder for stop and stop-limit types.
func (e *Engine) SubmitStopOrder(symbol string, side domain.OrderSide, quantity float64, orderType domain.OrderType, limitPrice, stopPrice float64) (SimulatedOrder, error) {
	return e.submit(symbol, side, quantity, orderType, limitPrice, stopPrice, 0, 0)
}

// SubmitLeg registers one expanded dispatch leg, carrying stop and trailing
// fields. This is the entry point the router uses so every order type the
// builder emits is accepted here too.
func (e *Engine) SubmitLeg(symbol string, leg domain.OrderLeg) (SimulatedOrder, error) {
	return e.submit(symbol, leg.Side, leg.Quantity, leg.OrderType, leg.LimitPrice, leg.StopPrice, leg.TrailingAmount, leg.TrailingPercent)
}

func (e *Engine) submit(symbol string, side domain.OrderSide, quantity float64, orderType domain.OrderType, limitPrice, stopPrice, trailingAmount, trailingPercent float64) (SimulatedOrder, error) {
	if symbol == "" {
		return SimulatedOrder{}, fmt.Errorf("%w: symbol is required", ports.ErrOrderValidation)
	}
	if err := validateSubmit(side, quantity, orderType, limitPrice, stopPrice, trailingAmount, trailingPercent); err != nil {
		return SimulatedOrder{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	order := &SimulatedOrder{
		OrderID:         e.nextID,
		Symbol:          symbol,
		Side:            side,
		Quantity:        quantity,
		OrderType:       orderType,
		LimitPrice:      limitPrice,
		StopPrice:       stopPrice,
		TrailingAmount:  trailingAmount,
		TrailingPercent: trailingPercent,
		Status:          SimPendingSubmit,
		Submitted:       time.Now().UTC(),
	}
	e.orders[order.OrderID] = order
	order.Status = SimSubmitted

	q := e.quoteLocked(symbol)
	switch order.OrderType {
	case domain.Market, domain.MarketOnClose, domain.MarketOnOpen:
		// Always fills at the opposing touch.
		price := q.ask
		if side == domain.Sell {
			price = q.bid
		}
		fill(order, price)
	case domain.Limit:
		// Marketable limits fill at the better of limit and touch; the rest rest.
		if side == domain.Buy && limitPrice >= q.ask {
			fill(order, min(limitPrice, q.ask))
		} else if side == domain.Sell && limitPrice <= q.bid {
			fill(order, max(limitPrice, q.bid))
		}
	case domain.Stop, domain.StopLimit, domain.Trail, domain.TrailLimit:
		// Stops and trailing orders rest until cancelled; trigger simulation
		// is out of scope here.
	}

	return *order, nil
}

func fill(o *SimulatedOrder, price float64) {
	o.Status = SimFilled
	o.FilledQty = o.Quantity
	o.FillPrice = price
}

// CancelOrder cancels a resting order. Returns false (not an error) when the
// order is unknown, already filled, or already cancelled, so a second cancel
// of the same id is an idempotent failure.
func (e *Engine) CancelOrder(orderID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return false
	}
	if order.Status == SimFilled || order.Status == SimCancelled {
		return false
	}
	order.Status = SimCancelled
	return true
}

// Order returns a copy of a registry entry.
func (e *Engine) Order(orderID int64) (SimulatedOrder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return SimulatedOrder{}, false
	}
	return *order, true
}

// Clear empties the registry and quote cache. Tests only.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders = make(map[int64]*SimulatedOrder)
	e.quotes = make(map[string]quote)
}

package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Valid reports whether the side is BUY or SELL.
func (s OrderSide) Valid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the other side; exit legs of a bracket use it.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType enumerates the order types the builder understands.
type OrderType string

const (
	Market        OrderType = "MKT"
	Limit         OrderType = "LMT"
	Stop          OrderType = "STP"
	StopLimit     OrderType = "STP_LMT"
	Trail         OrderType = "TRAIL"
	TrailLimit    OrderType = "TRAIL_LIMIT"
	Bracket       OrderType = "BRACKET"
	MarketOnClose OrderType = "MOC"
	MarketOnOpen  OrderType = "OPG"
)

// Valid reports whether the order type is one of the known values.
func (t OrderType) Valid() bool {
	switch t {
	case Market, Limit, Stop, StopLimit, Trail, TrailLimit, Bracket, MarketOnClose, MarketOnOpen:
		return true
	}
	return false
}

// OCAType governs how the venue treats the remaining orders of a
// One-Cancels-All group when one of them fills.
type OCAType int

const (
	// OCACancelWithBlock cancels siblings and blocks overfill during the race.
	OCACancelWithBlock OCAType = 1
	// OCAReduceWithBlock reduces sibling quantity, blocking overfill.
	OCAReduceWithBlock OCAType = 2
	// OCAReduceNoBlock reduces sibling quantity without overfill protection.
	OCAReduceNoBlock OCAType = 3
)

// OrderSpec is a caller-supplied order request. The builder validates it and
// expands it into one or more legs; the spec itself is never mutated.
type OrderSpec struct {
	Instrument SymbolSpec
	Side       OrderSide
	Quantity   float64
	OrderType  OrderType

	LimitPrice float64
	StopPrice  float64

	// Trailing orders: exactly one of the two must be set.
	TrailingAmount  float64
	TrailingPercent float64

	// Bracket orders.
	TakeProfitPrice    float64
	StopLossPrice      float64
	StopLossLimitPrice float64 // optional stop-limit exit instead of plain stop
	BracketTransmit    *bool   // nil or true activates on the final leg; false stages only

	OCAGroup string // join an existing OCA group
	OCAType  OCAType

	TimeInForce   string // venue default when empty
	ClientOrderID string // caller idempotency key
}

// Transmit reports whether the final leg of a multi-leg set should activate
// the whole set at the venue.
func (s OrderSpec) Transmit() bool {
	return s.BracketTransmit == nil || *s.BracketTransmit
}

// LegRole identifies a leg's function within a multi-leg submission.
type LegRole string

const (
	RoleEntry      LegRole = "entry"
	RoleTakeProfit LegRole = "take_profit"
	RoleStopLoss   LegRole = "stop_loss"
	RoleChild      LegRole = "child"
)

// OrderLeg is one constituent order of a submission. Legs are dispatched to
// the broker session in slice order; only the last leg may carry Transmit.
type OrderLeg struct {
	Role       LegRole
	Side       OrderSide
	Quantity   float64
	OrderType  OrderType
	LimitPrice float64
	StopPrice  float64

	TrailingAmount  float64
	TrailingPercent float64

	OCAGroup string
	OCAType  OCAType

	// Transmit marks the activating leg. The builder guarantees it is set on
	// the final leg only, so the set queues atomically at the venue.
	Transmit bool

	TimeInForce   string
	ClientOrderID string

	EstimatedPrice    float64
	EstimatedNotional float64
}

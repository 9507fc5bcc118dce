package domain

import "fmt"

// SecurityType is a closed enumeration of the instrument classes the gateway
// can route. Contract construction switches exhaustively over it; adding a
// value here requires extending that switch.
type SecurityType string

const (
	SecStock  SecurityType = "STK"
	SecETF    SecurityType = "ETF"
	SecFuture SecurityType = "FUT"
	SecOption SecurityType = "OPT"
	SecIndex  SecurityType = "IND"
	SecCash   SecurityType = "CASH"
	SecCFD    SecurityType = "CFD"
	SecBond   SecurityType = "BOND"
	SecFund   SecurityType = "FUND"
	SecCrypto SecurityType = "CRYPTO"
)

// Valid reports whether the security type is one of the known values.
func (t SecurityType) Valid() bool {
	switch t {
	case SecStock, SecETF, SecFuture, SecOption, SecIndex, SecCash, SecCFD, SecBond, SecFund, SecCrypto:
		return true
	}
	return false
}

// OptionRight distinguishes calls from puts.
type OptionRight string

const (
	RightCall OptionRight = "C"
	RightPut  OptionRight = "P"
)

// SymbolSpec is a logical instrument description supplied by callers. It is
// an immutable value; defaulting produces a new copy.
type SymbolSpec struct {
	Symbol       string
	SecurityType SecurityType
	Exchange     string      // optional, filled by defaults table when empty
	Currency     string      // optional, defaults to the venue base currency
	Expiry       string      // YYYYMMDD, futures/options
	Strike       float64     // options
	Right        OptionRight // options
	Multiplier   string      // futures/options contract multiplier
}

// CacheKey identifies a spec in the contract cache. Keys are computed over the
// defaulted tuple so "AAPL" and "AAPL@SMART/USD" land on the same entry.
func (s SymbolSpec) CacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", s.Symbol, s.SecurityType, s.Exchange, s.Currency)
}

// ResolvedContract is a venue-qualified instrument identity. Instances are
// immutable values; the cache hands out copies, never shared pointers.
type ResolvedContract struct {
	ConID        int64
	Symbol       string
	SecurityType SecurityType
	Exchange     string
	Currency     string
	Expiry       string // YYYYMMDD where applicable
	Strike       float64
	Right        OptionRight
	Multiplier   string
	LocalSymbol  string
}

// ContractDetails is one candidate returned by a contract-details lookup,
// used for front-month selection on bare futures specs.
type ContractDetails struct {
	Contract ResolvedContract
	Expiry   string // YYYYMMDD
}

// Quote is a point-in-time market snapshot for a resolved contract.
type Quote struct {
	Bid  float64
	Ask  float64
	Last float64
}

// Mid returns the bid/ask midpoint, falling back to the last trade when one
// side of the book is missing.
func (q Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// AccountSummary is the slice of account state the preview path needs.
type AccountSummary struct {
	NetLiquidation float64
	Currency       string
}

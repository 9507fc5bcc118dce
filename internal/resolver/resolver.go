package resolver

import (
	"context"
	"fmt"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
)

// symbolDefaults fills in exchange/currency for well-known symbols when the
// caller leaves them unspecified.
type symbolDefault struct {
	exchange string
	currency string
}

var symbolDefaultsTable = map[string]symbolDefault{
	// Index futures
	"ES":  {exchange: "CME", currency: "USD"},
	"MES": {exchange: "CME", currency: "USD"},
	"NQ":  {exchange: "CME", currency: "USD"},
	"MNQ": {exchange: "CME", currency: "USD"},
	"RTY": {exchange: "CME", currency: "USD"},
	"YM":  {exchange: "CBOT", currency: "USD"},
	"ZB":  {exchange: "CBOT", currency: "USD"},
	"ZN":  {exchange: "CBOT", currency: "USD"},
	"CL":  {exchange: "NYMEX", currency: "USD"},
	"GC":  {exchange: "COMEX", currency: "USD"},
	"SI":  {exchange: "COMEX", currency: "USD"},
	// Indices
	"SPX": {exchange: "CBOE", currency: "USD"},
	"VIX": {exchange: "CBOE", currency: "USD"},
	"NDX": {exchange: "NASDAQ", currency: "USD"},
	"DAX": {exchange: "EUREX", currency: "EUR"},
}

const defaultEquityExchange = "SMART"

// Resolver maps logical symbol specs to venue-qualified contracts, consulting
// the in-memory cache before the broker session. Construct once and inject
// (no global cache).
type Resolver struct {
	session      ports.BrokerSession
	cache        *ContractCache
	logger       ports.Logger
	baseCurrency string
}

// Config holds configuration for the instrument resolver.
type Config struct {
	Session      ports.BrokerSession
	Cache        *ContractCache
	Logger       ports.Logger
	BaseCurrency string // default currency for bare specs, e.g. "USD"
}

// New creates an instrument resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Session == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for resolver")
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewContractCache()
	}
	base := cfg.BaseCurrency
	if base == "" {
		base = "USD"
	}
	return &Resolver{
		session:      cfg.Session,
		cache:        cache,
		logger:       cfg.Logger,
		baseCurrency: base,
	}, nil
}

// Cache exposes the contract cache (tests clear it between cases).
func (r *Resolver) Cache() *ContractCache {
	return r.cache
}

// ApplyDefaults returns a copy of the spec with exchange and currency filled
// from the static symbol table; currency falls back to the venue base
// currency. The input spec is never modified.
func (r *Resolver) ApplyDefaults(spec domain.SymbolSpec) domain.SymbolSpec {
	out := spec
	if d, ok := symbolDefaultsTable[spec.Symbol]; ok {
		if out.Exchange == "" {
			out.Exchange = d.exchange
		}
		if out.Currency == "" {
			out.Currency = d.currency
		}
	}
	if out.Exchange == "" {
		switch out.SecurityType {
		case domain.SecStock, domain.SecETF:
			out.Exchange = defaultEquityExchange
		}
	}
	if out.Currency == "" {
		out.Currency = r.baseCurrency
	}
	return out
}

// validateSpec rejects specs that can never qualify, before any venue call.
func validateSpec(spec domain.SymbolSpec) error {
	if spec.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ports.ErrInvalidRequest)
	}
	if !spec.SecurityType.Valid() {
		return fmt.Errorf("%w: unknown security type %q", ports.ErrInvalidRequest, spec.SecurityType)
	}
	if spec.SecurityType == domain.SecOption {
		if spec.Expiry == "" || spec.Strike <= 0 || (spec.Right != domain.RightCall && spec.Right != domain.RightPut) {
			return fmt.Errorf("%w: options require expiry, strike and right", ports.ErrInvalidRequest)
		}
	}
	return nil
}

// Resolve maps a spec to a venue-qualified contract. Cache hits return
// immediately without touching the session; misses require a connected
// session. On success the contract is cached (when useCache) under the
// defaulted spec tuple.
func (r *Resolver) Resolve(ctx context.Context, spec domain.SymbolSpec, useCache bool) (domain.ResolvedContract, error) {
	if err := validateSpec(spec); err != nil {
		return domain.ResolvedContract{}, err
	}

	defaulted := r.ApplyDefaults(spec)

	if useCache {
		if contract, ok := r.cache.Get(defaulted); ok {
			return contract, nil
		}
	}

	if !r.session.IsConnected() {
		return domain.ResolvedContract{}, fmt.Errorf("resolving %s: %w", defaulted.Symbol, ports.ErrConnectionFailed)
	}

	contract, err := r.qualify(ctx, defaulted, fullySpecified(spec))
	if err != nil {
		return domain.ResolvedContract{}, err
	}

	if useCache {
		r.cache.Put(defaulted, contract)
	}
	return contract, nil
}

// qualify builds and qualifies a contract for the defaulted spec. The switch
// over SecurityType is exhaustive; validateSpec guarantees the type is known.
// explicit reports whether the caller pinned the spec down before defaulting.
func (r *Resolver) qualify(ctx context.Context, spec domain.SymbolSpec, explicit bool) (domain.ResolvedContract, error) {
	switch spec.SecurityType {
	case domain.SecFuture:
		if spec.Expiry == "" {
			return r.frontMonthContract(ctx, spec)
		}
		return r.qualifySingle(ctx, spec, explicit)
	case domain.SecStock, domain.SecETF, domain.SecOption, domain.SecIndex,
		domain.SecCash, domain.SecCFD, domain.SecBond, domain.SecFund, domain.SecCrypto:
		return r.qualifySingle(ctx, spec, explicit)
	default:
		return domain.ResolvedContract{}, fmt.Errorf("%w: unhandled security type %q", ports.ErrInvalidRequest, spec.SecurityType)
	}
}

// qualifySingle asks the venue for candidates and picks one deterministically.
// Multiple candidates for a bare spec take the first returned match with a
// warning; the ambiguity error is reserved for candidates that disagree on
// contract id even though the caller pinned the spec down completely.
func (r *Resolver) qualifySingle(ctx context.Context, spec domain.SymbolSpec, explicit bool) (domain.ResolvedContract, error) {
	candidates, err := r.session.QualifyContract(ctx, spec)
	if err != nil {
		return domain.ResolvedContract{}, fmt.Errorf("qualifying %s: %w", spec.Symbol, err)
	}
	switch len(candidates) {
	case 0:
		return domain.ResolvedContract{}, fmt.Errorf("%w: %s %s on %s", ports.ErrContractNotFound, spec.SecurityType, spec.Symbol, spec.Exchange)
	case 1:
		return candidates[0], nil
	}

	if explicit && !sameConID(candidates) {
		return domain.ResolvedContract{}, fmt.Errorf("%w: %s %s matched %d distinct contracts", ports.ErrAmbiguousContract, spec.SecurityType, spec.Symbol, len(candidates))
	}
	r.logger.Warn(ctx, "Multiple contract matches, taking first candidate", map[string]interface{}{
		"symbol":     spec.Symbol,
		"secType":    spec.SecurityType,
		"candidates": len(candidates),
	})
	return candidates[0], nil
}

// fullySpecified reports whether the spec leaves the venue no room to choose.
func fullySpecified(spec domain.SymbolSpec) bool {
	if spec.Exchange == "" || spec.Currency == "" {
		return false
	}
	switch spec.SecurityType {
	case domain.SecFuture:
		return spec.Expiry != ""
	case domain.SecOption:
		return spec.Expiry != "" && spec.Strike > 0 && spec.Right != ""
	}
	return true
}

func sameConID(candidates []domain.ResolvedContract) bool {
	for _, c := range candidates[1:] {
		if c.ConID != candidates[0].ConID {
			return false
		}
	}
	return true
}

// frontMonthContract selects the nearest-expiry candidate for a bare futures
// spec. Front month = lexicographically smallest 8-digit YYYYMMDD expiry
// among the returned candidates, ties broken by first-returned order.
func (r *Resolver) frontMonthContract(ctx context.Context, spec domain.SymbolSpec) (domain.ResolvedContract, error) {
	details, err := r.session.ContractDetails(ctx, spec)
	if err != nil {
		return domain.ResolvedContract{}, fmt.Errorf("fetching contract details for %s: %w", spec.Symbol, err)
	}
	if len(details) == 0 {
		return domain.ResolvedContract{}, fmt.Errorf("%w: no futures candidates for %s", ports.ErrContractNotFound, spec.Symbol)
	}

	best := 0
	for i := 1; i < len(details); i++ {
		if validExpiry(details[i].Expiry) && (!validExpiry(details[best].Expiry) || details[i].Expiry < details[best].Expiry) {
			best = i
		}
	}
	if !validExpiry(details[best].Expiry) {
		return domain.ResolvedContract{}, fmt.Errorf("%w: no candidate for %s carries a usable expiry", ports.ErrContractNotFound, spec.Symbol)
	}

	contract := details[best].Contract
	contract.Expiry = details[best].Expiry
	r.logger.Debug(ctx, "Selected front month", map[string]interface{}{
		"symbol": spec.Symbol,
		"expiry": contract.Expiry,
	})
	return contract, nil
}

func validExpiry(expiry string) bool {
	if len(expiry) != 8 {
		return false
	}
	for _, ch := range expiry {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// ResolveContracts resolves a batch sequentially, failing the whole batch on
// the first unresolved symbol.
func (r *Resolver) ResolveContracts(ctx context.Context, specs []domain.SymbolSpec) ([]domain.ResolvedContract, error) {
	out := make([]domain.ResolvedContract, 0, len(specs))
	for _, spec := range specs {
		contract, err := r.Resolve(ctx, spec, true)
		if err != nil {
			return nil, fmt.Errorf("batch resolution failed at %s: %w", spec.Symbol, err)
		}
		out = append(out, contract)
	}
	return out, nil
}

// FrontMonthExpiry returns the front-month expiry of a futures symbol as an
// ISO date (YYYY-MM-DD). Always bypasses the cache so the answer tracks venue
// rollovers.
func (r *Resolver) FrontMonthExpiry(ctx context.Context, symbol string) (string, error) {
	contract, err := r.Resolve(ctx, domain.SymbolSpec{Symbol: symbol, SecurityType: domain.SecFuture}, false)
	if err != nil {
		return "", err
	}
	exp := contract.Expiry
	if !validExpiry(exp) {
		return "", fmt.Errorf("%w: contract for %s has no 8-digit expiry", ports.ErrContractNotFound, symbol)
	}
	return fmt.Sprintf("%s-%s-%s", exp[0:4], exp[4:6], exp[6:8]), nil
}

package ports

import (
	"context"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
)

// BrokerSession defines the interface for a connected trading-venue session.
// Connection lifecycle (connect, reconnect, teardown) is managed by the owner
// of the session, not by the core; every call here is blocking and must be
// wrapped with a caller-supplied deadline.
type BrokerSession interface {
	// IsConnected reports whether the session can currently reach the venue.
	IsConnected() bool

	// QualifyContract resolves a symbol spec into zero or more venue-qualified
	// candidates. Zero candidates means the venue does not know the instrument.
	QualifyContract(ctx context.Context, spec domain.SymbolSpec) ([]domain.ResolvedContract, error)

	// ContractDetails returns the full candidate set for a spec, including
	// per-candidate expiries. Used for front-month selection on bare futures.
	ContractDetails(ctx context.Context, spec domain.SymbolSpec) ([]domain.ContractDetails, error)

	// PlaceOrder submits a single leg against a qualified contract and returns
	// the venue's order id. The leg's Transmit flag controls whether this call
	// activates the pending set.
	PlaceOrder(ctx context.Context, contract domain.ResolvedContract, leg domain.OrderLeg) (int64, error)

	// CancelOrder requests cancellation of an open order by venue id.
	CancelOrder(ctx context.Context, orderID int64) error

	// OrderState polls the venue for the current lifecycle state of an order.
	OrderState(ctx context.Context, orderID int64) (domain.OrderState, error)

	// Quote returns a current market snapshot for a qualified contract.
	Quote(ctx context.Context, contract domain.ResolvedContract) (domain.Quote, error)

	// AccountSummary returns the account equity view used for risk warnings.
	AccountSummary(ctx context.Context) (domain.AccountSummary, error)
}

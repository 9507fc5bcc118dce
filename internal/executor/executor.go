package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/control"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/orders"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/resolver"
)

// Executor runs the full order pipeline against a live broker session:
// Validated -> GateChecked -> ContractResolved -> LegsBuilt -> Dispatched.
// Validation failures and gate vetoes short-circuit locally and never touch
// the venue. Blocking broker calls go through a bounded semaphore under a
// per-call deadline; a deadline hit is surfaced as a timeout with unknown
// venue outcome and is never retried here.
type Executor struct {
	gate     *control.Gate
	resolver *resolver.Resolver
	builder  *orders.Builder
	session  ports.BrokerSession
	audit    ports.AuditStore
	logger   ports.Logger

	sem         chan struct{}
	callTimeout time.Duration
}

// Config holds configuration for the order executor.
type Config struct {
	Gate     *control.Gate
	Resolver *resolver.Resolver
	Builder  *orders.Builder
	Session  ports.BrokerSession
	Audit    ports.AuditStore
	Logger   ports.Logger

	// Workers bounds concurrent blocking venue calls. Defaults to 4.
	Workers int
	// CallTimeout is the per-call deadline on venue operations. Defaults to 15s.
	CallTimeout time.Duration
}

// New creates an order executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Gate == nil || cfg.Resolver == nil || cfg.Builder == nil || cfg.Session == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for executor")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Executor{
		gate:        cfg.Gate,
		resolver:    cfg.Resolver,
		builder:     cfg.Builder,
		session:     cfg.Session,
		audit:       cfg.Audit,
		logger:      cfg.Logger,
		sem:         make(chan struct{}, workers),
		callTimeout: timeout,
	}, nil
}

// withSession runs one blocking venue call under the semaphore and deadline.
func (e *Executor) withSession(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for dispatch slot", ports.ErrContextCanceled)
	}
	defer func() { <-e.sem }()

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ports.ErrTimeout, err)
	}
	return err
}

// PreviewOrder estimates price, notional, commission and risk warnings for a
// spec. Runs validation, resolution and leg building but never dispatches and
// never consults the safety gate.
func (e *Executor) PreviewOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderPreview, error) {
	if problems := e.builder.ValidateSpec(spec); len(problems) > 0 {
		return domain.OrderPreview{}, fmt.Errorf("%w: %s", ports.ErrOrderValidation, strings.Join(problems, "; "))
	}

	contract, err := e.resolver.Resolve(ctx, spec.Instrument, true)
	if err != nil {
		return domain.OrderPreview{}, err
	}

	legs := e.builder.BuildLegs(spec)

	var quote domain.Quote
	if err := e.withSession(ctx, func(ctx context.Context) error {
		var qerr error
		quote, qerr = e.session.Quote(ctx, contract)
		return qerr
	}); err != nil {
		return domain.OrderPreview{}, fmt.Errorf("fetching reference quote: %w", err)
	}

	// Account data only feeds warnings; proceed without it on failure.
	var account domain.AccountSummary
	if err := e.withSession(ctx, func(ctx context.Context) error {
		var aerr error
		account, aerr = e.session.AccountSummary(ctx)
		return aerr
	}); err != nil {
		e.logger.Warn(ctx, "Account summary unavailable, skipping size warnings", map[string]interface{}{"error": err.Error()})
		account = domain.AccountSummary{}
	}

	return e.builder.Preview(spec, legs, quote, account), nil
}

// PlaceOrder runs the full state machine for one spec.
func (e *Executor) PlaceOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderResult, error) {
	// Validated
	if problems := e.builder.ValidateSpec(spec); len(problems) > 0 {
		result := domain.OrderResult{Status: domain.ResultRejected, Errors: problems}
		e.auditPlacement(ctx, spec, result, "validation failed")
		return result, nil
	}

	// GateChecked: a veto means nothing reaches the venue, and the caller
	// gets an unambiguous SIMULATED outcome rather than a fake success.
	veto, err := e.gate.Check(ctx)
	if err != nil {
		return domain.OrderResult{}, err
	}
	if veto == "" {
		if state, lerr := e.gate.Load(ctx); lerr == nil && state.EffectiveDryRun() {
			veto = "dry run enabled; order not dispatched"
		}
	}
	if veto != "" {
		result := domain.OrderResult{Status: domain.ResultSimulated, Errors: []string{veto}}
		e.auditPlacement(ctx, spec, result, fmt.Sprintf("%v: %s", ports.ErrTradingDisabled, veto))
		return result, nil
	}

	// ContractResolved
	contract, err := e.resolver.Resolve(ctx, spec.Instrument, true)
	if err != nil {
		return domain.OrderResult{}, err
	}

	// LegsBuilt
	legs := e.builder.BuildLegs(spec)

	// Dispatched: strictly in builder order, activating leg last. A rejection
	// of any leg fails the whole result; ids accepted so far stay visible so
	// the caller can see partial acceptance.
	result := domain.OrderResult{
		Status:     domain.ResultAccepted,
		OrderRoles: make(map[domain.LegRole]int64, len(legs)),
	}
	for i, leg := range legs {
		var orderID int64
		err := e.withSession(ctx, func(ctx context.Context) error {
			var perr error
			orderID, perr = e.session.PlaceOrder(ctx, contract, leg)
			return perr
		})
		if err != nil {
			e.logger.Error(ctx, err, "Leg dispatch rejected", map[string]interface{}{
				"role":     leg.Role,
				"legIndex": i,
				"symbol":   contract.Symbol,
			})
			result.Status = domain.ResultRejected
			result.Errors = append(result.Errors, fmt.Sprintf("leg %d (%s): %v", i, leg.Role, err))
			e.auditPlacement(ctx, spec, result, "venue rejected leg")
			return result, nil
		}
		result.OrderIDs = append(result.OrderIDs, orderID)
		result.OrderRoles[leg.Role] = orderID
		if leg.Role == domain.RoleEntry {
			result.OrderID = orderID
		}
	}
	if result.OrderID == 0 && len(result.OrderIDs) > 0 {
		result.OrderID = result.OrderIDs[0]
	}

	e.logger.Info(ctx, "Order set dispatched", map[string]interface{}{
		"symbol":  contract.Symbol,
		"orderID": result.OrderID,
		"legs":    len(legs),
	})
	e.auditPlacement(ctx, spec, result, "accepted")
	return result, nil
}

// CancelOrder is a best-effort cancel of one venue order.
func (e *Executor) CancelOrder(ctx context.Context, orderID int64) domain.CancelResult {
	err := e.withSession(ctx, func(ctx context.Context) error {
		return e.session.CancelOrder(ctx, orderID)
	})
	if err == nil {
		return domain.CancelResult{OrderID: orderID, Status: domain.CancelDone}
	}
	if errors.Is(err, ports.ErrOrderNotFound) {
		return domain.CancelResult{OrderID: orderID, Status: domain.CancelNotFound, Message: err.Error()}
	}

	// A cancel refused by the venue usually means the order already filled;
	// check before reporting a hard rejection.
	if state, serr := e.GetOrderStatus(ctx, orderID); serr == nil && state.Status == domain.StatusFilled {
		return domain.CancelResult{OrderID: orderID, Status: domain.CancelAlreadyFilled, Message: err.Error()}
	}
	return domain.CancelResult{OrderID: orderID, Status: domain.CancelRejected, Message: err.Error()}
}

// CancelOrderSet cancels each id independently; one result per id. Cancelling
// a bracket's entry does not undo already-filled exit legs.
func (e *Executor) CancelOrderSet(ctx context.Context, orderIDs []int64) []domain.CancelResult {
	results := make([]domain.CancelResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		results = append(results, e.CancelOrder(ctx, id))
	}
	return results
}

// GetOrderStatus polls the venue and normalizes its native status label.
// Never cached; always current as of the call.
func (e *Executor) GetOrderStatus(ctx context.Context, orderID int64) (domain.OrderState, error) {
	var state domain.OrderState
	err := e.withSession(ctx, func(ctx context.Context) error {
		var serr error
		state, serr = e.session.OrderState(ctx, orderID)
		return serr
	})
	if err != nil {
		return domain.OrderState{}, err
	}
	state.Status = NormalizeStatus(string(state.Status))
	return state, nil
}

// GetOrderSetStatus polls a set of related orders.
func (e *Executor) GetOrderSetStatus(ctx context.Context, orderIDs []int64) ([]domain.OrderState, error) {
	states := make([]domain.OrderState, 0, len(orderIDs))
	for _, id := range orderIDs {
		state, err := e.GetOrderStatus(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("polling order %d: %w", id, err)
		}
		states = append(states, state)
	}
	return states, nil
}

func (e *Executor) auditPlacement(ctx context.Context, spec domain.OrderSpec, result domain.OrderResult, reason string) {
	if e.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		Time:   time.Now().UTC(),
		Action: "place_order",
		Reason: reason,
		Metadata: map[string]interface{}{
			"symbol":     spec.Instrument.Symbol,
			"side":       string(spec.Side),
			"order_type": string(spec.OrderType),
			"quantity":   spec.Quantity,
			"status":     string(result.Status),
			"order_id":   result.OrderID,
		},
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.Error(ctx, err, "Failed to append audit entry", map[string]interface{}{"action": entry.Action})
	}
}

// NormalizeStatus maps a venue-native status label onto the gateway's
// lifecycle enum. Unknown labels map to SUBMITTED, the most conservative
// open-order assumption.
func NormalizeStatus(native string) domain.OrderStatus {
	switch strings.ToUpper(strings.ReplaceAll(native, " ", "")) {
	case "PENDINGSUBMIT", "PENDING_SUBMIT", "APIPENDING", "PRESUBMITTED", "NEW":
		return domain.StatusPendingSubmit
	case "PENDINGCANCEL", "PENDING_CANCEL":
		return domain.StatusPendingCancel
	case "SUBMITTED":
		return domain.StatusSubmitted
	case "PARTIALLYFILLED", "PARTIALLY_FILLED":
		return domain.StatusPartiallyFilled
	case "FILLED":
		return domain.StatusFilled
	case "CANCELLED", "CANCELED", "APICANCELLED":
		return domain.StatusCancelled
	case "REJECTED", "INACTIVE":
		return domain.StatusRejected
	case "EXPIRED":
		return domain.StatusExpired
	default:
		return domain.StatusSubmitted
	}
}

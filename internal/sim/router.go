package sim

import (
	"context"
	"fmt"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/orders"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
)

// simAccountEquity is the fixed account size reported by the simulated venue.
const simAccountEquity = 1_000_000

// Router adapts the matching engine to the ports.OrderRouter contract so it
// is a drop-in substitute for the live executor in tests and offline demos.
// No safety gate is involved: the simulated venue is always safe to hit.
type Router struct {
	engine  *Engine
	builder *orders.Builder
	logger  ports.Logger
}

// NewRouter wraps an engine in the executor-shaped contract.
func NewRouter(engine *Engine, builder *orders.Builder, logger ports.Logger) (*Router, error) {
	if engine == nil || builder == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for sim router")
	}
	return &Router{engine: engine, builder: builder, logger: logger}, nil
}

// PreviewOrder estimates against the synthetic quote; account equity is fixed.
func (r *Router) PreviewOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderPreview, error) {
	if problems := r.builder.ValidateSpec(spec); len(problems) > 0 {
		return domain.OrderPreview{}, fmt.Errorf("%w: %s", ports.ErrOrderValidation, problems[0])
	}
	legs := r.builder.BuildLegs(spec)
	quote := r.engine.Quote(spec.Instrument.Symbol)
	account := domain.AccountSummary{NetLiquidation: simAccountEquity, Currency: "USD"}
	return r.builder.Preview(spec, legs, quote, account), nil
}

// PlaceOrder expands the spec with the real builder and submits each leg to
// the engine in builder order, mirroring the executor's result shape.
func (r *Router) PlaceOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderResult, error) {
	if problems := r.builder.ValidateSpec(spec); len(problems) > 0 {
		return domain.OrderResult{Status: domain.ResultRejected, Errors: problems}, nil
	}

	legs := r.builder.BuildLegs(spec)
	result := domain.OrderResult{
		Status:     domain.ResultAccepted,
		OrderRoles: make(map[domain.LegRole]int64, len(legs)),
	}
	for i, leg := range legs {
		order, err := r.engine.SubmitLeg(spec.Instrument.Symbol, leg)
		if err != nil {
			result.Status = domain.ResultRejected
			result.Errors = append(result.Errors, fmt.Sprintf("leg %d (%s): %v", i, leg.Role, err))
			return result, nil
		}
		result.OrderIDs = append(result.OrderIDs, order.OrderID)
		result.OrderRoles[leg.Role] = order.OrderID
		if leg.Role == domain.RoleEntry {
			result.OrderID = order.OrderID
		}
	}
	if result.OrderID == 0 && len(result.OrderIDs) > 0 {
		result.OrderID = result.OrderIDs[0]
	}
	return result, nil
}

// CancelOrder maps the engine's boolean cancel onto the executor's outcome
// classes.
func (r *Router) CancelOrder(ctx context.Context, orderID int64) domain.CancelResult {
	if r.engine.CancelOrder(orderID) {
		return domain.CancelResult{OrderID: orderID, Status: domain.CancelDone}
	}
	order, ok := r.engine.Order(orderID)
	if !ok {
		return domain.CancelResult{OrderID: orderID, Status: domain.CancelNotFound}
	}
	if order.Status == SimFilled {
		return domain.CancelResult{OrderID: orderID, Status: domain.CancelAlreadyFilled}
	}
	return domain.CancelResult{OrderID: orderID, Status: domain.CancelRejected, Message: "order already cancelled"}
}

// CancelOrderSet cancels each id independently.
func (r *Router) CancelOrderSet(ctx context.Context, orderIDs []int64) []domain.CancelResult {
	results := make([]domain.CancelResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		results = append(results, r.CancelOrder(ctx, id))
	}
	return results
}

// GetOrderStatus reports the registry entry in the normalized lifecycle enum.
func (r *Router) GetOrderStatus(ctx context.Context, orderID int64) (domain.OrderState, error) {
	order, ok := r.engine.Order(orderID)
	if !ok {
		return domain.OrderState{}, fmt.Errorf("order %d: %w", orderID, ports.ErrOrderNotFound)
	}
	return domain.OrderState{
		OrderID:      order.OrderID,
		Status:       normalizeSimStatus(order.Status),
		FilledQty:    order.FilledQty,
		RemainingQty: order.Quantity - order.FilledQty,
		AvgFillPrice: order.FillPrice,
	}, nil
}

// GetOrderSetStatus polls a set of related orders.
func (r *Router) GetOrderSetStatus(ctx context.Context, orderIDs []int64) ([]domain.OrderState, error) {
	states := make([]domain.OrderState, 0, len(orderIDs))
	for _, id := range orderIDs {
		state, err := r.GetOrderStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

func normalizeSimStatus(s SimStatus) domain.OrderStatus {
	switch s {
	case SimPendingSubmit:
		return domain.StatusPendingSubmit
	case SimFilled:
		return domain.StatusFilled
	case SimCancelled:
		return domain.StatusCancelled
	default:
		return domain.StatusSubmitted
	}
}

package ports

import (
	"context"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
)

// OrderRouter is the contract the transport layer consumes. The live executor
// and the simulated matching engine both implement it, so environments without
// a venue connection can swap the engine in without touching callers.
type OrderRouter interface {
	// PreviewOrder estimates cost and risk without dispatching anything.
	PreviewOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderPreview, error)

	// PlaceOrder runs the full pipeline: validation, gate check, resolution,
	// leg expansion, dispatch. Gate vetoes come back as SIMULATED results,
	// validation failures as REJECTED; neither reaches the venue.
	PlaceOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderResult, error)

	// CancelOrder is a best-effort cancel of one order.
	CancelOrder(ctx context.Context, orderID int64) domain.CancelResult

	// CancelOrderSet cancels a set of related orders, one result per id.
	CancelOrderSet(ctx context.Context, orderIDs []int64) []domain.CancelResult

	// GetOrderStatus polls and normalizes the current state of one order.
	GetOrderStatus(ctx context.Context, orderID int64) (domain.OrderState, error)

	// GetOrderSetStatus polls a set of related orders.
	GetOrderSetStatus(ctx context.Context, orderIDs []int64) ([]domain.OrderState, error)
}

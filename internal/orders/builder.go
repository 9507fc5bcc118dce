package orders

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
)

// Builder validates order specs and expands them into dispatchable legs.
// It is stateless; construct once and share.
type Builder struct{}

// NewBuilder creates an order builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// ValidateSpec checks per-order-type field requirements and returns every
// problem found as a human-readable list. Nothing is corrected silently.
func (b *Builder) ValidateSpec(spec domain.OrderSpec) []string {
	var problems []string

	if !spec.Side.Valid() {
		problems = append(problems, fmt.Sprintf("side must be BUY or SELL, got %q", spec.Side))
	}
	if spec.Quantity <= 0 {
		problems = append(problems, fmt.Sprintf("quantity must be strictly positive, got %v", spec.Quantity))
	}
	if !spec.OrderType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown order type %q", spec.OrderType))
		return problems // per-type checks below are meaningless
	}

	switch spec.OrderType {
	case domain.Limit:
		if spec.LimitPrice <= 0 {
			problems = append(problems, "LMT orders require limitPrice")
		}
	case domain.Stop:
		if spec.StopPrice <= 0 {
			problems = append(problems, "STP orders require stopPrice")
		}
	case domain.StopLimit:
		if spec.LimitPrice <= 0 {
			problems = append(problems, "STP_LMT orders require limitPrice")
		}
		if spec.StopPrice <= 0 {
			problems = append(problems, "STP_LMT orders require stopPrice")
		}
	case domain.Trail, domain.TrailLimit:
		hasAmount := spec.TrailingAmount > 0
		hasPercent := spec.TrailingPercent > 0
		if hasAmount == hasPercent {
			problems = append(problems, fmt.Sprintf("%s orders require exactly one of trailingAmount or trailingPercent", spec.OrderType))
		}
		if spec.OrderType == domain.TrailLimit && spec.LimitPrice <= 0 {
			problems = append(problems, "TRAIL_LIMIT orders require limitPrice")
		}
	case domain.Bracket:
		if spec.TakeProfitPrice <= 0 {
			problems = append(problems, "BRACKET orders require takeProfitPrice")
		}
		if spec.StopLossPrice <= 0 {
			problems = append(problems, "BRACKET orders require stopLossPrice")
		}
	}

	return problems
}

// BuildLegs expands a validated spec into its dispatch legs. For simple
// orders this is a single leg mirroring the spec. For BRACKET it is exactly
// three: the entry as specified plus two opposite-side exits sharing one OCA
// group.
//
// Activation ordering invariant: exactly one leg carries Transmit and it is
// always the last leg, so the set queues atomically at the venue; every
// preceding leg is staged non-activating. BracketTransmit=false stages all
// legs without activating any of them.
func (b *Builder) BuildLegs(spec domain.OrderSpec) []domain.OrderLeg {
	if spec.OrderType != domain.Bracket {
		leg := domain.OrderLeg{
			Role:            domain.RoleEntry,
			Side:            spec.Side,
			Quantity:        spec.Quantity,
			OrderType:       spec.OrderType,
			LimitPrice:      spec.LimitPrice,
			StopPrice:       spec.StopPrice,
			TrailingAmount:  spec.TrailingAmount,
			TrailingPercent: spec.TrailingPercent,
			OCAGroup:        spec.OCAGroup,
			OCAType:         spec.OCAType,
			TimeInForce:     spec.TimeInForce,
			ClientOrderID:   spec.ClientOrderID,
			Transmit:        spec.Transmit(),
		}
		return []domain.OrderLeg{leg}
	}

	// Entry leg: a bracket's entry is a market order unless a limit price was
	// given, in which case it enters as a limit.
	entryType := domain.Market
	if spec.LimitPrice > 0 {
		entryType = domain.Limit
	}
	entry := domain.OrderLeg{
		Role:          domain.RoleEntry,
		Side:          spec.Side,
		Quantity:      spec.Quantity,
		OrderType:     entryType,
		LimitPrice:    spec.LimitPrice,
		TimeInForce:   spec.TimeInForce,
		ClientOrderID: spec.ClientOrderID,
	}

	exitSide := spec.Side.Opposite()
	takeProfit := domain.OrderLeg{
		Role:       domain.RoleTakeProfit,
		Side:       exitSide,
		Quantity:   spec.Quantity,
		OrderType:  domain.Limit,
		LimitPrice: spec.TakeProfitPrice,
	}

	stopLoss := domain.OrderLeg{
		Role:      domain.RoleStopLoss,
		Side:      exitSide,
		Quantity:  spec.Quantity,
		OrderType: domain.Stop,
		StopPrice: spec.StopLossPrice,
	}
	if spec.StopLossLimitPrice > 0 {
		stopLoss.OrderType = domain.StopLimit
		stopLoss.LimitPrice = spec.StopLossLimitPrice
	}

	legs := []domain.OrderLeg{entry, takeProfit, stopLoss}

	// Exit legs share an OCA group: a fill on either cancels the other at the
	// venue per OCAType.
	group := spec.OCAGroup
	if group == "" {
		group = "OCA-" + uuid.NewString()
	}
	ocaType := spec.OCAType
	if ocaType == 0 {
		ocaType = domain.OCACancelWithBlock
	}
	ApplyOCA(legs[1:], group, ocaType)

	if spec.Transmit() {
		legs[len(legs)-1].Transmit = true
	}
	return legs
}

// ApplyOCA stamps every leg in the slice with the same OCA group and type.
func ApplyOCA(legs []domain.OrderLeg, group string, ocaType domain.OCAType) {
	for i := range legs {
		legs[i].OCAGroup = group
		legs[i].OCAType = ocaType
	}
}

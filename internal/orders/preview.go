package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
)

// Commission heuristics per security class, roughly matching a US retail
// venue's published schedule. Estimates only; the venue's own preview is
// authoritative when connected.
var (
	equityPerShare   = decimal.NewFromFloat(0.005)
	equityMinimum    = decimal.NewFromFloat(1.00)
	futuresPerLot    = decimal.NewFromFloat(2.25)
	optionPerLot     = decimal.NewFromFloat(0.65)
	otherNotionalBps = decimal.NewFromFloat(0.0010) // 10 bps
)

// largeNotionalFraction triggers a size warning when one order exceeds this
// share of account net liquidation.
const largeNotionalFraction = 0.10

// Preview computes a non-committing estimate for a built leg set. The
// reference price is the spec's limit price when present, else the quote mid.
// Account may be zero-valued when no account data is available; the size
// warning is skipped in that case.
func (b *Builder) Preview(spec domain.OrderSpec, legs []domain.OrderLeg, quote domain.Quote, account domain.AccountSummary) domain.OrderPreview {
	refPrice := spec.LimitPrice
	if refPrice <= 0 {
		refPrice = quote.Mid()
	}

	qty := decimal.NewFromFloat(spec.Quantity)
	ref := decimal.NewFromFloat(refPrice)
	notional := qty.Mul(ref)

	preview := domain.OrderPreview{
		EstimatedPrice:      refPrice,
		EstimatedNotional:   notional.InexactFloat64(),
		EstimatedCommission: estimateCommission(spec.Instrument.SecurityType, qty, notional).InexactFloat64(),
		Legs:                annotateLegs(legs, refPrice),
	}

	total := decimal.Zero
	for _, leg := range preview.Legs {
		total = total.Add(decimal.NewFromFloat(leg.EstimatedNotional))
	}
	preview.TotalNotional = total.InexactFloat64()

	// Margin deltas: flat heuristic pending venue-side what-if support.
	preview.InitialMarginDelta = notional.Mul(decimal.NewFromFloat(0.25)).InexactFloat64()
	preview.MaintMarginDelta = notional.Mul(decimal.NewFromFloat(0.20)).InexactFloat64()

	preview.Warnings = previewWarnings(spec, quote, notional, account)
	return preview
}

// annotateLegs fills per-leg estimated price and notional. Exit legs use
// their own limit/stop prices; the entry uses the reference price.
func annotateLegs(legs []domain.OrderLeg, refPrice float64) []domain.OrderLeg {
	out := make([]domain.OrderLeg, len(legs))
	copy(out, legs)
	for i := range out {
		price := refPrice
		switch {
		case out[i].LimitPrice > 0:
			price = out[i].LimitPrice
		case out[i].StopPrice > 0:
			price = out[i].StopPrice
		}
		out[i].EstimatedPrice = price
		out[i].EstimatedNotional = decimal.NewFromFloat(out[i].Quantity).
			Mul(decimal.NewFromFloat(price)).InexactFloat64()
	}
	return out
}

func estimateCommission(secType domain.SecurityType, qty, notional decimal.Decimal) decimal.Decimal {
	switch secType {
	case domain.SecStock, domain.SecETF:
		c := qty.Mul(equityPerShare)
		if c.LessThan(equityMinimum) {
			return equityMinimum
		}
		return c
	case domain.SecFuture:
		return qty.Mul(futuresPerLot)
	case domain.SecOption:
		return qty.Mul(optionPerLot)
	default:
		return notional.Mul(otherNotionalBps)
	}
}

func previewWarnings(spec domain.OrderSpec, quote domain.Quote, notional decimal.Decimal, account domain.AccountSummary) []string {
	var warnings []string

	if spec.OrderType == domain.Market && quote.Bid <= 0 && quote.Ask <= 0 && quote.Last <= 0 {
		warnings = append(warnings, "market order with no live quote; fill price unknown")
	}

	// A marketable limit crosses the spread and will fill like a market order.
	if spec.LimitPrice > 0 && quote.Bid > 0 && quote.Ask > 0 {
		if spec.Side == domain.Buy && spec.LimitPrice >= quote.Ask {
			warnings = append(warnings, fmt.Sprintf("buy limit %.4f crosses the ask %.4f; order is immediately marketable", spec.LimitPrice, quote.Ask))
		}
		if spec.Side == domain.Sell && spec.LimitPrice <= quote.Bid {
			warnings = append(warnings, fmt.Sprintf("sell limit %.4f crosses the bid %.4f; order is immediately marketable", spec.LimitPrice, quote.Bid))
		}
	}

	if account.NetLiquidation > 0 {
		limit := decimal.NewFromFloat(account.NetLiquidation * largeNotionalFraction)
		if notional.GreaterThan(limit) {
			warnings = append(warnings, fmt.Sprintf("estimated notional %s exceeds %.0f%% of account net liquidation", notional.StringFixed(2), largeNotionalFraction*100))
		}
	}

	return warnings
}

package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	impactLarge  = decimal.NewFromInt(1000)
	impactMedium = decimal.NewFromInt(100)
)

// EstimatePriceImpact is a size heuristic on the input amount expressed in
// whole units. It does not simulate pool depth.
//
//	x > 1000: min(5, x/1000*0.5)
//	x > 100:  min(1, x/100*0.1)
//	else 0
func EstimatePriceImpact(amountIn *big.Int, decimals uint8) decimal.Decimal {
	x := wholeUnits(amountIn, decimals)

	var impact decimal.Decimal
	switch {
	case x.GreaterThan(impactLarge):
		impact = decimal.Min(decimal.NewFromInt(5), x.Div(impactLarge).Mul(decimal.RequireFromString("0.5")))
	case x.GreaterThan(impactMedium):
		impact = decimal.Min(decimal.NewFromInt(1), x.Div(impactMedium).Mul(decimal.RequireFromString("0.1")))
	default:
		impact = decimal.Zero
	}
	return impact.Round(2)
}

// EstimateMultiHopImpact applies the two-hop heuristic:
// min(2, x/100*0.2) above 100 whole units, 0.1 otherwise.
func EstimateMultiHopImpact(amountIn *big.Int, decimals uint8) decimal.Decimal {
	x := wholeUnits(amountIn, decimals)
	if x.GreaterThan(impactMedium) {
		return decimal.Min(decimal.NewFromInt(2), x.Div(impactMedium).Mul(decimal.RequireFromString("0.2"))).Round(2)
	}
	return decimal.RequireFromString("0.1")
}

func wholeUnits(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Route is one leg of an execution plan.
type Route struct {
	VenueID         VenueID
	VenueName       string
	AmountIn        *big.Int
	ExpectedOut     *big.Int
	MinOut          *big.Int
	Percentage      uint8
	FeeTier         uint32
	IsGraduated     bool
	UsesVenueRouter bool
}

// RoutePlan is the aggregate answer for a findRoute call. An empty plan
// (no routes, zero totals) means no venue had liquidity.
type RoutePlan struct {
	Routes           []Route
	TotalExpectedOut *big.Int
	TotalMinOut      *big.Int
	// BestSingleVenueName is empty when no venue quoted.
	BestSingleVenueName string
	IsSplitBetter       bool
	// PriceImpactEstimate is a percentage from a size heuristic.
	PriceImpactEstimate decimal.Decimal

	AmountIn          *big.Int
	EffectiveAmountIn *big.Int
	ProtocolFee       *big.Int
	SlippageBps       uint32
	IsWrapUnwrap      bool
}

// EmptyPlan is the well-formed "no liquidity" result.
func EmptyPlan(amountIn, effectiveAmountIn, fee *big.Int, slippageBps uint32) *RoutePlan {
	return &RoutePlan{
		Routes:              []Route{},
		TotalExpectedOut:    new(big.Int),
		TotalMinOut:         new(big.Int),
		PriceImpactEstimate: decimal.Zero,
		AmountIn:            cloneOrZero(amountIn),
		EffectiveAmountIn:   cloneOrZero(effectiveAmountIn),
		ProtocolFee:         cloneOrZero(fee),
		SlippageBps:         slippageBps,
	}
}

// HasRoute reports whether the plan can be executed.
func (p *RoutePlan) HasRoute() bool {
	return p != nil && len(p.Routes) > 0
}

// IsSplit reports whether the plan uses two venues.
func (p *RoutePlan) IsSplit() bool {
	return p != nil && len(p.Routes) > 1
}

// CheckInvariants verifies totals, percentages and the input partition.
func (p *RoutePlan) CheckInvariants() error {
	sumExpected := new(big.Int)
	sumMin := new(big.Int)
	sumIn := new(big.Int)
	pct := 0

	for i, r := range p.Routes {
		if r.MinOut.Cmp(r.ExpectedOut) > 0 {
			return fmt.Errorf("route %d: minOut %s above expectedOut %s", i, r.MinOut, r.ExpectedOut)
		}
		sumExpected.Add(sumExpected, r.ExpectedOut)
		sumMin.Add(sumMin, r.MinOut)
		sumIn.Add(sumIn, r.AmountIn)
		pct += int(r.Percentage)
	}

	if sumExpected.Cmp(p.TotalExpectedOut) != 0 {
		return fmt.Errorf("totalExpectedOut %s != sum %s", p.TotalExpectedOut, sumExpected)
	}
	if sumMin.Cmp(p.TotalMinOut) != 0 {
		return fmt.Errorf("totalMinOut %s != sum %s", p.TotalMinOut, sumMin)
	}
	if len(p.Routes) == 0 {
		if p.TotalExpectedOut.Sign() != 0 || p.TotalMinOut.Sign() != 0 {
			return fmt.Errorf("empty plan with non-zero totals")
		}
		return nil
	}
	if pct != 100 {
		return fmt.Errorf("percentages sum to %d", pct)
	}
	if sumIn.Cmp(p.EffectiveAmountIn) != 0 {
		return fmt.Errorf("route inputs sum to %s, effective input is %s", sumIn, p.EffectiveAmountIn)
	}
	return nil
}

// HopTypeMultiHop tags multi-hop results.
const HopTypeMultiHop = "multihop"

// MultiHopRoute routes tokenIn -> intermediate -> tokenOut.
type MultiHopRoute struct {
	TokenIn      common.Address
	TokenOut     common.Address
	Intermediate common.Address
	AmountIn     *big.Int
	// ExpectedOut is the composite output after the protocol fee.
	ExpectedOut *big.Int
	MinOut      *big.Int
	ProtocolFee *big.Int
	// FeeIn and FeeOut are concentrated tiers per hop; zero is constant-product.
	FeeIn               uint32
	FeeOut              uint32
	HopType             string
	Path                [3]common.Address
	PriceImpactEstimate decimal.Decimal
}

// Recommendation tells a token-to-token caller which result to execute.
type Recommendation string

const (
	RecommendDirect   Recommendation = "direct"
	RecommendMultiHop Recommendation = "multihop"
	RecommendNone     Recommendation = "none"
)

// TokenToTokenResult combines a direct plan with the multi-hop fallback.
type TokenToTokenResult struct {
	Direct         *RoutePlan
	MultiHop       *MultiHopRoute
	Recommendation Recommendation
}

// HybridTokenInfo describes a token's standing on the hybrid venue.
type HybridTokenInfo struct {
	Token       common.Address
	IsListed    bool
	IsGraduated bool
	// FeeTier of the best graduated pool, zero when unknown.
	FeeTier uint32
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

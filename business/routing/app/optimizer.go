package app

import (
	"fmt"
	"math/big"

	"github.com/fd1az/swap-router/business/routing/domain"
)

const (
	DefaultSplitThresholdBps uint32 = 200
	DefaultPrimarySplitPct   uint8  = 70
)

// Optimizer turns ranked quotes into one route or a two-way split.
type Optimizer struct {
	thresholdBps uint32
	primaryPct   uint8
}

// NewOptimizer creates an optimizer. The best venue must beat the second by
// more than thresholdBps for a single route; otherwise primaryPct of the
// input goes to the best venue and the rest to the second.
func NewOptimizer(thresholdBps uint32, primaryPct uint8) (*Optimizer, error) {
	if primaryPct == 0 || primaryPct >= 100 {
		return nil, fmt.Errorf("primary split must be in (0, 100), got %d", primaryPct)
	}
	return &Optimizer{thresholdBps: thresholdBps, primaryPct: primaryPct}, nil
}

// Optimize sizes the routes. quotes must be sorted best first and every
// quote must have been taken at effectiveAmountIn. MinOut is left unset.
//
// Split legs reuse the full-size quotes rescaled linearly; venues are not
// re-quoted at the split size, so the split expectedOut overstates what
// nonlinear pools return.
func (o *Optimizer) Optimize(quotes []domain.VenueQuote, effectiveAmountIn *big.Int) ([]domain.Route, error) {
	switch {
	case len(quotes) == 0:
		return []domain.Route{}, nil
	case len(quotes) == 1, domain.Beats(quotes[0].AmountOut, quotes[1].AmountOut, o.thresholdBps):
		return []domain.Route{fullRoute(quotes[0], effectiveAmountIn)}, nil
	}

	primaryIn, err := domain.Portion(effectiveAmountIn, o.primaryPct)
	if err != nil {
		return nil, err
	}
	secondaryIn := new(big.Int).Sub(effectiveAmountIn, primaryIn)

	primary, err := splitRoute(quotes[0], primaryIn, o.primaryPct)
	if err != nil {
		return nil, err
	}
	secondary, err := splitRoute(quotes[1], secondaryIn, 100-o.primaryPct)
	if err != nil {
		return nil, err
	}
	return []domain.Route{primary, secondary}, nil
}

func fullRoute(q domain.VenueQuote, amountIn *big.Int) domain.Route {
	r := routeFrom(q, 100)
	r.AmountIn = new(big.Int).Set(amountIn)
	r.ExpectedOut = new(big.Int).Set(q.AmountOut)
	return r
}

func splitRoute(q domain.VenueQuote, amountIn *big.Int, pct uint8) (domain.Route, error) {
	out, err := domain.Portion(q.AmountOut, pct)
	if err != nil {
		return domain.Route{}, err
	}
	r := routeFrom(q, pct)
	r.AmountIn = amountIn
	r.ExpectedOut = out
	return r, nil
}

func routeFrom(q domain.VenueQuote, pct uint8) domain.Route {
	return domain.Route{
		VenueID:         q.VenueID,
		VenueName:       q.VenueName,
		Percentage:      pct,
		FeeTier:         q.FeeTier,
		IsGraduated:     q.IsGraduated,
		UsesVenueRouter: q.UsesVenueRouter,
	}
}

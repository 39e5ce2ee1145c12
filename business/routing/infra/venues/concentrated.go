package venues

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/business/routing/domain"
)

var (
	_ app.VenueAdapter = (*Concentrated)(nil)
	_ app.TierQuoter   = (*Concentrated)(nil)
)

// Concentrated quotes a concentrated-liquidity venue across its fee tiers.
type Concentrated struct {
	base
	quoter   quoter
	feeTiers []uint32
}

// NewConcentrated creates a concentrated-liquidity adapter. Tier order is
// the tie-break order.
func NewConcentrated(id domain.VenueID, name string, quoterAddr common.Address, feeTiers []uint32, ledger app.LedgerReader, opts Options) (*Concentrated, error) {
	if len(feeTiers) == 0 {
		return nil, fmt.Errorf("%s: no fee tiers", name)
	}
	b, err := newBase(id, name, domain.FamilyConcentrated, ledger, opts)
	if err != nil {
		return nil, err
	}

	c := &Concentrated{base: b, feeTiers: append([]uint32(nil), feeTiers...)}
	c.quoter = quoter{b: &c.base, address: quoterAddr}
	return c, nil
}

// FeeTiers returns the configured tiers in order.
func (c *Concentrated) FeeTiers() []uint32 {
	return append([]uint32(nil), c.feeTiers...)
}

// QuoteTier quotes a single fee tier.
func (c *Concentrated) QuoteTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.quoter.quote(ctx, tokenIn, tokenOut, amountIn, fee)
}

// Quote queries every fee tier in parallel and keeps the largest output.
// A failing tier is discarded without affecting the others.
func (c *Concentrated) Quote(ctx context.Context, req app.QuoteRequest) (domain.VenueQuote, error) {
	started := time.Now()
	ctx, span, cancel := c.start(ctx, req)
	defer cancel()
	defer span.End()

	fee, out, failures := bestTier(ctx, c.feeTiers, func(ctx context.Context, fee uint32) (*big.Int, error) {
		return c.quoter.quote(ctx, req.TokenIn, req.TokenOut, req.AmountIn, fee)
	})
	span.SetAttributes(attribute.Int("failed_tiers", failures))

	if out == nil {
		if failures == len(c.feeTiers) {
			return c.finish(ctx, span, started, domain.VenueQuote{}, fmt.Errorf("all %d fee tiers failed", failures))
		}
		return c.finish(ctx, span, started, domain.NoLiquidity(c.id, c.name), nil)
	}

	q := domain.NewVenueQuote(c.id, fmt.Sprintf("%s (%s)", c.name, domain.FeeTierLabel(fee)), out)
	q.FeeTier = fee
	return c.finish(ctx, span, started, q, nil)
}

// bestTier runs quote for every tier concurrently. It returns the tier with
// the largest nonzero output (earlier tier on ties), or a nil amount when
// none quoted, plus the number of tiers that errored.
func bestTier(ctx context.Context, tiers []uint32, quote func(context.Context, uint32) (*big.Int, error)) (uint32, *big.Int, int) {
	outs := make([]*big.Int, len(tiers))
	errs := make([]error, len(tiers))

	var g errgroup.Group
	for i, fee := range tiers {
		g.Go(func() error {
			outs[i], errs[i] = quote(ctx, fee)
			return nil
		})
	}
	_ = g.Wait()

	span := trace.SpanFromContext(ctx)
	var (
		bestFee  uint32
		best     *big.Int
		failures int
	)
	for i, fee := range tiers {
		if errs[i] != nil {
			failures++
			span.AddEvent("fee_tier_failed", trace.WithAttributes(
				attribute.Int("fee_tier", int(fee)),
				attribute.String("error", errs[i].Error()),
			))
			continue
		}
		if outs[i] == nil || outs[i].Sign() <= 0 {
			continue
		}
		if best == nil || outs[i].Cmp(best) > 0 {
			best = outs[i]
			bestFee = fee
		}
	}
	return bestFee, best, failures
}

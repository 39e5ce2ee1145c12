package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/logger"
)

// constantProductHop marks a hop priced on the constant-product routers.
const constantProductHop uint32 = 0

// MultiHopFinder routes tokenIn -> wrapped native -> tokenOut when no venue
// quotes the pair directly.
type MultiHopFinder struct {
	constantProduct []VenueAdapter
	tiers           TierQuoter
	tierFamily      domain.Family

	classifier *Classifier
	calc       Calculator
	wrapped    common.Address

	log    logger.LoggerInterface
	tracer trace.Tracer
}

// NewMultiHopFinder picks the hop venues out of adapters: every
// constant-product adapter in order, and the first adapter that can quote
// a pinned fee tier.
func NewMultiHopFinder(adapters []VenueAdapter, classifier *Classifier, calc Calculator, wrapped common.Address, log logger.LoggerInterface) *MultiHopFinder {
	m := &MultiHopFinder{
		classifier: classifier,
		calc:       calc,
		wrapped:    wrapped,
		log:        log,
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, a := range adapters {
		switch a.Family() {
		case domain.FamilyConstantProduct:
			m.constantProduct = append(m.constantProduct, a)
		case domain.FamilyConcentrated:
			if tq, ok := a.(TierQuoter); ok && m.tiers == nil {
				m.tiers = tq
				m.tierFamily = a.Family()
			}
		}
	}
	return m
}

// options lists hop choices: constant-product first, then each fee tier.
func (m *MultiHopFinder) options() []uint32 {
	opts := []uint32{}
	if len(m.constantProduct) > 0 {
		opts = append(opts, constantProductHop)
	}
	if m.tiers != nil {
		opts = append(opts, m.tiers.FeeTiers()...)
	}
	return opts
}

// Find returns the best two-hop route, or nil when either token is the
// native or wrapped-native asset or when no combination produces output.
// amountIn is already scaled; decimals only feed the impact heuristic.
func (m *MultiHopFinder) Find(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, slippageBps uint32, decimals uint8) (*domain.MultiHopRoute, error) {
	r := m.classifier.registry
	if r.IsNative(tokenIn) || r.IsNative(tokenOut) || r.IsWrappedNative(tokenIn) || r.IsWrappedNative(tokenOut) {
		return nil, nil
	}

	ctx, span := m.tracer.Start(ctx, "routing.multihop",
		trace.WithAttributes(
			attribute.String("token_in", tokenIn.Hex()),
			attribute.String("token_out", tokenOut.Hex()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	opts := m.options()
	firstLeg := m.classifier.Classify(tokenIn, m.wrapped).EligibleFamilies
	secondLeg := m.classifier.Classify(m.wrapped, tokenOut).EligibleFamilies

	hop1 := make([]*big.Int, len(opts))
	var g errgroup.Group
	for i, opt := range opts {
		g.Go(func() error {
			hop1[i] = m.hop(ctx, opt, firstLeg, tokenIn, m.wrapped, amountIn)
			return nil
		})
	}
	_ = g.Wait()

	// hop2[i][j] is only attempted when hop1[i] produced output.
	hop2 := make([][]*big.Int, len(opts))
	var g2 errgroup.Group
	for i := range opts {
		if hop1[i] == nil {
			continue
		}
		hop2[i] = make([]*big.Int, len(opts))
		for j, opt := range opts {
			g2.Go(func() error {
				hop2[i][j] = m.hop(ctx, opt, secondLeg, m.wrapped, tokenOut, hop1[i])
				return nil
			})
		}
	}
	_ = g2.Wait()

	var (
		best          *big.Int
		feeIn, feeOut uint32
	)
	for i := range opts {
		for j := range hop2[i] {
			out := hop2[i][j]
			if out == nil {
				continue
			}
			if best == nil || out.Cmp(best) > 0 {
				best, feeIn, feeOut = out, opts[i], opts[j]
			}
		}
	}

	if best == nil {
		m.log.Info(ctx, "no multi-hop route", "token_in", tokenIn.Hex(), "token_out", tokenOut.Hex())
		span.SetAttributes(attribute.Bool("found", false))
		return nil, nil
	}

	expected, fee, err := m.calc.DeductFromOutput(best)
	if err != nil {
		return nil, err
	}
	minOut, err := domain.MinOut(expected, slippageBps)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("found", true),
		attribute.Int("fee_in", int(feeIn)),
		attribute.Int("fee_out", int(feeOut)),
		attribute.String("expected_out", expected.String()),
	)

	return &domain.MultiHopRoute{
		TokenIn:             tokenIn,
		TokenOut:            tokenOut,
		Intermediate:        m.wrapped,
		AmountIn:            new(big.Int).Set(amountIn),
		ExpectedOut:         expected,
		MinOut:              minOut,
		ProtocolFee:         fee,
		FeeIn:               feeIn,
		FeeOut:              feeOut,
		HopType:             domain.HopTypeMultiHop,
		Path:                [3]common.Address{tokenIn, m.wrapped, tokenOut},
		PriceImpactEstimate: domain.EstimateMultiHopImpact(amountIn, decimals),
	}, nil
}

// hop quotes one leg, returning nil for no output. Failures are logged and
// treated as no output.
func (m *MultiHopFinder) hop(ctx context.Context, opt uint32, eligible domain.FamilySet, tokenIn, tokenOut common.Address, amountIn *big.Int) *big.Int {
	if opt == constantProductHop {
		if !eligible.Has(domain.FamilyConstantProduct) {
			return nil
		}
		req := QuoteRequest{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn, TargetToken: tokenIn}
		for _, a := range m.constantProduct {
			q, err := a.Quote(ctx, req)
			if err != nil {
				m.log.Debug(ctx, "multi-hop leg failed", "venue", a.Name(), "error", err)
				continue
			}
			if q.Usable() {
				return q.AmountOut
			}
		}
		return nil
	}

	if !eligible.Has(m.tierFamily) {
		return nil
	}
	out, err := m.tiers.QuoteTier(ctx, tokenIn, tokenOut, amountIn, opt)
	if err != nil {
		m.log.Debug(ctx, "multi-hop leg failed", "fee_tier", opt, "error", err)
		return nil
	}
	if out == nil || out.Sign() <= 0 {
		return nil
	}
	return out
}

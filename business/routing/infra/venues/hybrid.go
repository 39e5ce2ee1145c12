package venues

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/business/routing/domain"
)

var (
	_ app.VenueAdapter    = (*Hybrid)(nil)
	_ app.HybridInspector = (*Hybrid)(nil)
)

// listingProbeAmount is the buy size used to check that a bonding curve exists.
var listingProbeAmount = big.NewInt(1_000_000_000_000_000) // 0.001 of an 18-decimal asset

// HybridConfig holds the hybrid venue contracts.
type HybridConfig struct {
	Lens common.Address
	// Wrapped is the wrapped native asset every hybrid market is paired with.
	Wrapped common.Address

	// Pool scan fallback; optional. A zero Factory disables the scan.
	Factory          common.Address
	Quoter           common.Address
	FeeTiers         []uint32
	MinPoolLiquidity *big.Int

	// ListingFactory is the venue's own factory, used by Inspect.
	ListingFactory common.Address
}

// Hybrid quotes a bonding-curve venue whose tokens graduate to AMM pools.
// Graduated tokens are priced through the venue's lens, which reflects the
// routing the venue itself performs; raw pools are only scanned when the
// lens call fails.
type Hybrid struct {
	base
	cfg    HybridConfig
	quoter quoter
}

// NewHybrid creates the hybrid adapter.
func NewHybrid(id domain.VenueID, name string, cfg HybridConfig, ledger app.LedgerReader, opts Options) (*Hybrid, error) {
	b, err := newBase(id, name, domain.FamilyHybrid, ledger, opts)
	if err != nil {
		return nil, err
	}
	if cfg.MinPoolLiquidity == nil {
		cfg.MinPoolLiquidity = new(big.Int)
	}
	cfg.FeeTiers = append([]uint32(nil), cfg.FeeTiers...)

	h := &Hybrid{base: b, cfg: cfg}
	h.quoter = quoter{b: &h.base, address: cfg.Quoter}
	return h, nil
}

// Quote prices the non-wrapped side of a buy or sell. Cross trades have no
// hybrid market and return no liquidity without a call.
func (h *Hybrid) Quote(ctx context.Context, req app.QuoteRequest) (domain.VenueQuote, error) {
	if req.Direction == domain.DirectionCross {
		return domain.NoLiquidity(h.id, h.name), nil
	}

	started := time.Now()
	ctx, span, cancel := h.start(ctx, req)
	defer cancel()
	defer span.End()

	token := req.TargetToken
	isBuy := req.Direction == domain.DirectionBuy
	span.SetAttributes(attribute.Bool("is_buy", isBuy))

	graduated, err := h.isGraduated(ctx, token)
	if err != nil {
		return h.finish(ctx, span, started, domain.VenueQuote{}, err)
	}
	span.SetAttributes(attribute.Bool("graduated", graduated))

	lensOut, lensErr := h.lensAmountOut(ctx, token, req.AmountIn, isBuy)

	if !graduated {
		if lensErr != nil {
			return h.finish(ctx, span, started, domain.VenueQuote{}, lensErr)
		}
		return h.finish(ctx, span, started, domain.NewVenueQuote(h.id, h.name+" (Bonding)", lensOut), nil)
	}

	if lensErr == nil {
		q := domain.NewVenueQuote(h.id, h.name+" (DEX Router)", lensOut)
		q.IsGraduated = true
		q.UsesVenueRouter = true
		return h.finish(ctx, span, started, q, nil)
	}

	span.AddEvent("lens_failed", trace.WithAttributes(attribute.String("error", lensErr.Error())))
	if h.cfg.Factory == (common.Address{}) {
		return h.finish(ctx, span, started, domain.VenueQuote{}, lensErr)
	}

	tokenIn, tokenOut := token, h.cfg.Wrapped
	if isBuy {
		tokenIn, tokenOut = h.cfg.Wrapped, token
	}
	fee, out, _ := bestTier(ctx, h.cfg.FeeTiers, func(ctx context.Context, fee uint32) (*big.Int, error) {
		return h.poolQuote(ctx, token, tokenIn, tokenOut, req.AmountIn, fee)
	})
	if out == nil {
		q := domain.NoLiquidity(h.id, h.name+" (Graduated)")
		q.IsGraduated = true
		return h.finish(ctx, span, started, q, nil)
	}

	q := domain.NewVenueQuote(h.id, h.name+" (Graduated)", out)
	q.IsGraduated = true
	q.FeeTier = fee
	return h.finish(ctx, span, started, q, nil)
}

// poolQuote is one tier of the legacy scan: resolve the pool, skip it when
// missing or at or below the liquidity threshold, then quote it.
func (h *Hybrid) poolQuote(ctx context.Context, token, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error) {
	pool, err := h.getPool(ctx, h.cfg.Factory, token, fee)
	if err != nil {
		return nil, err
	}
	if pool == (common.Address{}) {
		return nil, nil
	}

	out, err := h.call(ctx, poolABI, pool, "liquidity")
	if err != nil {
		return nil, err
	}
	liquidity, err := bigAt(out, 0)
	if err != nil {
		return nil, err
	}
	if liquidity.Cmp(h.cfg.MinPoolLiquidity) <= 0 {
		h.logger.Debug(ctx, "pool below liquidity threshold",
			"venue", h.name, "pool", pool.Hex(), "fee", fee, "liquidity", liquidity.String())
		return nil, nil
	}

	return h.quoter.quote(ctx, tokenIn, tokenOut, amountIn, fee)
}

// Inspect reports whether token trades on the venue and where.
func (h *Hybrid) Inspect(ctx context.Context, token common.Address) (domain.HybridTokenInfo, error) {
	ctx, span := h.tracer.Start(ctx, "venue.inspect",
		trace.WithAttributes(attribute.String("token", token.Hex())),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	info := domain.HybridTokenInfo{Token: token}

	graduated, err := h.isGraduated(ctx, token)
	if err != nil {
		span.RecordError(err)
		return info, fmt.Errorf("isGraduated: %w", err)
	}

	if graduated {
		info.IsListed = true
		info.IsGraduated = true
		factory := h.cfg.ListingFactory
		if factory == (common.Address{}) {
			factory = h.cfg.Factory
		}
		if factory != (common.Address{}) {
			for _, fee := range h.cfg.FeeTiers {
				pool, err := h.getPool(ctx, factory, token, fee)
				if err == nil && pool != (common.Address{}) {
					info.FeeTier = fee
					break
				}
			}
		}
		return info, nil
	}

	out, err := h.lensAmountOut(ctx, token, listingProbeAmount, true)
	if err == nil && out.Sign() > 0 {
		info.IsListed = true
	}
	return info, nil
}

func (h *Hybrid) isGraduated(ctx context.Context, token common.Address) (bool, error) {
	out, err := h.call(ctx, lensABI, h.cfg.Lens, "isGraduated", token)
	if err != nil {
		return false, err
	}
	return boolAt(out, 0)
}

func (h *Hybrid) lensAmountOut(ctx context.Context, token common.Address, amountIn *big.Int, isBuy bool) (*big.Int, error) {
	out, err := h.call(ctx, lensABI, h.cfg.Lens, "getAmountOut", token, amountIn, isBuy)
	if err != nil {
		return nil, err
	}
	if _, err := addressAt(out, 0); err != nil {
		return nil, err
	}
	return bigAt(out, 1)
}

func (h *Hybrid) getPool(ctx context.Context, factory, token common.Address, fee uint32) (common.Address, error) {
	out, err := h.call(ctx, factoryABI, factory, "getPool", token, h.cfg.Wrapped, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return addressAt(out, 0)
}

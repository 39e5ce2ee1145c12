package venues

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/business/routing/domain"
)

var _ app.VenueAdapter = (*ConstantProduct)(nil)

// ConstantProduct quotes a constant-product router over the direct path.
type ConstantProduct struct {
	base
	router common.Address
}

// NewConstantProduct creates a constant-product adapter for router.
func NewConstantProduct(id domain.VenueID, name string, router common.Address, ledger app.LedgerReader, opts Options) (*ConstantProduct, error) {
	b, err := newBase(id, name, domain.FamilyConstantProduct, ledger, opts)
	if err != nil {
		return nil, err
	}
	return &ConstantProduct{base: b, router: router}, nil
}

// Quote calls getAmountsOut(amountIn, [tokenIn, tokenOut]). A revert means
// there is no pool; it is not retried.
func (c *ConstantProduct) Quote(ctx context.Context, req app.QuoteRequest) (domain.VenueQuote, error) {
	started := time.Now()
	ctx, span, cancel := c.start(ctx, req)
	defer cancel()
	defer span.End()

	out, err := c.amountOut(ctx, req.TokenIn, req.TokenOut, req.AmountIn)
	if err != nil {
		return c.finish(ctx, span, started, domain.VenueQuote{}, err)
	}
	return c.finish(ctx, span, started, domain.NewVenueQuote(c.id, c.name, out), nil)
}

func (c *ConstantProduct) amountOut(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	out, err := c.call(ctx, routerABI, c.router, "getAmountsOut", amountIn, []common.Address{tokenIn, tokenOut})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("getAmountsOut: empty output")
	}

	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("getAmountsOut: unexpected output %T", out[0])
	}
	return amounts[len(amounts)-1], nil
}

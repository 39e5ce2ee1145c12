package app

import (
	"context"
	"io"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
)

var (
	nativeAddr  = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	wrappedAddr = common.HexToAddress("0x3bd359C1119dA7Da1D913D1C4D2B7c461115433A")
	usdc        = common.HexToAddress("0x754704Bc059F8C67012fEd69BC8A327a5aafb603")
	tokenX      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenY      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	chog        = common.HexToAddress("0x350035555E10d9AfAF1566AaebfCeD5BA6C27777")
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "routing-test", nil)
}

func testRegistry(t *testing.T) *asset.Registry {
	t.Helper()
	r := asset.NewRegistry(
		asset.NewNative(nativeAddr, "MON", 18),
		asset.NewWrappedNative(wrappedAddr, "WMON", 18),
	)
	require.NoError(t, r.Register(asset.NewAsset(usdc, "USDC", 6)))
	return r
}

// fakeAdapter answers with quote; a nil quote func means no liquidity.
type fakeAdapter struct {
	id     domain.VenueID
	name   string
	family domain.Family
	quote  func(ctx context.Context, req QuoteRequest) (*big.Int, error)
	calls  atomic.Int32
}

func (f *fakeAdapter) ID() domain.VenueID    { return f.id }
func (f *fakeAdapter) Name() string          { return f.name }
func (f *fakeAdapter) Family() domain.Family { return f.family }

func (f *fakeAdapter) Quote(ctx context.Context, req QuoteRequest) (domain.VenueQuote, error) {
	f.calls.Add(1)
	if f.quote == nil {
		return domain.NoLiquidity(f.id, f.name), nil
	}
	out, err := f.quote(ctx, req)
	if err != nil {
		return domain.NoLiquidity(f.id, f.name), apperror.New(apperror.CodeVenueUnavailable, apperror.WithCause(err))
	}
	return domain.NewVenueQuote(f.id, f.name, out), nil
}

// fakeTiers is a concentrated adapter that can also pin a tier.
type fakeTiers struct {
	fakeAdapter
	tiers     []uint32
	tierQuote func(tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error)
	tierCalls atomic.Int32
}

func (f *fakeTiers) FeeTiers() []uint32 { return f.tiers }

func (f *fakeTiers) QuoteTier(_ context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error) {
	f.tierCalls.Add(1)
	return f.tierQuote(tokenIn, tokenOut, amountIn, fee)
}

func fixed(amount int64) func(context.Context, QuoteRequest) (*big.Int, error) {
	return func(context.Context, QuoteRequest) (*big.Int, error) {
		return big.NewInt(amount), nil
	}
}

func failing(context.Context, QuoteRequest) (*big.Int, error) {
	return nil, errReverted
}

func blocking(ctx context.Context, _ QuoteRequest) (*big.Int, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var errReverted = apperror.New(apperror.CodeContractCallFailed, apperror.WithContext("execution reverted"))

func cp(id domain.VenueID, name string, quote func(context.Context, QuoteRequest) (*big.Int, error)) *fakeAdapter {
	return &fakeAdapter{id: id, name: name, family: domain.FamilyConstantProduct, quote: quote}
}

func hybrid(id domain.VenueID, quote func(context.Context, QuoteRequest) (*big.Int, error)) *fakeAdapter {
	return &fakeAdapter{id: id, name: "Nad.Fun (Bonding)", family: domain.FamilyHybrid, quote: quote}
}

func newTestService(t *testing.T, adapters []VenueAdapter, opts ...func(*ServiceConfig)) *RoutingService {
	t.Helper()
	cfg := DefaultServiceConfig()
	for _, o := range opts {
		o(&cfg)
	}
	svc, err := NewRoutingService(testRegistry(t), adapters, ClassifierRules{HybridSuffixes: []string{"7777"}}, nil, cfg, testLogger())
	require.NoError(t, err)
	return svc
}

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int " + s)
	}
	return v
}

package app

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
)

func request(in, out common.Address, amount string) RouteRequest {
	return RouteRequest{
		TokenIn:         in.Hex(),
		TokenOut:        out.Hex(),
		AmountIn:        amount,
		TokenInDecimals: 18,
		SlippageBps:     50,
	}
}

func TestFindRoute_ScalesOnceWithInputDecimals(t *testing.T) {
	var seen *big.Int
	a := cp(0, "Uniswap V2", func(_ context.Context, req QuoteRequest) (*big.Int, error) {
		seen = new(big.Int).Set(req.AmountIn)
		return big.NewInt(5), nil
	})
	svc := newTestService(t, []VenueAdapter{a})

	plan, err := svc.FindRoute(context.Background(), request(tokenX, tokenY, "1.5"))
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", seen.String())
	assert.Equal(t, "1500000000000000000", plan.AmountIn.String())
	assert.Equal(t, plan.AmountIn, plan.EffectiveAmountIn, "no fee on token input")
}

func TestFindRoute_NativeInputDeductsFeeBeforeQuoting(t *testing.T) {
	var seen *big.Int
	a := cp(0, "Uniswap V2", func(_ context.Context, req QuoteRequest) (*big.Int, error) {
		seen = new(big.Int).Set(req.AmountIn)
		return big.NewInt(1_000_000), nil
	})
	svc := newTestService(t, []VenueAdapter{a})

	req := request(nativeAddr, usdc, "2")
	req.TokenInDecimals = 6 // ignored for the native asset

	plan, err := svc.FindRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1980000000000000000", seen.String())
	assert.Equal(t, "20000000000000000", plan.ProtocolFee.String())
	require.Len(t, plan.Routes, 1)
	assert.Equal(t, plan.EffectiveAmountIn, plan.Routes[0].AmountIn)
}

func TestFindRoute_SingleVenue(t *testing.T) {
	svc := newTestService(t, []VenueAdapter{
		cp(0, "Uniswap V2", fixed(123_456)),
		cp(1, "PancakeSwap V2", failing),
	})

	plan, err := svc.FindRoute(context.Background(), request(tokenX, tokenY, "10"))
	require.NoError(t, err)
	require.Len(t, plan.Routes, 1)

	r := plan.Routes[0]
	assert.Equal(t, uint8(100), r.Percentage)
	assert.Equal(t, int64(123_456), plan.TotalExpectedOut.Int64())
	assert.Equal(t, int64(122_838), r.MinOut.Int64()) // floor(123456*9950/10000)
	assert.Equal(t, "Uniswap V2", plan.BestSingleVenueName)
	assert.False(t, plan.IsSplitBetter)
	require.NoError(t, plan.CheckInvariants())
}

func TestFindRoute_Split(t *testing.T) {
	svc := newTestService(t, []VenueAdapter{
		cp(0, "Uniswap V2", fixed(990)),
		cp(1, "PancakeSwap V2", fixed(1000)),
	})

	req := request(tokenX, tokenY, "100")
	req.TokenInDecimals = 0
	plan, err := svc.FindRoute(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, plan.Routes, 2)

	assert.Equal(t, "PancakeSwap V2", plan.Routes[0].VenueName)
	assert.Equal(t, int64(70), plan.Routes[0].AmountIn.Int64())
	assert.Equal(t, int64(30), plan.Routes[1].AmountIn.Int64())
	assert.Equal(t, int64(997), plan.TotalExpectedOut.Int64()) // 700 + 297
	assert.False(t, plan.IsSplitBetter, "rescaled split never beats the best full quote")
	require.NoError(t, plan.CheckInvariants())
}

func TestFindRoute_WrapUnwrap(t *testing.T) {
	a := cp(0, "Uniswap V2", fixed(1))
	svc := newTestService(t, []VenueAdapter{a})

	tests := []struct {
		name    string
		in, out common.Address
		want    string
	}{
		{"wrap", nativeAddr, wrappedAddr, "Wrap MON"},
		{"unwrap", wrappedAddr, nativeAddr, "Unwrap WMON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := svc.FindRoute(context.Background(), request(tt.in, tt.out, "3.25"))
			require.NoError(t, err)
			require.Len(t, plan.Routes, 1)

			assert.True(t, plan.IsWrapUnwrap)
			assert.Equal(t, domain.WrapUnwrapVenueID, plan.Routes[0].VenueID)
			assert.Equal(t, tt.want, plan.Routes[0].VenueName)
			assert.Equal(t, "3250000000000000000", plan.TotalExpectedOut.String())
			assert.Equal(t, plan.EffectiveAmountIn, plan.TotalExpectedOut)
			assert.Zero(t, plan.ProtocolFee.Sign())
			require.NoError(t, plan.CheckInvariants())
		})
	}
	assert.Zero(t, a.calls.Load(), "no venue is queried for wrap/unwrap")
}

func TestFindRoute_NoLiquidityIsEmptyPlan(t *testing.T) {
	svc := newTestService(t, []VenueAdapter{cp(0, "Uniswap V2", failing), cp(1, "PancakeSwap V2", nil)})

	plan, err := svc.FindRoute(context.Background(), request(tokenX, tokenY, "1"))
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Empty(t, plan.Routes)
	assert.Equal(t, "0", plan.TotalExpectedOut.String())
	assert.Equal(t, "0", plan.TotalMinOut.String())
	assert.Empty(t, plan.BestSingleVenueName)
	assert.True(t, plan.PriceImpactEstimate.IsZero())
}

func TestFindRoute_Idempotent(t *testing.T) {
	svc := newTestService(t, []VenueAdapter{
		cp(0, "Uniswap V2", fixed(991)),
		cp(1, "PancakeSwap V2", fixed(1000)),
		&fakeAdapter{id: 2, name: "Uniswap V3 (0.3%)", family: domain.FamilyConcentrated, quote: fixed(995)},
	})

	first, err := svc.FindRoute(context.Background(), request(tokenX, tokenY, "42.5"))
	require.NoError(t, err)
	second, err := svc.FindRoute(context.Background(), request(tokenX, tokenY, "42.5"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFindRoute_HybridRestrictedSkipsAMMs(t *testing.T) {
	uni := cp(0, "Uniswap V2", fixed(1_000_000))
	nad := hybrid(3, fixed(10))
	svc := newTestService(t, []VenueAdapter{uni, nad})

	plan, err := svc.FindRoute(context.Background(), request(nativeAddr, chog, "1"))
	require.NoError(t, err)
	require.Len(t, plan.Routes, 1)
	assert.Equal(t, domain.VenueID(3), plan.Routes[0].VenueID)
	assert.Zero(t, uni.calls.Load())
}

func TestFindRoute_RequestTimeoutBoundsSlowVenues(t *testing.T) {
	svc := newTestService(t,
		[]VenueAdapter{cp(0, "Slow", blocking), cp(1, "Fast", fixed(9))},
		func(c *ServiceConfig) { c.RequestTimeout = 50 * time.Millisecond },
	)

	started := time.Now()
	plan, err := svc.FindRoute(context.Background(), request(tokenX, tokenY, "1"))
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	require.Len(t, plan.Routes, 1)
	assert.Equal(t, "Fast", plan.Routes[0].VenueName)
}

func TestFindRoute_RejectsInvalidInput(t *testing.T) {
	a := cp(0, "Uniswap V2", fixed(1))
	svc := newTestService(t, []VenueAdapter{a})

	tests := []struct {
		name string
		req  RouteRequest
		code apperror.Code
	}{
		{"bad tokenIn", RouteRequest{TokenIn: "0x123", TokenOut: tokenY.Hex(), AmountIn: "1", TokenInDecimals: 18}, apperror.CodeInvalidAddress},
		{"bad tokenOut", RouteRequest{TokenIn: tokenX.Hex(), TokenOut: "nope", AmountIn: "1", TokenInDecimals: 18}, apperror.CodeInvalidAddress},
		{"identical", RouteRequest{TokenIn: tokenX.Hex(), TokenOut: tokenX.Hex(), AmountIn: "1", TokenInDecimals: 18}, apperror.CodeIdenticalTokens},
		{"zero amount", request(tokenX, tokenY, "0"), apperror.CodeInvalidAmount},
		{"negative amount", request(tokenX, tokenY, "-1"), apperror.CodeInvalidAmount},
		{"not a number", request(tokenX, tokenY, "abc"), apperror.CodeInvalidAmount},
		{"too precise", RouteRequest{TokenIn: tokenX.Hex(), TokenOut: tokenY.Hex(), AmountIn: "1.0000001", TokenInDecimals: 6}, apperror.CodeInvalidAmount},
		{"slippage above 100%", RouteRequest{TokenIn: tokenX.Hex(), TokenOut: tokenY.Hex(), AmountIn: "1", TokenInDecimals: 18, SlippageBps: 10001}, apperror.CodeInvalidSlippage},
		{"negative slippage", RouteRequest{TokenIn: tokenX.Hex(), TokenOut: tokenY.Hex(), AmountIn: "1", TokenInDecimals: 18, SlippageBps: -1}, apperror.CodeInvalidSlippage},
		{"decimals out of range", RouteRequest{TokenIn: tokenX.Hex(), TokenOut: tokenY.Hex(), AmountIn: "1", TokenInDecimals: 78}, apperror.CodeInvalidDecimals},
		{"overflow", RouteRequest{TokenIn: tokenX.Hex(), TokenOut: tokenY.Hex(), AmountIn: "1" + strings.Repeat("0", 79), TokenInDecimals: 0}, apperror.CodeArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := svc.FindRoute(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Zero(t, a.calls.Load(), "invalid requests never reach a venue")
}

type fakeMetadata map[common.Address]uint8

func (f fakeMetadata) Decimals(_ context.Context, token common.Address) (uint8, error) {
	d, ok := f[token]
	if !ok {
		return 0, apperror.New(apperror.CodeTokenMetadataFailed)
	}
	return d, nil
}

func TestFindRoute_AutoDecimals(t *testing.T) {
	var seen *big.Int
	a := cp(0, "Uniswap V2", func(_ context.Context, req QuoteRequest) (*big.Int, error) {
		seen = new(big.Int).Set(req.AmountIn)
		return big.NewInt(1), nil
	})
	svc, err := NewRoutingService(testRegistry(t), []VenueAdapter{a}, ClassifierRules{},
		fakeMetadata{tokenX: 6}, DefaultServiceConfig(), testLogger())
	require.NoError(t, err)

	req := request(tokenX, tokenY, "2.5")
	req.TokenInDecimals = AutoDecimals
	_, err = svc.FindRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000), seen.Int64())

	d, err := svc.ResolveDecimals(context.Background(), tokenX.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)

	_, err = svc.ResolveDecimals(context.Background(), tokenY.Hex())
	assert.True(t, apperror.HasCode(err, apperror.CodeTokenMetadataFailed))

	d, err = svc.ResolveDecimals(context.Background(), nativeAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint8(18), d)
}

func TestFindTokenToTokenRoute(t *testing.T) {
	t.Run("direct wins when it has liquidity", func(t *testing.T) {
		svc := newTestService(t, []VenueAdapter{cp(0, "Uniswap V2", fixed(50))})
		res, err := svc.FindTokenToTokenRoute(context.Background(), request(tokenX, tokenY, "1"))
		require.NoError(t, err)
		assert.Equal(t, domain.RecommendDirect, res.Recommendation)
		assert.Nil(t, res.MultiHop)
	})

	t.Run("falls back to multi-hop", func(t *testing.T) {
		// Only the legs through the wrapped asset have liquidity.
		uni := cp(0, "Uniswap V2", func(_ context.Context, req QuoteRequest) (*big.Int, error) {
			switch {
			case req.TokenIn == tokenX && req.TokenOut == wrappedAddr:
				return big.NewInt(100), nil
			case req.TokenIn == wrappedAddr && req.TokenOut == tokenY:
				return new(big.Int).Mul(req.AmountIn, big.NewInt(2)), nil
			}
			return new(big.Int), nil
		})
		svc := newTestService(t, []VenueAdapter{uni})
		res, err := svc.FindTokenToTokenRoute(context.Background(), request(tokenX, tokenY, "1"))
		require.NoError(t, err)
		assert.Equal(t, domain.RecommendMultiHop, res.Recommendation)
		require.NotNil(t, res.Direct)
		assert.False(t, res.Direct.HasRoute())
		require.NotNil(t, res.MultiHop)
		assert.Equal(t, int64(198), res.MultiHop.ExpectedOut.Int64(), "200 less the 1% fee")
		assert.Zero(t, res.MultiHop.FeeIn)
	})

	t.Run("none", func(t *testing.T) {
		svc := newTestService(t, []VenueAdapter{cp(0, "Uniswap V2", failing)})
		res, err := svc.FindTokenToTokenRoute(context.Background(), request(tokenX, tokenY, "1"))
		require.NoError(t, err)
		assert.Equal(t, domain.RecommendNone, res.Recommendation)
	})
}

type fakeInspector struct {
	fakeAdapter
	info domain.HybridTokenInfo
}

func (f *fakeInspector) Inspect(_ context.Context, token common.Address) (domain.HybridTokenInfo, error) {
	info := f.info
	info.Token = token
	return info, nil
}

func TestInspectHybridToken(t *testing.T) {
	svc := newTestService(t, []VenueAdapter{cp(0, "Uniswap V2", nil)})
	_, err := svc.InspectHybridToken(context.Background(), chog.Hex())
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownVenue))

	nad := &fakeInspector{
		fakeAdapter: fakeAdapter{id: 3, name: "Nad.Fun", family: domain.FamilyHybrid},
		info:        domain.HybridTokenInfo{IsListed: true, IsGraduated: true, FeeTier: 3000},
	}
	svc = newTestService(t, []VenueAdapter{nad})

	info, err := svc.InspectHybridToken(context.Background(), chog.Hex())
	require.NoError(t, err)
	assert.Equal(t, chog, info.Token)
	assert.True(t, info.IsGraduated)
	assert.Equal(t, uint32(3000), info.FeeTier)

	_, err = svc.InspectHybridToken(context.Background(), "0xzz")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAddress))
}

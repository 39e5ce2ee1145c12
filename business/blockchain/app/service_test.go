package app_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/blockchain/app"
	"github.com/fd1az/swap-router/business/blockchain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/logger"
)

var (
	sentinel = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	wmon     = common.HexToAddress("0x3bd359C1119dA7Da1D913D1C4D2B7c461115433A")
	usdc     = common.HexToAddress("0x754704Bc059F8C67012fEd69BC8A327a5aafb603")
	unknown  = common.HexToAddress("0x1111111111111111111111111111111111117777")
)

type stubCaller struct{}

func (stubCaller) CallContract(context.Context, common.Address, []byte) ([]byte, error) {
	return nil, errors.New("not used")
}

func (stubCaller) Status() domain.ConnectionStatus {
	return domain.ConnectionStatus{State: domain.StateConnected}
}

type countingReader struct {
	calls    atomic.Int32
	decimals uint8
	err      error
}

func (r *countingReader) Decimals(context.Context, common.Address) (uint8, error) {
	r.calls.Add(1)
	return r.decimals, r.err
}

func newService(t *testing.T, reader app.TokenReader, now func() time.Time) *app.BlockchainService {
	t.Helper()

	registry := asset.NewRegistry(
		asset.NewNative(sentinel, "MON", 18),
		asset.NewWrappedNative(wmon, "WMON", 18),
	)
	if err := registry.Register(asset.NewAsset(usdc, "USDC", 6)); err != nil {
		t.Fatal(err)
	}

	ttl := 30 * time.Second
	svc, err := app.NewBlockchainService(
		stubCaller{},
		reader,
		registry,
		cache.New[common.Address, uint8](ttl, cache.WithClock(now)),
		ttl,
		logger.New(io.Discard, logger.LevelError, "test", nil),
	)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestDecimals_KnownTokensSkipTheChain(t *testing.T) {
	reader := &countingReader{decimals: 9}
	svc := newService(t, reader, time.Now)

	cases := map[common.Address]uint8{sentinel: 18, wmon: 18, usdc: 6}
	for addr, want := range cases {
		md, err := svc.TokenMetadata(context.Background(), addr)
		if err != nil {
			t.Fatalf("%s: %v", addr.Hex(), err)
		}
		if md.Decimals != want || !md.Known {
			t.Errorf("%s: got %+v, want %d known", addr.Hex(), md, want)
		}
	}

	if reader.calls.Load() != 0 {
		t.Errorf("expected no chain calls, got %d", reader.calls.Load())
	}
}

func TestDecimals_CachedWithinTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	reader := &countingReader{decimals: 9}
	svc := newService(t, reader, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := svc.Decimals(ctx, unknown)
		if err != nil || d != 9 {
			t.Fatalf("got %d, %v", d, err)
		}
	}
	if reader.calls.Load() != 1 {
		t.Errorf("expected one lookup within TTL, got %d", reader.calls.Load())
	}

	now = now.Add(31 * time.Second)
	if _, err := svc.Decimals(ctx, unknown); err != nil {
		t.Fatal(err)
	}
	if reader.calls.Load() != 2 {
		t.Errorf("expected refetch after TTL, got %d", reader.calls.Load())
	}

	svc.InvalidateToken(ctx, unknown)
	if _, err := svc.Decimals(ctx, unknown); err != nil {
		t.Fatal(err)
	}
	if reader.calls.Load() != 3 {
		t.Errorf("expected refetch after invalidate, got %d", reader.calls.Load())
	}
}

func TestDecimals_FailureIsNotCached(t *testing.T) {
	reader := &countingReader{err: errors.New("execution reverted")}
	svc := newService(t, reader, time.Now)

	_, err := svc.Decimals(context.Background(), unknown)
	if !apperror.HasCode(err, apperror.CodeTokenMetadataFailed) {
		t.Fatalf("expected TOKEN_METADATA_FAILED, got %v", err)
	}

	reader.err = nil
	reader.decimals = 8
	d, err := svc.Decimals(context.Background(), unknown)
	if err != nil || d != 8 {
		t.Fatalf("got %d, %v", d, err)
	}
}

func TestDecimals_OutOfRange(t *testing.T) {
	svc := newService(t, &countingReader{decimals: 200}, time.Now)

	_, err := svc.Decimals(context.Background(), unknown)
	if !apperror.HasCode(err, apperror.CodeTokenMetadataFailed) {
		t.Fatalf("expected TOKEN_METADATA_FAILED, got %v", err)
	}
}

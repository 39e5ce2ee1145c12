package venues

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var errReverted = errors.New("execution reverted")

// handler answers one decoded contract call. Arguments are the unpacked
// inputs; the quoter's tuple arrives as a QuoteExactInputSingleParams.
type handler func(ctx context.Context, to common.Address, args []any) ([]any, error)

// fakeLedger decodes calldata with the package ABIs and encodes the
// handler's outputs, so adapters run against real wire formats.
type fakeLedger struct {
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]handler
	calls    map[string]int
}

func newFakeLedger(t *testing.T) *fakeLedger {
	t.Helper()
	return &fakeLedger{t: t, handlers: map[string]handler{}, calls: map[string]int{}}
}

func (f *fakeLedger) on(method string, h handler) *fakeLedger {
	f.handlers[method] = h
	return f
}

func (f *fakeLedger) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeLedger) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeLedger) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("short calldata")
	}
	m := lookupMethod(data[:4])
	if m == nil {
		f.t.Errorf("unknown selector %x", data[:4])
		return nil, fmt.Errorf("unknown selector")
	}

	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		f.t.Errorf("unpack %s: %v", m.Name, err)
		return nil, err
	}
	if m.Name == "quoteExactInputSingle" {
		var in struct{ Params QuoteExactInputSingleParams }
		if err := m.Inputs.Copy(&in, args); err != nil {
			f.t.Errorf("copy quoter params: %v", err)
			return nil, err
		}
		args = []any{in.Params}
	}

	f.mu.Lock()
	f.calls[m.Name]++
	h := f.handlers[m.Name]
	f.mu.Unlock()

	if h == nil {
		return nil, errReverted
	}
	out, err := h(ctx, to, args)
	if err != nil {
		return nil, err
	}
	return m.Outputs.Pack(out...)
}

func lookupMethod(sel []byte) *abi.Method {
	for _, a := range []abi.ABI{routerABI, quoterABI, factoryABI, poolABI, lensABI} {
		if m, err := a.MethodById(sel); err == nil {
			return m
		}
	}
	return nil
}

// quoterOut builds the four QuoterV2 outputs.
func quoterOut(amount int64) []any {
	return []any{big.NewInt(amount), new(big.Int), uint32(0), new(big.Int)}
}

func blockUntilDone(ctx context.Context, _ common.Address, _ []any) ([]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, errors.New("handler not cancelled")
	}
}

var (
	wrapped  = common.HexToAddress("0x3bd359C1119dA7Da1D913D1C4D2B7c461115433A")
	tokenA   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	memeCoin = common.HexToAddress("0x0000000000000000000000000000000000007777")

	routerAddr  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	quoterAddr  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	factoryAddr = common.HexToAddress("0x3000000000000000000000000000000000000003")
	lensAddr    = common.HexToAddress("0x4000000000000000000000000000000000000004")
	listingAddr = common.HexToAddress("0x5000000000000000000000000000000000000005")
)

func testOptions() Options {
	return Options{CallTimeout: time.Second}
}

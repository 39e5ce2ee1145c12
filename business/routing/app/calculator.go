package app

import (
	"math/big"

	"github.com/fd1az/swap-router/business/routing/domain"
)

// DefaultProtocolFeeBps is the upstream fee taken from native-asset input.
const DefaultProtocolFeeBps uint32 = 100

// Calculator applies the protocol fee and slippage tolerance.
type Calculator struct {
	feeBps uint32
}

// NewCalculator creates a calculator charging feeBps.
func NewCalculator(feeBps uint32) Calculator {
	return Calculator{feeBps: feeBps}
}

// FeeBps returns the configured protocol fee.
func (c Calculator) FeeBps() uint32 { return c.feeBps }

// EffectiveAmountIn returns what reaches the venues. The executing contract
// takes the fee before swapping, and only when the input is the native asset.
func (c Calculator) EffectiveAmountIn(amountIn *big.Int, nativeIn bool) (effective, fee *big.Int, err error) {
	if !nativeIn {
		return new(big.Int).Set(amountIn), new(big.Int), nil
	}
	return domain.DeductFee(amountIn, c.feeBps)
}

// ApplySlippage fills MinOut on every route and returns the totals.
// totalMinOut is the sum of per-route floors, never floor(totalExpected).
func (c Calculator) ApplySlippage(routes []domain.Route, slippageBps uint32) (totalExpected, totalMin *big.Int, err error) {
	totalExpected, totalMin = new(big.Int), new(big.Int)
	for i := range routes {
		minOut, err := domain.MinOut(routes[i].ExpectedOut, slippageBps)
		if err != nil {
			return nil, nil, err
		}
		routes[i].MinOut = minOut
		totalExpected.Add(totalExpected, routes[i].ExpectedOut)
		totalMin.Add(totalMin, minOut)
	}
	return totalExpected, totalMin, nil
}

// DeductFromOutput takes the protocol fee from an output amount, as the
// multi-hop path does.
func (c Calculator) DeductFromOutput(out *big.Int) (net, fee *big.Int, err error) {
	return domain.DeductFee(out, c.feeBps)
}

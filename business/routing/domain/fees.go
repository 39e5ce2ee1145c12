package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// BpsDenominator is 100%.
const BpsDenominator = 10000

var (
	// ErrOverflow is returned when an amount or intermediate product leaves
	// the 256-bit range the executing contract works in.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrNegative is returned for negative amounts.
	ErrNegative = errors.New("negative amount")
)

// ToUint256 converts v, failing on negatives and values above 2^256-1.
func ToUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegative
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%w: %s does not fit 256 bits", ErrOverflow, v)
	}
	return u, nil
}

// MulDiv computes floor(x*num/den) with the product checked against 256 bits.
func MulDiv(x *big.Int, num, den uint64) (*big.Int, error) {
	if den == 0 {
		return nil, errors.New("division by zero")
	}
	ux, err := ToUint256(x)
	if err != nil {
		return nil, err
	}
	prod, overflow := new(uint256.Int).MulOverflow(ux, uint256.NewInt(num))
	if overflow {
		return nil, fmt.Errorf("%w: %s * %d", ErrOverflow, x, num)
	}
	return prod.Div(prod, uint256.NewInt(den)).ToBig(), nil
}

// ProtocolFee is floor(amountIn*feeBps/10000).
func ProtocolFee(amountIn *big.Int, feeBps uint32) (*big.Int, error) {
	if feeBps > BpsDenominator {
		return nil, fmt.Errorf("fee %d bps above 100%%", feeBps)
	}
	return MulDiv(amountIn, uint64(feeBps), BpsDenominator)
}

// DeductFee returns (amountIn - fee, fee).
func DeductFee(amountIn *big.Int, feeBps uint32) (*big.Int, *big.Int, error) {
	fee, err := ProtocolFee(amountIn, feeBps)
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Sub(amountIn, fee), fee, nil
}

// MinOut is floor(expectedOut*(10000-slippageBps)/10000). Never rounds up.
func MinOut(expectedOut *big.Int, slippageBps uint32) (*big.Int, error) {
	if slippageBps > BpsDenominator {
		return nil, fmt.Errorf("slippage %d bps above 100%%", slippageBps)
	}
	return MulDiv(expectedOut, uint64(BpsDenominator-slippageBps), BpsDenominator)
}

// Portion is floor(amount*pct/100).
func Portion(amount *big.Int, pct uint8) (*big.Int, error) {
	return MulDiv(amount, uint64(pct), 100)
}

// Beats reports whether best exceeds second by more than thresholdBps,
// i.e. best*10000 > second*(10000+thresholdBps), evaluated exactly.
func Beats(best, second *big.Int, thresholdBps uint32) bool {
	lhs := new(big.Int).Mul(best, big.NewInt(BpsDenominator))
	rhs := new(big.Int).Mul(second, big.NewInt(int64(BpsDenominator)+int64(thresholdBps)))
	return lhs.Cmp(rhs) > 0
}

// Package asset models ledger tokens and exact token amounts.
// Amounts are big.Int in the smallest unit; decimal.Decimal is only used
// at the boundaries (parsing user input and display).
package asset

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind tells the native asset, its wrapped form and ordinary tokens apart.
type Kind uint8

const (
	KindToken Kind = iota
	KindNative
	KindWrappedNative
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindWrappedNative:
		return "wrapped_native"
	default:
		return "token"
	}
}

// Asset is token metadata with the address as identity.
type Asset struct {
	address  common.Address
	symbol   string
	decimals uint8
	kind     Kind
}

// MaxDecimals bounds token decimals; anything above is treated as bogus.
const MaxDecimals = 77

// NewAsset creates an ordinary token.
func NewAsset(addr common.Address, symbol string, decimals uint8) *Asset {
	return newAsset(addr, symbol, decimals, KindToken)
}

// NewNative creates the native asset, addressed by its sentinel.
func NewNative(sentinel common.Address, symbol string, decimals uint8) *Asset {
	return newAsset(sentinel, symbol, decimals, KindNative)
}

// NewWrappedNative creates the wrapped native token.
func NewWrappedNative(addr common.Address, symbol string, decimals uint8) *Asset {
	return newAsset(addr, symbol, decimals, KindWrappedNative)
}

func newAsset(addr common.Address, symbol string, decimals uint8, kind Kind) *Asset {
	if decimals > MaxDecimals {
		panic("asset: decimals out of range")
	}
	if symbol == "" {
		symbol = ShortAddress(addr)
	}
	return &Asset{address: addr, symbol: symbol, decimals: decimals, kind: kind}
}

func (a *Asset) Address() common.Address { return a.address }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) Kind() Kind              { return a.kind }

// IsNative reports whether this is the native sentinel.
func (a *Asset) IsNative() bool { return a.kind == KindNative }

// IsWrappedNative reports whether this is the wrapped native token.
func (a *Asset) IsWrappedNative() bool { return a.kind == KindWrappedNative }

func (a *Asset) String() string { return a.symbol }

// Equals compares assets by address.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.address == other.address
}

// ShortAddress renders 0x1234…abcd style labels for unknown tokens.
func ShortAddress(addr common.Address) string {
	h := addr.Hex()
	return strings.Join([]string{h[:6], h[len(h)-4:]}, "..")
}

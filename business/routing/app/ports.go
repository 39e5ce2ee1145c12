// Package app contains the routing use cases and the ports they depend on.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/routing/domain"
)

// LedgerReader is the read-only ledger capability venue adapters use.
type LedgerReader interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// TokenMetadata resolves auxiliary token data. Never used for quotes.
type TokenMetadata interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// QuoteRequest is what every adapter receives. Addresses are already
// normalized to the wrapped native asset.
type QuoteRequest struct {
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *big.Int
	Direction domain.Direction
	// TargetToken is the non-wrapped side of a buy or sell.
	TargetToken common.Address
}

// VenueAdapter quotes one venue. A failed call returns a no-liquidity quote
// together with a VENUE_UNAVAILABLE error; it never panics on reverts.
type VenueAdapter interface {
	ID() domain.VenueID
	Name() string
	Family() domain.Family
	Quote(ctx context.Context, req QuoteRequest) (domain.VenueQuote, error)
}

// TierQuoter is implemented by concentrated-liquidity adapters so the
// multi-hop search can pin a fee tier per hop.
type TierQuoter interface {
	FeeTiers() []uint32
	QuoteTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error)
}

// HybridInspector is implemented by the hybrid adapter.
type HybridInspector interface {
	Inspect(ctx context.Context, token common.Address) (domain.HybridTokenInfo, error)
}

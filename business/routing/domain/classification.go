package domain

import "github.com/ethereum/go-ethereum/common"

// Direction is the trade side relative to the wrapped native asset.
type Direction uint8

const (
	// DirectionCross trades two ordinary tokens.
	DirectionCross Direction = iota
	// DirectionBuy spends the wrapped native asset for a token.
	DirectionBuy
	// DirectionSell sells a token for the wrapped native asset.
	DirectionSell
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return "cross"
	}
}

// TokenClassification is derived per request and never stored.
type TokenClassification struct {
	IsNativeAsset        bool
	IsWrappedNativeAsset bool
	// IsWrapUnwrap is set for exactly the {native, wrapped} pair.
	IsWrapUnwrap bool
	// Wrap is true for native -> wrapped, false for the reverse.
	Wrap bool

	EligibleFamilies        FamilySet
	IsHybridVenueRestricted bool

	Direction Direction
	// TargetToken is the non-wrapped side; tokenIn for cross trades.
	TargetToken common.Address

	// Venue-facing addresses with the native sentinel normalized.
	VenueTokenIn  common.Address
	VenueTokenOut common.Address
}

// Eligible reports whether adapters of family f may be called.
func (c TokenClassification) Eligible(f Family) bool {
	return c.EligibleFamilies.Has(f)
}

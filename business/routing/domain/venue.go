// Package domain contains the value types and pure arithmetic of swap routing.
package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// VenueID identifies a venue to the executing contract. Stable across requests.
type VenueID uint8

// WrapUnwrapVenueID is the pseudo-venue for native <-> wrapped-native conversion.
const WrapUnwrapVenueID VenueID = 99

// Family is a venue pricing model.
type Family uint8

const (
	FamilyConstantProduct Family = iota
	FamilyConcentrated
	FamilyHybrid
)

var familyNames = [...]string{
	FamilyConstantProduct: "constant_product",
	FamilyConcentrated:    "concentrated",
	FamilyHybrid:          "hybrid",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("family(%d)", f)
}

// ParseFamily parses the config spelling of a family.
func ParseFamily(s string) (Family, error) {
	for i, name := range familyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Family(i), nil
		}
	}
	return 0, fmt.Errorf("unknown venue family %q", s)
}

// FamilySet is a small bitset of families.
type FamilySet uint8

// AllFamilies has every family eligible.
const AllFamilies = FamilySet(1<<FamilyConstantProduct | 1<<FamilyConcentrated | 1<<FamilyHybrid)

// NewFamilySet builds a set from fs.
func NewFamilySet(fs ...Family) FamilySet {
	var s FamilySet
	for _, f := range fs {
		s = s.With(f)
	}
	return s
}

func (s FamilySet) Has(f Family) bool         { return s&(1<<f) != 0 }
func (s FamilySet) With(f Family) FamilySet    { return s | 1<<f }
func (s FamilySet) Without(f Family) FamilySet { return s &^ (1 << f) }
func (s FamilySet) IsEmpty() bool              { return s == 0 }

// Families lists members in declaration order.
func (s FamilySet) Families() []Family {
	var out []Family
	for f := range familyNames {
		if s.Has(Family(f)) {
			out = append(out, Family(f))
		}
	}
	return out
}

func (s FamilySet) String() string {
	names := make([]string, 0, len(familyNames))
	for _, f := range s.Families() {
		names = append(names, f.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// VenueQuote is one venue's answer for one request.
type VenueQuote struct {
	VenueID   VenueID
	VenueName string
	AmountOut *big.Int
	// FeeTier is the concentrated-liquidity tier (hundredths of a bip) that
	// produced AmountOut; zero when not applicable.
	FeeTier     uint32
	IsGraduated bool
	// UsesVenueRouter marks hybrid quotes that must execute through the
	// venue's own router rather than a pool.
	UsesVenueRouter bool
	HasLiquidity    bool
}

// NewVenueQuote builds a quote whose HasLiquidity follows amountOut.
func NewVenueQuote(id VenueID, name string, amountOut *big.Int) VenueQuote {
	if amountOut == nil {
		amountOut = new(big.Int)
	}
	return VenueQuote{
		VenueID:      id,
		VenueName:    name,
		AmountOut:    new(big.Int).Set(amountOut),
		HasLiquidity: amountOut.Sign() > 0,
	}
}

// NoLiquidity is the quote returned for reverts, timeouts and empty pools.
func NoLiquidity(id VenueID, name string) VenueQuote {
	return VenueQuote{VenueID: id, VenueName: name, AmountOut: new(big.Int)}
}

// Usable reports whether the quote may be ranked.
func (q VenueQuote) Usable() bool {
	return q.HasLiquidity && q.AmountOut != nil && q.AmountOut.Sign() > 0
}

// FeeTierLabel renders a tier like 500 as "0.05%".
func FeeTierLabel(tier uint32) string {
	whole := tier / 10000
	frac := tier % 10000
	if frac == 0 {
		return fmt.Sprintf("%d%%", whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%04d", frac), "0")
	return fmt.Sprintf("%d.%s%%", whole, s)
}

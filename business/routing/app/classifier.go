package app

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

// ClassifierRules are the static eligibility rules of a deployment.
type ClassifierRules struct {
	// HybridSuffixes restrict tokens whose address ends with one of them
	// (case-insensitive) to the hybrid venue.
	HybridSuffixes []string
	// Exclusions removes families for specific tokens.
	Exclusions map[common.Address]domain.FamilySet
}

// Classifier derives a TokenClassification for a pair. It never fails.
type Classifier struct {
	registry *asset.Registry
	suffixes []string
	excluded map[common.Address]domain.FamilySet
}

// NewClassifier creates a classifier over the registry's native and
// wrapped-native assets.
func NewClassifier(registry *asset.Registry, rules ClassifierRules) *Classifier {
	suffixes := make([]string, 0, len(rules.HybridSuffixes))
	for _, s := range rules.HybridSuffixes {
		s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
		if s != "" {
			suffixes = append(suffixes, s)
		}
	}

	excluded := make(map[common.Address]domain.FamilySet, len(rules.Exclusions))
	for addr, fs := range rules.Exclusions {
		excluded[addr] = fs
	}

	return &Classifier{registry: registry, suffixes: suffixes, excluded: excluded}
}

// Classify inspects the pair without any network access.
func (c *Classifier) Classify(tokenIn, tokenOut common.Address) domain.TokenClassification {
	r := c.registry
	wrapped := r.WrappedNative().Address()

	cls := domain.TokenClassification{
		IsNativeAsset:        r.IsNative(tokenIn) || r.IsNative(tokenOut),
		IsWrappedNativeAsset: r.IsWrappedNative(tokenIn) || r.IsWrappedNative(tokenOut),
		VenueTokenIn:         r.Normalize(tokenIn),
		VenueTokenOut:        r.Normalize(tokenOut),
		EligibleFamilies:     domain.AllFamilies,
	}

	switch {
	case r.IsNative(tokenIn) && r.IsWrappedNative(tokenOut):
		cls.IsWrapUnwrap, cls.Wrap = true, true
	case r.IsWrappedNative(tokenIn) && r.IsNative(tokenOut):
		cls.IsWrapUnwrap = true
	}

	switch {
	case cls.VenueTokenIn == wrapped:
		cls.Direction = domain.DirectionBuy
		cls.TargetToken = cls.VenueTokenOut
	case cls.VenueTokenOut == wrapped:
		cls.Direction = domain.DirectionSell
		cls.TargetToken = cls.VenueTokenIn
	default:
		cls.Direction = domain.DirectionCross
		cls.TargetToken = cls.VenueTokenIn
	}

	if cls.IsWrapUnwrap {
		return cls
	}

	if c.hybridOnly(cls.TargetToken) {
		cls.EligibleFamilies = domain.NewFamilySet(domain.FamilyHybrid)
		cls.IsHybridVenueRestricted = true
	}
	for _, token := range []common.Address{cls.VenueTokenIn, cls.VenueTokenOut} {
		if fs, ok := c.excluded[token]; ok {
			cls.EligibleFamilies &^= fs
		}
	}

	return cls
}

func (c *Classifier) hybridOnly(token common.Address) bool {
	hex := strings.ToLower(token.Hex())
	for _, s := range c.suffixes {
		if strings.HasSuffix(hex, s) {
			return true
		}
	}
	return false
}

package venues

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
)

// Options are shared by every adapter.
type Options struct {
	// CallTimeout bounds one Quote; a timed-out venue reports no liquidity.
	CallTimeout time.Duration
	Logger      logger.LoggerInterface
}

// Build creates adapters for the enabled venues, in configuration order.
// The order is the aggregator's tie-break order.
func Build(cfgs []config.VenueConfig, wrapped common.Address, ledger app.LedgerReader, opts Options) ([]app.VenueAdapter, error) {
	adapters := make([]app.VenueAdapter, 0, len(cfgs))
	for i := range cfgs {
		vc := &cfgs[i]
		if vc.Disabled {
			continue
		}

		a, err := buildOne(vc, wrapped, ledger, opts)
		if err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithCause(err),
				apperror.WithContextf("venue %q", vc.Name))
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func buildOne(vc *config.VenueConfig, wrapped common.Address, ledger app.LedgerReader, opts Options) (app.VenueAdapter, error) {
	family, err := domain.ParseFamily(vc.Family)
	if err != nil {
		return nil, err
	}
	id := domain.VenueID(vc.ID)

	switch family {
	case domain.FamilyConstantProduct:
		return NewConstantProduct(id, vc.Name, vc.RouterHex(), ledger, opts)
	case domain.FamilyConcentrated:
		return NewConcentrated(id, vc.Name, vc.QuoterHex(), vc.FeeTiers, ledger, opts)
	case domain.FamilyHybrid:
		hc := HybridConfig{
			Lens:             vc.LensHex(),
			Wrapped:          wrapped,
			FeeTiers:         vc.FeeTiers,
			MinPoolLiquidity: vc.MinPoolLiquidityBig(),
		}
		if vc.Factory != "" {
			hc.Factory = vc.FactoryHex()
			hc.Quoter = vc.QuoterHex()
		}
		if vc.ListingFactory != "" {
			hc.ListingFactory = vc.ListingFactoryHex()
		}
		return NewHybrid(id, vc.Name, hc, ledger, opts)
	default:
		return nil, fmt.Errorf("unsupported family %s", family)
	}
}

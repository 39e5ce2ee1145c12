// Package routing implements the swap routing bounded context: venue
// adapters, quote aggregation and route optimization.
package routing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	"github.com/fd1az/swap-router/business/routing/app"
	routingDI "github.com/fd1az/swap-router/business/routing/di"
	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/business/routing/infra/venues"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the routing bounded context.
type Module struct{}

// RegisterServices registers all routing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register venue adapters (private - built from the venue registry)
	di.RegisterToken(c, routingDI.VenueAdapters, func(sr di.ServiceRegistry) []app.VenueAdapter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		adapters, err := venues.Build(
			cfg.Venues,
			registry.WrappedNative().Address(),
			blockchainDI.GetBlockchainService(sr),
			venues.Options{CallTimeout: cfg.Routing.VenueCallTimeout, Logger: log},
		)
		if err != nil {
			panic("failed to build venue adapters: " + err.Error())
		}
		return adapters
	})

	// Register RoutingService (public - used by the CLI and UI)
	di.RegisterToken(c, routingDI.RoutingService, func(sr di.ServiceRegistry) *app.RoutingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		svc, err := app.NewRoutingService(
			registry,
			routingDI.GetVenueAdapters(sr),
			ClassifierRules(cfg.Classifier),
			blockchainDI.GetBlockchainService(sr),
			app.ServiceConfig{
				ProtocolFeeBps:     cfg.Routing.ProtocolFeeBps,
				DefaultSlippageBps: cfg.Routing.DefaultSlippageBps,
				SplitThresholdBps:  cfg.Routing.SplitThresholdBps,
				PrimarySplitPct:    cfg.Routing.PrimarySplitPct,
				RequestTimeout:     cfg.Routing.RequestTimeout,
			},
			log,
		)
		if err != nil {
			panic("failed to create routing service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup resolves the service so configuration errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	adapters := routingDI.GetVenueAdapters(mono.Services())
	for _, a := range adapters {
		log.Info(ctx, "venue registered",
			"id", a.ID(),
			"name", a.Name(),
			"family", a.Family().String(),
		)
	}
	_ = routingDI.GetRoutingService(mono.Services())

	log.Info(ctx, "routing module started", "venues", len(adapters))
	return nil
}

// ClassifierRules converts the classifier configuration. Validate has
// already checked addresses and family names.
func ClassifierRules(cfg config.ClassifierConfig) app.ClassifierRules {
	rules := app.ClassifierRules{
		HybridSuffixes: cfg.HybridSuffixes,
		Exclusions:     make(map[common.Address]domain.FamilySet, len(cfg.Exclusions)),
	}
	for _, ex := range cfg.Exclusions {
		token := common.HexToAddress(ex.Token)
		set := rules.Exclusions[token]
		for _, name := range ex.Families {
			if f, err := domain.ParseFamily(name); err == nil {
				set = set.With(f)
			}
		}
		rules.Exclusions[token] = set
	}
	return rules
}

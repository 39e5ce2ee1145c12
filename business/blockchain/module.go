// Package blockchain implements the ledger bounded context: read-only
// contract calls and token metadata.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/blockchain/app"
	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	"github.com/fd1az/swap-router/business/blockchain/infra/ethereum"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ContractCaller (private - internal dependency)
	di.RegisterToken(c, blockchainDI.ContractCaller, func(sr di.ServiceRegistry) app.ContractCaller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		ledgerCfg := ethereum.DefaultLedgerConfig(cfg.Ethereum.HTTPURL)
		ledgerCfg.ChainID = cfg.Ethereum.ChainID
		if cfg.Ethereum.CallTimeout > 0 {
			ledgerCfg.CallTimeout = cfg.Ethereum.CallTimeout
		}
		ledgerCfg.RequestsPerMinute = cfg.Ethereum.RequestsPerMinute
		if cfg.Ethereum.MaxConnsPerHost > 0 {
			ledgerCfg.MaxConnsPerHost = cfg.Ethereum.MaxConnsPerHost
		}

		ledger, err := ethereum.NewLedger(ledgerCfg, log)
		if err != nil {
			panic("failed to create ledger client: " + err.Error())
		}
		return ledger
	})

	// Register TokenReader (private - internal dependency)
	di.RegisterToken(c, blockchainDI.TokenReader, func(sr di.ServiceRegistry) app.TokenReader {
		reader, err := ethereum.NewERC20Reader(blockchainDI.GetContractCaller(sr))
		if err != nil {
			panic("failed to create erc20 reader: " + err.Error())
		}
		return reader
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		decimals := cache.New[common.Address, uint8](
			cfg.Routing.MetadataCacheTTL,
			cache.WithSize(cfg.Routing.MetadataCacheSize),
		)

		svc, err := app.NewBlockchainService(
			blockchainDI.GetContractCaller(sr),
			blockchainDI.GetTokenReader(sr),
			registry,
			decimals,
			cfg.Routing.MetadataCacheTTL,
			log,
		)
		if err != nil {
			panic("failed to create blockchain service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup connects the ledger client.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	caller := blockchainDI.GetContractCaller(mono.Services())

	if connector, ok := caller.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect ledger", "error", err)
			return err
		}
	}

	if closer, ok := caller.(interface{ Close() error }); ok {
		mono.OnClose(closer.Close)
	}

	log.Info(ctx, "blockchain module started")
	return nil
}

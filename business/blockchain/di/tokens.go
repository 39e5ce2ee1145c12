// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/swap-router/business/blockchain/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	ContractCaller = di.NewToken[app.ContractCaller]("blockchain:contractCaller")
	TokenReader    = di.NewToken[app.TokenReader]("blockchain:tokenReader")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetContractCaller(c di.ServiceRegistry) app.ContractCaller {
	return di.GetToken(c, ContractCaller)
}

func GetTokenReader(c di.ServiceRegistry) app.TokenReader {
	return di.GetToken(c, TokenReader)
}

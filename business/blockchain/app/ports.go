// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/blockchain/domain"
)

// ContractCaller performs read-only contract calls at the latest block.
// Implementations must be safe for concurrent use.
type ContractCaller interface {
	// CallContract executes an eth_call against to with ABI-encoded data.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// Status returns the current connection state.
	Status() domain.ConnectionStatus
}

// TokenReader reads ERC-20 metadata from the chain.
type TokenReader interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

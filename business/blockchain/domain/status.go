// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState represents the state of the ledger connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnected    ConnectionState = "connected"
	// StateDegraded means the circuit breaker is probing after failures.
	StateDegraded ConnectionState = "degraded"
	// StateOpen means calls are rejected until the breaker timeout elapses.
	StateOpen ConnectionState = "open"
)

// ConnectionStatus contains detailed connection information.
type ConnectionStatus struct {
	State       ConnectionState
	ChainID     uint64
	LastLatency time.Duration
	LastCall    time.Time
	Calls       uint64
	Failures    uint64
}

// TokenMetadata is what the router needs to know about an ERC-20.
type TokenMetadata struct {
	Address  common.Address
	Decimals uint8
	// Known is set when the value came from configuration rather than a call.
	Known bool
}

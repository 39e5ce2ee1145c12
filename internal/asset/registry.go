package asset

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe set of assets with pinned metadata.
type Registry struct {
	byAddr  map[common.Address]*Asset
	native  *Asset
	wrapped *Asset
	mu      sync.RWMutex
}

// NewRegistry creates a registry seeded with the native asset and its wrapped form.
func NewRegistry(native, wrapped *Asset) *Registry {
	if native == nil || !native.IsNative() {
		panic("asset: registry needs a native asset")
	}
	if wrapped == nil || !wrapped.IsWrappedNative() {
		panic("asset: registry needs a wrapped native asset")
	}

	return &Registry{
		byAddr: map[common.Address]*Asset{
			native.Address():  native,
			wrapped.Address(): wrapped,
		},
		native:  native,
		wrapped: wrapped,
	}
}

// Register adds a token. Re-registering an address is an error.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddr[a.Address()]; exists {
		return fmt.Errorf("asset: %s already registered", a.Address().Hex())
	}
	r.byAddr[a.Address()] = a
	return nil
}

// Get returns the asset registered for addr.
func (r *Registry) Get(addr common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byAddr[addr]
	return a, ok
}

// Native returns the native asset.
func (r *Registry) Native() *Asset { return r.native }

// WrappedNative returns the wrapped native token.
func (r *Registry) WrappedNative() *Asset { return r.wrapped }

// IsNative reports whether addr is the native sentinel.
func (r *Registry) IsNative(addr common.Address) bool { return addr == r.native.Address() }

// IsWrappedNative reports whether addr is the wrapped native token.
func (r *Registry) IsWrappedNative(addr common.Address) bool { return addr == r.wrapped.Address() }

// Normalize maps the native sentinel to the wrapped token, which is what venues trade.
func (r *Registry) Normalize(addr common.Address) common.Address {
	if r.IsNative(addr) {
		return r.wrapped.Address()
	}
	return addr
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddr)
}

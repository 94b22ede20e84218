package chains

import (
	"context"
	"fmt"
)

// EscrowParams describes one HTLC escrow to deploy. Amount is a base-unit
// decimal integer string, SecretHash the hashlock encoding native to the
// target chain.
type EscrowParams struct {
	Maker      string
	Taker      string
	Token      string
	Amount     string
	SecretHash string
	Timelock   int64
}

// Adapter is one chain's view of the fixed escrow/factory contract
// interface. Every call blocks until the transaction is confirmed and is
// safe to retry on the next scan.
type Adapter interface {
	Name() string
	// Family selects the hashlock encoding for this chain, "evm" or
	// "starkgate".
	Family() string
	DeployEscrow(ctx context.Context, params EscrowParams) (escrowAddress string, err error)
	Claim(ctx context.Context, escrowAddress, secret string) (txHash string, err error)
	Refund(ctx context.Context, escrowAddress string) (txHash string, err error)
	// Approve grants the chain's escrow factory an allowance on token.
	Approve(ctx context.Context, token, amount string) (txHash string, err error)
}

// Registry holds the configured chain adapters keyed by chain name.
// Adapters are instances passed in at construction, never globals, so two
// resolvers against different networks can coexist in one process.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its chain name.
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Name()] = adapter
}

// Get returns the adapter for a chain name.
func (r *Registry) Get(chain string) (Adapter, error) {
	adapter, ok := r.adapters[chain]
	if !ok {
		return nil, fmt.Errorf("no adapter configured for chain %q", chain)
	}
	return adapter, nil
}

// Names lists the registered chain names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

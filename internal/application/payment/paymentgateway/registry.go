package paymentgateway

import (
	"fmt"
	"sort"
	"sync"

	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

// Registry resolves gateways by name. Each gateway owns its client, so
// several accounts or test doubles can coexist in one process.
type Registry struct {
	mu       sync.RWMutex
	gateways map[vo.Gateway]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[vo.Gateway]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

// Register adds or replaces the gateway under its own name.
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

func (r *Registry) Get(name vo.Gateway) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("gateway %q is not configured", name)
	}
	return g, nil
}

func (r *Registry) Names() []vo.Gateway {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]vo.Gateway, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

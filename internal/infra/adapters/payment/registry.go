package payment

import (
	"fmt"
	"sort"
	"strings"

	"digital-checkout/internal/config"
	"digital-checkout/internal/domain/ports/adapter"
)

// Factory builds a gateway from the payment section of the config.
type Factory func(cfg config.PaymentConfig) (adapter.PaymentGateway, error)

// Registry maps provider names to factories. It is resolved once at startup.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry knows every built-in provider.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("stripe", func(cfg config.PaymentConfig) (adapter.PaymentGateway, error) {
		return NewStripeGateway(cfg.Stripe)
	})
	r.Register("elavon", func(cfg config.PaymentConfig) (adapter.PaymentGateway, error) {
		return NewElavonGateway(cfg.Elavon), nil
	})
	r.Register("noop", func(cfg config.PaymentConfig) (adapter.PaymentGateway, error) {
		return NewNoopGateway(), nil
	})
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[strings.ToLower(name)] = f
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Build resolves cfg.Provider. An unknown provider is a configuration error.
func (r *Registry) Build(cfg config.PaymentConfig) (adapter.PaymentGateway, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider %q (known: %s)", cfg.Provider, strings.Join(r.Names(), ", "))
	}
	gw, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("build payment provider %s: %w", name, err)
	}
	return gw, nil
}

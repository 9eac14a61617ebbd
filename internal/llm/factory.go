package llm

import (
	"fmt"
	"strings"

	"leelaaverse/internal/config"

	"github.com/sirupsen/logrus"
)

// Registry resolves model selectors to the provider that serves them.
type Registry struct {
	providers map[string]Provider
	byModel   map[string]Provider
	specs     []ModelSpec
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		byModel:   make(map[string]Provider),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.ID()] = p
		for _, spec := range p.Models() {
			if _, exists := r.byModel[spec.ID]; exists {
				continue
			}
			r.byModel[spec.ID] = p
			r.specs = append(r.specs, spec)
		}
	}
	return r
}

// NewRegistryFromConfig instantiates every provider that has credentials configured.
func NewRegistryFromConfig(cfg config.Config) (*Registry, error) {
	var providers []Provider

	if strings.TrimSpace(cfg.FalAPIKey) != "" {
		fal, err := NewFalAI(cfg)
		if err != nil {
			return nil, fmt.Errorf("init fal provider: %w", err)
		}
		providers = append(providers, fal)
	}
	if strings.TrimSpace(cfg.VolcengineAPIKey) != "" {
		volc, err := NewVolcengine(cfg)
		if err != nil {
			return nil, fmt.Errorf("init volcengine provider: %w", err)
		}
		providers = append(providers, volc)
	}

	if len(providers) == 0 {
		logrus.Warn("no generation provider configured; set FAL_KEY or VOLCENGINE_API_KEY")
	}
	return NewRegistry(providers...), nil
}

// Resolve returns the provider and model spec for a selector. Empty selects DefaultModel.
func (r *Registry) Resolve(model string) (Provider, ModelSpec, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	p, ok := r.byModel[model]
	if !ok {
		return nil, ModelSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
	}
	spec, err := lookupModel(p.Models(), model)
	if err != nil {
		return nil, ModelSpec{}, err
	}
	return p, spec, nil
}

// Provider returns a provider by its driver id.
func (r *Registry) Provider(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Models lists every selectable model, in registration order.
func (r *Registry) Models() []ModelSpec {
	return append([]ModelSpec(nil), r.specs...)
}

// Health maps every provider id to its circuit state, or "ok" for drivers without a breaker.
func (r *Registry) Health() map[string]string {
	out := make(map[string]string, len(r.providers))
	for id, p := range r.providers {
		if reporter, ok := p.(interface{ CircuitState() string }); ok {
			out[id] = reporter.CircuitState()
			continue
		}
		out[id] = "ok"
	}
	return out
}

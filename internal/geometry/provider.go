package geometry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/pkg/domain"
)

// Source resolves the local geometry of a catalog component.
type Source interface {
	Geometry(componentID string) (domain.ComponentGeometry, error)
}

// Provider evaluates catalog definitions on demand and caches the result by
// definition id. It is safe for concurrent use.
type Provider struct {
	mu      sync.RWMutex
	catalog *domain.Catalog
	cache   map[string]domain.ComponentGeometry
	logger  *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger used to report fallback diagnostics.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a provider over a catalog.
func NewProvider(catalog *domain.Catalog, opts ...ProviderOption) *Provider {
	p := &Provider{
		catalog: catalog,
		cache:   make(map[string]domain.ComponentGeometry),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog returns the catalog currently served.
func (p *Provider) Catalog() *domain.Catalog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog
}

// Reset swaps the catalog and drops every cached geometry.
func (p *Provider) Reset(catalog *domain.Catalog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalog = catalog
	p.cache = make(map[string]domain.ComponentGeometry)
}

// Geometry returns the geometry of a component, evaluating it on first use.
// Diagnostics of a fallback are logged once, when the entry is cached.
func (p *Provider) Geometry(componentID string) (domain.ComponentGeometry, error) {
	p.mu.RLock()
	g, ok := p.cache[componentID]
	cat := p.catalog
	p.mu.RUnlock()
	if ok {
		return g, nil
	}

	def, found := cat.Component(componentID)
	if !found {
		return domain.ComponentGeometry{}, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, componentID)
	}
	if !(def.WidthMm > 0) && cat.WidthMm > 0 {
		def.WidthMm = cat.WidthMm
	}
	g = Of(def)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[componentID]; ok {
		return cached, nil
	}
	if p.catalog != cat {
		// Catalog swapped while evaluating; do not cache a stale entry.
		return g, nil
	}
	p.cache[componentID] = g
	for _, d := range g.Diagnostics {
		p.logger.Warn("Invalid component definition, using fallback", "component", componentID, "diagnostic", d)
	}
	return g, nil
}

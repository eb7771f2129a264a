package ports

import (
	"context"

	"github.com/aretw0/railyard/pkg/domain"
)

// CatalogLoader defines how the engine retrieves the component catalog.
// This allows the catalog source (file, Loam directory, memory) to be decoupled.
type CatalogLoader interface {
	// Load reads, decodes and validates the whole catalog.
	Load(ctx context.Context) (*domain.Catalog, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload of the catalog in dev mode.
type Watchable interface {
	// Watch returns a channel that receives the name of a changed source.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}

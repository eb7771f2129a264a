package ports

import (
	"context"

	"github.com/aretw0/railyard/pkg/domain"
)

// LayoutStore defines the interface for persisting layouts.
// Implementations must round-trip every numeric field exactly.
type LayoutStore interface {
	// Save persists the layout under the given ID.
	Save(ctx context.Context, layoutID string, layout *domain.Layout) error

	// Load retrieves the layout for a given ID.
	// Returns domain.ErrLayoutNotFound if the layout does not exist.
	Load(ctx context.Context, layoutID string) (*domain.Layout, error)

	// Delete removes the layout for a given ID. Deleting a missing layout is not an error.
	Delete(ctx context.Context, layoutID string) error

	// List returns the IDs of all stored layouts.
	List(ctx context.Context) ([]string, error)
}

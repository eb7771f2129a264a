package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/railyard/internal/catalog"
	"github.com/aretw0/railyard/pkg/domain"
)

// Loader implements ports.CatalogLoader over definitions supplied in code.
type Loader struct {
	doc  catalog.Document
	defs []domain.ComponentDefinition
}

// NewLoader creates a loader from raw catalog entries. Variant params are
// decoded on Load, exactly as for file catalogs.
func NewLoader(id string, widthMm float64, entries ...catalog.Entry) *Loader {
	return &Loader{doc: catalog.Document{ID: id, WidthMm: widthMm, Components: entries}}
}

// NewFromDefinitions creates a loader from already typed definitions.
// This improves DX for tests that do not care about document decoding.
func NewFromDefinitions(id string, widthMm float64, defs ...domain.ComponentDefinition) *Loader {
	return &Loader{
		doc:  catalog.Document{ID: id, WidthMm: widthMm},
		defs: append([]domain.ComponentDefinition(nil), defs...),
	}
}

// Load builds the catalog.
func (l *Loader) Load(ctx context.Context) (*domain.Catalog, error) {
	cat, err := catalog.Build(l.doc)
	if err != nil {
		return nil, fmt.Errorf("memory catalog: %w", err)
	}
	seen := make(map[string]bool, len(cat.Components)+len(l.defs))
	for _, def := range cat.Components {
		seen[def.ID] = true
	}
	for _, def := range l.defs {
		if def.ID == "" || seen[def.ID] {
			return nil, fmt.Errorf("memory catalog: %w: missing or duplicate id %q", catalog.ErrInvalidCatalog, def.ID)
		}
		seen[def.ID] = true
		if !(def.WidthMm > 0) {
			def.WidthMm = cat.WidthMm
		}
		cat.Components = append(cat.Components, def)
	}
	return cat, nil
}

package catalog

import (
	"fmt"

	"github.com/aretw0/railyard/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML or JSON catalog file and builds it.
func Parse(data []byte) (*domain.Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return Build(doc)
}

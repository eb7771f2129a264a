// Package validator checks layouts coming from outside the engine (files,
// HTTP uploads, stores) before they are accepted.
package validator

import (
	"fmt"
	"math"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/pkg/domain"
)

// ValidateLayout rejects a layout as a whole if any item or connection is
// unusable with catalog. The returned *AggregateError lists every problem and
// matches domain.ErrDanglingReference and/or domain.ErrInvalidLayout.
func ValidateLayout(layout domain.Layout, catalog *domain.Catalog) error {
	v := &run{}
	geo := geometry.NewProvider(catalog)

	if catalog != nil && catalog.ID != "" {
		switch layout.TrackSystem {
		case catalog.ID:
		case "":
			v.dangling("trackSystem", "layout names no track system but the catalog is %q", catalog.ID)
		default:
			v.dangling("trackSystem", "layout uses %q but the catalog is %q", layout.TrackSystem, catalog.ID)
		}
	}

	seen := make(map[string]bool, len(layout.Items))
	for i, it := range layout.Items {
		path := fmt.Sprintf("items[%d]", i)
		switch {
		case it.ID == "":
			v.invalid(path+".id", "item id is empty")
		case seen[it.ID]:
			v.invalid(path+".id", "duplicate item id %q", it.ID)
		}
		seen[it.ID] = true

		if !finite(it.X, it.Y, it.RotationDeg) {
			v.invalid(path, "item %q has a non-finite pose", it.ID)
		}
		if _, err := geo.Geometry(it.ComponentID); err != nil {
			v.dangling(path+".componentId", "unknown component %q", it.ComponentID)
		}
	}

	for i, s := range layout.Shapes {
		if !finite(s.Points...) {
			v.invalid(fmt.Sprintf("shapes[%d]", i), "shape %q has non-finite points", s.ID)
		}
	}

	used := make(map[domain.EndpointRef]bool, 2*len(layout.Connections))
	for i, c := range layout.Connections {
		path := fmt.Sprintf("connections[%d]", i)
		if c.A.ItemID == c.B.ItemID {
			v.invalid(path, "item %q is connected to itself", c.A.ItemID)
		}
		for _, ref := range []domain.EndpointRef{c.A, c.B} {
			if used[ref] {
				v.invalid(path, "endpoint %s is used by more than one connection", ref)
			}
			used[ref] = true
			v.endpoint(layout, geo, path, ref)
		}
	}

	return v.result()
}

type run struct {
	errs []error
}

func (v *run) invalid(path, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...), Err: domain.ErrInvalidLayout})
}

func (v *run) dangling(path, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...), Err: domain.ErrDanglingReference})
}

func (v *run) endpoint(layout domain.Layout, geo geometry.Source, path string, ref domain.EndpointRef) {
	it, ok := layout.Item(ref.ItemID)
	if !ok {
		v.dangling(path, "missing item %q", ref.ItemID)
		return
	}
	g, err := geo.Geometry(it.ComponentID)
	if err != nil {
		// Already reported on the item.
		return
	}
	if _, ok := g.Connector(ref.ConnectorKey); !ok {
		v.dangling(path, "item %q has no connector %q", ref.ItemID, ref.ConnectorKey)
	}
}

func (v *run) result() error {
	if len(v.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: v.errs}
}

func finite(vals ...float64) bool {
	for _, f := range vals {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

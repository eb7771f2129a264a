package railyard_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/railyard"
	"github.com/aretw0/railyard/pkg/adapters/memory"
	"github.com/aretw0/railyard/pkg/domain"
)

// ExampleNew_memory demonstrates how to use the Engine with an in-memory catalog.
// This is useful for testing, embedded scenarios, or when you don't want to rely on the file system.
func ExampleNew_memory() {
	// 1. Define the catalog with plain component definitions.
	loader := memory.NewFromDefinitions("piko-a", 45,
		domain.ComponentDefinition{ID: "G231", Type: domain.TypeStraight, LengthMm: 231},
		domain.ComponentDefinition{ID: "R1", Type: domain.TypeCurve, RadiusMm: 422, AngleDeg: 30},
	)

	// 2. Initialize Railyard with the custom loader.
	// Note: We leave path empty ("") because we are providing a loader.
	ctx := context.Background()
	engine, err := railyard.New(ctx, "", railyard.WithCatalogLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Place two straights, the second a little off the end of the first.
	layout := domain.NewLayout("yard", "piko-a")
	layout, _, err = engine.PlaceItem(ctx, layout, "G231", domain.Pose{})
	if err != nil {
		log.Fatal(err)
	}
	layout, second, err := engine.PlaceItem(ctx, layout, "G231", domain.Pose{X: 400})
	if err != nil {
		log.Fatal(err)
	}

	// 4. Drag it close to the free end: the preview snaps, the commit connects.
	preview, err := engine.PreviewDrag(ctx, layout, second.ID, domain.Pose{X: 236, Y: 3})
	if err != nil {
		log.Fatal(err)
	}
	layout, err = engine.CommitDrag(ctx, layout, preview)
	if err != nil {
		log.Fatal(err)
	}

	moved, _ := layout.Item(second.ID)
	fmt.Printf("snapped onto %s\n", preview.Snap.Target.ConnectorKey)
	fmt.Printf("x = %.1f mm\n", moved.X)
	fmt.Printf("connections: %d\n", len(layout.Connections))

	// Output:
	// snapped onto end
	// x = 231.0 mm
	// connections: 1
}

// ExampleEngine_NewController shows the stateful editing flow used by interactive front ends.
func ExampleEngine_NewController() {
	loader := memory.NewFromDefinitions("piko-a", 45,
		domain.ComponentDefinition{ID: "R1", Type: domain.TypeCurve, RadiusMm: 422, AngleDeg: 30},
	)
	ctx := context.Background()
	engine, err := railyard.New(ctx, "", railyard.WithCatalogLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctrl := engine.NewController(domain.NewLayout("yard", "piko-a"))
	item, err := ctrl.Place(ctx, "R1", domain.Pose{})
	if err != nil {
		log.Fatal(err)
	}
	if err := ctrl.Select(item.ID); err != nil {
		log.Fatal(err)
	}
	layout, err := ctrl.RotateSelected(ctx, 45)
	if err != nil {
		log.Fatal(err)
	}

	rotated, _ := layout.Item(item.ID)
	fmt.Printf("rotation: %.0f°\n", rotated.RotationDeg)

	// Output:
	// rotation: 45°
}

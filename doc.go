/*
Package railyard assembles model-railway track layouts from a catalog of parametric track pieces.

It turns declarative component definitions (straights, curves, switches, crossings) into connector poses and drawable paths, detects compatible connectors while a piece is dragged, and computes the rigid transform that makes two pieces meet exactly. Connected pieces move and rotate as a group; grounded pieces pin their group in place.

# Concept

A Layout is a value. Every operation takes a layout and returns a new one, so the host (an editor, the HTTP server, an agent) decides when and where to persist it. The catalog is read once through a CatalogLoader and cached per component.

# Key Features

  - Exact alignment: snapped connectors coincide in position and face opposite directions.
  - Group moves: dragging or rotating an item carries everything connected to it.
  - Grounding: a grounded item fixes its whole group.
  - Pluggable catalogs and stores: YAML/JSON files, Loam repositories, memory, Redis, SQLite.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/railyard"
		"github.com/aretw0/railyard/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		// Reads ./piko-a.yaml (a directory is opened as a Loam repository).
		eng, err := railyard.New(ctx, "./piko-a.yaml")
		if err != nil {
			log.Fatal(err)
		}

		layout := domain.NewLayout("yard", eng.Catalog().ID)
		layout, first, err := eng.PlaceItem(ctx, layout, "G231", domain.Pose{})
		if err != nil {
			log.Fatal(err)
		}
		layout, second, err := eng.PlaceItem(ctx, layout, "G231", domain.Pose{X: 400})
		if err != nil {
			log.Fatal(err)
		}

		// Drop the second piece near the end of the first: it snaps and connects.
		preview, err := eng.PreviewDrag(ctx, layout, second.ID, domain.Pose{X: 234, Y: 2})
		if err != nil {
			log.Fatal(err)
		}
		layout, err = eng.CommitDrag(ctx, layout, preview)
		if err != nil {
			log.Fatal(err)
		}
		log.Println(first.ID, "connections:", len(layout.Connections))
	}
*/
package railyard

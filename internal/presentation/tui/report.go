package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/internal/graph"
	"github.com/aretw0/railyard/pkg/domain"
)

// LayoutReport summarizes a layout as Markdown: its items, connected groups
// and free endpoints in world coordinates.
func LayoutReport(layout domain.Layout, geometries geometry.Source) (string, error) {
	free, err := graph.FreeEndpoints(layout, geometries)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	title := layout.ID
	if layout.Name != "" {
		title = layout.Name
	}
	fmt.Fprintf(&sb, "# Layout %s\n\n", title)
	fmt.Fprintf(&sb, "Track system **%s**, %d items, %d connections, %d free endpoints.\n\n",
		layout.TrackSystem, len(layout.Items), len(layout.Connections), len(free))

	if len(layout.Items) == 0 {
		sb.WriteString("_The layout is empty._\n")
		return sb.String(), nil
	}

	groups := graph.Groups(layout)
	sb.WriteString("## Groups\n\n")
	sb.WriteString("| Group | Items | Grounded |\n|---|---|---|\n")
	for i, group := range groups {
		grounded := "no"
		for _, id := range group {
			if it, _ := layout.Item(id); it.IsGrounded {
				grounded = "yes"
				break
			}
		}
		fmt.Fprintf(&sb, "| %d | %s | %s |\n", i+1, strings.Join(group, ", "), grounded)
	}

	sb.WriteString("\n## Items\n\n")
	sb.WriteString("| Item | Component | X (mm) | Y (mm) | Rotation (°) |\n|---|---|---|---|---|\n")
	for _, it := range layout.Items {
		id := it.ID
		if it.IsGrounded {
			id += " ⚓"
		}
		fmt.Fprintf(&sb, "| %s | %s | %.1f | %.1f | %.1f |\n", id, it.ComponentID, it.X, it.Y, it.RotationDeg)
	}

	if len(free) > 0 {
		sb.WriteString("\n## Free endpoints\n\n")
		for _, ref := range free {
			it, _ := layout.Item(ref.ItemID)
			g, err := geometries.Geometry(it.ComponentID)
			if err != nil {
				return "", err
			}
			local, _ := g.Connector(ref.ConnectorKey)
			c := geometry.ToWorld(local, it.Pose())
			fmt.Fprintf(&sb, "- `%s` at (%.1f, %.1f) facing %.1f°\n", ref, c.XMm, c.YMm, c.DirectionDeg)
		}
	}

	return sb.String(), nil
}

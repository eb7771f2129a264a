package graph

import (
	"fmt"
	"strings"

	layoutgraph "github.com/aretw0/railyard/internal/graph"
	"github.com/aretw0/railyard/pkg/domain"
)

// GraphOverlay contains editor state to visualize on the graph.
type GraphOverlay struct {
	Selected  string
	Highlight []string
}

// GenerateMermaid produces a Mermaid flowchart of the connection graph of a
// layout. Items are nodes shaped by component type when cat is given:
// - Straight: [Rectangle]
// - Curve: ([Stadium])
// - Switch: {{Hexagon}}
// - Crossing: {Rhombus}
// Connections are undirected links labelled with both connector keys. When the
// layout has more than one connected group, each group becomes a subgraph.
func GenerateMermaid(layout domain.Layout, cat *domain.Catalog, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	items := make(map[string]domain.PlacedItem, len(layout.Items))
	for _, it := range layout.Items {
		items[it.ID] = it
	}

	groups := layoutgraph.Groups(layout)
	for i, group := range groups {
		indent := "    "
		if len(groups) > 1 {
			sb.WriteString(fmt.Sprintf("    subgraph group_%d[\"Group %d\"]\n", i+1, i+1))
			indent = "        "
		}
		for _, id := range group {
			sb.WriteString(indent + node(items[id], cat) + "\n")
		}
		if len(groups) > 1 {
			sb.WriteString("    end\n")
		}
	}

	for _, c := range layout.Connections {
		sb.WriteString(fmt.Sprintf("    %s ---|\"%s - %s\"| %s\n",
			sanitizeMermaidID(c.A.ItemID), c.A.ConnectorKey, c.B.ConnectorKey, sanitizeMermaidID(c.B.ItemID)))
	}

	var grounded []string
	for _, it := range layout.Items {
		if it.IsGrounded {
			grounded = append(grounded, sanitizeMermaidID(it.ID))
		}
	}
	if len(grounded) > 0 {
		sb.WriteString("\n    classDef grounded fill:#eceff1,stroke:#37474f,stroke-width:3px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s grounded;\n", strings.Join(grounded, ",")))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text for contrast on light fills whatever the theme.
		sb.WriteString("    classDef highlight fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Highlight {
			if _, ok := items[id]; !ok {
				continue
			}
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s highlight;\n", safeID))
			}
		}
		if _, ok := items[overlay.Selected]; ok {
			sb.WriteString(fmt.Sprintf("    class %s selected;\n", sanitizeMermaidID(overlay.Selected)))
		}
	}

	return sb.String()
}

func node(it domain.PlacedItem, cat *domain.Catalog) string {
	opener, closer := "[", "]"
	if def, ok := cat.Component(it.ComponentID); ok {
		switch def.Type {
		case domain.TypeCurve:
			opener, closer = "([", "])"
		case domain.TypeSwitch:
			opener, closer = "{{", "}}"
		case domain.TypeCrossing:
			opener, closer = "{", "}"
		}
	}
	label := fmt.Sprintf("%s <br/> %s", it.ID, it.ComponentID)
	return fmt.Sprintf("%s%s\"%s\"%s", sanitizeMermaidID(it.ID), opener, label, closer)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// "end" closes a subgraph in Mermaid.
	if strings.EqualFold(s, "end") {
		s += "_"
	}
	return s
}

package domain

// LayoutDiff represents the changes between two layouts.
// It is designed to be serialized to JSON for partial updates on the client.
type LayoutDiff struct {
	// LayoutID is always present to identify the target.
	LayoutID string `json:"layout_id"`

	ItemsAdded   []PlacedItem `json:"items_added,omitempty"`
	ItemsRemoved []string     `json:"items_removed,omitempty"`
	// ItemsChanged holds the new value of items whose pose or grounding changed.
	ItemsChanged []PlacedItem `json:"items_changed,omitempty"`

	ConnectionsAdded   []Connection `json:"connections_added,omitempty"`
	ConnectionsRemoved []Connection `json:"connections_removed,omitempty"`
}

// Diff calculates the difference between oldLayout and newLayout.
// If oldLayout is nil, it returns a diff representing the entire newLayout (initial load).
// It returns nil when nothing changed.
func Diff(oldLayout, newLayout *Layout) *LayoutDiff {
	if newLayout == nil {
		return nil
	}

	diff := &LayoutDiff{LayoutID: newLayout.ID}

	var oldItems []PlacedItem
	var oldConns []Connection
	if oldLayout != nil {
		oldItems = oldLayout.Items
		oldConns = oldLayout.Connections
	}

	diffItems(diff, oldItems, newLayout.Items)
	diff.ConnectionsAdded = missingConnections(newLayout.Connections, oldConns)
	diff.ConnectionsRemoved = missingConnections(oldConns, newLayout.Connections)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffItems(diff *LayoutDiff, oldItems, newItems []PlacedItem) {
	previous := make(map[string]PlacedItem, len(oldItems))
	for _, it := range oldItems {
		previous[it.ID] = it
	}

	seen := make(map[string]bool, len(newItems))
	for _, it := range newItems {
		seen[it.ID] = true
		old, exists := previous[it.ID]
		switch {
		case !exists:
			diff.ItemsAdded = append(diff.ItemsAdded, it)
		case old != it:
			diff.ItemsChanged = append(diff.ItemsChanged, it)
		}
	}

	for _, it := range oldItems {
		if !seen[it.ID] {
			diff.ItemsRemoved = append(diff.ItemsRemoved, it.ID)
		}
	}
}

// missingConnections returns the connections of from that are absent in other.
func missingConnections(from, other []Connection) []Connection {
	var out []Connection
	for _, c := range from {
		found := false
		for _, o := range other {
			if o.Matches(c.A, c.B) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, c)
		}
	}
	return out
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *LayoutDiff) IsEmpty() bool {
	return len(d.ItemsAdded) == 0 &&
		len(d.ItemsRemoved) == 0 &&
		len(d.ItemsChanged) == 0 &&
		len(d.ConnectionsAdded) == 0 &&
		len(d.ConnectionsRemoved) == 0
}

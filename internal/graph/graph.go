// Package graph maintains the connection set of a layout and answers
// connectivity queries over it. Every function treats the layout as an
// immutable value and returns a new one when something changes.
package graph

import (
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/pkg/domain"
)

// WidthToleranceMm is the maximum gauge difference accepted between two connectors.
const WidthToleranceMm = 1e-3

// Reason classifies a rejected connection.
type Reason string

const (
	ReasonSelfConnection   Reason = "self_connection"
	ReasonEndpointInUse    Reason = "endpoint_in_use"
	ReasonWidthMismatch    Reason = "width_mismatch"
	ReasonUnknownItem      Reason = "unknown_item"
	ReasonUnknownConnector Reason = "unknown_connector"
	// ReasonMisaligned is used by callers that cannot move either side into place.
	ReasonMisaligned Reason = "misaligned"
)

// ConnectionError reports why two endpoints could not be connected.
type ConnectionError struct {
	A, B   domain.EndpointRef
	Reason Reason
	Detail string
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("cannot connect %s to %s: %s", e.A, e.B, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return domain.ErrIncompatibleConnection
}

// Connect appends a connection between a and b. It does not check geometric
// alignment; callers align the pieces first. On failure the layout is returned
// unchanged together with a *ConnectionError.
func Connect(layout domain.Layout, a, b domain.EndpointRef, geometries geometry.Source) (domain.Layout, error) {
	reject := func(r Reason, detail string) (domain.Layout, error) {
		return layout, &ConnectionError{A: a, B: b, Reason: r, Detail: detail}
	}

	if a.ItemID == b.ItemID {
		return reject(ReasonSelfConnection, "")
	}

	ca, err := connectorOf(layout, a, geometries)
	if err != nil {
		return reject(reasonOf(err), err.Error())
	}
	cb, err := connectorOf(layout, b, geometries)
	if err != nil {
		return reject(reasonOf(err), err.Error())
	}

	for _, ref := range []domain.EndpointRef{a, b} {
		if existing, ok := layout.ConnectionAt(ref); ok {
			return reject(ReasonEndpointInUse, fmt.Sprintf("%s already connected to %s", ref, existing.Other(ref)))
		}
	}

	if math.Abs(ca.WidthMm-cb.WidthMm) > WidthToleranceMm {
		return reject(ReasonWidthMismatch, fmt.Sprintf("%gmm vs %gmm", ca.WidthMm, cb.WidthMm))
	}

	next := layout.Clone()
	next.Connections = append(next.Connections, domain.Connection{A: a, B: b})
	return next, nil
}

type lookupError struct {
	reason Reason
	msg    string
}

func (e *lookupError) Error() string { return e.msg }

func reasonOf(err error) Reason {
	if le, ok := err.(*lookupError); ok {
		return le.reason
	}
	return ReasonUnknownConnector
}

// connectorOf resolves the local connector an endpoint refers to.
func connectorOf(layout domain.Layout, ref domain.EndpointRef, geometries geometry.Source) (domain.Connector, error) {
	item, ok := layout.Item(ref.ItemID)
	if !ok {
		return domain.Connector{}, &lookupError{ReasonUnknownItem, fmt.Sprintf("item %q not in layout", ref.ItemID)}
	}
	g, err := geometries.Geometry(item.ComponentID)
	if err != nil {
		return domain.Connector{}, &lookupError{ReasonUnknownConnector, err.Error()}
	}
	c, ok := g.Connector(ref.ConnectorKey)
	if !ok {
		return domain.Connector{}, &lookupError{ReasonUnknownConnector, fmt.Sprintf("component %s has no connector %q", item.ComponentID, ref.ConnectorKey)}
	}
	return c, nil
}

// Disconnect removes the unordered pair (a, b) if present. It is idempotent.
func Disconnect(layout domain.Layout, a, b domain.EndpointRef) domain.Layout {
	next := layout.Clone()
	next.Connections = next.Connections[:0]
	for _, c := range layout.Connections {
		if !c.Matches(a, b) {
			next.Connections = append(next.Connections, c)
		}
	}
	return next
}

// RemoveItem deletes an item and every connection referencing it in one step.
func RemoveItem(layout domain.Layout, itemID string) domain.Layout {
	next := layout.Clone()
	next.Items = next.Items[:0]
	for _, it := range layout.Items {
		if it.ID != itemID {
			next.Items = append(next.Items, it)
		}
	}
	next.Connections = next.Connections[:0]
	for _, c := range layout.Connections {
		if !c.Involves(itemID) {
			next.Connections = append(next.Connections, c)
		}
	}
	return next
}

func adjacency(layout domain.Layout) map[string][]string {
	adj := make(map[string][]string, len(layout.Items))
	for _, c := range layout.Connections {
		adj[c.A.ItemID] = append(adj[c.A.ItemID], c.B.ItemID)
		adj[c.B.ItemID] = append(adj[c.B.ItemID], c.A.ItemID)
	}
	return adj
}

func bfs(adj map[string][]string, start string, visited map[string]bool) []string {
	group := []string{start}
	visited[start] = true
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adj[id] {
			if !visited[next] {
				visited[next] = true
				group = append(group, next)
				queue = append(queue, next)
			}
		}
	}
	sort.Strings(group)
	return group
}

// ConnectedGroup returns the sorted ids of every item reachable from itemID
// through connections. The result always contains itemID.
func ConnectedGroup(layout domain.Layout, itemID string) []string {
	return bfs(adjacency(layout), itemID, make(map[string]bool))
}

// Groups partitions all placed items into connected groups.
// Groups are sorted by their smallest member id.
func Groups(layout domain.Layout) [][]string {
	adj := adjacency(layout)
	visited := make(map[string]bool, len(layout.Items))
	var groups [][]string
	for _, it := range layout.Items {
		if !visited[it.ID] {
			groups = append(groups, bfs(adj, it.ID, visited))
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

// SameGroup reports whether two items are connected, directly or not.
func SameGroup(layout domain.Layout, a, b string) bool {
	for _, id := range ConnectedGroup(layout, a) {
		if id == b {
			return true
		}
	}
	return false
}

// FreeEndpoints lists connectors that take part in no connection, in item
// order and connector key order.
func FreeEndpoints(layout domain.Layout, geometries geometry.Source) ([]domain.EndpointRef, error) {
	var free []domain.EndpointRef
	for _, it := range layout.Items {
		g, err := geometries.Geometry(it.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		for _, key := range g.Keys() {
			ref := domain.EndpointRef{ItemID: it.ID, ConnectorKey: key}
			if _, used := layout.ConnectionAt(ref); !used {
				free = append(free, ref)
			}
		}
	}
	return free, nil
}

// CheckConsistency verifies the structural invariants of the connection set:
// no self-connections, no endpoint used twice, no reference to a missing item.
func CheckConsistency(layout domain.Layout) error {
	items := make(map[string]bool, len(layout.Items))
	for _, it := range layout.Items {
		items[it.ID] = true
	}
	used := make(map[domain.EndpointRef]bool, 2*len(layout.Connections))
	for _, c := range layout.Connections {
		if c.A.ItemID == c.B.ItemID {
			return fmt.Errorf("%w: connection %s-%s connects an item to itself", domain.ErrInvalidLayout, c.A, c.B)
		}
		for _, ref := range []domain.EndpointRef{c.A, c.B} {
			if !items[ref.ItemID] {
				return fmt.Errorf("%w: connection references missing item %s", domain.ErrDanglingReference, ref.ItemID)
			}
			if used[ref] {
				return fmt.Errorf("%w: endpoint %s used by two connections", domain.ErrInvalidLayout, ref)
			}
			used[ref] = true
		}
	}
	return nil
}

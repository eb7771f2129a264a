package domain

import (
	"fmt"
	"strings"
)

// Pose is a rigid 2D placement: translation in millimetres plus rotation in degrees.
type Pose struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	RotationDeg float64 `json:"rotationDeg"`
}

// PlacedItem is an instance of a catalog component on the layout.
type PlacedItem struct {
	ID          string  `json:"id"`
	ComponentID string  `json:"componentId"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	RotationDeg float64 `json:"rotationDeg"`
	IsGrounded  bool    `json:"isGrounded,omitempty"`
}

// Pose returns the world placement of the item.
func (it PlacedItem) Pose() Pose {
	return Pose{X: it.X, Y: it.Y, RotationDeg: it.RotationDeg}
}

// WithPose returns a copy of the item placed at p.
func (it PlacedItem) WithPose(p Pose) PlacedItem {
	it.X, it.Y, it.RotationDeg = p.X, p.Y, p.RotationDeg
	return it
}

// EndpointRef identifies one connector on one placed item.
type EndpointRef struct {
	ItemID       string `json:"itemId"`
	ConnectorKey string `json:"connectorKey"`
}

func (r EndpointRef) String() string {
	return r.ItemID + ":" + r.ConnectorKey
}

// ParseEndpointRef parses the "item:connector" form produced by String.
// Item ids may contain colons; the connector key is what follows the last one.
func ParseEndpointRef(s string) (EndpointRef, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return EndpointRef{}, fmt.Errorf("%w: endpoint %q is not of the form item:connector", ErrIncompatibleConnection, s)
	}
	return EndpointRef{ItemID: s[:i], ConnectorKey: s[i+1:]}, nil
}

// Connection is an unordered pair of endpoints.
type Connection struct {
	A EndpointRef `json:"a"`
	B EndpointRef `json:"b"`
}

// Has reports whether ref is one side of the connection.
func (c Connection) Has(ref EndpointRef) bool {
	return c.A == ref || c.B == ref
}

// Involves reports whether the connection touches the item.
func (c Connection) Involves(itemID string) bool {
	return c.A.ItemID == itemID || c.B.ItemID == itemID
}

// Matches compares the unordered pair.
func (c Connection) Matches(a, b EndpointRef) bool {
	return (c.A == a && c.B == b) || (c.A == b && c.B == a)
}

// Other returns the opposite side of ref.
func (c Connection) Other(ref EndpointRef) EndpointRef {
	if c.A == ref {
		return c.B
	}
	return c.A
}

// Shape is a decorative drawing element. The core never interprets it.
type Shape struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	Points []float64 `json:"points,omitempty"`
	Label  string    `json:"label,omitempty"`
}

// Layout is the aggregate edited by the core. It is treated as an immutable value:
// operations return a new Layout and never mutate their input.
type Layout struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	TrackSystem string       `json:"trackSystem"`
	Items       []PlacedItem `json:"items"`
	Connections []Connection `json:"connections"`
	Shapes      []Shape      `json:"shapes,omitempty"`
}

// NewLayout creates an empty layout for a track system.
func NewLayout(id, trackSystem string) Layout {
	return Layout{
		ID:          id,
		TrackSystem: trackSystem,
		Items:       []PlacedItem{},
		Connections: []Connection{},
	}
}

// Clone returns a deep copy.
func (l Layout) Clone() Layout {
	out := l
	out.Items = append([]PlacedItem{}, l.Items...)
	out.Connections = append([]Connection{}, l.Connections...)
	if l.Shapes != nil {
		out.Shapes = make([]Shape, len(l.Shapes))
		for i, s := range l.Shapes {
			s.Points = append([]float64(nil), s.Points...)
			out.Shapes[i] = s
		}
	}
	return out
}

// Item looks up a placed item by id.
func (l Layout) Item(id string) (PlacedItem, bool) {
	if i := l.ItemIndex(id); i >= 0 {
		return l.Items[i], true
	}
	return PlacedItem{}, false
}

// ItemIndex returns the index of the item or -1.
func (l Layout) ItemIndex(id string) int {
	for i, it := range l.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// ConnectionAt returns the connection ref participates in, if any.
func (l Layout) ConnectionAt(ref EndpointRef) (Connection, bool) {
	for _, c := range l.Connections {
		if c.Has(ref) {
			return c, true
		}
	}
	return Connection{}, false
}

package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Connector keys shared by every component.
const (
	KeyStart = "start"
	KeyEnd   = "end"
)

// Vec is a 2D vector in millimetres.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connector is an anchor where a piece can be aligned with another piece.
// Dir is the outward unit tangent and DirectionDeg its angle in (-180, 180].
type Connector struct {
	XMm          float64 `json:"xMm"`
	YMm          float64 `json:"yMm"`
	Dir          Vec     `json:"dir"`
	WidthMm      float64 `json:"widthMm"`
	DirectionDeg float64 `json:"directionDeg"`
}

// ComponentGeometry is the evaluated local geometry of a component definition.
type ComponentGeometry struct {
	ComponentID string               `json:"componentId"`
	Start       Connector            `json:"start"`
	End         Connector            `json:"end"`
	Extra       map[string]Connector `json:"extra,omitempty"`
	Path        PathDescriptor       `json:"path"`
	// Diagnostics is non-empty when the definition was invalid and a fallback
	// was used, or when its variant tag was not recognized.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Connector looks up a connector by key.
func (g ComponentGeometry) Connector(key string) (Connector, bool) {
	switch key {
	case KeyStart:
		return g.Start, true
	case KeyEnd:
		return g.End, true
	}
	c, ok := g.Extra[key]
	return c, ok
}

// Connectors returns every connector keyed by connector key.
func (g ComponentGeometry) Connectors() map[string]Connector {
	out := make(map[string]Connector, 2+len(g.Extra))
	out[KeyStart] = g.Start
	out[KeyEnd] = g.End
	for k, c := range g.Extra {
		out[k] = c
	}
	return out
}

// Keys lists connector keys: start, end, then extras sorted.
func (g ComponentGeometry) Keys() []string {
	extras := make([]string, 0, len(g.Extra))
	for k := range g.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	return append([]string{KeyStart, KeyEnd}, extras...)
}

// PathOp is the verb of a path command.
type PathOp string

const (
	OpMoveTo PathOp = "M"
	OpLineTo PathOp = "L"
	OpArcTo  PathOp = "A"
)

// PathCommand is one drawing instruction. Radius and the flags only apply to arcs.
type PathCommand struct {
	Op       PathOp  `json:"op"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius,omitempty"`
	LargeArc bool    `json:"largeArc,omitempty"`
	Sweep    bool    `json:"sweep,omitempty"`
}

func MoveTo(x, y float64) PathCommand { return PathCommand{Op: OpMoveTo, X: x, Y: y} }

func LineTo(x, y float64) PathCommand { return PathCommand{Op: OpLineTo, X: x, Y: y} }

func ArcTo(radius float64, largeArc, sweep bool, x, y float64) PathCommand {
	return PathCommand{Op: OpArcTo, Radius: radius, LargeArc: largeArc, Sweep: sweep, X: x, Y: y}
}

// PathDescriptor is an ordered list of drawing commands in millimetres.
type PathDescriptor []PathCommand

// String renders the descriptor as an SVG path "d" attribute.
func (p PathDescriptor) String() string {
	var b strings.Builder
	for i, c := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(c.Op))
		if c.Op == OpArcTo {
			r := num(c.Radius)
			b.WriteString(" " + r + " " + r + " 0 " + flag(c.LargeArc) + " " + flag(c.Sweep))
		}
		b.WriteString(" " + num(c.X) + " " + num(c.Y))
	}
	return b.String()
}

// Transform maps every point of the descriptor into world space.
// Rigid transforms keep radii and arc flags unchanged.
func (p PathDescriptor) Transform(pose Pose) PathDescriptor {
	sin, cos := math.Sincos(pose.RotationDeg * math.Pi / 180)
	out := make(PathDescriptor, len(p))
	for i, c := range p {
		x, y := c.X, c.Y
		c.X = x*cos - y*sin + pose.X
		c.Y = x*sin + y*cos + pose.Y
		out[i] = c
	}
	return out
}

func num(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

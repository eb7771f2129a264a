package geometry

import (
	"math"

	"github.com/aretw0/railyard/pkg/domain"
	"gonum.org/v1/gonum/spatial/r2"
)

// ToWorld rotates a local connector by the pose rotation, then translates it by
// the pose position. DirectionDeg is recomputed from the rotated direction.
func ToWorld(c domain.Connector, pose domain.Pose) domain.Connector {
	rad := pose.RotationDeg * math.Pi / 180
	p := r2.Add(r2.Rotate(r2.Vec{X: c.XMm, Y: c.YMm}, rad, r2.Vec{}), r2.Vec{X: pose.X, Y: pose.Y})
	d := r2.Rotate(r2.Vec{X: c.Dir.X, Y: c.Dir.Y}, rad, r2.Vec{})
	return withDirection(c, p, d)
}

// ToLocal is the inverse of ToWorld.
func ToLocal(c domain.Connector, pose domain.Pose) domain.Connector {
	rad := -pose.RotationDeg * math.Pi / 180
	p := r2.Rotate(r2.Sub(r2.Vec{X: c.XMm, Y: c.YMm}, r2.Vec{X: pose.X, Y: pose.Y}), rad, r2.Vec{})
	d := r2.Rotate(r2.Vec{X: c.Dir.X, Y: c.Dir.Y}, rad, r2.Vec{})
	return withDirection(c, p, d)
}

func withDirection(c domain.Connector, p, d r2.Vec) domain.Connector {
	c.XMm, c.YMm = p.X, p.Y
	c.Dir = domain.Vec{X: d.X, Y: d.Y}
	c.DirectionDeg = NormalizeDeg(math.Atan2(d.Y, d.X) * 180 / math.Pi)
	return c
}

// WorldConnectors maps every connector of g into world space.
func WorldConnectors(g domain.ComponentGeometry, pose domain.Pose) map[string]domain.Connector {
	out := make(map[string]domain.Connector, 2+len(g.Extra))
	for key, c := range g.Connectors() {
		out[key] = ToWorld(c, pose)
	}
	return out
}

// Position returns the connector position as a vector.
func Position(c domain.Connector) r2.Vec {
	return r2.Vec{X: c.XMm, Y: c.YMm}
}

// Distance is the Euclidean distance between two connector positions.
func Distance(a, b domain.Connector) float64 {
	return r2.Norm(r2.Sub(Position(a), Position(b)))
}

// AntiParallelDiff is how far a's direction is from facing exactly opposite to b,
// normalized to (-180, 180].
func AntiParallelDiff(a, b domain.Connector) float64 {
	return NormalizeDeg(a.DirectionDeg - (b.DirectionDeg + 180))
}

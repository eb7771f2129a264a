// Package snap finds the best connector alignment for an item being dragged
// and solves the pose that makes the alignment exact.
package snap

import (
	"math"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/internal/graph"
	"github.com/aretw0/railyard/pkg/domain"
	"gonum.org/v1/gonum/spatial/r2"
)

// tieEpsilonMm is the distance below which two candidates count as equally close.
const tieEpsilonMm = 1e-9

// Tolerance is the window inside which two connectors may snap together.
type Tolerance struct {
	DistanceMm float64 `json:"distanceMm" yaml:"distanceMm"`
	AngleDeg   float64 `json:"angleDeg" yaml:"angleDeg"`
}

// DefaultTolerance is 8mm and 15 degrees.
func DefaultTolerance() Tolerance {
	return Tolerance{DistanceMm: 8, AngleDeg: 15}
}

// Accepts reports whether a pair at this distance and angle difference may snap.
func (t Tolerance) Accepts(distanceMm, angleDiffDeg float64) bool {
	return distanceMm <= t.DistanceMm && math.Abs(angleDiffDeg) <= t.AngleDeg
}

// Result is the winning candidate of a snap search.
type Result struct {
	// Pose is the exact pose of the moving item that aligns Moving onto Target.
	Pose         domain.Pose        `json:"pose"`
	Moving       domain.EndpointRef `json:"moving"`
	Target       domain.EndpointRef `json:"target"`
	DistanceMm   float64            `json:"distanceMm"`
	AngleDiffDeg float64            `json:"angleDiffDeg"`
}

// Detector searches snap candidates with a configurable tolerance.
type Detector struct {
	Tolerance Tolerance
}

// Detect runs a search with the default tolerance.
func Detect(layout domain.Layout, geometries geometry.Source, movingID string, tentative domain.Pose) (*Result, bool) {
	return Detector{Tolerance: DefaultTolerance()}.Detect(layout, geometries, movingID, tentative)
}

// Detect compares every free connector of the moving item, placed at tentative,
// with every free connector of items outside its connected group. The closest
// accepted pair wins; equal distances are resolved by the smallest
// (moving key, other item id, other key) triple.
func (d Detector) Detect(layout domain.Layout, geometries geometry.Source, movingID string, tentative domain.Pose) (*Result, bool) {
	moving, ok := layout.Item(movingID)
	if !ok {
		return nil, false
	}
	mg, err := geometries.Geometry(moving.ComponentID)
	if err != nil {
		return nil, false
	}

	group := make(map[string]bool)
	for _, id := range graph.ConnectedGroup(layout, movingID) {
		group[id] = true
	}

	var best *candidate
	for _, mkey := range mg.Keys() {
		mref := domain.EndpointRef{ItemID: movingID, ConnectorKey: mkey}
		if _, used := layout.ConnectionAt(mref); used {
			continue
		}
		local, _ := mg.Connector(mkey)
		mw := geometry.ToWorld(local, tentative)

		for _, other := range layout.Items {
			if group[other.ID] {
				continue
			}
			og, err := geometries.Geometry(other.ComponentID)
			if err != nil {
				continue
			}
			for _, okey := range og.Keys() {
				oref := domain.EndpointRef{ItemID: other.ID, ConnectorKey: okey}
				if _, used := layout.ConnectionAt(oref); used {
					continue
				}
				oc, _ := og.Connector(okey)
				ow := geometry.ToWorld(oc, other.Pose())

				c := candidate{
					moving:    mref,
					target:    oref,
					local:     local,
					targetW:   ow,
					distance:  geometry.Distance(mw, ow),
					angleDiff: geometry.AntiParallelDiff(mw, ow),
				}
				if !d.Tolerance.Accepts(c.distance, c.angleDiff) {
					continue
				}
				if best == nil || c.beats(best) {
					cc := c
					best = &cc
				}
			}
		}
	}

	if best == nil {
		return nil, false
	}
	return &Result{
		Pose:         Align(best.local, tentative, best.targetW),
		Moving:       best.moving,
		Target:       best.target,
		DistanceMm:   best.distance,
		AngleDiffDeg: best.angleDiff,
	}, true
}

type candidate struct {
	moving, target domain.EndpointRef
	local          domain.Connector
	targetW        domain.Connector
	distance       float64
	angleDiff      float64
}

func (c candidate) beats(other *candidate) bool {
	if math.Abs(c.distance-other.distance) > tieEpsilonMm {
		return c.distance < other.distance
	}
	if c.moving.ConnectorKey != other.moving.ConnectorKey {
		return c.moving.ConnectorKey < other.moving.ConnectorKey
	}
	if c.target.ItemID != other.target.ItemID {
		return c.target.ItemID < other.target.ItemID
	}
	return c.target.ConnectorKey < other.target.ConnectorKey
}

// Align solves the pose that puts the local connector exactly on the world
// connector target, facing it. The rotation is the tentative rotation plus the
// delta between the desired direction (target + 180) and the connector's
// current world direction; the position then follows from the rotated offset.
func Align(local domain.Connector, tentative domain.Pose, target domain.Connector) domain.Pose {
	current := geometry.ToWorld(local, tentative)
	delta := geometry.NormalizeDeg(target.DirectionDeg + 180 - current.DirectionDeg)
	rotation := geometry.NormalizeDeg(tentative.RotationDeg + delta)

	offset := r2.Rotate(r2.Vec{X: local.XMm, Y: local.YMm}, rotation*math.Pi/180, r2.Vec{})
	pos := r2.Sub(geometry.Position(target), offset)
	return domain.Pose{X: pos.X, Y: pos.Y, RotationDeg: rotation}
}

// Residual measures how far the local connector, placed at pose, is from being
// exactly aligned with target.
func Residual(local domain.Connector, pose domain.Pose, target domain.Connector) (distanceMm, angleDeg float64) {
	w := geometry.ToWorld(local, pose)
	return geometry.Distance(w, target), geometry.AntiParallelDiff(w, target)
}

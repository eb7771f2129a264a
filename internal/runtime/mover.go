package runtime

import (
	"fmt"
	"math"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/internal/graph"
	"github.com/aretw0/railyard/pkg/domain"
	"gonum.org/v1/gonum/spatial/r2"
)

// MoveGroup moves the connected group of pivotID so that the pivot lands on
// newPose. Every member keeps its pose relative to the pivot: its offset from
// the pivot's previous position is rotated by the rotation delta and re-anchored
// at the pivot's new position. A group containing a grounded item does not move
// and the unchanged layout is returned with domain.ErrGrounded.
func MoveGroup(layout domain.Layout, pivotID string, newPose domain.Pose) (domain.Layout, error) {
	pivot, ok := layout.Item(pivotID)
	if !ok {
		return layout, fmt.Errorf("%w: %s", domain.ErrItemNotFound, pivotID)
	}
	members := graph.ConnectedGroup(layout, pivotID)
	if IsGrounded(layout, members) {
		return layout, fmt.Errorf("%w: item %s", domain.ErrGrounded, pivotID)
	}

	delta := newPose.RotationDeg - pivot.RotationDeg
	rad := delta * math.Pi / 180
	origin := r2.Vec{X: pivot.X, Y: pivot.Y}
	target := r2.Vec{X: newPose.X, Y: newPose.Y}

	inGroup := make(map[string]bool, len(members))
	for _, id := range members {
		inGroup[id] = true
	}

	next := layout.Clone()
	for i, it := range next.Items {
		if !inGroup[it.ID] {
			continue
		}
		if it.ID == pivotID {
			next.Items[i] = it.WithPose(domain.Pose{X: newPose.X, Y: newPose.Y, RotationDeg: geometry.NormalizeDeg(newPose.RotationDeg)})
			continue
		}
		offset := r2.Rotate(r2.Sub(r2.Vec{X: it.X, Y: it.Y}, origin), rad, r2.Vec{})
		pos := r2.Add(target, offset)
		next.Items[i] = it.WithPose(domain.Pose{X: pos.X, Y: pos.Y, RotationDeg: geometry.NormalizeDeg(it.RotationDeg + delta)})
	}
	return next, nil
}

// IsGrounded reports whether any of the given items is grounded.
func IsGrounded(layout domain.Layout, itemIDs []string) bool {
	for _, id := range itemIDs {
		if it, ok := layout.Item(id); ok && it.IsGrounded {
			return true
		}
	}
	return false
}

// ChooseMoving decides which side of a connect request moves. A grounded group
// is always fixed; otherwise the larger group stays and the smaller one moves.
// On a tie the group of b, the endpoint selected most recently, moves.
// bothGrounded is set when neither side may move.
func ChooseMoving(layout domain.Layout, a, b domain.EndpointRef) (moving, fixed domain.EndpointRef, bothGrounded bool) {
	ga := graph.ConnectedGroup(layout, a.ItemID)
	gb := graph.ConnectedGroup(layout, b.ItemID)
	groundedA, groundedB := IsGrounded(layout, ga), IsGrounded(layout, gb)

	switch {
	case groundedA && groundedB:
		return b, a, true
	case groundedA:
		return b, a, false
	case groundedB:
		return a, b, false
	case len(ga) > len(gb):
		return b, a, false
	case len(gb) > len(ga):
		return a, b, false
	default:
		return b, a, false
	}
}

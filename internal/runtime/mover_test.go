package runtime_test

import (
	"math/rand"
	"testing"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/internal/runtime"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveGroup_PreservesRelativePoses(t *testing.T) {
	geo := testProvider()
	l := chain(t)

	before := worldPoints(t, geo, l)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		pose := domain.Pose{X: rng.Float64()*2000 - 1000, Y: rng.Float64()*2000 - 1000, RotationDeg: rng.Float64()*720 - 360}
		moved, err := runtime.MoveGroup(l, "b", pose)
		require.NoError(t, err)

		b, _ := moved.Item("b")
		assert.InDelta(t, pose.X, b.X, eps)
		assert.InDelta(t, pose.Y, b.Y, eps)
		assert.InDelta(t, 0, geometry.NormalizeDeg(b.RotationDeg-pose.RotationDeg), eps)

		after := worldPoints(t, geo, moved)
		require.Len(t, after, len(before))
		for p := range before {
			for q := range before {
				assert.InDelta(t, geometry.Distance(before[p], before[q]), geometry.Distance(after[p], after[q]), eps)
				relBefore := geometry.NormalizeDeg(before[p].DirectionDeg - before[q].DirectionDeg)
				relAfter := geometry.NormalizeDeg(after[p].DirectionDeg - after[q].DirectionDeg)
				assert.InDelta(t, 0, geometry.NormalizeDeg(relBefore-relAfter), eps)
			}
		}
	}
}

func TestMoveGroup_LeavesOtherGroupsAlone(t *testing.T) {
	l := chain(t)
	l.Items = append(l.Items, domain.PlacedItem{ID: "z", ComponentID: "G150", X: -500, Y: -500})

	moved, err := runtime.MoveGroup(l, "a", domain.Pose{X: 10, Y: 10, RotationDeg: 90})
	require.NoError(t, err)

	z, _ := moved.Item("z")
	assert.Equal(t, domain.PlacedItem{ID: "z", ComponentID: "G150", X: -500, Y: -500}, z)
}

func TestMoveGroup_Grounded(t *testing.T) {
	l := chain(t)
	l.Items[2].IsGrounded = true

	got, err := runtime.MoveGroup(l, "a", domain.Pose{X: 1})
	assert.ErrorIs(t, err, domain.ErrGrounded)
	assert.Equal(t, l, got)

	_, err = runtime.MoveGroup(l, "ghost", domain.Pose{})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestChooseMoving(t *testing.T) {
	a := domain.EndpointRef{ItemID: "a", ConnectorKey: "start"}
	c := domain.EndpointRef{ItemID: "c", ConnectorKey: "end"}
	z := domain.EndpointRef{ItemID: "z", ConnectorKey: "start"}
	y := domain.EndpointRef{ItemID: "y", ConnectorKey: "end"}

	l := chain(t)
	l.Items = append(l.Items,
		domain.PlacedItem{ID: "z", ComponentID: "G150"},
		domain.PlacedItem{ID: "y", ComponentID: "G150"},
	)

	t.Run("larger group is fixed", func(t *testing.T) {
		moving, fixed, both := runtime.ChooseMoving(l, a, z)
		assert.Equal(t, z, moving)
		assert.Equal(t, a, fixed)
		assert.False(t, both)

		moving, _, _ = runtime.ChooseMoving(l, z, c)
		assert.Equal(t, z, moving)
	})

	t.Run("tie moves the most recently selected side", func(t *testing.T) {
		moving, fixed, _ := runtime.ChooseMoving(l, z, y)
		assert.Equal(t, y, moving)
		assert.Equal(t, z, fixed)

		moving, _, _ = runtime.ChooseMoving(l, y, z)
		assert.Equal(t, z, moving)
	})

	t.Run("grounded group is fixed", func(t *testing.T) {
		g := l.Clone()
		g.Items[g.ItemIndex("z")].IsGrounded = true
		moving, fixed, both := runtime.ChooseMoving(g, z, a)
		assert.Equal(t, a, moving, "the larger group moves when the smaller one is grounded")
		assert.Equal(t, z, fixed)
		assert.False(t, both)

		g.Items[g.ItemIndex("b")].IsGrounded = true
		_, _, both = runtime.ChooseMoving(g, z, a)
		assert.True(t, both)
	})
}

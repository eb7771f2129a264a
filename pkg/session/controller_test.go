package session_test

import (
	"context"
	"testing"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/internal/runtime"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T) *session.Controller {
	t.Helper()
	geo := geometry.NewProvider(&domain.Catalog{
		ID:      "piko-a",
		WidthMm: 45,
		Components: []domain.ComponentDefinition{
			{ID: "G200", Type: domain.TypeStraight, LengthMm: 200},
		},
	})
	ids := []string{"a", "b", "c"}
	n := 0
	engine := runtime.NewEngine(geo, runtime.WithStrictInvariants(), runtime.WithIDGenerator(func() string {
		id := ids[n]
		n++
		return id
	}))

	c := session.NewController(engine, domain.NewLayout("yard", "piko-a"))
	ctx := context.Background()
	_, err := c.Place(ctx, "G200", domain.Pose{})
	require.NoError(t, err)
	_, err = c.Place(ctx, "G200", domain.Pose{X: 203, Y: 1})
	require.NoError(t, err)
	return c
}

func TestController_PreviewThenCommit(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	before := c.Layout()

	preview, err := c.PreviewDrag(ctx, "b", domain.Pose{X: 203, Y: 1})
	require.NoError(t, err)
	require.NotNil(t, preview.Snap)
	assert.InDelta(t, 200, preview.Pose.X, 1e-9)
	assert.InDelta(t, 0, preview.Pose.Y, 1e-9)
	assert.Equal(t, before, c.Layout(), "a preview never changes the committed layout")

	l, err := c.CommitDrag(ctx)
	require.NoError(t, err)
	require.Len(t, l.Connections, 1)
	assert.True(t, l.Connections[0].Matches(
		domain.EndpointRef{ItemID: "b", ConnectorKey: domain.KeyStart},
		domain.EndpointRef{ItemID: "a", ConnectorKey: domain.KeyEnd},
	))
	assert.Nil(t, c.Pending())
}

func TestController_CancelDrag(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	before := c.Layout()

	_, err := c.PreviewDrag(ctx, "b", domain.Pose{X: 500, Y: 500})
	require.NoError(t, err)
	c.CancelDrag()

	l, err := c.CommitDrag(ctx)
	assert.ErrorIs(t, err, domain.ErrNoPendingDrag)
	assert.Equal(t, before, l)
}

func TestController_SelectionOperations(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	assert.Equal(t, "b", c.Selected(), "placing selects the new item")

	assert.ErrorIs(t, c.Select("ghost"), domain.ErrItemNotFound)
	require.NoError(t, c.Select("a"))

	l, err := c.RotateSelected(ctx, 90)
	require.NoError(t, err)
	a, _ := l.Item("a")
	assert.InDelta(t, 90, a.RotationDeg, 1e-9)

	require.NoError(t, c.Select(""))
	_, err = c.RotateSelected(ctx, 90)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestController_ConnectGroundDelete(t *testing.T) {
	ctx := context.Background()
	c := newController(t)

	a := domain.EndpointRef{ItemID: "a", ConnectorKey: domain.KeyEnd}
	b := domain.EndpointRef{ItemID: "b", ConnectorKey: domain.KeyStart}

	l, err := c.ConnectSelectedEndpoints(ctx, a, b)
	require.NoError(t, err)
	assert.Len(t, l.Connections, 1)

	// Connecting an endpoint twice is rejected and changes nothing.
	_, err = c.ConnectSelectedEndpoints(ctx, a, b)
	assert.ErrorIs(t, err, domain.ErrIncompatibleConnection)
	assert.Len(t, c.Layout().Connections, 1)

	_, err = c.ToggleGrounded(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Select("b"))
	_, err = c.RotateSelected(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrGrounded)

	l = c.DisconnectSelectedEndpoints(ctx, b, a)
	assert.Empty(t, l.Connections)

	l, err = c.DeleteItem(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, l.Items, 1)
	assert.Empty(t, c.Selected())

	_, err = c.DeleteItem(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestController_CommitDropsStalePreview(t *testing.T) {
	ctx := context.Background()
	c := newController(t)

	_, err := c.PreviewDrag(ctx, "b", domain.Pose{X: 203, Y: 1})
	require.NoError(t, err)

	_, err = c.ToggleGrounded(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, c.Pending())
}

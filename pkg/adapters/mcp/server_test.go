package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/railyard"
	"github.com/aretw0/railyard/pkg/adapters/memory"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	loader := memory.NewFromDefinitions("piko-a", 45,
		domain.ComponentDefinition{ID: "G231", Type: domain.TypeStraight, LengthMm: 231},
		domain.ComponentDefinition{ID: "R1", Type: domain.TypeCurve, RadiusMm: 422, AngleDeg: 30},
	)
	eng, err := railyard.New(context.Background(), "", railyard.WithCatalogLoader(loader))
	require.NoError(t, err)
	return NewServer(eng, session.NewManager(memory.NewStore()))
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestServer_CatalogTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleListComponents(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"G231"`)
	assert.Contains(t, resultText(t, res), `"R1"`)

	res, err = s.handleComponentGeometry(ctx, callRequest(map[string]any{"component_id": "G231"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"start"`)

	res, err = s.handleComponentGeometry(ctx, callRequest(map[string]any{"component_id": "W99"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "component not found")
}

func TestServer_PlaceMoveAndConnect(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	first, err := s.handlePlaceItem(ctx, callRequest(nil), PlaceArgs{LayoutID: "yard", ComponentID: "G231"})
	require.NoError(t, err)
	require.NotNil(t, first.Item)
	assert.Equal(t, "piko-a", first.Layout.TrackSystem)

	second, err := s.handlePlaceItem(ctx, callRequest(nil), PlaceArgs{LayoutID: "yard", ComponentID: "G231", X: 400})
	require.NoError(t, err)
	require.Len(t, second.Layout.Items, 2)

	moved, err := s.handleMoveItem(ctx, callRequest(nil), MoveArgs{LayoutID: "yard", ItemID: second.Item.ID, X: 235, Y: 2})
	require.NoError(t, err)
	require.NotNil(t, moved.Item)
	assert.InDelta(t, 231, moved.Item.X, 1e-9)
	assert.InDelta(t, 0, moved.Item.Y, 1e-9)
	assert.Equal(t, second.Item.ID+":start="+first.Item.ID+":end", moved.Snapped)
	assert.Len(t, moved.Layout.Connections, 1)

	_, err = s.handleConnect(ctx, callRequest(nil), ConnectArgs{LayoutID: "yard", A: first.Item.ID + ":end", B: second.Item.ID + ":start"})
	assert.ErrorIs(t, err, domain.ErrIncompatibleConnection, "endpoint already in use")

	_, err = s.handleConnect(ctx, callRequest(nil), ConnectArgs{LayoutID: "yard", A: "nonsense", B: second.Item.ID + ":start"})
	assert.ErrorIs(t, err, domain.ErrIncompatibleConnection)

	layout, err := s.handleGetLayout(ctx, callRequest(nil), LayoutArgs{LayoutID: "yard"})
	require.NoError(t, err)
	assert.Len(t, layout.Items, 2)
}

func TestServer_RotateAndDelete(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	placed, err := s.handlePlaceItem(ctx, callRequest(nil), PlaceArgs{LayoutID: "yard", ComponentID: "R1"})
	require.NoError(t, err)

	rotated, err := s.handleRotateItem(ctx, callRequest(nil), RotateArgs{LayoutID: "yard", ItemID: placed.Item.ID, DeltaDeg: 90})
	require.NoError(t, err)
	assert.InDelta(t, 90, rotated.Item.RotationDeg, 1e-9)

	deleted, err := s.handleDeleteItem(ctx, callRequest(nil), ItemArgs{LayoutID: "yard", ItemID: placed.Item.ID})
	require.NoError(t, err)
	assert.Empty(t, deleted.Layout.Items)

	_, err = s.handleRotateItem(ctx, callRequest(nil), RotateArgs{LayoutID: "ghost", ItemID: "x", DeltaDeg: 90})
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
}

func TestServer_ReportAndGraph(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	placed, err := s.handlePlaceItem(ctx, callRequest(nil), PlaceArgs{LayoutID: "yard", ComponentID: "G231"})
	require.NoError(t, err)

	res, err := s.handleLayoutReport(ctx, callRequest(map[string]any{"layout_id": "yard"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	md := resultText(t, res)
	assert.Contains(t, md, "# Layout yard")
	assert.Contains(t, md, "`"+placed.Item.ID+":start`")

	res, err = s.handleLayoutGraph(ctx, callRequest(map[string]any{"layout_id": "yard"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "graph LR")

	res, err = s.handleLayoutReport(ctx, callRequest(map[string]any{"layout_id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_DisconnectAndGround(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	first, err := s.handlePlaceItem(ctx, callRequest(nil), PlaceArgs{LayoutID: "yard", ComponentID: "G231"})
	require.NoError(t, err)
	second, err := s.handlePlaceItem(ctx, callRequest(nil), PlaceArgs{LayoutID: "yard", ComponentID: "G231", X: 231})
	require.NoError(t, err)
	a, b := first.Item.ID+":end", second.Item.ID+":start"

	connected, err := s.handleConnect(ctx, callRequest(nil), ConnectArgs{LayoutID: "yard", A: a, B: b})
	require.NoError(t, err)
	require.Len(t, connected.Layout.Connections, 1)

	grounded, err := s.handleToggleGrounded(ctx, callRequest(nil), ItemArgs{LayoutID: "yard", ItemID: first.Item.ID})
	require.NoError(t, err)
	require.NotNil(t, grounded.Item)
	assert.True(t, grounded.Item.IsGrounded)

	_, err = s.handleRotateItem(ctx, callRequest(nil), RotateArgs{LayoutID: "yard", ItemID: second.Item.ID, DeltaDeg: 90})
	assert.ErrorIs(t, err, domain.ErrGrounded, "the grounded item pins its whole group")

	disconnected, err := s.handleDisconnect(ctx, callRequest(nil), ConnectArgs{LayoutID: "yard", A: b, B: a})
	require.NoError(t, err)
	assert.Empty(t, disconnected.Layout.Connections)

	_, err = s.handleRotateItem(ctx, callRequest(nil), RotateArgs{LayoutID: "yard", ItemID: second.Item.ID, DeltaDeg: 90})
	assert.NoError(t, err, "a disconnected item is no longer pinned")

	again, err := s.handleDisconnect(ctx, callRequest(nil), ConnectArgs{LayoutID: "yard", A: a, B: b})
	require.NoError(t, err, "disconnecting an unconnected pair is a no-op")
	assert.Len(t, again.Layout.Items, 2)

	released, err := s.handleToggleGrounded(ctx, callRequest(nil), ItemArgs{LayoutID: "yard", ItemID: first.Item.ID})
	require.NoError(t, err)
	assert.False(t, released.Item.IsGrounded)

	_, err = s.handleToggleGrounded(ctx, callRequest(nil), ItemArgs{LayoutID: "yard", ItemID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = s.handleDisconnect(ctx, callRequest(nil), ConnectArgs{LayoutID: "yard", A: "nonsense", B: b})
	assert.ErrorIs(t, err, domain.ErrIncompatibleConnection)
}

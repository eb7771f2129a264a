package railyard_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/railyard"
	"github.com/aretw0/railyard/pkg/adapters/memory"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
name: PIKO A
components:
  - id: G231
    type: straight
    lengthMm: 231
  - id: R1
    type: curve
    radiusMm: 422
    angleDeg: 30
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "piko-a.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFacade_FileCatalog(t *testing.T) {
	ctx := context.Background()
	eng, err := railyard.New(ctx, writeCatalog(t, catalogYAML))
	require.NoError(t, err)

	assert.Equal(t, "piko-a", eng.Name)
	assert.Equal(t, "piko-a", eng.Catalog().ID)
	assert.Equal(t, 45.0, eng.Catalog().WidthMm)

	layout := domain.NewLayout("yard", eng.Catalog().ID)
	layout, first, err := eng.PlaceItem(ctx, layout, "G231", domain.Pose{})
	require.NoError(t, err)
	layout, second, err := eng.PlaceItem(ctx, layout, "G231", domain.Pose{X: 400})
	require.NoError(t, err)

	preview, err := eng.PreviewDrag(ctx, layout, second.ID, domain.Pose{X: 234, Y: 2})
	require.NoError(t, err)
	require.NotNil(t, preview.Snap)

	layout, err = eng.CommitDrag(ctx, layout, preview)
	require.NoError(t, err)
	require.Len(t, layout.Connections, 1)
	assert.True(t, layout.Connections[0].Matches(
		domain.EndpointRef{ItemID: first.ID, ConnectorKey: "end"},
		domain.EndpointRef{ItemID: second.ID, ConnectorKey: "start"},
	))

	moved, _ := layout.Item(second.ID)
	assert.InDelta(t, 231.0, moved.X, 1e-9)
	assert.InDelta(t, 0.0, moved.Y, 1e-9)
}

func TestFacade_LoamCatalog(t *testing.T) {
	repoPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "G231.md"), []byte(`---
type: straight
lengthMm: 231
---
# Straight 231mm`), 0644))

	eng, err := railyard.New(context.Background(), repoPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(repoPath), eng.Catalog().ID)
	g, err := eng.Geometry("G231")
	require.NoError(t, err)
	assert.InDelta(t, 231.0, g.End.XMm, 1e-9)
}

func TestFacade_CustomLoader(t *testing.T) {
	loader := memory.NewFromDefinitions("h0", 0,
		domain.ComponentDefinition{ID: "G1", Type: domain.TypeStraight, LengthMm: 100},
	)
	eng, err := railyard.New(context.Background(), "", railyard.WithCatalogLoader(loader), railyard.WithTolerance(2, 5))
	require.NoError(t, err)
	assert.Equal(t, "h0", eng.Catalog().ID)
	assert.Same(t, loader, eng.Loader())

	_, err = eng.Watch(context.Background())
	assert.Error(t, err, "memory catalogs cannot be watched")

	// 3mm away is outside the narrowed window.
	ctx := context.Background()
	layout := domain.NewLayout("yard", "h0")
	layout, _, err = eng.PlaceItem(ctx, layout, "G1", domain.Pose{})
	require.NoError(t, err)
	layout, b, err := eng.PlaceItem(ctx, layout, "G1", domain.Pose{X: 103})
	require.NoError(t, err)
	preview, err := eng.PreviewDrag(ctx, layout, b.ID, domain.Pose{X: 103})
	require.NoError(t, err)
	assert.Nil(t, preview.Snap)
}

func TestFacade_RequiresCatalog(t *testing.T) {
	_, err := railyard.New(context.Background(), "")
	assert.Error(t, err)

	_, err = railyard.New(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFacade_WatchReloadsCatalog(t *testing.T) {
	path := writeCatalog(t, catalogYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := railyard.New(ctx, path)
	require.NoError(t, err)
	_, err = eng.Geometry("G100")
	require.ErrorIs(t, err, domain.ErrComponentNotFound)

	changes, err := eng.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(catalogYAML+"  - id: G100\n    type: straight\n    lengthMm: 100\n"), 0644))

	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for catalog reload")
	}

	g, err := eng.Geometry("G100")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, g.End.XMm, 1e-9)
}

func TestFacade_Controller(t *testing.T) {
	ctx := context.Background()
	eng, err := railyard.New(ctx, writeCatalog(t, catalogYAML))
	require.NoError(t, err)

	ctrl := eng.NewController(domain.NewLayout("yard", "piko-a"))
	item, err := ctrl.Place(ctx, "R1", domain.Pose{})
	require.NoError(t, err)
	assert.Equal(t, item.ID, ctrl.Selected())

	layout, err := ctrl.RotateSelected(ctx, 90)
	require.NoError(t, err)
	rotated, _ := layout.Item(item.ID)
	assert.InDelta(t, 90.0, rotated.RotationDeg, 1e-9)
}

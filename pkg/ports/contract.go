package ports

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aretw0/railyard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractLayout is a layout whose numbers do not survive a lossy encoding.
func contractLayout(id string) *domain.Layout {
	return &domain.Layout{
		ID:          id,
		Name:        "Contract yard",
		TrackSystem: "piko-a",
		Items: []domain.PlacedItem{
			{ID: "a", ComponentID: "G231", X: 0.1 + 0.2, Y: -1e-300, RotationDeg: 179.99999999999997},
			{ID: "b", ComponentID: "R1", X: 123456.78901234567, Y: math.Pi, RotationDeg: -math.SmallestNonzeroFloat64, IsGrounded: true},
		},
		Connections: []domain.Connection{
			{A: domain.EndpointRef{ItemID: "a", ConnectorKey: "end"}, B: domain.EndpointRef{ItemID: "b", ConnectorKey: "start"}},
		},
		Shapes: []domain.Shape{
			{ID: "platform", Kind: "polygon", Points: []float64{0, 0, 1.0 / 3, 2.0 / 3}, Label: "Platform 1"},
		},
	}
}

// RunLayoutStoreContract runs a suite of tests to verify that a LayoutStore implementation
// adheres to the defined interface contract.
func RunLayoutStoreContract(t *testing.T, store LayoutStore) {
	ctx := context.Background()
	layoutID := "contract-test-layout-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		layout := contractLayout(layoutID)

		err := store.Save(ctx, layoutID, layout)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, layoutID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, layout, loaded, "layouts must round-trip exactly")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		layout := contractLayout(layoutID)
		layout.Items = layout.Items[:1]
		layout.Connections = []domain.Connection{}
		require.NoError(t, store.Save(ctx, layoutID, layout))

		loaded, err := store.Load(ctx, layoutID)
		require.NoError(t, err)
		assert.Len(t, loaded.Items, 1)
		assert.Empty(t, loaded.Connections)
	})

	t.Run("Load Returns Independent Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, layoutID)
		require.NoError(t, err)
		loaded.Items[0].X = 42

		again, err := store.Load(ctx, layoutID)
		require.NoError(t, err)
		assert.NotEqual(t, 42.0, again.Items[0].X)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+layoutID)
		assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, layoutID, contractLayout(layoutID))
		require.NoError(t, err)

		err = store.Delete(ctx, layoutID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, layoutID)
		assert.ErrorIs(t, err, domain.ErrLayoutNotFound, "Load after Delete should return ErrLayoutNotFound")

		assert.NoError(t, store.Delete(ctx, layoutID), "Delete of a missing layout is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := layoutID + "-1"
		id2 := layoutID + "-2"
		require.NoError(t, store.Save(ctx, id1, contractLayout(id1)))
		require.NoError(t, store.Save(ctx, id2, contractLayout(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		layouts, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, layouts, id1)
		assert.Contains(t, layouts, id2)
	})
}

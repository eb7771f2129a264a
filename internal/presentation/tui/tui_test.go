package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutReport(t *testing.T) {
	geo := geometry.NewProvider(&domain.Catalog{
		ID:      "piko-a",
		WidthMm: 45,
		Components: []domain.ComponentDefinition{
			{ID: "G231", Type: domain.TypeStraight, LengthMm: 231},
			{ID: "R1", Type: domain.TypeCurve, RadiusMm: 422, AngleDeg: 30},
		},
	})

	layout := domain.NewLayout("yard", "piko-a")
	layout.Items = []domain.PlacedItem{
		{ID: "a", ComponentID: "G231", IsGrounded: true},
		{ID: "b", ComponentID: "R1", X: 231},
		{ID: "c", ComponentID: "G231", X: 1000},
	}
	layout.Connections = []domain.Connection{
		{A: domain.EndpointRef{ItemID: "a", ConnectorKey: "end"}, B: domain.EndpointRef{ItemID: "b", ConnectorKey: "start"}},
	}

	md, err := LayoutReport(layout, geo)
	require.NoError(t, err)

	assert.Contains(t, md, "# Layout yard")
	assert.Contains(t, md, "3 items, 1 connections, 4 free endpoints")
	assert.Contains(t, md, "| 1 | a, b | yes |")
	assert.Contains(t, md, "| 2 | c | no |")
	assert.Contains(t, md, "| a ⚓ | G231 | 0.0 | 0.0 | 0.0 |")
	assert.Contains(t, md, "- `a:start` at (0.0, 0.0) facing 180.0°")
	assert.Contains(t, md, "- `c:end` at (1231.0, 0.0) facing 0.0°")
	assert.NotContains(t, md, "`a:end`")
}

func TestLayoutReport_Empty(t *testing.T) {
	md, err := LayoutReport(domain.NewLayout("empty", "piko-a"), geometry.NewProvider(&domain.Catalog{}))
	require.NoError(t, err)
	assert.Contains(t, md, "_The layout is empty._")
}

func TestLayoutReport_UnknownComponent(t *testing.T) {
	layout := domain.NewLayout("yard", "piko-a")
	layout.Items = []domain.PlacedItem{{ID: "a", ComponentID: "W99"}}

	_, err := LayoutReport(layout, geometry.NewProvider(&domain.Catalog{}))
	assert.ErrorIs(t, err, domain.ErrComponentNotFound)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "|_| \\_\\__,_|")
	assert.Contains(t, out, "track layout engine v1.2.3")
	assert.NotContains(t, out, "\x1b[", "no escape codes when the writer is not a terminal")
}

func TestRenderer(t *testing.T) {
	render, err := NewRenderer(80)
	require.NoError(t, err)

	out, err := render("# Yard\n\nTwo **items**.")
	require.NoError(t, err)
	assert.Contains(t, out, "Yard")
	assert.Contains(t, out, "items")
}

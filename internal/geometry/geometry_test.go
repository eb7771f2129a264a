package geometry

import (
	"math"
	"reflect"
	"testing"

	"github.com/aretw0/railyard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
)

const eps = 1e-6

func assertConnector(t *testing.T, c domain.Connector, x, y, dirDeg float64) {
	t.Helper()
	assert.InDelta(t, x, c.XMm, eps, "x")
	assert.InDelta(t, y, c.YMm, eps, "y")
	assert.InDelta(t, 0, NormalizeDeg(c.DirectionDeg-dirDeg), eps, "direction %v vs %v", c.DirectionDeg, dirDeg)
	assert.InDelta(t, 1, math.Hypot(c.Dir.X, c.Dir.Y), eps, "dir must be unit length")
}

func TestOf_Straight(t *testing.T) {
	g := Of(domain.ComponentDefinition{ID: "G200", Type: domain.TypeStraight, LengthMm: 200, WidthMm: 45})

	assertConnector(t, g.Start, 0, 0, 180)
	assertConnector(t, g.End, 200, 0, 0)
	assert.Equal(t, 45.0, g.End.WidthMm)
	assert.Empty(t, g.Diagnostics)
	assert.Equal(t, "M 0 0 L 200 0", g.Path.String())
}

func TestOf_Curve(t *testing.T) {
	t.Run("counter-clockwise", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{ID: "R1", Type: domain.TypeCurve, RadiusMm: 500, AngleDeg: 30})

		r := 500.0
		assertConnector(t, g.Start, 0, 0, 180)
		assertConnector(t, g.End, r*math.Sin(math.Pi/6), r*(1-math.Cos(math.Pi/6)), 30)
		assert.InDelta(t, 250.0, g.End.XMm, 1e-9)
		assert.InDelta(t, 66.987, g.End.YMm, 1e-3)
		assert.Equal(t, "M 0 0 A 500 500 0 0 0 250 66.987", g.Path.String())
	})

	t.Run("clockwise", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{ID: "R1c", Type: domain.TypeCurve, RadiusMm: 500, AngleDeg: 30, Clockwise: true})

		assertConnector(t, g.End, 250, -66.98729810778, -30)
		require.Len(t, g.Path, 2)
		assert.True(t, g.Path[1].Sweep)
	})

	t.Run("large arc", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{ID: "loop", Type: domain.TypeCurve, RadiusMm: 100, AngleDeg: 270})
		assert.True(t, g.Path[1].LargeArc)
		assertConnector(t, g.End, -100, 100, -90)
	})
}

func TestOf_SwitchVariants(t *testing.T) {
	sin30, cos30 := math.Sin(math.Pi/6), math.Cos(math.Pi/6)

	t.Run("simple-switch", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{
			ID: "W1", Type: domain.TypeSwitch, Variant: domain.VariantSimpleSwitch,
			Params: domain.SimpleSwitchParams{StraightLengthMm: 239, BranchRadiusMm: 422, BranchAngleDeg: 30, Direction: domain.DirectionRight},
		})
		assert.Empty(t, g.Diagnostics)
		assertConnector(t, g.End, 239, 0, 0)
		branch, ok := g.Connector(KeyBranch)
		require.True(t, ok)
		assertConnector(t, branch, 422*sin30, -422*(1-cos30), -30)
		assert.Equal(t, []string{"start", "end", "branch"}, g.Keys())
	})

	t.Run("absent variant falls back to simple-switch fields", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{ID: "W2", Type: domain.TypeSwitch, LengthMm: 239, RadiusMm: 422, AngleDeg: 30})
		assert.Empty(t, g.Diagnostics)
		branch, ok := g.Connector(KeyBranch)
		require.True(t, ok)
		assertConnector(t, branch, 422*sin30, 422*(1-cos30), 30)
	})

	t.Run("unknown variant reads as simple-switch with a diagnostic", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{ID: "W9", Type: domain.TypeSwitch, Variant: "wye-2000", LengthMm: 239, RadiusMm: 422, AngleDeg: 30})
		require.Len(t, g.Diagnostics, 1)
		assert.Contains(t, g.Diagnostics[0], `unknown variant "wye-2000"`)
		assertConnector(t, g.End, 239, 0, 0)
		branch, ok := g.Connector(KeyBranch)
		require.True(t, ok)
		assertConnector(t, branch, 422*sin30, 422*(1-cos30), 30)
	})

	t.Run("curved-switch", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{
			ID: "BWL", Type: domain.TypeSwitch, Variant: domain.VariantCurvedSwitch,
			Params: domain.CurvedSwitchParams{InnerRadiusMm: 400, OuterRadiusMm: 600, AngleDeg: 30, Direction: domain.DirectionLeft},
		})
		assertConnector(t, g.End, 600*sin30, 600*(1-cos30), 30)
		branch, _ := g.Connector(KeyBranch)
		assertConnector(t, branch, 400*sin30, 400*(1-cos30), 30)
	})

	t.Run("three-way", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{
			ID: "W3", Type: domain.TypeSwitch, Variant: domain.VariantThreeWay,
			Params: domain.ThreeWayParams{StraightLengthMm: 239, BranchRadiusMm: 422, BranchAngleDeg: 30, BranchOffsetMm: 20},
		})
		left, _ := g.Connector(KeyLeft)
		right, _ := g.Connector(KeyRight)
		assertConnector(t, left, 20+422*sin30, 422*(1-cos30), 30)
		assertConnector(t, right, 20+422*sin30, -422*(1-cos30), -30)
		assert.Equal(t, []string{"start", "end", "left", "right"}, g.Keys())
	})

	t.Run("y-switch", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{
			ID: "WY", Type: domain.TypeSwitch, Variant: domain.VariantYSwitch,
			Params: domain.YSwitchParams{StubLengthMm: 10, BranchRadiusMm: 500, BranchAngleDeg: 15},
		})
		s, c := math.Sin(math.Pi/12), math.Cos(math.Pi/12)
		assertConnector(t, g.End, 10+500*s, 500*(1-c), 15)
		right, _ := g.Connector(KeyRight)
		assertConnector(t, right, 10+500*s, -500*(1-c), -15)
	})

	t.Run("double-slip", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{
			ID: "DKW", Type: domain.TypeSwitch, Variant: domain.VariantDoubleSlip,
			Params: domain.DoubleSlipParams{LengthMm: 200, CrossingAngleDeg: 30, SlipRadiusMm: 900},
		})
		from, _ := g.Connector(KeyDiagonalStart)
		to, _ := g.Connector(KeyDiagonalEnd)
		assertConnector(t, from, 100-100*cos30, -100*sin30, -150)
		assertConnector(t, to, 100+100*cos30, 100*sin30, 30)
		assert.Len(t, g.Path, 8)
	})

	t.Run("variant without params is invalid", func(t *testing.T) {
		g := Of(domain.ComponentDefinition{ID: "W4", Type: domain.TypeSwitch, Variant: domain.VariantThreeWay})
		require.Len(t, g.Diagnostics, 1)
		assert.Contains(t, g.Diagnostics[0], "W4")
	})
}

func TestOf_Crossing(t *testing.T) {
	g := Of(domain.ComponentDefinition{ID: "K30", Type: domain.TypeCrossing, LengthMm: 100, AngleDeg: 30})

	assert.Empty(t, g.Diagnostics)
	assertConnector(t, g.End, 100, 0, 0)
	cs, _ := g.Connector(KeyCrossStart)
	ce, _ := g.Connector(KeyCrossEnd)
	assertConnector(t, cs, 50-50*math.Cos(math.Pi/6), -25, -150)
	assertConnector(t, ce, 50+50*math.Cos(math.Pi/6), 25, 30)
}

func TestOf_InvalidDefinitionFallsBack(t *testing.T) {
	tests := []struct {
		name string
		def  domain.ComponentDefinition
	}{
		{"straight without length", domain.ComponentDefinition{ID: "s", Type: domain.TypeStraight}},
		{"curve with negative radius", domain.ComponentDefinition{ID: "c", Type: domain.TypeCurve, RadiusMm: -5, AngleDeg: 30}},
		{"curve with NaN angle", domain.ComponentDefinition{ID: "c", Type: domain.TypeCurve, RadiusMm: 5, AngleDeg: math.NaN()}},
		{"simple switch without direction", domain.ComponentDefinition{
			ID: "w", Type: domain.TypeSwitch,
			Params: domain.SimpleSwitchParams{StraightLengthMm: 1, BranchRadiusMm: 1, BranchAngleDeg: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Of(tt.def)
			require.Len(t, g.Diagnostics, 1)
			assertConnector(t, g.Start, 0, 0, 180)
			assertConnector(t, g.End, FallbackLengthMm, 0, 0)
			assert.Equal(t, tt.def.ID, g.ComponentID)

			err := Validate(tt.def)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
			assert.Equal(t, g.Diagnostics[0], err.Error())
		})
	}

	assert.NoError(t, Validate(domain.ComponentDefinition{ID: "ok", Type: domain.TypeStraight, LengthMm: 1}))
}

func TestOf_OtherUsesLengthOrDefault(t *testing.T) {
	g := Of(domain.ComponentDefinition{ID: "bumper", Type: domain.TypeOther})
	assertConnector(t, g.End, FallbackLengthMm, 0, 0)
	assert.Empty(t, g.Diagnostics)

	g = Of(domain.ComponentDefinition{ID: "ramp", Type: "ramp", LengthMm: 55})
	assertConnector(t, g.End, 55, 0, 0)
}

func TestOf_IsDeterministic(t *testing.T) {
	defs := []domain.ComponentDefinition{
		{ID: "G200", Type: domain.TypeStraight, LengthMm: 200},
		{ID: "R1", Type: domain.TypeCurve, RadiusMm: 422, AngleDeg: 30, Clockwise: true},
		{ID: "DKW", Type: domain.TypeSwitch, Variant: domain.VariantDoubleSlip,
			Params: domain.DoubleSlipParams{LengthMm: 239, CrossingAngleDeg: 15, SlipRadiusMm: 900}},
		{ID: "K", Type: domain.TypeCrossing, Params: domain.CrossingParams{LengthMm: 119, CrossingAngleDeg: 30}},
	}
	for _, def := range defs {
		a, b := Of(def), Of(def)
		assert.True(t, reflect.DeepEqual(a, b), "geometry of %s differs between calls", def.ID)
		assert.Equal(t, a.Path.String(), b.Path.String())
	}
}

func TestNormalizeDeg(t *testing.T) {
	cases := map[float64]float64{
		0: 0, 180: 180, -180: 180, 190: -170, -190: 170, 540: 180, 360: 0, -90: -90, 725: 5,
	}
	for in, want := range cases {
		assert.True(t, scalar.EqualWithinAbs(want, NormalizeDeg(in), 1e-9), "NormalizeDeg(%v) = %v, want %v", in, NormalizeDeg(in), want)
	}
}

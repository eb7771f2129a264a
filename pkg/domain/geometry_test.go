package domain

import (
	"errors"
	"testing"
)

func TestPathDescriptor_String(t *testing.T) {
	p := PathDescriptor{
		MoveTo(0, 0),
		LineTo(200, 0),
		ArcTo(500, false, true, 250, -33.49364905),
	}
	want := "M 0 0 L 200 0 A 500 500 0 0 1 250 -33.494"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPathDescriptor_StringNormalizesNegativeZero(t *testing.T) {
	p := PathDescriptor{MoveTo(-0.0000001, 0)}
	if got := p.String(); got != "M 0 0" {
		t.Errorf("String() = %q", got)
	}
}

func TestPathDescriptor_Transform(t *testing.T) {
	p := PathDescriptor{MoveTo(0, 0), LineTo(100, 0)}
	got := p.Transform(Pose{X: 10, Y: 20, RotationDeg: 90})

	if got.String() != "M 10 20 L 10 120" {
		t.Errorf("Transform() = %q", got.String())
	}
	if p[1].X != 100 {
		t.Error("Transform mutated its receiver")
	}
}

func TestComponentGeometry_Keys(t *testing.T) {
	g := ComponentGeometry{Extra: map[string]Connector{"right": {}, "left": {}}}
	got := g.Keys()
	want := []string{"start", "end", "left", "right"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
	if _, ok := g.Connector("branch"); ok {
		t.Error("unexpected connector branch")
	}
}

func TestVariantParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  VariantParams
		wantErr bool
	}{
		{"simple ok", SimpleSwitchParams{StraightLengthMm: 239, BranchRadiusMm: 422, BranchAngleDeg: 30, Direction: DirectionLeft}, false},
		{"simple missing direction", SimpleSwitchParams{StraightLengthMm: 239, BranchRadiusMm: 422, BranchAngleDeg: 30}, true},
		{"curved zero inner", CurvedSwitchParams{OuterRadiusMm: 600, AngleDeg: 30, Direction: DirectionRight}, true},
		{"three-way zero offset", ThreeWayParams{StraightLengthMm: 239, BranchRadiusMm: 422, BranchAngleDeg: 30}, false},
		{"y-switch negative stub", YSwitchParams{StubLengthMm: -1, BranchRadiusMm: 422, BranchAngleDeg: 15}, true},
		{"double slip ok", DoubleSlipParams{LengthMm: 239, CrossingAngleDeg: 15, SlipRadiusMm: 900}, false},
		{"crossing missing angle", CrossingParams{LengthMm: 119}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("error %v does not wrap ErrInvalidDefinition", err)
			}
		})
	}
}

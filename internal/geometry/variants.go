package geometry

import (
	"fmt"
	"math"

	"github.com/aretw0/railyard/pkg/domain"
	"gonum.org/v1/gonum/spatial/r2"
)

// Extra connector keys used by switch and crossing variants.
const (
	KeyBranch        = "branch"
	KeyLeft          = "left"
	KeyRight         = "right"
	KeyDiagonalStart = "diagonalStart"
	KeyDiagonalEnd   = "diagonalEnd"
	KeyCrossStart    = "crossStart"
	KeyCrossEnd      = "crossEnd"
)

// ParamsOf resolves the variant parameter record of a switch or crossing.
// A definition without a record falls back to the top-level shape fields:
// simple-switch for switches, crossing for crossings.
func ParamsOf(def domain.ComponentDefinition) (domain.VariantParams, error) {
	if def.Params != nil {
		if cp, ok := def.Params.(domain.CrossingParams); ok {
			if cp.LengthMm == 0 {
				cp.LengthMm = def.LengthMm
			}
			if cp.CrossingAngleDeg == 0 {
				cp.CrossingAngleDeg = def.AngleDeg
			}
			return cp, nil
		}
		return def.Params, nil
	}

	if def.Type == domain.TypeCrossing && def.Variant != domain.VariantDoubleSlip {
		return domain.CrossingParams{LengthMm: def.LengthMm, CrossingAngleDeg: def.AngleDeg}, nil
	}

	switch def.Variant {
	case domain.VariantCurvedSwitch, domain.VariantThreeWay, domain.VariantYSwitch, domain.VariantDoubleSlip:
		return nil, &domain.DefinitionError{Field: "params", Reason: fmt.Sprintf("required for variant %s", def.Variant)}
	}

	dir := domain.DirectionLeft
	if def.Clockwise {
		dir = domain.DirectionRight
	}
	return domain.SimpleSwitchParams{
		StraightLengthMm: def.LengthMm,
		BranchRadiusMm:   def.RadiusMm,
		BranchAngleDeg:   def.AngleDeg,
		Direction:        dir,
	}, nil
}

func variantOf(def domain.ComponentDefinition, width float64) (domain.ComponentGeometry, error) {
	params, err := ParamsOf(def)
	if err != nil {
		return domain.ComponentGeometry{}, err
	}
	if err := params.Validate(); err != nil {
		return domain.ComponentGeometry{}, err
	}

	switch p := params.(type) {
	case domain.SimpleSwitchParams:
		return simpleSwitch(p, width), nil
	case domain.CurvedSwitchParams:
		return curvedSwitch(p, width), nil
	case domain.ThreeWayParams:
		return threeWay(p, width), nil
	case domain.YSwitchParams:
		return ySwitch(p, width), nil
	case domain.DoubleSlipParams:
		return doubleSlip(p, width), nil
	case domain.CrossingParams:
		return crossing(p, width), nil
	default:
		return domain.ComponentGeometry{}, &domain.DefinitionError{Field: "params", Reason: fmt.Sprintf("unsupported record %T", params)}
	}
}

func simpleSwitch(p domain.SimpleSwitchParams, width float64) domain.ComponentGeometry {
	branch := arcFrom(r2.Vec{}, 0, p.BranchRadiusMm, p.BranchAngleDeg, p.Direction.Sign())
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(r2.Vec{X: p.StraightLengthMm}, 0, width),
		Extra: map[string]domain.Connector{
			KeyBranch: connectorAt(branch.end, branch.heading, width),
		},
		Path: domain.PathDescriptor{
			domain.MoveTo(0, 0), domain.LineTo(p.StraightLengthMm, 0),
			domain.MoveTo(0, 0), branch.command(),
		},
	}
}

func curvedSwitch(p domain.CurvedSwitchParams, width float64) domain.ComponentGeometry {
	sign := p.Direction.Sign()
	outer := arcFrom(r2.Vec{}, 0, p.OuterRadiusMm, p.AngleDeg, sign)
	inner := arcFrom(r2.Vec{}, 0, p.InnerRadiusMm, p.AngleDeg, sign)
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(outer.end, outer.heading, width),
		Extra: map[string]domain.Connector{
			KeyBranch: connectorAt(inner.end, inner.heading, width),
		},
		Path: domain.PathDescriptor{
			domain.MoveTo(0, 0), outer.command(),
			domain.MoveTo(0, 0), inner.command(),
		},
	}
}

func threeWay(p domain.ThreeWayParams, width float64) domain.ComponentGeometry {
	fork := r2.Vec{X: p.BranchOffsetMm}
	left := arcFrom(fork, 0, p.BranchRadiusMm, p.BranchAngleDeg, 1)
	right := arcFrom(fork, 0, p.BranchRadiusMm, p.BranchAngleDeg, -1)
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(r2.Vec{X: p.StraightLengthMm}, 0, width),
		Extra: map[string]domain.Connector{
			KeyLeft:  connectorAt(left.end, left.heading, width),
			KeyRight: connectorAt(right.end, right.heading, width),
		},
		Path: domain.PathDescriptor{
			domain.MoveTo(0, 0), domain.LineTo(p.StraightLengthMm, 0),
			domain.MoveTo(fork.X, fork.Y), left.command(),
			domain.MoveTo(fork.X, fork.Y), right.command(),
		},
	}
}

func ySwitch(p domain.YSwitchParams, width float64) domain.ComponentGeometry {
	stub := r2.Vec{X: p.StubLengthMm}
	left := arcFrom(stub, 0, p.BranchRadiusMm, p.BranchAngleDeg, 1)
	right := arcFrom(stub, 0, p.BranchRadiusMm, p.BranchAngleDeg, -1)
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(left.end, left.heading, width),
		Extra: map[string]domain.Connector{
			KeyRight: connectorAt(right.end, right.heading, width),
		},
		Path: domain.PathDescriptor{
			domain.MoveTo(0, 0), domain.LineTo(stub.X, stub.Y), left.command(),
			domain.MoveTo(stub.X, stub.Y), right.command(),
		},
	}
}

// diagonal returns the two ends of a leg of length l crossing the x axis at
// its centre (l/2, 0) with the given angle.
func diagonal(l, angleDeg float64) (from, to r2.Vec) {
	centre := r2.Vec{X: l / 2}
	rad := angleDeg * math.Pi / 180
	half := r2.Scale(l/2, r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)})
	return r2.Sub(centre, half), r2.Add(centre, half)
}

func doubleSlip(p domain.DoubleSlipParams, width float64) domain.ComponentGeometry {
	l := p.LengthMm
	from, to := diagonal(l, p.CrossingAngleDeg)
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(r2.Vec{X: l}, 0, width),
		Extra: map[string]domain.Connector{
			KeyDiagonalStart: connectorAt(from, p.CrossingAngleDeg+180, width),
			KeyDiagonalEnd:   connectorAt(to, p.CrossingAngleDeg, width),
		},
		Path: domain.PathDescriptor{
			domain.MoveTo(0, 0), domain.LineTo(l, 0),
			domain.MoveTo(from.X, from.Y), domain.LineTo(to.X, to.Y),
			domain.MoveTo(0, 0), domain.ArcTo(p.SlipRadiusMm, false, false, to.X, to.Y),
			domain.MoveTo(from.X, from.Y), domain.ArcTo(p.SlipRadiusMm, false, false, l, 0),
		},
	}
}

func crossing(p domain.CrossingParams, width float64) domain.ComponentGeometry {
	l := p.LengthMm
	from, to := diagonal(l, p.CrossingAngleDeg)
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(r2.Vec{X: l}, 0, width),
		Extra: map[string]domain.Connector{
			KeyCrossStart: connectorAt(from, p.CrossingAngleDeg+180, width),
			KeyCrossEnd:   connectorAt(to, p.CrossingAngleDeg, width),
		},
		Path: domain.PathDescriptor{
			domain.MoveTo(0, 0), domain.LineTo(l, 0),
			domain.MoveTo(from.X, from.Y), domain.LineTo(to.X, to.Y),
		},
	}
}

// Package geometry evaluates component definitions into local connectors and
// drawable paths, and maps connectors between local and world space.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/railyard/pkg/domain"
	"gonum.org/v1/gonum/spatial/r2"
)

// FallbackLengthMm is the length of the straight substituted for invalid or
// unrecognized definitions.
const FallbackLengthMm = 10.0

// Of evaluates a definition. It is pure, deterministic and never fails:
// an invalid definition yields a short straight with a diagnostic attached.
func Of(def domain.ComponentDefinition) domain.ComponentGeometry {
	width := widthOf(def)
	g, err := build(def, width)
	if err != nil {
		g = fallback(width)
		g.Diagnostics = []string{describe(def.ID, err)}
	}
	if isSwitchLike(def.Type) && def.Variant != "" && !def.Variant.Known() {
		read := domain.VariantSimpleSwitch
		if def.Type == domain.TypeCrossing {
			read = domain.VariantCrossing
		}
		g.Diagnostics = append(g.Diagnostics, fmt.Sprintf("component %q: unknown variant %q, read as %s", def.ID, def.Variant, read))
	}
	g.ComponentID = def.ID
	return g
}

// Validate reports why Of would fall back for def, or nil.
func Validate(def domain.ComponentDefinition) error {
	_, err := build(def, widthOf(def))
	if err == nil {
		return nil
	}
	var de *domain.DefinitionError
	if errors.As(err, &de) {
		de.ComponentID = def.ID
		return de
	}
	return &domain.DefinitionError{ComponentID: def.ID, Reason: err.Error()}
}

func isSwitchLike(t domain.ComponentType) bool {
	return t == domain.TypeSwitch || t == domain.TypeCrossing
}

func widthOf(def domain.ComponentDefinition) float64 {
	if !(def.WidthMm > 0) {
		return domain.DefaultWidthMm
	}
	return def.WidthMm
}

func build(def domain.ComponentDefinition, width float64) (domain.ComponentGeometry, error) {
	switch def.Type {
	case domain.TypeStraight:
		return straightOf(def.LengthMm, width)
	case domain.TypeCurve:
		return curveOf(def.RadiusMm, def.AngleDeg, def.Clockwise, width)
	case domain.TypeSwitch, domain.TypeCrossing:
		return variantOf(def, width)
	default:
		length := def.LengthMm
		if !(length > 0) || math.IsInf(length, 1) {
			length = FallbackLengthMm
		}
		return straightOf(length, width)
	}
}

func describe(id string, err error) string {
	var de *domain.DefinitionError
	if errors.As(err, &de) {
		de.ComponentID = id
		return de.Error()
	}
	return fmt.Sprintf("component %q: %v", id, err)
}

func fallback(width float64) domain.ComponentGeometry {
	g, _ := straightOf(FallbackLengthMm, width)
	return g
}

func straightOf(length, width float64) (domain.ComponentGeometry, error) {
	if err := requirePositive("lengthMm", length); err != nil {
		return domain.ComponentGeometry{}, err
	}
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(r2.Vec{X: length}, 0, width),
		Path:  domain.PathDescriptor{domain.MoveTo(0, 0), domain.LineTo(length, 0)},
	}, nil
}

func curveOf(radius, angle float64, clockwise bool, width float64) (domain.ComponentGeometry, error) {
	if err := requirePositive("radiusMm", radius); err != nil {
		return domain.ComponentGeometry{}, err
	}
	if err := requirePositive("angleDeg", angle); err != nil {
		return domain.ComponentGeometry{}, err
	}
	sign := 1.0
	if clockwise {
		sign = -1
	}
	a := arcFrom(r2.Vec{}, 0, radius, angle, sign)
	return domain.ComponentGeometry{
		Start: connectorAt(r2.Vec{}, 180, width),
		End:   connectorAt(a.end, a.heading, width),
		Path:  domain.PathDescriptor{domain.MoveTo(0, 0), a.command()},
	}, nil
}

func requirePositive(field string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return &domain.DefinitionError{Field: field, Reason: fmt.Sprintf("must be positive and finite, got %v", v)}
	}
	return nil
}

// arc is a circular arc leaving a point with a heading, turning by angle
// degrees towards sign (+1 left, -1 right).
type arc struct {
	radius  float64
	angle   float64
	sign    float64
	end     r2.Vec
	heading float64
}

func arcFrom(from r2.Vec, headingDeg, radius, angleDeg, sign float64) arc {
	theta := angleDeg * math.Pi / 180
	// End point in the frame of the start heading.
	local := r2.Vec{X: radius * math.Sin(theta), Y: sign * radius * (1 - math.Cos(theta))}
	end := r2.Add(from, r2.Rotate(local, headingDeg*math.Pi/180, r2.Vec{}))
	return arc{
		radius:  radius,
		angle:   angleDeg,
		sign:    sign,
		end:     end,
		heading: headingDeg + sign*angleDeg,
	}
}

func (a arc) command() domain.PathCommand {
	return domain.ArcTo(a.radius, math.Abs(a.angle) > 180, a.sign < 0, a.end.X, a.end.Y)
}

// connectorAt builds a connector facing headingDeg.
func connectorAt(p r2.Vec, headingDeg, width float64) domain.Connector {
	rad := headingDeg * math.Pi / 180
	return domain.Connector{
		XMm:          p.X,
		YMm:          p.Y,
		Dir:          domain.Vec{X: snapZero(math.Cos(rad)), Y: snapZero(math.Sin(rad))},
		WidthMm:      width,
		DirectionDeg: NormalizeDeg(headingDeg),
	}
}

// snapZero drops the rounding residue of sin/cos at multiples of 90 degrees so
// axis-aligned connectors get exact directions.
func snapZero(v float64) float64 {
	if math.Abs(v) < 1e-15 {
		return 0
	}
	return v
}

// NormalizeDeg maps an angle into (-180, 180].
func NormalizeDeg(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a <= 0 {
		a += 360
	}
	return a - 180
}

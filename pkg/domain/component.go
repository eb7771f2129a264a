package domain

import (
	"fmt"
	"math"
)

// ComponentType selects the geometry rule used for a catalog entry.
type ComponentType string

const (
	TypeStraight ComponentType = "straight"
	TypeCurve    ComponentType = "curve"
	TypeSwitch   ComponentType = "switch"
	TypeCrossing ComponentType = "crossing"
	TypeOther    ComponentType = "other"
)

// Variant tags the parameter record of a switch or crossing.
type Variant string

const (
	VariantSimpleSwitch Variant = "simple-switch"
	VariantCurvedSwitch Variant = "curved-switch"
	VariantThreeWay     Variant = "three-way"
	VariantYSwitch      Variant = "y-switch"
	VariantDoubleSlip   Variant = "double-slip"
	VariantCrossing     Variant = "crossing"
)

// Known reports whether v is one of the defined variant tags.
func (v Variant) Known() bool {
	switch v {
	case VariantSimpleSwitch, VariantCurvedSwitch, VariantThreeWay, VariantYSwitch, VariantDoubleSlip, VariantCrossing:
		return true
	}
	return false
}

// Direction is the side a switch branch diverges to.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Sign returns +1 for left and -1 for right.
func (d Direction) Sign() float64 {
	if d == DirectionRight {
		return -1
	}
	return 1
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionLeft || d == DirectionRight
}

// DefaultWidthMm is the gauge envelope used when a catalog does not declare one.
const DefaultWidthMm = 45.0

// ComponentDefinition is a catalog entry. It is immutable once the catalog is loaded.
type ComponentDefinition struct {
	ID        string        `json:"id" yaml:"id"`
	Type      ComponentType `json:"type" yaml:"type"`
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	LengthMm  float64       `json:"lengthMm,omitempty" yaml:"lengthMm,omitempty"`
	RadiusMm  float64       `json:"radiusMm,omitempty" yaml:"radiusMm,omitempty"`
	AngleDeg  float64       `json:"angleDeg,omitempty" yaml:"angleDeg,omitempty"`
	Clockwise bool          `json:"clockwise,omitempty" yaml:"clockwise,omitempty"`
	WidthMm   float64       `json:"widthMm,omitempty" yaml:"widthMm,omitempty"`
	Variant   Variant       `json:"variant,omitempty" yaml:"variant,omitempty"`
	Params    VariantParams `json:"params,omitempty" yaml:"-"`
}

// VariantParams is the typed parameter record of a switch or crossing variant.
type VariantParams interface {
	Variant() Variant
	// Validate reports the first missing or out-of-range field.
	Validate() error
}

// SimpleSwitchParams describes a straight main leg with one diverging branch.
type SimpleSwitchParams struct {
	StraightLengthMm float64   `json:"straightLengthMm" mapstructure:"straightLengthMm"`
	BranchRadiusMm   float64   `json:"branchRadiusMm" mapstructure:"branchRadiusMm"`
	BranchAngleDeg   float64   `json:"branchAngleDeg" mapstructure:"branchAngleDeg"`
	Direction        Direction `json:"direction" mapstructure:"direction"`
}

func (SimpleSwitchParams) Variant() Variant { return VariantSimpleSwitch }

func (p SimpleSwitchParams) Validate() error {
	return firstInvalid(
		positive("straightLengthMm", p.StraightLengthMm),
		positive("branchRadiusMm", p.BranchRadiusMm),
		positive("branchAngleDeg", p.BranchAngleDeg),
		direction(p.Direction),
	)
}

// CurvedSwitchParams describes two concentric arcs sharing one angle.
type CurvedSwitchParams struct {
	InnerRadiusMm float64   `json:"innerRadiusMm" mapstructure:"innerRadiusMm"`
	OuterRadiusMm float64   `json:"outerRadiusMm" mapstructure:"outerRadiusMm"`
	AngleDeg      float64   `json:"angleDeg" mapstructure:"angleDeg"`
	Direction     Direction `json:"direction" mapstructure:"direction"`
}

func (CurvedSwitchParams) Variant() Variant { return VariantCurvedSwitch }

func (p CurvedSwitchParams) Validate() error {
	return firstInvalid(
		positive("innerRadiusMm", p.InnerRadiusMm),
		positive("outerRadiusMm", p.OuterRadiusMm),
		positive("angleDeg", p.AngleDeg),
		direction(p.Direction),
	)
}

// ThreeWayParams describes a straight main leg with symmetric left and right branches.
type ThreeWayParams struct {
	StraightLengthMm float64 `json:"straightLengthMm" mapstructure:"straightLengthMm"`
	BranchRadiusMm   float64 `json:"branchRadiusMm" mapstructure:"branchRadiusMm"`
	BranchAngleDeg   float64 `json:"branchAngleDeg" mapstructure:"branchAngleDeg"`
	BranchOffsetMm   float64 `json:"branchOffsetMm" mapstructure:"branchOffsetMm"`
}

func (ThreeWayParams) Variant() Variant { return VariantThreeWay }

func (p ThreeWayParams) Validate() error {
	return firstInvalid(
		positive("straightLengthMm", p.StraightLengthMm),
		positive("branchRadiusMm", p.BranchRadiusMm),
		positive("branchAngleDeg", p.BranchAngleDeg),
		nonNegative("branchOffsetMm", p.BranchOffsetMm),
	)
}

// YSwitchParams describes two symmetric branches diverging from a short stub.
type YSwitchParams struct {
	StubLengthMm   float64 `json:"stubLengthMm" mapstructure:"stubLengthMm"`
	BranchRadiusMm float64 `json:"branchRadiusMm" mapstructure:"branchRadiusMm"`
	BranchAngleDeg float64 `json:"branchAngleDeg" mapstructure:"branchAngleDeg"`
}

func (YSwitchParams) Variant() Variant { return VariantYSwitch }

func (p YSwitchParams) Validate() error {
	return firstInvalid(
		nonNegative("stubLengthMm", p.StubLengthMm),
		positive("branchRadiusMm", p.BranchRadiusMm),
		positive("branchAngleDeg", p.BranchAngleDeg),
	)
}

// DoubleSlipParams describes a main leg, a diagonal leg and two slip arcs.
type DoubleSlipParams struct {
	LengthMm         float64 `json:"lengthMm" mapstructure:"lengthMm"`
	CrossingAngleDeg float64 `json:"crossingAngleDeg" mapstructure:"crossingAngleDeg"`
	SlipRadiusMm     float64 `json:"slipRadiusMm" mapstructure:"slipRadiusMm"`
}

func (DoubleSlipParams) Variant() Variant { return VariantDoubleSlip }

func (p DoubleSlipParams) Validate() error {
	return firstInvalid(
		positive("lengthMm", p.LengthMm),
		positive("crossingAngleDeg", p.CrossingAngleDeg),
		positive("slipRadiusMm", p.SlipRadiusMm),
	)
}

// CrossingParams describes two straight legs crossing at their centre.
type CrossingParams struct {
	LengthMm         float64 `json:"lengthMm" mapstructure:"lengthMm"`
	CrossingAngleDeg float64 `json:"crossingAngleDeg" mapstructure:"crossingAngleDeg"`
}

func (CrossingParams) Variant() Variant { return VariantCrossing }

func (p CrossingParams) Validate() error {
	return firstInvalid(
		positive("lengthMm", p.LengthMm),
		positive("crossingAngleDeg", p.CrossingAngleDeg),
	)
}

func positive(field string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return &DefinitionError{Field: field, Reason: fmt.Sprintf("must be positive and finite, got %v", v)}
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if !(v >= 0) || math.IsInf(v, 1) {
		return &DefinitionError{Field: field, Reason: fmt.Sprintf("must not be negative, got %v", v)}
	}
	return nil
}

func direction(d Direction) error {
	if !d.Valid() {
		return &DefinitionError{Field: "direction", Reason: fmt.Sprintf("must be left or right, got %q", d)}
	}
	return nil
}

func firstInvalid(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Catalog is a track system: a named set of component definitions sharing one gauge.
type Catalog struct {
	ID         string                `json:"id" yaml:"id"`
	Name       string                `json:"name,omitempty" yaml:"name,omitempty"`
	WidthMm    float64               `json:"widthMm" yaml:"widthMm"`
	Components []ComponentDefinition `json:"components" yaml:"components"`
}

// Component looks up a definition by id.
func (c *Catalog) Component(id string) (ComponentDefinition, bool) {
	if c == nil {
		return ComponentDefinition{}, false
	}
	for _, def := range c.Components {
		if def.ID == id {
			return def, true
		}
	}
	return ComponentDefinition{}, false
}

// ComponentIDs lists the definition ids in catalog order.
func (c *Catalog) ComponentIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, len(c.Components))
	for i, def := range c.Components {
		ids[i] = def.ID
	}
	return ids
}

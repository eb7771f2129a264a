// Package catalog turns catalog documents (YAML, JSON or Markdown front
// matter) into domain catalogs.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidCatalog marks a catalog document that cannot be loaded at all.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Entry is the document shape of one component definition. Params holds the
// raw variant record and is decoded according to Variant.
type Entry struct {
	ID        string         `json:"id" yaml:"id" mapstructure:"id"`
	Type      string         `json:"type" yaml:"type" mapstructure:"type"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	LengthMm  float64        `json:"lengthMm,omitempty" yaml:"lengthMm,omitempty" mapstructure:"lengthMm"`
	RadiusMm  float64        `json:"radiusMm,omitempty" yaml:"radiusMm,omitempty" mapstructure:"radiusMm"`
	AngleDeg  float64        `json:"angleDeg,omitempty" yaml:"angleDeg,omitempty" mapstructure:"angleDeg"`
	Clockwise bool           `json:"clockwise,omitempty" yaml:"clockwise,omitempty" mapstructure:"clockwise"`
	WidthMm   float64        `json:"widthMm,omitempty" yaml:"widthMm,omitempty" mapstructure:"widthMm"`
	Variant   string         `json:"variant,omitempty" yaml:"variant,omitempty" mapstructure:"variant"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// Document is a whole catalog file.
type Document struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name,omitempty" yaml:"name,omitempty"`
	WidthMm    float64 `json:"widthMm,omitempty" yaml:"widthMm,omitempty"`
	Components []Entry `json:"components" yaml:"components"`
}

// Build converts a document into a catalog. Structural problems (missing or
// duplicate ids, malformed params of a known variant) fail the whole load.
// Definitions with out-of-range values or unknown variant tags are kept; see Check.
func Build(doc Document) (*domain.Catalog, error) {
	width := doc.WidthMm
	if !(width > 0) {
		width = domain.DefaultWidthMm
	}

	cat := &domain.Catalog{
		ID:         doc.ID,
		Name:       doc.Name,
		WidthMm:    width,
		Components: make([]domain.ComponentDefinition, 0, len(doc.Components)),
	}

	var errs []error
	seen := make(map[string]bool, len(doc.Components))
	for i, e := range doc.Components {
		def, err := Definition(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("components[%d]: %w", i, err))
			continue
		}
		if seen[def.ID] {
			errs = append(errs, fmt.Errorf("components[%d]: duplicate id %q", i, def.ID))
			continue
		}
		seen[def.ID] = true
		if !(def.WidthMm > 0) {
			def.WidthMm = width
		}
		cat.Components = append(cat.Components, def)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidCatalog, doc.ID, errors.Join(errs...))
	}
	return cat, nil
}

// Definition converts one entry, decoding its variant params.
func Definition(e Entry) (domain.ComponentDefinition, error) {
	if strings.TrimSpace(e.ID) == "" {
		return domain.ComponentDefinition{}, errors.New("component id is empty")
	}

	def := domain.ComponentDefinition{
		ID:        e.ID,
		Type:      domain.ComponentType(strings.ToLower(e.Type)),
		Name:      e.Name,
		LengthMm:  e.LengthMm,
		RadiusMm:  e.RadiusMm,
		AngleDeg:  e.AngleDeg,
		Clockwise: e.Clockwise,
		WidthMm:   e.WidthMm,
		Variant:   domain.Variant(e.Variant),
	}

	if def.Variant == "" {
		switch {
		case def.Type == domain.TypeCrossing:
			def.Variant = domain.VariantCrossing
		case def.Type == domain.TypeSwitch && e.Params != nil:
			def.Variant = domain.VariantSimpleSwitch
		}
	}

	if e.Params == nil {
		return def, nil
	}

	// An unrecognized tag keeps its raw value, so Check can report it, and
	// its record is read as the default variant of the type.
	variant := def.Variant
	if !variant.Known() {
		variant = fallbackVariant(def.Type)
	}
	params, err := DecodeParams(variant, e.Params)
	if err != nil {
		if variant != def.Variant {
			// The record does not fit the default either; geometry falls back.
			return def, nil
		}
		return domain.ComponentDefinition{}, fmt.Errorf("component %q: %w", e.ID, err)
	}
	def.Params = params
	return def, nil
}

func fallbackVariant(t domain.ComponentType) domain.Variant {
	if t == domain.TypeCrossing {
		return domain.VariantCrossing
	}
	return domain.VariantSimpleSwitch
}

// DecodeParams decodes a raw parameter map into the record of variant.
// Unknown keys are rejected so that typos do not silently become zeros.
func DecodeParams(variant domain.Variant, raw map[string]any) (domain.VariantParams, error) {
	switch variant {
	case domain.VariantSimpleSwitch:
		return decode[domain.SimpleSwitchParams](raw)
	case domain.VariantCurvedSwitch:
		return decode[domain.CurvedSwitchParams](raw)
	case domain.VariantThreeWay:
		return decode[domain.ThreeWayParams](raw)
	case domain.VariantYSwitch:
		return decode[domain.YSwitchParams](raw)
	case domain.VariantDoubleSlip:
		return decode[domain.DoubleSlipParams](raw)
	case domain.VariantCrossing:
		return decode[domain.CrossingParams](raw)
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
}

func decode[T domain.VariantParams](raw map[string]any) (domain.VariantParams, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s params: %w", out.Variant(), err)
	}
	return out, nil
}

// Check evaluates every definition and returns a *domain.DefinitionError for
// each unknown variant tag and for each definition that would render as a
// fallback straight.
func Check(cat *domain.Catalog) []error {
	if cat == nil {
		return nil
	}
	var errs []error
	for _, def := range cat.Components {
		switchLike := def.Type == domain.TypeSwitch || def.Type == domain.TypeCrossing
		if switchLike && def.Variant != "" && !def.Variant.Known() {
			errs = append(errs, &domain.DefinitionError{
				ComponentID: def.ID,
				Field:       "variant",
				Reason:      fmt.Sprintf("unknown variant %q, read as %s", def.Variant, fallbackVariant(def.Type)),
			})
		}
		if err := geometry.Validate(def); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

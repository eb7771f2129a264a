package validator

import (
	"errors"
	"math"
	"testing"

	"github.com/aretw0/railyard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		ID:      "piko-a",
		WidthMm: 45,
		Components: []domain.ComponentDefinition{
			{ID: "G231", Type: domain.TypeStraight, LengthMm: 231},
			{ID: "R1", Type: domain.TypeCurve, RadiusMm: 422, AngleDeg: 30},
		},
	}
}

func validLayout() domain.Layout {
	l := domain.NewLayout("yard", "piko-a")
	l.Items = []domain.PlacedItem{
		{ID: "a", ComponentID: "G231"},
		{ID: "b", ComponentID: "R1", X: 231},
	}
	l.Connections = []domain.Connection{
		{A: domain.EndpointRef{ItemID: "a", ConnectorKey: "end"}, B: domain.EndpointRef{ItemID: "b", ConnectorKey: "start"}},
	}
	return l
}

func TestValidateLayout_Valid(t *testing.T) {
	assert.NoError(t, ValidateLayout(validLayout(), testCatalog()))
	assert.NoError(t, ValidateLayout(domain.NewLayout("empty", "piko-a"), testCatalog()))
}

func TestValidateLayout_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(l *domain.Layout)
		want   error
		reason string
	}{
		{
			name:   "Connection to missing item",
			mutate: func(l *domain.Layout) { l.Connections[0].B.ItemID = "ghost" },
			want:   domain.ErrDanglingReference,
			reason: `missing item "ghost"`,
		},
		{
			name:   "Unknown connector",
			mutate: func(l *domain.Layout) { l.Connections[0].B.ConnectorKey = "branch" },
			want:   domain.ErrDanglingReference,
			reason: `no connector "branch"`,
		},
		{
			name:   "Unknown component",
			mutate: func(l *domain.Layout) { l.Items[1].ComponentID = "W99" },
			want:   domain.ErrDanglingReference,
			reason: `unknown component "W99"`,
		},
		{
			name:   "Track system mismatch",
			mutate: func(l *domain.Layout) { l.TrackSystem = "h0" },
			want:   domain.ErrDanglingReference,
			reason: `layout uses "h0"`,
		},
		{
			name:   "Missing track system",
			mutate: func(l *domain.Layout) { l.TrackSystem = "" },
			want:   domain.ErrDanglingReference,
			reason: "names no track system",
		},
		{
			name:   "Non-finite pose",
			mutate: func(l *domain.Layout) { l.Items[0].RotationDeg = math.NaN() },
			want:   domain.ErrInvalidLayout,
			reason: "non-finite pose",
		},
		{
			name: "Non-finite shape",
			mutate: func(l *domain.Layout) {
				l.Shapes = []domain.Shape{{ID: "platform", Kind: "polygon", Points: []float64{0, 0, math.Inf(-1), 1}}}
			},
			want:   domain.ErrInvalidLayout,
			reason: `shape "platform" has non-finite points`,
		},
		{
			name: "Self connection",
			mutate: func(l *domain.Layout) {
				l.Connections[0].B = domain.EndpointRef{ItemID: "a", ConnectorKey: "start"}
			},
			want:   domain.ErrInvalidLayout,
			reason: "connected to itself",
		},
		{
			name: "Endpoint reused",
			mutate: func(l *domain.Layout) {
				l.Connections = append(l.Connections, domain.Connection{
					A: domain.EndpointRef{ItemID: "b", ConnectorKey: "start"},
					B: domain.EndpointRef{ItemID: "a", ConnectorKey: "start"},
				})
			},
			want:   domain.ErrInvalidLayout,
			reason: "more than one connection",
		},
		{
			name:   "Duplicate item id",
			mutate: func(l *domain.Layout) { l.Items[1].ID = "a" },
			want:   domain.ErrInvalidLayout,
			reason: `duplicate item id "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validLayout()
			tt.mutate(&l)

			err := ValidateLayout(l, testCatalog())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestValidateLayout_TrackSystemIsAReference(t *testing.T) {
	for _, ts := range []string{"", "h0"} {
		l := validLayout()
		l.TrackSystem = ts

		err := ValidateLayout(l, testCatalog())
		require.Error(t, err, "track system %q", ts)
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
		assert.NotErrorIs(t, err, domain.ErrInvalidLayout)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "trackSystem", ve.Path)
	}
}

func TestValidateLayout_ReportsEveryProblem(t *testing.T) {
	l := validLayout()
	l.Items[1].ComponentID = "W99"
	l.Items = append(l.Items, domain.PlacedItem{ID: "c", ComponentID: "G231", X: math.Inf(1)})
	l.Connections = append(l.Connections, domain.Connection{
		A: domain.EndpointRef{ItemID: "c", ConnectorKey: "end"},
		B: domain.EndpointRef{ItemID: "ghost", ConnectorKey: "start"},
	})

	err := ValidateLayout(l, testCatalog())
	require.Error(t, err)

	errs := ValidationErrors(err)
	assert.Len(t, errs, 3)
	assert.ErrorIs(t, err, domain.ErrDanglingReference)
	assert.ErrorIs(t, err, domain.ErrInvalidLayout)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "items[1].componentId", ve.Path)
	assert.Contains(t, err.Error(), "3 validation errors")
}

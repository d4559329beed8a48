package geo

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) PropertiesInBound(ctx context.Context, bound orb.Bound, subject models.SubjectProperty, f models.FilterCriteria) ([]models.Property, error) {
	args := m.Called(ctx, bound, subject, f)
	return args.Get(0).([]models.Property), args.Error(1)
}

func coord(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func TestSelect_EnforcesRadius(t *testing.T) {
	subject := models.SubjectProperty{
		ListingID: "SUBJ",
		Latitude:  42.3601,
		Longitude: -71.0589,
	}
	f := models.FilterCriteria{RadiusMiles: 2}

	// Roughly 1 mile north and roughly 40 miles west of downtown Boston.
	nearLat, nearLon := coord(42.3746, -71.0589)
	farLat, farLon := coord(42.3601, -71.8023)
	// Corner case: inside the bounding box the repository may return
	// listings slightly beyond the circle; ~1.9 miles NE diagonal stays in.
	cornerLat, cornerLon := coord(42.3795, -71.0330)

	source := &MockSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, subject, f).Return([]models.Property{
		{ListingID: "NEAR", Latitude: nearLat, Longitude: nearLon},
		{ListingID: "FAR", Latitude: farLat, Longitude: farLon},
		{ListingID: "CORNER", Latitude: cornerLat, Longitude: cornerLon},
		{ListingID: "NOCOORDS"},
	}, nil)

	selector := NewSelector(source, logrus.New())
	candidates, err := selector.Select(context.Background(), subject, f)

	assert.NoError(t, err)
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		assert.LessOrEqual(t, c.DistanceMiles, f.RadiusMiles)
		ids = append(ids, c.Property.ListingID)
	}
	assert.Contains(t, ids, "NEAR")
	assert.Contains(t, ids, "CORNER")
	assert.NotContains(t, ids, "FAR")
	assert.NotContains(t, ids, "NOCOORDS")
}

func TestSelect_EmptyIsNotAnError(t *testing.T) {
	subject := models.SubjectProperty{ListingID: "SUBJ", Latitude: 42.0, Longitude: -71.0}
	f := models.FilterCriteria{RadiusMiles: 1}

	source := &MockSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, subject, f).Return([]models.Property{}, nil)

	selector := NewSelector(source, logrus.New())
	candidates, err := selector.Select(context.Background(), subject, f)

	assert.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSelect_RepositoryErrorPropagates(t *testing.T) {
	subject := models.SubjectProperty{ListingID: "SUBJ", Latitude: 42.0, Longitude: -71.0}
	f := models.FilterCriteria{RadiusMiles: 1}

	source := &MockSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, subject, f).
		Return([]models.Property{}, context.DeadlineExceeded)

	selector := NewSelector(source, logrus.New())
	_, err := selector.Select(context.Background(), subject, f)

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDistanceMiles(t *testing.T) {
	// Boston to Cambridge city halls, roughly 3 miles.
	d := DistanceMiles(42.3601, -71.0589, 42.3736, -71.1097)
	assert.InDelta(t, 2.8, d, 0.5)

	assert.InDelta(t, 0, DistanceMiles(42.0, -71.0, 42.0, -71.0), 1e-9)
}

// Package geo selects the inventory subset eligible for scoring. Cheap
// filters run first: a bounding-box pre-filter pushed into the repository
// query, then a precise great-circle check, so the expensive scorer never
// sees listings that cannot qualify.
package geo

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	geodist "github.com/paulmach/orb/geo"
	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

const metersPerMile = 1609.344

// Candidate is a listing that survived geospatial selection, carrying its
// precise distance from the subject.
type Candidate struct {
	Property      models.Property
	DistanceMiles float64
}

// CandidateSource is the repository surface the selector consumes. The
// bounding box and non-spatial filters (status, lookback, type, DOM, HOA,
// lot size) are applied inside the query.
type CandidateSource interface {
	PropertiesInBound(ctx context.Context, bound orb.Bound, subject models.SubjectProperty, f models.FilterCriteria) ([]models.Property, error)
}

// Selector performs geospatial candidate selection for one subject.
type Selector struct {
	source CandidateSource
	logger *logrus.Logger
}

func NewSelector(source CandidateSource, logger *logrus.Logger) *Selector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Selector{source: source, logger: logger}
}

// Select returns every candidate within f.RadiusMiles of the subject that
// passes the criteria pre-filters. An empty result is a valid outcome, not
// an error; only repository failures propagate.
func (s *Selector) Select(ctx context.Context, subject models.SubjectProperty, f models.FilterCriteria) ([]Candidate, error) {
	center := orb.Point{subject.Longitude, subject.Latitude}
	bound := geodist.NewBoundAroundPoint(center, f.RadiusMiles*metersPerMile)

	properties, err := s.source.PropertiesInBound(ctx, bound, subject, f)
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(properties))
	for _, p := range properties {
		if !p.HasCoordinates() {
			continue
		}
		// The bounding box over-selects at the corners; the haversine
		// check enforces the true radius.
		miles := DistanceMiles(subject.Latitude, subject.Longitude, *p.Latitude, *p.Longitude)
		if miles > f.RadiusMiles {
			continue
		}
		candidates = append(candidates, Candidate{Property: p, DistanceMiles: miles})
	}

	s.logger.WithFields(logrus.Fields{
		"subject":    subject.ListingID,
		"in_bound":   len(properties),
		"in_radius":  len(candidates),
		"radius_mi":  f.RadiusMiles,
	}).Debug("Candidate selection complete")

	return candidates, nil
}

// DistanceMiles returns the great-circle distance between two coordinate
// pairs in miles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	return geodist.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2}) / metersPerMile
}

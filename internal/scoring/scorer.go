// Package scoring computes per-candidate similarity against a subject
// property as a weighted sum of normalized attribute deltas, then orders the
// results with a deterministic tie-break so identical inputs always produce
// identical output ordering.
package scoring

import (
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/internal/geo"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/money"
)

// Step penalty per unit of bed/bath difference and per mismatched boolean
// amenity. A two-unit difference zeroes the attribute.
const stepPenalty = 0.5

// Scorer computes composite similarity scores.
type Scorer struct {
	weights Weights
	logger  *logrus.Logger

	// Candidate count above which ScoreAll fans out to workers.
	parallelThreshold int
	workers           int
}

func NewScorer(weights Weights, parallelThreshold, workers int, logger *logrus.Logger) *Scorer {
	if logger == nil {
		logger = logrus.New()
	}
	if parallelThreshold <= 0 {
		parallelThreshold = 64
	}
	if workers <= 0 {
		workers = 4
	}
	return &Scorer{
		weights:           weights,
		logger:            logger,
		parallelThreshold: parallelThreshold,
		workers:           workers,
	}
}

// Score computes the composite similarity of one candidate in [0, 1].
func (s *Scorer) Score(subject models.SubjectProperty, cand geo.Candidate, f models.FilterCriteria) models.ScoredComparable {
	p := cand.Property
	price := p.EffectivePrice()

	deltas := models.AttributeDeltas{
		PriceDelta:     price - subject.Price,
		PriceDeltaPct:  money.PercentDelta(subject.Price, price),
		BedsDelta:      p.Beds - subject.Beds,
		BathsDelta:     p.Baths - subject.Baths,
	}
	if p.LivingArea != nil {
		deltas.AreaDelta = *p.LivingArea - subject.LivingArea
		deltas.AreaDeltaPct = money.PercentDelta(subject.LivingArea, *p.LivingArea)
	}
	if p.YearBuilt != nil {
		deltas.YearBuiltDelta = *p.YearBuilt - subject.YearBuilt
	}
	if p.Pool != subject.Pool {
		deltas.AmenityMismatches++
	}
	if p.Waterfront != subject.Waterfront {
		deltas.AmenityMismatches++
	}

	parts := map[string]float64{
		"distance":    linearDecay(cand.DistanceMiles, f.RadiusMiles),
		"price":       triangularDecay(deltas.PriceDeltaPct, f.PriceTolerancePct),
		"living_area": s.areaSimilarity(subject, p, f),
		"beds":        stepSimilarity(math.Abs(float64(deltas.BedsDelta))),
		"baths":       stepSimilarity(math.Abs(deltas.BathsDelta)),
		"year_built":  s.yearSimilarity(subject, p, f),
		"amenities":   stepSimilarity(float64(deltas.AmenityMismatches)),
	}

	composite := s.weights.Price*parts["price"] +
		s.weights.LivingArea*parts["living_area"] +
		s.weights.Distance*parts["distance"] +
		s.weights.Beds*parts["beds"] +
		s.weights.Baths*parts["baths"] +
		s.weights.YearBuilt*parts["year_built"] +
		s.weights.Amenities*parts["amenities"]

	return models.ScoredComparable{
		Property:      p,
		DistanceMiles: cand.DistanceMiles,
		Score:         clamp01(composite),
		Parts:         parts,
		Deltas:        deltas,
	}
}

// ScoreAll scores every candidate, fanning out to a worker pool when the
// candidate count is large. Scoring order does not matter; the tie-break
// sort afterwards establishes the canonical ordering.
func (s *Scorer) ScoreAll(subject models.SubjectProperty, candidates []geo.Candidate, f models.FilterCriteria) []models.ScoredComparable {
	scored := make([]models.ScoredComparable, len(candidates))

	if len(candidates) < s.parallelThreshold {
		for i, cand := range candidates {
			scored[i] = s.Score(subject, cand, f)
		}
	} else {
		var wg sync.WaitGroup
		jobs := make(chan int)
		for w := 0; w < s.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					scored[i] = s.Score(subject, candidates[i], f)
				}
			}()
		}
		for i := range candidates {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	SortComparables(scored, f.SortBy)
	return scored
}

// SortComparables orders scored comparables by the requested sort key with a
// deterministic tie-break chain: composite score desc, absolute price delta
// asc, sale/list date desc, days on market asc, and finally listing id asc
// as a total-order anchor.
func SortComparables(scored []models.ScoredComparable, sortBy string) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]

		switch sortBy {
		case models.SortByPrice:
			if a.Property.EffectivePrice() != b.Property.EffectivePrice() {
				return a.Property.EffectivePrice() < b.Property.EffectivePrice()
			}
		case models.SortByDistance:
			if a.DistanceMiles != b.DistanceMiles {
				return a.DistanceMiles < b.DistanceMiles
			}
		case models.SortByDate:
			if !a.Property.EffectiveDate().Equal(b.Property.EffectiveDate()) {
				return a.Property.EffectiveDate().After(b.Property.EffectiveDate())
			}
		case models.SortByDOM:
			if domOf(a) != domOf(b) {
				return domOf(a) < domOf(b)
			}
		}

		if a.Score != b.Score {
			return a.Score > b.Score
		}
		absA := int(math.Abs(float64(a.Deltas.PriceDelta)))
		absB := int(math.Abs(float64(b.Deltas.PriceDelta)))
		if absA != absB {
			return absA < absB
		}
		if !a.Property.EffectiveDate().Equal(b.Property.EffectiveDate()) {
			return a.Property.EffectiveDate().After(b.Property.EffectiveDate())
		}
		if domOf(a) != domOf(b) {
			return domOf(a) < domOf(b)
		}
		return a.Property.ListingID < b.Property.ListingID
	})
}

// TieBreakSort applies the canonical score-descending ordering regardless of
// any caller-requested sort key. The aggregator uses this to pick top-N.
func TieBreakSort(scored []models.ScoredComparable) {
	SortComparables(scored, models.SortByScore)
}

func (s *Scorer) areaSimilarity(subject models.SubjectProperty, p models.Property, f models.FilterCriteria) float64 {
	if p.LivingArea == nil || subject.LivingArea <= 0 {
		return 0
	}
	return triangularDecay(money.PercentDelta(subject.LivingArea, *p.LivingArea), f.AreaTolerancePct)
}

func (s *Scorer) yearSimilarity(subject models.SubjectProperty, p models.Property, f models.FilterCriteria) float64 {
	if p.YearBuilt == nil || subject.YearBuilt <= 0 {
		return 0
	}
	return linearDecay(math.Abs(float64(*p.YearBuilt-subject.YearBuilt)), float64(f.YearBuiltWindow))
}

// linearDecay maps value to [0, 1] with similarity 1 at zero and 0 at edge.
func linearDecay(value, edge float64) float64 {
	if edge <= 0 {
		return 0
	}
	return clamp01(1 - value/edge)
}

// triangularDecay is linearDecay over a percentage delta against a
// percentage tolerance: zero similarity once the delta exceeds it.
func triangularDecay(deltaPct, tolerancePct float64) float64 {
	return linearDecay(deltaPct, tolerancePct)
}

// stepSimilarity subtracts a fixed penalty per unit of difference, floor 0.
func stepSimilarity(units float64) float64 {
	return clamp01(1 - units*stepPenalty)
}

func domOf(c models.ScoredComparable) int {
	if c.Property.DaysOnMarket == nil {
		return math.MaxInt32
	}
	return *c.Property.DaysOnMarket
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package valuation reduces scored comparables into a defensible value
// estimate and orchestrates the full matching pipeline.
package valuation

import (
	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/money"
	"github.com/stevenovak55/bmnboston-sub004/internal/scoring"
)

// Confidence blend: sample count carries more weight than dispersion.
const (
	confidenceSampleWeight     = 0.6
	confidenceDispersionWeight = 0.4
)

// Aggregator turns a scored candidate set into a ValuationSummary.
type Aggregator struct {
	// Comparable count at which the sample factor saturates.
	targetSampleSize int
	logger           *logrus.Logger
}

func NewAggregator(targetSampleSize int, logger *logrus.Logger) *Aggregator {
	if targetSampleSize <= 0 {
		targetSampleSize = 8
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{targetSampleSize: targetSampleSize, logger: logger}
}

// Summarize computes the value band, weighted estimate and confidence from
// the scored set. Zero comparables produce a valid summary with nil value
// fields and confidence 0; callers handle insufficient data explicitly
// rather than via an error.
func (a *Aggregator) Summarize(subject models.SubjectProperty, scored []models.ScoredComparable, f models.FilterCriteria, arv *models.ARVOverrides) models.ValuationSummary {
	summary := models.ValuationSummary{
		ComparablesUsed: len(scored),
		ConfidenceLevel: models.ConfidenceLow,
		ARVMode:         arv != nil,
	}
	if len(scored) == 0 {
		return summary
	}

	// Top-N by the canonical score ordering, independent of any
	// caller-requested display sort.
	top := append([]models.ScoredComparable(nil), scored...)
	scoring.TieBreakSort(top)
	if len(top) > f.TopN {
		top = top[:f.TopN]
	}
	summary.TopComparables = len(top)

	subjectSqft := subject.LivingArea
	if arv != nil && arv.PostRepairSqft > 0 {
		subjectSqft = arv.PostRepairSqft
	}

	var ppsf []float64
	var weightSum, weightedPpsf float64
	for _, sc := range top {
		if sc.Property.LivingArea == nil || *sc.Property.LivingArea <= 0 {
			continue
		}
		v := money.PerSqft(sc.Property.EffectivePrice(), *sc.Property.LivingArea)
		if v <= 0 {
			continue
		}
		ppsf = append(ppsf, v)
		// Weight by similarity; a zero-score comparable still counts a
		// little so a top set of all-zero scores stays usable.
		w := sc.Score
		if w < 0.01 {
			w = 0.01
		}
		weightSum += w
		weightedPpsf += w * v
	}
	if len(ppsf) == 0 || subjectSqft <= 0 {
		// Candidates without usable area cannot produce a $/sqft estimate.
		summary.ConfidenceScore = 0
		return summary
	}

	mean, _ := stats.Mean(ppsf)
	weightedMean := weightedPpsf / weightSum
	summary.AvgPricePerSqft = mean
	summary.WeightedPricePerSqft = weightedMean

	mid := money.RoundDollars(mean * float64(subjectSqft))
	weightedMid := money.RoundDollars(weightedMean * float64(subjectSqft))
	if arv != nil && arv.ConditionUpliftPct != 0 {
		mid = money.ApplyPct(mid, arv.ConditionUpliftPct)
		weightedMid = money.ApplyPct(weightedMid, arv.ConditionUpliftPct)
	}
	low, high := money.Band(weightedMid, f.PriceTolerancePct)

	summary.MidValue = &mid
	summary.WeightedMidValue = &weightedMid
	summary.LowValue = &low
	summary.HighValue = &high

	summary.ConfidenceScore = a.confidence(len(scored), ppsf, mean)
	summary.ConfidenceLevel = confidenceLevel(summary.ConfidenceScore)
	return summary
}

// confidence blends sample size against dispersion: full sample credit at
// the target comparable count, and tighter $/sqft clustering scores higher.
func (a *Aggregator) confidence(sampleCount int, ppsf []float64, mean float64) float64 {
	sampleFactor := float64(sampleCount) / float64(a.targetSampleSize)
	if sampleFactor > 1 {
		sampleFactor = 1
	}

	dispersionFactor := 1.0
	if len(ppsf) > 1 && mean > 0 {
		sd, _ := stats.StandardDeviationSample(ppsf)
		cv := sd / mean
		if cv > 1 {
			cv = 1
		}
		dispersionFactor = 1 - cv
	}

	return (confidenceSampleWeight*sampleFactor + confidenceDispersionWeight*dispersionFactor) * 100
}

func confidenceLevel(score float64) string {
	switch {
	case score >= 70:
		return models.ConfidenceHigh
	case score >= 40:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

package valuation

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

func intPtr(v int) *int { return &v }

func scoredComp(id string, price, sqft int, score float64) models.ScoredComparable {
	return models.ScoredComparable{
		Property: models.Property{
			ListingID:  id,
			Price:      price,
			LivingArea: intPtr(sqft),
		},
		Score: score,
	}
}

func aggSubject() models.SubjectProperty {
	return models.SubjectProperty{ListingID: "SUBJ", Price: 500000, LivingArea: 2000}
}

func aggCriteria() models.FilterCriteria {
	return models.FilterCriteria{PriceTolerancePct: 15, TopN: 5}
}

func TestSummarize_EmptySetIsValid(t *testing.T) {
	a := NewAggregator(8, logrus.New())

	summary := a.Summarize(aggSubject(), nil, aggCriteria(), nil)

	assert.Equal(t, 0, summary.ComparablesUsed)
	assert.Equal(t, 0.0, summary.ConfidenceScore)
	assert.Equal(t, models.ConfidenceLow, summary.ConfidenceLevel)
	assert.Nil(t, summary.LowValue)
	assert.Nil(t, summary.MidValue)
	assert.Nil(t, summary.HighValue)
	assert.Nil(t, summary.WeightedMidValue)
}

func TestSummarize_WeightedMidWithinBand(t *testing.T) {
	a := NewAggregator(8, logrus.New())

	scored := []models.ScoredComparable{
		scoredComp("A", 480000, 1900, 0.9),
		scoredComp("B", 520000, 2100, 0.8),
		scoredComp("C", 450000, 1800, 0.6),
		scoredComp("D", 560000, 2200, 0.5),
	}

	summary := a.Summarize(aggSubject(), scored, aggCriteria(), nil)

	assert.NotNil(t, summary.WeightedMidValue)
	assert.NotNil(t, summary.LowValue)
	assert.NotNil(t, summary.HighValue)
	assert.GreaterOrEqual(t, *summary.WeightedMidValue, *summary.LowValue)
	assert.LessOrEqual(t, *summary.WeightedMidValue, *summary.HighValue)
	assert.Equal(t, 4, summary.ComparablesUsed)
	assert.Equal(t, 4, summary.TopComparables)
	assert.Greater(t, summary.AvgPricePerSqft, 0.0)
	assert.Greater(t, summary.WeightedPricePerSqft, 0.0)
}

func TestSummarize_WeightedDiffersFromAverage(t *testing.T) {
	a := NewAggregator(8, logrus.New())

	// A high-similarity cheap comp should pull the weighted estimate
	// below the plain average.
	scored := []models.ScoredComparable{
		scoredComp("CHEAP", 400000, 2000, 0.95),
		scoredComp("DEAR", 600000, 2000, 0.10),
	}

	summary := a.Summarize(aggSubject(), scored, aggCriteria(), nil)

	assert.Less(t, summary.WeightedPricePerSqft, summary.AvgPricePerSqft)
	assert.Less(t, *summary.WeightedMidValue, *summary.MidValue)
}

func TestSummarize_TopNCutoff(t *testing.T) {
	a := NewAggregator(8, logrus.New())
	f := aggCriteria()
	f.TopN = 3

	var scored []models.ScoredComparable
	for i := 0; i < 10; i++ {
		scored = append(scored, scoredComp(fmt.Sprintf("C%02d", i), 500000+i*1000, 2000, 1.0-float64(i)*0.05))
	}

	summary := a.Summarize(aggSubject(), scored, f, nil)

	assert.Equal(t, 10, summary.ComparablesUsed)
	assert.Equal(t, 3, summary.TopComparables)
}

func TestConfidence_MonotoneInSampleCount(t *testing.T) {
	a := NewAggregator(8, logrus.New())
	f := aggCriteria()
	f.TopN = 3

	// Identical dispersion (same three top comps), growing total count.
	base := []models.ScoredComparable{
		scoredComp("A", 500000, 2000, 0.9),
		scoredComp("B", 510000, 2000, 0.8),
		scoredComp("C", 490000, 2000, 0.7),
	}

	var prev float64
	for n := 3; n <= 10; n++ {
		scored := append([]models.ScoredComparable(nil), base...)
		for i := 3; i < n; i++ {
			// Lower-scored fillers never enter the top-N window.
			scored = append(scored, scoredComp(fmt.Sprintf("F%02d", i), 505000, 2000, 0.1))
		}
		summary := a.Summarize(aggSubject(), scored, f, nil)
		assert.GreaterOrEqual(t, summary.ConfidenceScore, prev, "n=%d", n)
		prev = summary.ConfidenceScore
	}
}

func TestConfidence_TighterClusteringScoresHigher(t *testing.T) {
	a := NewAggregator(8, logrus.New())

	tight := a.Summarize(aggSubject(), []models.ScoredComparable{
		scoredComp("A", 500000, 2000, 0.9),
		scoredComp("B", 502000, 2000, 0.9),
		scoredComp("C", 498000, 2000, 0.9),
	}, aggCriteria(), nil)

	loose := a.Summarize(aggSubject(), []models.ScoredComparable{
		scoredComp("A", 300000, 2000, 0.9),
		scoredComp("B", 500000, 2000, 0.9),
		scoredComp("C", 780000, 2000, 0.9),
	}, aggCriteria(), nil)

	assert.Greater(t, tight.ConfidenceScore, loose.ConfidenceScore)
}

func TestSummarize_ARVMode(t *testing.T) {
	a := NewAggregator(8, logrus.New())

	scored := []models.ScoredComparable{
		scoredComp("A", 500000, 2000, 0.9),
		scoredComp("B", 500000, 2000, 0.9),
	}

	plain := a.Summarize(aggSubject(), scored, aggCriteria(), nil)
	arv := a.Summarize(aggSubject(), scored, aggCriteria(), &models.ARVOverrides{ConditionUpliftPct: 10})

	assert.False(t, plain.ARVMode)
	assert.True(t, arv.ARVMode)
	assert.Equal(t, *plain.WeightedMidValue*110/100, *arv.WeightedMidValue)
}

func TestSummarize_NoUsableAreas(t *testing.T) {
	a := NewAggregator(8, logrus.New())

	scored := []models.ScoredComparable{
		{Property: models.Property{ListingID: "A", Price: 500000}, Score: 0.9},
	}

	summary := a.Summarize(aggSubject(), scored, aggCriteria(), nil)

	assert.Equal(t, 1, summary.ComparablesUsed)
	assert.Nil(t, summary.WeightedMidValue)
	assert.Equal(t, 0.0, summary.ConfidenceScore)
}

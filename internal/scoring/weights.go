package scoring

import (
	"fmt"
	"math"

	"github.com/stevenovak55/bmnboston-sub004/config"
)

// Weights are the per-attribute contributions to the composite similarity
// score. Price and living area dominate at 60% combined; location and
// recency-of-construction carry most of the remainder.
type Weights struct {
	Price      float64 `json:"price"`
	LivingArea float64 `json:"living_area"`
	Distance   float64 `json:"distance"`
	Beds       float64 `json:"beds"`
	Baths      float64 `json:"baths"`
	YearBuilt  float64 `json:"year_built"`
	Amenities  float64 `json:"amenities"`
}

// DefaultWeights returns the tuned default weighting.
func DefaultWeights() Weights {
	return Weights{
		Price:      0.30,
		LivingArea: 0.30,
		Distance:   0.15,
		Beds:       0.06,
		Baths:      0.06,
		YearBuilt:  0.08,
		Amenities:  0.05,
	}
}

// WeightsFromConfig builds the weight set from configuration, falling back
// to defaults when the configured values do not form a valid distribution.
func WeightsFromConfig(cfg *config.Config) Weights {
	w := Weights{
		Price:      cfg.Engine.WeightPrice,
		LivingArea: cfg.Engine.WeightLivingArea,
		Distance:   cfg.Engine.WeightDistance,
		Beds:       cfg.Engine.WeightBeds,
		Baths:      cfg.Engine.WeightBaths,
		YearBuilt:  cfg.Engine.WeightYearBuilt,
		Amenities:  cfg.Engine.WeightAmenities,
	}
	if err := w.Validate(); err != nil {
		return DefaultWeights()
	}
	return w
}

// Validate checks that all weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	values := []float64{w.Price, w.LivingArea, w.Distance, w.Beds, w.Baths, w.YearBuilt, w.Amenities}
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("negative weight %.4f", v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, expected 1.0", sum)
	}
	return nil
}

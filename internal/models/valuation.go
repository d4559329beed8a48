package models

import "time"

// AttributeDeltas holds the raw per-attribute differences between a subject
// and one candidate, kept alongside the composite score for explainability.
type AttributeDeltas struct {
	PriceDelta        int     `json:"price_delta"`
	PriceDeltaPct     float64 `json:"price_delta_pct"`
	AreaDelta         int     `json:"area_delta"`
	AreaDeltaPct      float64 `json:"area_delta_pct"`
	BedsDelta         int     `json:"beds_delta"`
	BathsDelta        float64 `json:"baths_delta"`
	YearBuiltDelta    int     `json:"year_built_delta"`
	AmenityMismatches int     `json:"amenity_mismatches"`
}

// ScoredComparable is one candidate after similarity scoring.
type ScoredComparable struct {
	Property      Property           `json:"property"`
	DistanceMiles float64            `json:"distance_miles"`
	Score         float64            `json:"score"`
	Parts         map[string]float64 `json:"parts"`
	Deltas        AttributeDeltas    `json:"deltas"`
}

// Confidence levels for a valuation summary.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// ValuationSummary is the aggregate estimate produced from the top scored
// comparables. Value fields are nil when no comparables were available.
type ValuationSummary struct {
	LowValue            *int    `json:"low_value"`
	MidValue            *int    `json:"mid_value"`
	HighValue           *int    `json:"high_value"`
	WeightedMidValue    *int    `json:"weighted_mid_value"`
	AvgPricePerSqft     float64 `json:"avg_price_per_sqft"`
	WeightedPricePerSqft float64 `json:"weighted_price_per_sqft"`
	ConfidenceScore     float64 `json:"confidence_score"`
	ConfidenceLevel     string  `json:"confidence_level"`
	ComparablesUsed     int     `json:"comparables_used"`
	TopComparables      int     `json:"top_comparables"`
	ARVMode             bool    `json:"arv_mode"`
}

// Market classification labels.
const (
	MarketHot      = "hot"
	MarketBalanced = "balanced"
	MarketCold     = "cold"
	MarketUnknown  = "unknown"
)

// MarketContext holds area-level statistics independent of any single
// subject property.
type MarketContext struct {
	City              string    `json:"city"`
	State             string    `json:"state"`
	PropertyType      string    `json:"property_type"`
	MedianSalePrice   *int      `json:"median_sale_price"`
	AvgDaysOnMarket   *float64  `json:"avg_days_on_market"`
	MonthsOfInventory *float64  `json:"months_of_inventory"`
	ActiveListings    int       `json:"active_listings"`
	ClosedSales       int       `json:"closed_sales"`
	Classification    string    `json:"classification"`
	TemperatureScore  float64   `json:"temperature_score"`
	ComputedAt        time.Time `json:"computed_at"`
}

// ARVOverrides are the optional after-repair adjustments applied to the
// subject before banding when a valuation runs in ARV mode.
type ARVOverrides struct {
	ConditionUpliftPct float64 `json:"condition_uplift_pct"`
	PostRepairSqft     int     `json:"post_repair_sqft"`
}

// ValuationResponse is the full engine output for one request.
type ValuationResponse struct {
	Comparables     []ScoredComparable `json:"comparables"`
	Summary         ValuationSummary   `json:"summary"`
	MarketContext   MarketContext      `json:"market_context"`
	FiltersApplied  FilterCriteria     `json:"filters_applied"`
	SubjectProperty SubjectProperty    `json:"subject_property"`
	CacheHit        bool               `json:"cache_hit"`
}

// Package criteria turns the untyped parameter bag accepted at the API
// boundary into a canonical, range-clamped FilterCriteria. Every numeric
// field has a default and a hard [min, max] clamp, so arbitrary caller input
// can never drive an unbounded radius or result limit into the engine.
package criteria

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

// Hard clamp bounds. These are engine invariants, not tunables.
const (
	MinRadiusMiles = 0.5
	MaxRadiusMiles = 100

	MinTolerancePct = 1
	MaxTolerancePct = 100

	MinLimit = 1
	MaxLimit = 100

	MinLookbackMonths = 1
	MaxLookbackMonths = 60

	MinYearWindow = 1
	MaxYearWindow = 100

	MaxDOMCap = 1000
	MaxTopN   = 25
)

var sortKeys = map[string]bool{
	models.SortByScore:    true,
	models.SortByPrice:    true,
	models.SortByDistance: true,
	models.SortByDate:     true,
	models.SortByDOM:      true,
}

// Normalizer builds FilterCriteria values from raw request parameters. It is
// a total function over arbitrary input and never returns an error.
type Normalizer struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func NewNormalizer(cfg *config.Config, logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Normalizer{cfg: cfg, logger: logger}
}

// Normalize produces a fully populated FilterCriteria from the raw bag.
// Absent fields take defaults, out-of-range values are clamped, and
// malformed enums fail closed to a safe value.
func (n *Normalizer) Normalize(raw models.RawFilterParams) models.FilterCriteria {
	f := models.FilterCriteria{
		RadiusMiles:       clampFloat(floatParam(raw, "radius_miles", n.cfg.Filters.RadiusMiles), MinRadiusMiles, MaxRadiusMiles),
		PriceTolerancePct: clampFloat(floatParam(raw, "price_tolerance_pct", n.cfg.Filters.TolerancePct), MinTolerancePct, MaxTolerancePct),
		AreaTolerancePct:  clampFloat(floatParam(raw, "area_tolerance_pct", n.cfg.Filters.TolerancePct), MinTolerancePct, MaxTolerancePct),
		MinBeds:           clampInt(intParam(raw, "min_beds", 0), 0, 20),
		MaxBeds:           clampInt(intParam(raw, "max_beds", 0), 0, 20),
		MinBaths:          clampFloat(floatParam(raw, "min_baths", 0), 0, 20),
		MaxBaths:          clampFloat(floatParam(raw, "max_baths", 0), 0, 20),
		MinGarage:         clampInt(intParam(raw, "min_garage", 0), 0, 10),
		MaxGarage:         clampInt(intParam(raw, "max_garage", 0), 0, 10),
		ExactBeds:         boolParam(raw, "exact_beds"),
		ExactBaths:        boolParam(raw, "exact_baths"),
		YearBuiltWindow:   clampInt(intParam(raw, "year_built_window", n.cfg.Filters.YearWindow), MinYearWindow, MaxYearWindow),
		MinLotSize:        clampInt(intParam(raw, "min_lot_size", 0), 0, 10_000_000),
		MaxLotSize:        clampInt(intParam(raw, "max_lot_size", 0), 0, 10_000_000),
		Statuses:          n.parseStatuses(raw["statuses"]),
		LookbackMonths:    clampInt(intParam(raw, "lookback_months", n.cfg.Filters.LookbackMonths), MinLookbackMonths, MaxLookbackMonths),
		MaxDaysOnMarket:   clampInt(intParam(raw, "max_days_on_market", 0), 0, MaxDOMCap),
		MinHOA:            clampInt(intParam(raw, "min_hoa", 0), 0, 100_000),
		MaxHOA:            clampInt(intParam(raw, "max_hoa", 0), 0, 100_000),
		SamePropertyType:  boolParam(raw, "same_property_type"),
		SortBy:            n.parseSortBy(raw["sort_by"]),
		Limit:             clampInt(intParam(raw, "limit", n.cfg.Filters.Limit), MinLimit, MaxLimit),
		TopN:              clampInt(intParam(raw, "top_n", n.cfg.Engine.TopN), 1, MaxTopN),
	}

	// Inverted ranges collapse to the min bound rather than erroring.
	if f.MaxBeds > 0 && f.MaxBeds < f.MinBeds {
		f.MaxBeds = f.MinBeds
	}
	if f.MaxBaths > 0 && f.MaxBaths < f.MinBaths {
		f.MaxBaths = f.MinBaths
	}
	if f.MaxLotSize > 0 && f.MaxLotSize < f.MinLotSize {
		f.MaxLotSize = f.MinLotSize
	}
	if f.MaxHOA > 0 && f.MaxHOA < f.MinHOA {
		f.MaxHOA = f.MinHOA
	}
	return f
}

// parseStatuses parses a comma-separated status list, keeping only
// recognized values. An empty or fully malformed list fails closed to
// Closed only.
func (n *Normalizer) parseStatuses(raw string) []string {
	var statuses []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		if canonical, ok := models.ValidStatus(part); ok && !seen[canonical] {
			statuses = append(statuses, canonical)
			seen[canonical] = true
		}
	}
	if len(statuses) == 0 {
		if raw != "" {
			n.logger.WithField("statuses", raw).Debug("Unparseable status list, defaulting to Closed")
		}
		return []string{models.StatusClosed}
	}
	return statuses
}

func (n *Normalizer) parseSortBy(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if sortKeys[key] {
		return key
	}
	return models.SortByScore
}

func floatParam(raw models.RawFilterParams, key string, def float64) float64 {
	v, ok := raw[key]
	if !ok || v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return parsed
}

func intParam(raw models.RawFilterParams, key string, def int) int {
	v, ok := raw[key]
	if !ok || v == "" {
		return def
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return parsed
}

func boolParam(raw models.RawFilterParams, key string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(raw[key]))
	return err == nil && parsed
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package models

import (
	"fmt"
	"sort"
	"strings"
)

// Listing statuses recognized by the matching engine. These mirror the MLS
// status vocabulary the inventory feed uses.
const (
	StatusActive        = "Active"
	StatusPending       = "Pending"
	StatusActiveUC      = "Active Under Contract"
	StatusClosed        = "Closed"
	StatusWithdrawn     = "Withdrawn"
	StatusExpired       = "Expired"
	StatusCanceled      = "Canceled"
	StatusComingSoon    = "Coming Soon"
)

// AllStatuses lists every valid listing status.
var AllStatuses = []string{
	StatusActive,
	StatusPending,
	StatusActiveUC,
	StatusClosed,
	StatusWithdrawn,
	StatusExpired,
	StatusCanceled,
	StatusComingSoon,
}

// ValidStatus reports whether s is a recognized listing status. Matching is
// case-insensitive.
func ValidStatus(s string) (string, bool) {
	for _, known := range AllStatuses {
		if strings.EqualFold(strings.TrimSpace(s), known) {
			return known, true
		}
	}
	return "", false
}

// Sort keys accepted for comparable result ordering.
const (
	SortByScore    = "score"
	SortByPrice    = "price"
	SortByDistance = "distance"
	SortByDate     = "date"
	SortByDOM      = "dom"
)

// RawFilterParams is the untyped parameter bag accepted at the API boundary.
// The normalizer turns it into a FilterCriteria; nothing downstream ever
// sees it.
type RawFilterParams map[string]string

// FilterCriteria is the canonical, range-clamped set of search parameters
// for one valuation run. Instances are only produced by the normalizer.
type FilterCriteria struct {
	RadiusMiles       float64  `json:"radius_miles"`
	PriceTolerancePct float64  `json:"price_tolerance_pct"`
	AreaTolerancePct  float64  `json:"area_tolerance_pct"`
	MinBeds           int      `json:"min_beds"`
	MaxBeds           int      `json:"max_beds"`
	MinBaths          float64  `json:"min_baths"`
	MaxBaths          float64  `json:"max_baths"`
	MinGarage         int      `json:"min_garage"`
	MaxGarage         int      `json:"max_garage"`
	ExactBeds         bool     `json:"exact_beds"`
	ExactBaths        bool     `json:"exact_baths"`
	YearBuiltWindow   int      `json:"year_built_window"`
	MinLotSize        int      `json:"min_lot_size"`
	MaxLotSize        int      `json:"max_lot_size"`
	Statuses          []string `json:"statuses"`
	LookbackMonths    int      `json:"lookback_months"`
	MaxDaysOnMarket   int      `json:"max_days_on_market"`
	MinHOA            int      `json:"min_hoa"`
	MaxHOA            int      `json:"max_hoa"`
	SamePropertyType  bool     `json:"same_property_type"`
	SortBy            string   `json:"sort_by"`
	Limit             int      `json:"limit"`
	TopN              int      `json:"top_n"`
}

// CanonicalFields renders every criteria field as a key=value pair in sorted
// key order. The status whitelist is itself sorted first, so two criteria
// that differ only in list or field ordering render identically. This is the
// basis of the cache fingerprint.
func (f FilterCriteria) CanonicalFields() []string {
	statuses := append([]string(nil), f.Statuses...)
	sort.Strings(statuses)

	fields := map[string]string{
		"radius_miles":        fmt.Sprintf("%.4f", f.RadiusMiles),
		"price_tolerance_pct": fmt.Sprintf("%.4f", f.PriceTolerancePct),
		"area_tolerance_pct":  fmt.Sprintf("%.4f", f.AreaTolerancePct),
		"min_beds":            fmt.Sprintf("%d", f.MinBeds),
		"max_beds":            fmt.Sprintf("%d", f.MaxBeds),
		"min_baths":           fmt.Sprintf("%.2f", f.MinBaths),
		"max_baths":           fmt.Sprintf("%.2f", f.MaxBaths),
		"min_garage":          fmt.Sprintf("%d", f.MinGarage),
		"max_garage":          fmt.Sprintf("%d", f.MaxGarage),
		"exact_beds":          fmt.Sprintf("%t", f.ExactBeds),
		"exact_baths":         fmt.Sprintf("%t", f.ExactBaths),
		"year_built_window":   fmt.Sprintf("%d", f.YearBuiltWindow),
		"min_lot_size":        fmt.Sprintf("%d", f.MinLotSize),
		"max_lot_size":        fmt.Sprintf("%d", f.MaxLotSize),
		"statuses":            strings.Join(statuses, "|"),
		"lookback_months":     fmt.Sprintf("%d", f.LookbackMonths),
		"max_days_on_market":  fmt.Sprintf("%d", f.MaxDaysOnMarket),
		"min_hoa":             fmt.Sprintf("%d", f.MinHOA),
		"max_hoa":             fmt.Sprintf("%d", f.MaxHOA),
		"same_property_type":  fmt.Sprintf("%t", f.SamePropertyType),
		"sort_by":             f.SortBy,
		"limit":               fmt.Sprintf("%d", f.Limit),
		"top_n":               fmt.Sprintf("%d", f.TopN),
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	return pairs
}

// IncludesStatus reports whether status is in the whitelist.
func (f FilterCriteria) IncludesStatus(status string) bool {
	for _, s := range f.Statuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

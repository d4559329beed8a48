package models

import "time"

// Property is a single inventory listing as stored in the listings table.
type Property struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	ListingID    string     `json:"listing_id" gorm:"uniqueIndex;size:32"`
	Street       string     `json:"street"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	PostalCode   string     `json:"postal_code"`
	PropertyType string     `json:"property_type"`
	Status       string     `json:"status"`
	Price        int        `json:"price"`
	ClosePrice   *int       `json:"close_price"`
	Beds         int        `json:"beds"`
	Baths        float64    `json:"baths"`
	LivingArea   *int       `json:"living_area"`
	LotSize      *int       `json:"lot_size"`
	YearBuilt    *int       `json:"year_built"`
	GarageSpaces *int       `json:"garage_spaces"`
	Pool         bool       `json:"pool"`
	Waterfront   bool       `json:"waterfront"`
	RoadType     string     `json:"road_type"`
	Condition    string     `json:"condition"`
	HOAFee       *int       `json:"hoa_fee"`
	DaysOnMarket *int       `json:"days_on_market"`
	ListDate     *time.Time `json:"list_date"`
	CloseDate    *time.Time `json:"close_date"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// EffectivePrice returns the close price for sold listings and the list
// price otherwise.
func (p *Property) EffectivePrice() int {
	if p.ClosePrice != nil && *p.ClosePrice > 0 {
		return *p.ClosePrice
	}
	return p.Price
}

// EffectiveDate returns the close date when present, falling back to the
// list date. Used for recency tie-breaking.
func (p *Property) EffectiveDate() time.Time {
	if p.CloseDate != nil {
		return *p.CloseDate
	}
	if p.ListDate != nil {
		return *p.ListDate
	}
	return time.Time{}
}

// HasCoordinates reports whether the listing can participate in geospatial
// candidate selection.
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// SubjectProperty is the immutable input to a single valuation run.
type SubjectProperty struct {
	ListingID    string  `json:"listing_id"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lng"`
	Price        int     `json:"price"`
	Beds         int     `json:"beds"`
	Baths        float64 `json:"baths"`
	LivingArea   int     `json:"sqft"`
	PropertyType string  `json:"property_type"`
	YearBuilt    int     `json:"year_built"`
	GarageSpaces int     `json:"garage_spaces"`
	Pool         bool    `json:"pool"`
	Waterfront   bool    `json:"waterfront"`
	RoadType     string  `json:"road_type"`
	Condition    string  `json:"condition"`
	City         string  `json:"city"`
	State        string  `json:"state"`
}

package models

import "time"

// SnapshotVersion is stamped into every persisted session and history row so
// older snapshots stay decodable as the payload schema evolves.
const SnapshotVersion = 1

// CMASession is a durable, named snapshot of one completed valuation run.
// Snapshot columns are immutable once written; a rerun creates a new session.
type CMASession struct {
	ID                  int64      `json:"id" gorm:"primaryKey"`
	OwnerID             string     `json:"owner_id" gorm:"index;size:64"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	Favorite            bool       `json:"favorite"`
	Standalone          bool       `json:"standalone"`
	ShareSlug           *string    `json:"share_slug" gorm:"uniqueIndex;size:36"`
	SnapshotVersion     int        `json:"snapshot_version"`
	SubjectSnapshot     string     `json:"subject_snapshot" gorm:"type:text"`
	FilterSnapshot      string     `json:"filter_snapshot" gorm:"type:text"`
	ComparablesSnapshot string     `json:"comparables_snapshot" gorm:"type:text"`
	SummarySnapshot     string     `json:"summary_snapshot" gorm:"type:text"`
	ComparableCount     int        `json:"comparable_count"`
	WeightedMidValue    *int       `json:"weighted_mid_value"`
	ArtifactPath        string     `json:"artifact_path"`
	ArtifactGeneratedAt *time.Time `json:"artifact_generated_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ValuationHistoryRecord is one append-only row per computed valuation for a
// given listing. Rows are never updated or deleted.
type ValuationHistoryRecord struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	OwnerID          string    `json:"owner_id" gorm:"index;size:64"`
	ListingID        string    `json:"listing_id" gorm:"index;size:32"`
	LowValue         *int      `json:"low_value"`
	MidValue         *int      `json:"mid_value"`
	HighValue        *int      `json:"high_value"`
	WeightedMidValue *int      `json:"weighted_mid_value"`
	ComparableCount  int       `json:"comparable_count"`
	TopComparables   int       `json:"top_comparables"`
	ConfidenceScore  float64   `json:"confidence_score"`
	ConfidenceLevel  string    `json:"confidence_level"`
	AvgPricePerSqft  float64   `json:"avg_price_per_sqft"`
	SnapshotVersion  int       `json:"snapshot_version"`
	FilterSnapshot   string    `json:"filter_snapshot" gorm:"type:text"`
	ARVMode          bool      `json:"arv_mode" gorm:"column:arv_mode"`
	ARVOverrides     string    `json:"arv_overrides" gorm:"type:text"`
	Note             string    `json:"note"`
	ComputedAt       time.Time `json:"computed_at" gorm:"index"`
}

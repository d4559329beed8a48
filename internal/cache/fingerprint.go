package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

// Fingerprint builds the stable cache key for one (subject, criteria) pair.
// Criteria fields are rendered in canonical sorted order before hashing, so
// two logically identical filter sets that arrived with keys in different
// orders hit the same entry.
func Fingerprint(listingID string, f models.FilterCriteria) string {
	payload := listingID + ";" + strings.Join(f.CanonicalFields(), ";")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// MarketFingerprint keys cached market context by geography and property
// type. Context is subject-independent, so subjects in the same geography
// share one entry.
func MarketFingerprint(city, state, propertyType string) string {
	payload := strings.ToLower(strings.Join([]string{"market", city, state, propertyType}, ";"))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

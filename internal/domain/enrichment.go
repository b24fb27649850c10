package domain

import "time"

// ProductDatabaseEntry is a known product record used to confirm an analysis
type ProductDatabaseEntry struct {
	ID               string                    `json:"id"`
	UPC              string                    `json:"upc,omitempty"`
	EAN              string                    `json:"ean,omitempty"`
	ProductType      string                    `json:"productType,omitempty"`
	Brand            string                    `json:"brand,omitempty"`
	Model            string                    `json:"model,omitempty"`
	Category         *Category                 `json:"category,omitempty"`
	CustomAttributes map[string]AttributeValue `json:"customAttributes,omitempty"`
	MSRP             float64                   `json:"msrp,omitempty"`
	Source           string                    `json:"source,omitempty"`
	AddedAt          time.Time                 `json:"addedAt"`
}

// MatchType says which key produced a database match
type MatchType string

const (
	MatchUPC        MatchType = "upc"
	MatchEAN        MatchType = "ean"
	MatchBrandModel MatchType = "brand_model"
	MatchSimilar    MatchType = "similar"
)

// DatabaseMatch is a cache hit for an analysis
type DatabaseMatch struct {
	Entry     ProductDatabaseEntry `json:"entry"`
	MatchedBy MatchType            `json:"matchedBy"`
	Key       string               `json:"key"`
	// Score and MatchedTokens are only set for similarity matches
	Score         float64  `json:"score,omitempty"`
	MatchedTokens []string `json:"matchedTokens,omitempty"`
}

// EnrichmentData is the block enrichment adds on top of an analysis
type EnrichmentData struct {
	AttributeConfidence AttributeConfidence `json:"attributeConfidence"`
	Recommendations     []string            `json:"recommendations"`
	CompletenessScore   int                 `json:"completenessScore"`
	MissingCriticalInfo []string            `json:"missingCriticalInfo"`
	DatabaseMatch       *DatabaseMatch      `json:"databaseMatch,omitempty"`
	SentimentScore      *float64            `json:"sentimentScore,omitempty"`
}

// EnrichedProductAnalysis is an analysis plus derived enrichment data
type EnrichedProductAnalysis struct {
	ProductAnalysis
	EnrichmentData EnrichmentData `json:"enrichmentData"`
}

package domain

import "strings"

// ConfidenceLevel is the coarse label attached to an AI-derived field
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Valid reports whether l is one of the three known levels
func (l ConfidenceLevel) Valid() bool {
	switch l {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// ParseConfidenceLevel accepts any casing ("high", "High"); unknown input is LOW
func ParseConfidenceLevel(s string) ConfidenceLevel {
	l := ConfidenceLevel(strings.ToUpper(strings.TrimSpace(s)))
	if l.Valid() {
		return l
	}
	return ConfidenceLow
}

// AttributeConfidence holds per-attribute confidence scores (0-100)
type AttributeConfidence struct {
	ProductType   int `json:"productType"`
	Category      int `json:"category"`
	Brand         int `json:"brand"`
	Condition     int `json:"condition"`
	Attributes    int `json:"attributes"`
	VisualQuality int `json:"visualQuality"`
	Overall       int `json:"overall"`
}

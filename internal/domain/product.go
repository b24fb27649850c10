package domain

import (
	"strings"
	"time"
)

// Condition is the resale condition of an item
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionLikeNew   Condition = "like_new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
	ConditionForParts  Condition = "for_parts"
	ConditionUnknown   Condition = "unknown"
)

// AllConditions lists every valid condition in display order
var AllConditions = []Condition{
	ConditionNew, ConditionLikeNew, ConditionExcellent, ConditionGood,
	ConditionFair, ConditionPoor, ConditionForParts, ConditionUnknown,
}

// Valid reports whether c is one of the known conditions
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionExcellent, ConditionGood,
		ConditionFair, ConditionPoor, ConditionForParts, ConditionUnknown:
		return true
	}
	return false
}

// Label returns a human readable name, e.g. "Like New"
func (c Condition) Label() string {
	switch c {
	case ConditionNew:
		return "New"
	case ConditionLikeNew:
		return "Like New"
	case ConditionExcellent:
		return "Excellent"
	case ConditionGood:
		return "Good"
	case ConditionFair:
		return "Fair"
	case ConditionPoor:
		return "Poor"
	case ConditionForParts:
		return "For Parts"
	default:
		return "Unknown"
	}
}

// ParseCondition normalizes free text from the vision model ("Like New",
// "like-new") to a Condition. Unrecognized values map to ConditionUnknown.
func ParseCondition(s string) Condition {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	c := Condition(normalized)
	if c.Valid() {
		return c
	}
	return ConditionUnknown
}

// ImageQuality grades the overall photo
type ImageQuality string

const (
	ImageQualityExcellent ImageQuality = "excellent"
	ImageQualityGood      ImageQuality = "good"
	ImageQualityFair      ImageQuality = "fair"
	ImageQualityPoor      ImageQuality = "poor"
)

// Lighting grades the photo lighting
type Lighting string

const (
	LightingGood Lighting = "good"
	LightingFair Lighting = "fair"
	LightingPoor Lighting = "poor"
)

// Clarity grades photo focus
type Clarity string

const (
	ClaritySharp          Clarity = "sharp"
	ClaritySlightlyBlurry Clarity = "slightly_blurry"
	ClarityBlurry         Clarity = "blurry"
)

// Background describes what surrounds the product in the photo
type Background string

const (
	BackgroundClean       Background = "clean"
	BackgroundCluttered   Background = "cluttered"
	BackgroundDistracting Background = "distracting"
)

// DefectSeverity grades the worst visible damage
type DefectSeverity string

const (
	SeverityMinor    DefectSeverity = "minor"
	SeverityModerate DefectSeverity = "moderate"
	SeveritySevere   DefectSeverity = "severe"
)

// Category is the three level marketplace category assigned to a product
type Category struct {
	Primary    string          `json:"primary"`
	Secondary  string          `json:"secondary,omitempty"`
	Tertiary   string          `json:"tertiary,omitempty"`
	Confidence ConfidenceLevel `json:"confidence"`
}

// Brand is an identified manufacturer or label
type Brand struct {
	Name       string          `json:"name"`
	Confidence ConfidenceLevel `json:"confidence"`
	Verified   bool            `json:"verified"`
}

// Attributes are the physical properties of a product
type Attributes struct {
	Color            []string                  `json:"color,omitempty"`
	Material         []string                  `json:"material,omitempty"`
	Size             string                    `json:"size,omitempty"`
	Style            string                    `json:"style,omitempty"`
	Model            string                    `json:"model,omitempty"`
	Year             string                    `json:"year,omitempty"`
	Dimensions       string                    `json:"dimensions,omitempty"`
	Weight           string                    `json:"weight,omitempty"`
	CustomAttributes map[string]AttributeValue `json:"customAttributes,omitempty"`
}

// PopulatedCount returns how many of the eight standard attributes are set
func (a Attributes) PopulatedCount() int {
	count := 0
	if len(a.Color) > 0 {
		count++
	}
	if len(a.Material) > 0 {
		count++
	}
	for _, v := range []string{a.Size, a.Style, a.Model, a.Year, a.Dimensions, a.Weight} {
		if strings.TrimSpace(v) != "" {
			count++
		}
	}
	return count
}

// ExtractedText is a piece of text read from the photo (labels, tags, packaging)
type ExtractedText struct {
	Text       string          `json:"text"`
	Location   string          `json:"location,omitempty"`
	Confidence ConfidenceLevel `json:"confidence"`
}

// Defects flags visible damage on the product
type Defects struct {
	Scratches     bool           `json:"scratches"`
	Dents         bool           `json:"dents"`
	Stains        bool           `json:"stains"`
	Tears         bool           `json:"tears"`
	MissingParts  bool           `json:"missingParts"`
	Discoloration bool           `json:"discoloration"`
	Description   string         `json:"description,omitempty"`
	Severity      DefectSeverity `json:"severity,omitempty"`
}

// FlagCount returns the number of defect flags that are set
func (d Defects) FlagCount() int {
	count := 0
	for _, flag := range []bool{d.Scratches, d.Dents, d.Stains, d.Tears, d.MissingParts, d.Discoloration} {
		if flag {
			count++
		}
	}
	return count
}

// VisualQuality describes how good the product photo is
type VisualQuality struct {
	ImageQuality    ImageQuality `json:"imageQuality"`
	Lighting        Lighting     `json:"lighting"`
	Clarity         Clarity      `json:"clarity"`
	Background      Background   `json:"background"`
	Recommendations []string     `json:"recommendations,omitempty"`
}

// ProductAnalysis is the identification record produced by the vision model
// for a single photo.
type ProductAnalysis struct {
	ProductType         string          `json:"productType"`
	Category            Category        `json:"category"`
	Brand               *Brand          `json:"brand,omitempty"`
	Condition           Condition       `json:"condition"`
	ConditionConfidence ConfidenceLevel `json:"conditionConfidence"`
	Attributes          Attributes      `json:"attributes"`
	ExtractedText       []ExtractedText `json:"extractedText,omitempty"`
	Features            []string        `json:"features,omitempty"`
	Defects             *Defects        `json:"defects,omitempty"`
	VisualQuality       VisualQuality   `json:"visualQuality"`
	Description         string          `json:"description"`
	SuggestedTitle      string          `json:"suggestedTitle"`
	SuggestedKeywords   []string        `json:"suggestedKeywords,omitempty"`
	OverallConfidence   ConfidenceLevel `json:"overallConfidence"`
	AnalyzedAt          time.Time       `json:"analyzedAt"`
}

// HasBrand reports whether a brand name was identified
func (p *ProductAnalysis) HasBrand() bool {
	return p.Brand != nil && strings.TrimSpace(p.Brand.Name) != ""
}

// Clone returns a deep copy so callers can modify the result without touching p
func (p *ProductAnalysis) Clone() ProductAnalysis {
	out := *p
	if p.Brand != nil {
		b := *p.Brand
		out.Brand = &b
	}
	if p.Defects != nil {
		d := *p.Defects
		out.Defects = &d
	}
	out.Attributes.Color = cloneStrings(p.Attributes.Color)
	out.Attributes.Material = cloneStrings(p.Attributes.Material)
	if p.Attributes.CustomAttributes != nil {
		out.Attributes.CustomAttributes = make(map[string]AttributeValue, len(p.Attributes.CustomAttributes))
		for k, v := range p.Attributes.CustomAttributes {
			out.Attributes.CustomAttributes[k] = v
		}
	}
	if p.ExtractedText != nil {
		out.ExtractedText = append([]ExtractedText(nil), p.ExtractedText...)
	}
	out.Features = cloneStrings(p.Features)
	out.SuggestedKeywords = cloneStrings(p.SuggestedKeywords)
	out.VisualQuality.Recommendations = cloneStrings(p.VisualQuality.Recommendations)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

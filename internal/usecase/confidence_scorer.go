package usecase

import (
	"math"
	"strings"

	"github.com/listinglens/backend/internal/domain"
)

// Level scores
const (
	scoreHigh   = 85
	scoreMedium = 60
	scoreLow    = 30

	highThreshold   = 75
	mediumThreshold = 50
)

// Overall confidence weights, must sum to 1.0
const (
	weightProductType   = 0.25
	weightCategory      = 0.15
	weightBrand         = 0.15
	weightCondition     = 0.20
	weightAttributes    = 0.15
	weightVisualQuality = 0.10
)

// Adjustments
const (
	verifiedBrandBonus      = 10
	modelPresentBonus       = 5
	genericTypePenalty      = 20
	subcategoryBonus        = 5
	categoryInTextBonus     = 10
	brandVerifiedBonus      = 20
	brandInTextBonus        = 15
	unknownConditionCap     = 20
	defectsDescribedBonus   = 5
	attributeBaseScore      = 50
	attributePerFieldBonus  = 5
	extractedTextBonus      = 10
	highConfidenceTextBonus = 10
	visualBaseScore         = 50
)

// Recommendation thresholds
const (
	visualRecommendThreshold      = 50
	productTypeRecommendThreshold = 60
	brandRecommendThreshold       = 60
	conditionRecommendThreshold   = 60
	attributesRecommendThreshold  = 50
)

// Recommendation text
const (
	RecommendImproveImageQuality = "Retake the photo with a higher resolution camera or move closer to the product"
	RecommendImproveLighting     = "Use natural light or a bright, even light source to photograph the product"
	RecommendReduceBlur          = "Hold the camera steady and tap to focus so the product is sharp"
	RecommendCleanBackground     = "Photograph the product against a plain, uncluttered background"
	RecommendClarifyProductType  = "Add the product type or a close-up of the product label to improve identification"
	RecommendAddBrand            = "Specify the brand or include a photo of the brand logo or label"
	RecommendClarifyCondition    = "Describe the condition and photograph any wear or damage up close"
	RecommendAddAttributes       = "Add details such as color, size, material or model number"
)

// LevelToScore converts a confidence label to a numeric score.
// Unrecognized labels score as LOW.
func LevelToScore(level domain.ConfidenceLevel) int {
	switch level {
	case domain.ConfidenceHigh:
		return scoreHigh
	case domain.ConfidenceMedium:
		return scoreMedium
	case domain.ConfidenceLow:
		return scoreLow
	default:
		return scoreLow
	}
}

// ScoreToLevel converts a numeric score back to a confidence label
func ScoreToLevel(score int) domain.ConfidenceLevel {
	switch {
	case score >= highThreshold:
		return domain.ConfidenceHigh
	case score >= mediumThreshold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// ConfidenceScorer computes heuristic per-attribute confidence for an analysis.
// It is stateless and safe for concurrent use.
type ConfidenceScorer struct{}

// NewConfidenceScorer creates a confidence scorer
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// Breakdown returns all six attribute scores plus the weighted overall score
func (s *ConfidenceScorer) Breakdown(analysis *domain.ProductAnalysis) domain.AttributeConfidence {
	c := domain.AttributeConfidence{
		ProductType:   s.ProductTypeScore(analysis),
		Category:      s.CategoryScore(analysis),
		Brand:         s.BrandScore(analysis),
		Condition:     s.ConditionScore(analysis),
		Attributes:    s.AttributesScore(analysis),
		VisualQuality: s.VisualQualityScore(analysis),
	}
	c.Overall = overallScore(c)
	return c
}

// overallScore is the weighted sum of the attribute scores, rounded
func overallScore(c domain.AttributeConfidence) int {
	weighted := float64(c.ProductType)*weightProductType +
		float64(c.Category)*weightCategory +
		float64(c.Brand)*weightBrand +
		float64(c.Condition)*weightCondition +
		float64(c.Attributes)*weightAttributes +
		float64(c.VisualQuality)*weightVisualQuality
	return clampScore(int(math.Round(weighted)))
}

// ProductTypeScore scores how sure we are about what the product is
func (s *ConfidenceScorer) ProductTypeScore(analysis *domain.ProductAnalysis) int {
	score := LevelToScore(analysis.OverallConfidence)

	if analysis.Brand != nil && analysis.Brand.Verified {
		score += verifiedBrandBonus
	}
	if strings.TrimSpace(analysis.Attributes.Model) != "" {
		score += modelPresentBonus
	}

	productType := strings.ToLower(analysis.ProductType)
	if strings.Contains(productType, "unknown") || strings.Contains(productType, "generic") {
		score -= genericTypePenalty
	}

	return clampScore(score)
}

// CategoryScore scores the category assignment
func (s *ConfidenceScorer) CategoryScore(analysis *domain.ProductAnalysis) int {
	score := LevelToScore(analysis.Category.Confidence)

	if analysis.Category.Secondary != "" {
		score += subcategoryBonus
	}
	if analysis.Category.Tertiary != "" {
		score += subcategoryBonus
	}
	if containsInExtractedText(analysis.ExtractedText, analysis.Category.Primary) {
		score += categoryInTextBonus
	}

	return clampScore(score)
}

// BrandScore scores the brand identification; no brand scores 0
func (s *ConfidenceScorer) BrandScore(analysis *domain.ProductAnalysis) int {
	if !analysis.HasBrand() {
		return 0
	}

	score := LevelToScore(analysis.Brand.Confidence)
	if analysis.Brand.Verified {
		score += brandVerifiedBonus
	}
	if containsInExtractedText(analysis.ExtractedText, analysis.Brand.Name) {
		score += brandInTextBonus
	}

	return clampScore(score)
}

// ConditionScore scores the condition assessment. An unknown condition never
// scores above 20.
func (s *ConfidenceScorer) ConditionScore(analysis *domain.ProductAnalysis) int {
	score := LevelToScore(analysis.ConditionConfidence)

	if analysis.Condition == domain.ConditionUnknown {
		return clampScore(min(score, unknownConditionCap))
	}

	switch analysis.VisualQuality.ImageQuality {
	case domain.ImageQualityExcellent:
		score += 15
	case domain.ImageQualityGood:
		score += 10
	case domain.ImageQualityPoor:
		score -= 20
	}
	if analysis.VisualQuality.Clarity == domain.ClaritySharp {
		score += 10
	}
	if analysis.Defects != nil && strings.TrimSpace(analysis.Defects.Description) != "" {
		score += defectsDescribedBonus
	}

	return clampScore(score)
}

// AttributesScore scores how many physical attributes were identified
func (s *ConfidenceScorer) AttributesScore(analysis *domain.ProductAnalysis) int {
	score := attributeBaseScore + analysis.Attributes.PopulatedCount()*attributePerFieldBonus

	if len(analysis.ExtractedText) > 0 {
		score += extractedTextBonus
		for _, text := range analysis.ExtractedText {
			if text.Confidence == domain.ConfidenceHigh {
				score += highConfidenceTextBonus
				break
			}
		}
	}

	return clampScore(score)
}

// VisualQualityScore scores the photo itself
func (s *ConfidenceScorer) VisualQualityScore(analysis *domain.ProductAnalysis) int {
	vq := analysis.VisualQuality
	score := visualBaseScore +
		imageQualityAdjustment(vq.ImageQuality) +
		lightingAdjustment(vq.Lighting) +
		clarityAdjustment(vq.Clarity) +
		backgroundAdjustment(vq.Background)
	return clampScore(score)
}

func imageQualityAdjustment(q domain.ImageQuality) int {
	switch q {
	case domain.ImageQualityExcellent:
		return 30
	case domain.ImageQualityGood:
		return 20
	case domain.ImageQualityFair:
		return 10
	case domain.ImageQualityPoor:
		return -20
	default:
		return 0
	}
}

func lightingAdjustment(l domain.Lighting) int {
	switch l {
	case domain.LightingGood:
		return 10
	case domain.LightingFair:
		return 5
	case domain.LightingPoor:
		return -15
	default:
		return 0
	}
}

func clarityAdjustment(c domain.Clarity) int {
	switch c {
	case domain.ClaritySharp:
		return 10
	case domain.ClaritySlightlyBlurry:
		return 0
	case domain.ClarityBlurry:
		return -15
	default:
		return 0
	}
}

func backgroundAdjustment(b domain.Background) int {
	switch b {
	case domain.BackgroundClean:
		return 5
	case domain.BackgroundDistracting:
		return -10
	default:
		return 0
	}
}

// Recommendations returns suggestions for improving low-confidence areas.
// Upstream visual quality recommendations are appended verbatim.
func (s *ConfidenceScorer) Recommendations(analysis *domain.ProductAnalysis) []string {
	c := s.Breakdown(analysis)
	recommendations := make([]string, 0)

	if c.VisualQuality < visualRecommendThreshold {
		vq := analysis.VisualQuality
		if vq.ImageQuality == domain.ImageQualityPoor {
			recommendations = append(recommendations, RecommendImproveImageQuality)
		}
		if vq.Lighting == domain.LightingPoor {
			recommendations = append(recommendations, RecommendImproveLighting)
		}
		if vq.Clarity == domain.ClarityBlurry {
			recommendations = append(recommendations, RecommendReduceBlur)
		}
		if vq.Background != domain.BackgroundClean {
			recommendations = append(recommendations, RecommendCleanBackground)
		}
	}

	if c.ProductType < productTypeRecommendThreshold {
		recommendations = append(recommendations, RecommendClarifyProductType)
	}
	if c.Brand < brandRecommendThreshold {
		recommendations = append(recommendations, RecommendAddBrand)
	}
	if c.Condition < conditionRecommendThreshold {
		recommendations = append(recommendations, RecommendClarifyCondition)
	}
	if c.Attributes < attributesRecommendThreshold {
		recommendations = append(recommendations, RecommendAddAttributes)
	}

	recommendations = append(recommendations, analysis.VisualQuality.Recommendations...)
	return recommendations
}

// containsInExtractedText does a case-insensitive substring search over OCR text
func containsInExtractedText(texts []domain.ExtractedText, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t.Text), needle) {
			return true
		}
	}
	return false
}

// clampScore caps a score to [0,100]
func clampScore(score int) int {
	return max(0, min(100, score))
}

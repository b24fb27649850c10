package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/listinglens/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// productCodePattern matches a UPC (12 digits) or EAN (13 digits) in OCR text.
// There is no checksum validation, so phone or serial numbers of the same
// length also match.
var productCodePattern = regexp.MustCompile(`\b\d{12,13}\b`)

// Sentiment deltas
const (
	defectFlagPenalty     = 0.1
	sentimentKeywordDelta = 0.05
)

// positiveKeywords raise the sentiment score by 0.05 each when found in the description
var positiveKeywords = []string{
	"excellent", "perfect", "pristine", "mint", "flawless", "brand new",
	"like new", "barely used", "gently used", "well maintained", "works great",
	"works perfectly", "great condition", "clean", "original box", "original packaging",
	"high quality", "premium", "rare", "beautiful",
}

// negativeKeywords lower the sentiment score by 0.05 each when found in the description
var negativeKeywords = []string{
	"broken", "damaged", "cracked", "crack", "scratched", "scratches", "dented",
	"stain", "stained", "torn", "ripped", "worn", "faded", "missing", "defective",
	"not working", "doesn't work", "for parts", "as is", "heavy wear",
}

// Completeness weights
const (
	weightFieldProductType = 3.0
	weightFieldCondition   = 3.0
	weightFieldCategory    = 2.0
	weightFieldDescription = 2.0
	weightFieldTitle       = 2.0
	weightFieldBrand       = 1.5
	weightFieldColor       = 1.0
	weightFieldModel       = 1.5
	weightFieldSize        = 1.0
	weightFieldMaterial    = 1.0
	weightImageQuality     = 1.0
	weightFeatures         = 1.0

	minDescriptionLength = 20
)

// Names reported in missingCriticalInfo
const (
	InfoProductType = "Product type"
	InfoCondition   = "Condition"
	InfoCategory    = "Category"
	InfoDescription = "Detailed description"
	InfoTitle       = "Listing title"
	InfoBrand       = "Brand"
	InfoColor       = "Color"
	InfoModel       = "Model"
	InfoSize        = "Size"
	InfoMaterial    = "Material"
)

// Enrichment validation thresholds
const (
	DefaultMinConfidence      = 50
	completenessWarnThreshold = 60
	databaseConfidenceFloor   = 85
)

// EnrichmentOptions select which enrichment steps run
type EnrichmentOptions struct {
	EnableDatabaseLookup    bool `json:"enableDatabaseLookup"`
	EnableSentimentAnalysis bool `json:"enableSentimentAnalysis"`
	EnableCompletenessCheck bool `json:"enableCompletenessCheck"`
}

// DefaultEnrichmentOptions enables every step
func DefaultEnrichmentOptions() EnrichmentOptions {
	return EnrichmentOptions{
		EnableDatabaseLookup:    true,
		EnableSentimentAnalysis: true,
		EnableCompletenessCheck: true,
	}
}

// EnrichmentService layers confidence, sentiment, completeness and product
// database matches on top of an analysis.
type EnrichmentService struct {
	cache   domain.ProductCache
	scorer  *ConfidenceScorer
	matcher *ProductMatcher
	logger  logrus.FieldLogger
}

// NewEnrichmentService creates an enrichment service backed by the given cache
func NewEnrichmentService(cache domain.ProductCache, scorer *ConfidenceScorer, logger logrus.FieldLogger) *EnrichmentService {
	if scorer == nil {
		scorer = NewConfidenceScorer()
	}
	return &EnrichmentService{
		cache:  cache,
		scorer: scorer,
		logger: logger,
	}
}

// Enrich returns the analysis unchanged plus an enrichment block. Only a
// failing cache backend produces an error; a cache miss does not.
func (s *EnrichmentService) Enrich(
	ctx context.Context,
	analysis *domain.ProductAnalysis,
	opts EnrichmentOptions,
) (*domain.EnrichedProductAnalysis, error) {
	if analysis == nil {
		return nil, domain.ErrInvalidRequest
	}

	data := domain.EnrichmentData{
		AttributeConfidence: s.scorer.Breakdown(analysis),
		Recommendations:     s.scorer.Recommendations(analysis),
		MissingCriticalInfo: []string{},
	}

	if opts.EnableDatabaseLookup {
		match, err := s.lookupProduct(ctx, analysis)
		if err != nil {
			return nil, err
		}
		data.DatabaseMatch = match
	}

	if opts.EnableSentimentAnalysis {
		sentiment := SentimentScore(analysis)
		data.SentimentScore = &sentiment
	}

	if opts.EnableCompletenessCheck {
		data.CompletenessScore, data.MissingCriticalInfo = CompletenessScore(analysis)
	}

	s.logger.WithFields(logrus.Fields{
		"overall_confidence": data.AttributeConfidence.Overall,
		"completeness":       data.CompletenessScore,
		"database_match":     data.DatabaseMatch != nil,
	}).Debug("enriched product analysis")

	return &domain.EnrichedProductAnalysis{
		ProductAnalysis: analysis.Clone(),
		EnrichmentData:  data,
	}, nil
}

// UseMatcher enables similarity matching against every cached product when
// the exact key lookups miss.
func (s *EnrichmentService) UseMatcher(matcher *ProductMatcher) {
	s.matcher = matcher
}

// lookupProduct tries a UPC/EAN read from the photo first, then brand:model,
// then similarity when a matcher is set
func (s *EnrichmentService) lookupProduct(ctx context.Context, analysis *domain.ProductAnalysis) (*domain.DatabaseMatch, error) {
	if s.cache == nil {
		return nil, nil
	}

	if code := ExtractProductCode(analysis.ExtractedText); code != "" {
		entry, err := s.cache.Get(ctx, code)
		switch {
		case err == nil:
			matchType := domain.MatchUPC
			if len(code) == 13 {
				matchType = domain.MatchEAN
			}
			return &domain.DatabaseMatch{Entry: *entry, MatchedBy: matchType, Key: code}, nil
		case !errors.Is(err, domain.ErrCacheMiss):
			return nil, fmt.Errorf("product lookup by code: %w", err)
		}
	}

	if analysis.HasBrand() && strings.TrimSpace(analysis.Attributes.Model) != "" {
		key := BrandModelKey(analysis.Brand.Name, analysis.Attributes.Model)
		entry, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			return &domain.DatabaseMatch{Entry: *entry, MatchedBy: domain.MatchBrandModel, Key: key}, nil
		case !errors.Is(err, domain.ErrCacheMiss):
			return nil, fmt.Errorf("product lookup by brand and model: %w", err)
		}
	}

	if s.matcher != nil {
		entries, err := s.cache.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("product lookup by similarity: %w", err)
		}
		return s.matcher.FindBestMatch(ctx, analysis, entries)
	}

	return nil, nil
}

// AddProductToCache stores an entry under each of its lookup keys
func (s *EnrichmentService) AddProductToCache(ctx context.Context, entry domain.ProductDatabaseEntry) (*domain.ProductDatabaseEntry, error) {
	keys := CacheKeysFor(entry)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: product needs a UPC, EAN or brand and model", domain.ErrInvalidRequest)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}

	if err := s.cache.Put(ctx, keys, entry); err != nil {
		return nil, fmt.Errorf("caching product: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"product_id": entry.ID, "keys": keys}).Info("product added to cache")
	return &entry, nil
}

// GetCachedProducts lists every cached product once
func (s *EnrichmentService) GetCachedProducts(ctx context.Context) ([]domain.ProductDatabaseEntry, error) {
	return s.cache.List(ctx)
}

// ClearCache removes every cached product
func (s *EnrichmentService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// ExtractProductCode returns the first 12-13 digit run found in the OCR text
func ExtractProductCode(texts []domain.ExtractedText) string {
	for _, t := range texts {
		if code := productCodePattern.FindString(t.Text); code != "" {
			return code
		}
	}
	return ""
}

// BrandModelKey builds the composite cache key for a brand and model
func BrandModelKey(brand, model string) string {
	return strings.ToLower(strings.TrimSpace(brand)) + ":" + strings.ToLower(strings.TrimSpace(model))
}

// CacheKeysFor lists the lookup keys an entry should be stored under
func CacheKeysFor(entry domain.ProductDatabaseEntry) []string {
	keys := make([]string, 0, 3)
	if upc := strings.TrimSpace(entry.UPC); upc != "" {
		keys = append(keys, upc)
	}
	if ean := strings.TrimSpace(entry.EAN); ean != "" {
		keys = append(keys, ean)
	}
	if strings.TrimSpace(entry.Brand) != "" && strings.TrimSpace(entry.Model) != "" {
		keys = append(keys, BrandModelKey(entry.Brand, entry.Model))
	}
	return keys
}

// conditionSentiment is the base sentiment for each condition
func conditionSentiment(c domain.Condition) float64 {
	switch c {
	case domain.ConditionNew:
		return 1.0
	case domain.ConditionLikeNew:
		return 0.8
	case domain.ConditionExcellent:
		return 0.6
	case domain.ConditionGood:
		return 0.4
	case domain.ConditionFair:
		return 0.2
	case domain.ConditionPoor:
		return -0.4
	case domain.ConditionForParts:
		return -0.8
	case domain.ConditionUnknown:
		return 0
	default:
		return 0
	}
}

func severityPenalty(s domain.DefectSeverity) float64 {
	switch s {
	case domain.SeverityMinor:
		return 0.05
	case domain.SeverityModerate:
		return 0.15
	case domain.SeveritySevere:
		return 0.3
	default:
		return 0
	}
}

// SentimentScore estimates how positively the condition and description read,
// in [-1, 1].
func SentimentScore(analysis *domain.ProductAnalysis) float64 {
	score := conditionSentiment(analysis.Condition)

	if analysis.Defects != nil {
		score -= float64(analysis.Defects.FlagCount()) * defectFlagPenalty
		score -= severityPenalty(analysis.Defects.Severity)
	}

	description := strings.ToLower(analysis.Description)
	for _, kw := range positiveKeywords {
		if strings.Contains(description, kw) {
			score += sentimentKeywordDelta
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(description, kw) {
			score -= sentimentKeywordDelta
		}
	}

	return math.Max(-1, math.Min(1, score))
}

// CompletenessScore weighs which expected fields are populated. It returns the
// score (0-100) and the names of missing fields.
func CompletenessScore(analysis *domain.ProductAnalysis) (int, []string) {
	type check struct {
		name      string
		weight    float64
		satisfied bool
	}

	attrs := analysis.Attributes
	critical := []check{
		{InfoProductType, weightFieldProductType, !isUnknownProductType(analysis.ProductType)},
		{InfoCondition, weightFieldCondition, analysis.Condition != domain.ConditionUnknown && analysis.Condition != ""},
		{InfoCategory, weightFieldCategory, isKnownCategory(analysis.Category.Primary)},
		{InfoDescription, weightFieldDescription, len(strings.TrimSpace(analysis.Description)) > minDescriptionLength},
		{InfoTitle, weightFieldTitle, strings.TrimSpace(analysis.SuggestedTitle) != ""},
	}
	optional := []check{
		{InfoBrand, weightFieldBrand, analysis.HasBrand()},
		{InfoColor, weightFieldColor, len(attrs.Color) > 0},
		{InfoModel, weightFieldModel, strings.TrimSpace(attrs.Model) != ""},
		{InfoSize, weightFieldSize, strings.TrimSpace(attrs.Size) != ""},
		{InfoMaterial, weightFieldMaterial, len(attrs.Material) > 0},
	}

	var total, completed float64
	missing := make([]string, 0)
	seen := make(map[string]bool)

	for _, group := range [][]check{critical, optional} {
		for _, c := range group {
			total += c.weight
			if c.satisfied {
				completed += c.weight
				continue
			}
			if !seen[c.name] {
				seen[c.name] = true
				missing = append(missing, c.name)
			}
		}
	}

	total += weightImageQuality
	if q := analysis.VisualQuality.ImageQuality; q == domain.ImageQualityGood || q == domain.ImageQualityExcellent {
		completed += weightImageQuality
	}
	total += weightFeatures
	if len(analysis.Features) > 0 {
		completed += weightFeatures
	}

	return int(math.Round(100 * completed / total)), missing
}

// ValidateEnriched decides whether an enriched analysis is good enough to
// publish. A minConfidence of 0 or less uses DefaultMinConfidence.
func (s *EnrichmentService) ValidateEnriched(enriched *domain.EnrichedProductAnalysis, minConfidence int) domain.ValidationResult {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	result := domain.ValidationResult{Errors: []string{}, Warnings: []string{}}
	data := enriched.EnrichmentData

	if data.AttributeConfidence.Overall < minConfidence {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Overall confidence %d is below the minimum of %d", data.AttributeConfidence.Overall, minConfidence))
	}
	if enriched.Condition == domain.ConditionUnknown {
		result.Errors = append(result.Errors, "Product condition could not be determined")
	}

	if data.CompletenessScore < completenessWarnThreshold {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Listing is only %d%% complete - add more product details", data.CompletenessScore))
	}
	if len(data.MissingCriticalInfo) > 0 {
		result.Warnings = append(result.Warnings, "Missing information: "+strings.Join(data.MissingCriticalInfo, ", "))
	}
	if enriched.VisualQuality.ImageQuality == domain.ImageQualityPoor {
		result.Warnings = append(result.Warnings, WarningPoorImageQuality)
	}
	result.Warnings = dedupeStrings(append(result.Warnings, data.Recommendations...))

	result.Valid = len(result.Errors) == 0
	return result
}

// ApplyDatabaseMatch overlays the matched product record on enriched and
// rescores confidence and recommendations against the merged analysis.
func (s *EnrichmentService) ApplyDatabaseMatch(enriched *domain.EnrichedProductAnalysis) {
	match := enriched.EnrichmentData.DatabaseMatch
	if match == nil {
		return
	}
	enriched.ProductAnalysis = MergeWithDatabaseEntry(&enriched.ProductAnalysis, &match.Entry)
	enriched.EnrichmentData.AttributeConfidence = s.scorer.Breakdown(&enriched.ProductAnalysis)
	enriched.EnrichmentData.Recommendations = s.scorer.Recommendations(&enriched.ProductAnalysis)
}

// MergeWithDatabaseEntry overlays a known product record on an analysis. The
// entry wins on collisions and overall confidence is raised to at least HIGH,
// never lowered.
func MergeWithDatabaseEntry(analysis *domain.ProductAnalysis, entry *domain.ProductDatabaseEntry) domain.ProductAnalysis {
	out := analysis.Clone()
	if entry == nil {
		return out
	}

	if entry.ProductType != "" {
		out.ProductType = entry.ProductType
	}
	if entry.Brand != "" {
		out.Brand = &domain.Brand{
			Name:       entry.Brand,
			Confidence: domain.ConfidenceHigh,
			Verified:   true,
		}
	}
	if entry.Category != nil && entry.Category.Primary != "" {
		out.Category = *entry.Category
		out.Category.Confidence = domain.ConfidenceHigh
	}
	if entry.Model != "" {
		out.Attributes.Model = entry.Model
	}
	if len(entry.CustomAttributes) > 0 {
		if out.Attributes.CustomAttributes == nil {
			out.Attributes.CustomAttributes = make(map[string]domain.AttributeValue, len(entry.CustomAttributes))
		}
		for k, v := range entry.CustomAttributes {
			out.Attributes.CustomAttributes[k] = v
		}
	}

	raised := max(LevelToScore(out.OverallConfidence), databaseConfidenceFloor)
	out.OverallConfidence = ScoreToLevel(raised)

	return out
}

func isKnownCategory(primary string) bool {
	trimmed := strings.TrimSpace(primary)
	return trimmed != "" && trimmed != UnknownCategory
}

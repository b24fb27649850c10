package usecase

import (
	"context"
	"testing"

	"github.com/listinglens/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnrichmentService() (*EnrichmentService, *fakeProductCache) {
	logger, _ := newTestLogger()
	cache := newFakeProductCache()
	return NewEnrichmentService(cache, NewConfidenceScorer(), logger), cache
}

func TestEnrichmentService_Enrich(t *testing.T) {
	ctx := context.Background()

	t.Run("nil analysis", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		_, err := svc.Enrich(ctx, nil, DefaultEnrichmentOptions())
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("leaves analysis unchanged and adds enrichment", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		a := phoneAnalysis()

		enriched, err := svc.Enrich(ctx, a, DefaultEnrichmentOptions())
		require.NoError(t, err)

		assert.Equal(t, *a, enriched.ProductAnalysis)
		data := enriched.EnrichmentData
		assert.Equal(t, NewConfidenceScorer().Breakdown(a), data.AttributeConfidence)
		assert.Equal(t, 100, data.CompletenessScore)
		assert.Empty(t, data.MissingCriticalInfo)
		assert.Nil(t, data.DatabaseMatch)
		require.NotNil(t, data.SentimentScore)
		assert.InDelta(t, 0.55, *data.SentimentScore, 1e-9)
	})

	t.Run("disabled steps are skipped", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		enriched, err := svc.Enrich(ctx, emptyAnalysis(), EnrichmentOptions{})
		require.NoError(t, err)

		assert.Nil(t, enriched.EnrichmentData.SentimentScore)
		assert.Zero(t, enriched.EnrichmentData.CompletenessScore)
		assert.Empty(t, enriched.EnrichmentData.MissingCriticalInfo)
	})

	t.Run("matches by UPC in extracted text", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		_, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{UPC: "012345678905", ProductType: "Smartphone"})
		require.NoError(t, err)

		a := phoneAnalysis()
		a.ExtractedText = append(a.ExtractedText, domain.ExtractedText{Text: "UPC 012345678905"})

		enriched, err := svc.Enrich(ctx, a, DefaultEnrichmentOptions())
		require.NoError(t, err)
		match := enriched.EnrichmentData.DatabaseMatch
		require.NotNil(t, match)
		assert.Equal(t, domain.MatchUPC, match.MatchedBy)
		assert.Equal(t, "012345678905", match.Key)
	})

	t.Run("matches by EAN in extracted text", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		_, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{EAN: "4006381333931"})
		require.NoError(t, err)

		a := phoneAnalysis()
		a.ExtractedText = []domain.ExtractedText{{Text: "EAN: 4006381333931"}}

		enriched, err := svc.Enrich(ctx, a, DefaultEnrichmentOptions())
		require.NoError(t, err)
		require.NotNil(t, enriched.EnrichmentData.DatabaseMatch)
		assert.Equal(t, domain.MatchEAN, enriched.EnrichmentData.DatabaseMatch.MatchedBy)
	})

	t.Run("falls back to brand and model", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		_, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{Brand: "Apple", Model: "iPhone 13", MSRP: 799})
		require.NoError(t, err)

		a := phoneAnalysis()
		a.ExtractedText = []domain.ExtractedText{{Text: "call 555123456789"}}

		enriched, err := svc.Enrich(ctx, a, DefaultEnrichmentOptions())
		require.NoError(t, err)
		match := enriched.EnrichmentData.DatabaseMatch
		require.NotNil(t, match)
		assert.Equal(t, domain.MatchBrandModel, match.MatchedBy)
		assert.Equal(t, "apple:iphone 13", match.Key)
		assert.Equal(t, 799.0, match.Entry.MSRP)
	})

	t.Run("cache backend failure is returned", func(t *testing.T) {
		svc, cache := newTestEnrichmentService()
		cache.getErr = errBackendDown

		_, err := svc.Enrich(ctx, phoneAnalysis(), DefaultEnrichmentOptions())
		assert.ErrorIs(t, err, errBackendDown)
	})

	t.Run("works without a cache", func(t *testing.T) {
		logger, _ := newTestLogger()
		svc := NewEnrichmentService(nil, nil, logger)

		enriched, err := svc.Enrich(ctx, phoneAnalysis(), DefaultEnrichmentOptions())
		require.NoError(t, err)
		assert.Nil(t, enriched.EnrichmentData.DatabaseMatch)
	})

	t.Run("logs at debug level", func(t *testing.T) {
		logger, hook := newTestLogger()
		logger.SetLevel(logrus.DebugLevel)
		svc := NewEnrichmentService(newFakeProductCache(), nil, logger)

		_, err := svc.Enrich(ctx, phoneAnalysis(), DefaultEnrichmentOptions())
		require.NoError(t, err)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "enriched product analysis", hook.LastEntry().Message)
	})
}

func TestExtractProductCode(t *testing.T) {
	tests := []struct {
		name  string
		texts []domain.ExtractedText
		want  string
	}{
		{"no text", nil, ""},
		{"upc", []domain.ExtractedText{{Text: "012345678905"}}, "012345678905"},
		{"ean inside text", []domain.ExtractedText{{Text: "Barcode 4006381333931 made in DE"}}, "4006381333931"},
		{"too short", []domain.ExtractedText{{Text: "12345678901"}}, ""},
		{"too long", []domain.ExtractedText{{Text: "12345678901234"}}, ""},
		{"first match wins", []domain.ExtractedText{{Text: "none"}, {Text: "111111111111"}, {Text: "222222222222"}}, "111111111111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractProductCode(tt.texts))
		})
	}
}

func TestSentimentScore(t *testing.T) {
	t.Run("new with glowing description", func(t *testing.T) {
		a := phoneAnalysis()
		a.Condition = domain.ConditionNew
		a.Description = "Brand new, pristine and flawless. Excellent premium phone."
		assert.Greater(t, SentimentScore(a), 0.5)
	})

	t.Run("poor with defects and negative description", func(t *testing.T) {
		a := phoneAnalysis()
		a.Condition = domain.ConditionPoor
		a.Defects = &domain.Defects{
			Scratches:    true,
			Dents:        true,
			MissingParts: true,
			Severity:     domain.SeveritySevere,
		}
		a.Description = "Cracked screen, dented frame, missing the charger. Sold as is."
		assert.Less(t, SentimentScore(a), 0.0)
	})

	t.Run("always within bounds", func(t *testing.T) {
		best := phoneAnalysis()
		best.Condition = domain.ConditionNew
		best.Description = ""
		for _, kw := range positiveKeywords {
			best.Description += kw + " "
		}
		assert.Equal(t, 1.0, SentimentScore(best))

		worst := phoneAnalysis()
		worst.Condition = domain.ConditionForParts
		worst.Defects = &domain.Defects{
			Scratches: true, Dents: true, Stains: true, Tears: true, MissingParts: true, Discoloration: true,
			Severity: domain.SeveritySevere,
		}
		worst.Description = ""
		for _, kw := range negativeKeywords {
			worst.Description += kw + " "
		}
		assert.Equal(t, -1.0, SentimentScore(worst))
	})

	t.Run("unknown condition starts at zero", func(t *testing.T) {
		a := emptyAnalysis()
		assert.Equal(t, 0.0, SentimentScore(a))
	})
}

func TestCompletenessScore(t *testing.T) {
	t.Run("fully populated", func(t *testing.T) {
		score, missing := CompletenessScore(phoneAnalysis())
		assert.GreaterOrEqual(t, score, 70)
		assert.Equal(t, 100, score)
		assert.Empty(t, missing)
	})

	t.Run("maximally empty", func(t *testing.T) {
		score, missing := CompletenessScore(emptyAnalysis())
		assert.Less(t, score, 50)
		assert.Equal(t, []string{
			InfoProductType, InfoCondition, InfoCategory, InfoDescription, InfoTitle,
			InfoBrand, InfoColor, InfoModel, InfoSize, InfoMaterial,
		}, missing)
	})

	t.Run("short description does not count", func(t *testing.T) {
		a := phoneAnalysis()
		a.Description = "Nice phone"
		score, missing := CompletenessScore(a)
		assert.Equal(t, 90, score) // 18 of 20
		assert.Equal(t, []string{InfoDescription}, missing)
	})

	t.Run("only optional fields missing", func(t *testing.T) {
		a := phoneAnalysis()
		a.Brand = nil
		a.Attributes = domain.Attributes{}
		score, missing := CompletenessScore(a)
		assert.Equal(t, 70, score) // 14 of 20
		assert.Equal(t, []string{InfoBrand, InfoColor, InfoModel, InfoSize, InfoMaterial}, missing)
	})
}

func TestEnrichmentService_ValidateEnriched(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestEnrichmentService()

	t.Run("strong product is valid", func(t *testing.T) {
		enriched, err := svc.Enrich(ctx, phoneAnalysis(), DefaultEnrichmentOptions())
		require.NoError(t, err)

		result := svc.ValidateEnriched(enriched, 0)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
	})

	t.Run("weak product fails with warnings", func(t *testing.T) {
		enriched, err := svc.Enrich(ctx, emptyAnalysis(), DefaultEnrichmentOptions())
		require.NoError(t, err)

		result := svc.ValidateEnriched(enriched, 50)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 2)
		assert.Contains(t, result.Errors[0], "below the minimum of 50")
		assert.Equal(t, "Product condition could not be determined", result.Errors[1])
		assert.Contains(t, result.Warnings, WarningPoorImageQuality)
		assert.Contains(t, result.Warnings, RecommendAddBrand)
		assert.Contains(t, result.Warnings[0], "% complete")
		assert.Contains(t, result.Warnings[1], "Missing information: Product type")
	})

	t.Run("warnings are de-duplicated", func(t *testing.T) {
		a := emptyAnalysis()
		a.VisualQuality.Recommendations = []string{WarningPoorImageQuality, WarningPoorImageQuality}
		enriched, err := svc.Enrich(ctx, a, DefaultEnrichmentOptions())
		require.NoError(t, err)

		result := svc.ValidateEnriched(enriched, 50)
		count := 0
		for _, w := range result.Warnings {
			if w == WarningPoorImageQuality {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("custom minimum confidence", func(t *testing.T) {
		enriched, err := svc.Enrich(ctx, phoneAnalysis(), DefaultEnrichmentOptions())
		require.NoError(t, err)

		result := svc.ValidateEnriched(enriched, 100)
		assert.False(t, result.Valid)
	})
}

func TestMergeWithDatabaseEntry(t *testing.T) {
	entry := &domain.ProductDatabaseEntry{
		ProductType: "Smartphone",
		Brand:       "Apple",
		Model:       "iPhone 13",
		Category:    &domain.Category{Primary: "Electronics", Secondary: "Cell Phones", Confidence: domain.ConfidenceLow},
		CustomAttributes: map[string]domain.AttributeValue{
			"storage": domain.TextValue("128GB"),
		},
	}

	t.Run("entry fields overwrite and confidence rises", func(t *testing.T) {
		a := emptyAnalysis()
		a.Attributes.CustomAttributes = map[string]domain.AttributeValue{
			"storage": domain.TextValue("64GB"),
			"color":   domain.TextValue("Blue"),
		}

		out := MergeWithDatabaseEntry(a, entry)

		assert.Equal(t, "Smartphone", out.ProductType)
		require.NotNil(t, out.Brand)
		assert.True(t, out.Brand.Verified)
		assert.Equal(t, domain.ConfidenceHigh, out.Brand.Confidence)
		assert.Equal(t, "Cell Phones", out.Category.Secondary)
		assert.Equal(t, domain.ConfidenceHigh, out.Category.Confidence)
		assert.Equal(t, "iPhone 13", out.Attributes.Model)
		assert.Equal(t, "128GB", out.Attributes.CustomAttributes["storage"].String())
		assert.Equal(t, "Blue", out.Attributes.CustomAttributes["color"].String())
		assert.Equal(t, domain.ConfidenceHigh, out.OverallConfidence)

		// input untouched
		assert.Equal(t, "64GB", a.Attributes.CustomAttributes["storage"].String())
		assert.Equal(t, domain.ConfidenceLow, a.OverallConfidence)
	})

	t.Run("never lowers confidence", func(t *testing.T) {
		out := MergeWithDatabaseEntry(phoneAnalysis(), &domain.ProductDatabaseEntry{Model: "iPhone 13 mini"})
		assert.Equal(t, domain.ConfidenceHigh, out.OverallConfidence)
		assert.Equal(t, "Apple", out.Brand.Name)
	})

	t.Run("nil entry returns a copy", func(t *testing.T) {
		a := phoneAnalysis()
		assert.Equal(t, *a, MergeWithDatabaseEntry(a, nil))
	})
}

func TestEnrichmentService_ApplyDatabaseMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed product is rescored", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		_, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{
			UPC:         "012345678905",
			ProductType: "Smartphone",
			Brand:       "Apple",
			Category:    &domain.Category{Primary: "Electronics"},
		})
		require.NoError(t, err)

		weak := phoneAnalysis()
		weak.Brand = nil
		weak.OverallConfidence = domain.ConfidenceLow
		weak.Category.Confidence = domain.ConfidenceLow
		weak.ConditionConfidence = domain.ConfidenceLow
		weak.ExtractedText = append(weak.ExtractedText, domain.ExtractedText{Text: "UPC 012345678905"})

		enriched, err := svc.Enrich(ctx, weak, DefaultEnrichmentOptions())
		require.NoError(t, err)
		require.NotNil(t, enriched.EnrichmentData.DatabaseMatch)
		before := enriched.EnrichmentData.AttributeConfidence
		require.Less(t, before.Overall, DefaultMinConfidence)
		assert.False(t, svc.ValidateEnriched(enriched, DefaultMinConfidence).Valid)

		svc.ApplyDatabaseMatch(enriched)

		after := enriched.EnrichmentData.AttributeConfidence
		assert.Equal(t, NewConfidenceScorer().Breakdown(&enriched.ProductAnalysis), after)
		assert.Greater(t, after.Overall, before.Overall)
		assert.Equal(t, 100, after.Brand)
		assert.True(t, svc.ValidateEnriched(enriched, DefaultMinConfidence).Valid)
	})

	t.Run("no match leaves the enrichment alone", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		enriched, err := svc.Enrich(ctx, phoneAnalysis(), DefaultEnrichmentOptions())
		require.NoError(t, err)
		want := *enriched

		svc.ApplyDatabaseMatch(enriched)
		assert.Equal(t, want, *enriched)
	})
}

func TestEnrichmentService_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("entry without keys is rejected", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		_, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{Brand: "Apple"})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("stored under every key with an id", func(t *testing.T) {
		svc, cache := newTestEnrichmentService()
		stored, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{
			UPC: "012345678905", EAN: "0012345678905", Brand: "Apple", Model: "iPhone 13",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.False(t, stored.AddedAt.IsZero())

		for _, key := range []string{"012345678905", "0012345678905", "apple:iphone 13"} {
			got, err := cache.Get(ctx, key)
			require.NoError(t, err, key)
			assert.Equal(t, stored.ID, got.ID)
		}

		products, err := svc.GetCachedProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		stored, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{ID: "sku-1", UPC: "012345678905"})
		require.NoError(t, err)
		assert.Equal(t, "sku-1", stored.ID)
	})

	t.Run("put failure is wrapped", func(t *testing.T) {
		svc, cache := newTestEnrichmentService()
		cache.putErr = errBackendDown
		_, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{UPC: "012345678905"})
		assert.ErrorIs(t, err, errBackendDown)
	})

	t.Run("clear empties the cache", func(t *testing.T) {
		svc, _ := newTestEnrichmentService()
		_, err := svc.AddProductToCache(ctx, domain.ProductDatabaseEntry{UPC: "012345678905"})
		require.NoError(t, err)

		require.NoError(t, svc.ClearCache(ctx))
		products, err := svc.GetCachedProducts(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestEnrichmentService_SimilarityFallback(t *testing.T) {
	ctx := context.Background()
	opts := EnrichmentOptions{EnableDatabaseLookup: true}

	misread := phoneAnalysis()
	misread.Brand.Name = "Aple"

	t.Run("matches when exact keys miss", func(t *testing.T) {
		svc, cache := newTestEnrichmentService()
		svc.UseMatcher(NewProductMatcher(MatcherConfig{}))
		entry := catalogEntry("iphone", "Apple", "iPhone 13", "Smartphone")
		require.NoError(t, cache.Put(ctx, []string{"apple:iphone 13"}, entry))

		enriched, err := svc.Enrich(ctx, misread, opts)
		require.NoError(t, err)

		match := enriched.EnrichmentData.DatabaseMatch
		require.NotNil(t, match)
		assert.Equal(t, domain.MatchSimilar, match.MatchedBy)
		assert.Equal(t, "iphone", match.Entry.ID)
		assert.Greater(t, match.Score, 60.0)
	})

	t.Run("exact keys only without a matcher", func(t *testing.T) {
		svc, cache := newTestEnrichmentService()
		entry := catalogEntry("iphone", "Apple", "iPhone 13", "Smartphone")
		require.NoError(t, cache.Put(ctx, []string{"apple:iphone 13"}, entry))

		enriched, err := svc.Enrich(ctx, misread, opts)
		require.NoError(t, err)
		assert.Nil(t, enriched.EnrichmentData.DatabaseMatch)
	})
}

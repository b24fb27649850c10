package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/listinglens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func structuredContent() *domain.GeneratedContent {
	return &domain.GeneratedContent{
		Kind: domain.ContentStructured,
		Structured: &domain.ListingContent{
			Title:         "Apple iPhone 13 128GB Blue Unlocked - Excellent Condition",
			Description:   "well kept iPhone 13.  always in a case!!",
			SellingPoints: []string{"Unlocked for any carrier", "Battery health 91%"},
			Hashtags:      []string{"#iphone"},
		},
	}
}

func newTestListingService(gen *fakeGenerator) (*ListingService, *EnrichmentService) {
	logger, _ := newTestLogger()
	enricher := NewEnrichmentService(newFakeProductCache(), NewConfidenceScorer(), logger)
	svc := NewListingService(
		NewMergeService(),
		enricher,
		gen,
		NewPostFormatter("en-US"),
		ListingServiceConfig{Enrichment: DefaultEnrichmentOptions()},
		logger,
	)
	return svc, enricher
}

func TestListingService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("nil request", func(t *testing.T) {
		svc, _ := newTestListingService(&fakeGenerator{})
		_, err := svc.Generate(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("runs the full pipeline", func(t *testing.T) {
		gen := &fakeGenerator{content: structuredContent()}
		svc, _ := newTestListingService(gen)

		listing, err := svc.Generate(ctx, &ListingRequest{
			Analysis: *phoneAnalysis(),
			Details: &domain.UserProvidedDetails{
				Condition: domain.ConditionExcellent,
				Notes:     "Includes charger",
			},
			Platform: domain.PlatformEbay,
			Price:    450,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.ConditionExcellent, listing.Merged.Condition)
		assert.Equal(t, domain.SourceUser, listing.Merged.DataSources[domain.FieldCondition])
		assert.Equal(t, domain.ConditionExcellent, listing.Enriched.Condition)
		assert.True(t, listing.Validation.Valid)

		assert.Equal(t, domain.ToneProfessional, gen.lastPrompt.Tone)
		assert.Equal(t, domain.StyleDetailed, gen.lastPrompt.Style)
		assert.Equal(t, domain.PlatformEbay, gen.lastPrompt.Platform)
		assert.Equal(t, "Includes charger", gen.lastPrompt.Notes)
		assert.Equal(t, 450.0, gen.lastPrompt.Price)

		require.NotNil(t, listing.Post)
		desc := listing.Post.Description
		assert.True(t, strings.HasPrefix(desc, "📱 💻 🔌 Well kept iPhone 13. Always in a case!"), desc)
		assert.Contains(t, desc, "• Unlocked for any carrier\n• Battery health 91%")
		assert.Contains(t, desc, "Price: $450")
		assert.True(t, strings.HasSuffix(desc, domain.PlatformEbay.CallToAction()))
		assert.True(t, listing.Post.TitleValidation.Valid)
	})

	t.Run("caller format options win", func(t *testing.T) {
		gen := &fakeGenerator{content: structuredContent()}
		svc, _ := newTestListingService(gen)

		listing, err := svc.Generate(ctx, &ListingRequest{
			Analysis:      *phoneAnalysis(),
			FormatOptions: &domain.FormatOptions{CallToAction: "DM me", SellingPoints: []string{"Mine"}},
		})
		require.NoError(t, err)
		require.NotNil(t, listing.Post)
		assert.Equal(t, "Well kept iPhone 13. Always in a case!\n\n• Mine\n\nDM me", listing.Post.Description)
	})

	t.Run("raw model output skips formatting", func(t *testing.T) {
		gen := &fakeGenerator{content: &domain.GeneratedContent{Kind: domain.ContentRaw, Raw: "not json"}}
		svc, _ := newTestListingService(gen)

		listing, err := svc.Generate(ctx, &ListingRequest{Analysis: *phoneAnalysis()})
		require.NoError(t, err)
		assert.Nil(t, listing.Post)
		assert.Equal(t, "not json", listing.Content.Raw)
	})

	t.Run("database match is applied before generation", func(t *testing.T) {
		gen := &fakeGenerator{content: structuredContent()}
		svc, enricher := newTestListingService(gen)
		_, err := enricher.AddProductToCache(ctx, domain.ProductDatabaseEntry{
			Brand: "Apple", Model: "iPhone 13", ProductType: "Apple Smartphone",
		})
		require.NoError(t, err)

		listing, err := svc.Generate(ctx, &ListingRequest{Analysis: *phoneAnalysis()})
		require.NoError(t, err)
		assert.Equal(t, "Apple Smartphone", listing.Enriched.ProductType)
		assert.Equal(t, "Apple Smartphone", gen.lastPrompt.Product.ProductType)
		assert.Equal(t, "Smartphone", listing.Merged.ProductType)
	})

	t.Run("database confirmed product passes validation", func(t *testing.T) {
		gen := &fakeGenerator{content: structuredContent()}
		svc, enricher := newTestListingService(gen)
		_, err := enricher.AddProductToCache(ctx, domain.ProductDatabaseEntry{
			UPC: "012345678905", Brand: "Apple", ProductType: "Smartphone",
		})
		require.NoError(t, err)

		weak := phoneAnalysis()
		weak.Brand = nil
		weak.OverallConfidence = domain.ConfidenceLow
		weak.Category.Confidence = domain.ConfidenceLow
		weak.ConditionConfidence = domain.ConfidenceLow
		weak.ExtractedText = append(weak.ExtractedText, domain.ExtractedText{Text: "UPC 012345678905"})

		listing, err := svc.Generate(ctx, &ListingRequest{Analysis: *weak})
		require.NoError(t, err)
		require.NotNil(t, listing.Enriched.EnrichmentData.DatabaseMatch)
		assert.GreaterOrEqual(t, listing.Enriched.EnrichmentData.AttributeConfidence.Overall, DefaultMinConfidence)
		assert.True(t, listing.Validation.Valid, listing.Validation.Errors)
	})

	t.Run("weak product still generates with validation errors", func(t *testing.T) {
		gen := &fakeGenerator{content: structuredContent()}
		svc, _ := newTestListingService(gen)

		listing, err := svc.Generate(ctx, &ListingRequest{Analysis: *emptyAnalysis()})
		require.NoError(t, err)
		assert.False(t, listing.Validation.Valid)
		assert.NotEmpty(t, listing.Validation.Errors)
	})

	t.Run("rejects unknown tone", func(t *testing.T) {
		gen := &fakeGenerator{content: structuredContent()}
		svc, _ := newTestListingService(gen)

		_, err := svc.Generate(ctx, &ListingRequest{Analysis: *phoneAnalysis(), Tone: "sarcastic"})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.Zero(t, gen.calls)
	})

	t.Run("generator failure is wrapped", func(t *testing.T) {
		svc, _ := newTestListingService(&fakeGenerator{err: errBackendDown})

		_, err := svc.Generate(ctx, &ListingRequest{Analysis: *phoneAnalysis()})
		assert.ErrorIs(t, err, domain.ErrTextAPIFailure)
	})

	t.Run("classified generator failure passes through", func(t *testing.T) {
		svcErr := &domain.ServiceError{Code: domain.CodeQuotaExceeded, Message: "quota", Kind: domain.ErrTextAPIFailure}
		svc, _ := newTestListingService(&fakeGenerator{err: svcErr})

		_, err := svc.Generate(ctx, &ListingRequest{Analysis: *phoneAnalysis()})
		assert.Same(t, svcErr, err)
	})
}

func TestListingService_Regenerate(t *testing.T) {
	ctx := context.Background()
	current := domain.ListingContent{
		Title:         "Old title",
		Description:   "Old description",
		SellingPoints: []string{"Old point"},
	}

	tests := []struct {
		element   string
		generated domain.ListingContent
		want      domain.ListingContent
	}{
		{
			element:   "title",
			generated: domain.ListingContent{Title: "New title"},
			want:      domain.ListingContent{Title: "New title", Description: "Old description", SellingPoints: []string{"Old point"}},
		},
		{
			element:   "description",
			generated: domain.ListingContent{Description: "New description"},
			want:      domain.ListingContent{Title: "Old title", Description: "New description", SellingPoints: []string{"Old point"}},
		},
		{
			element:   "sellingPoints",
			generated: domain.ListingContent{SellingPoints: []string{"A", "B"}},
			want:      domain.ListingContent{Title: "Old title", Description: "Old description", SellingPoints: []string{"A", "B"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.element, func(t *testing.T) {
			gen := &fakeGenerator{element: &tt.generated}
			svc, _ := newTestListingService(gen)

			got, err := svc.Regenerate(ctx, &RegenerateRequest{
				ListingRequest: ListingRequest{Analysis: *phoneAnalysis(), Tone: domain.ToneCasual},
				Element:        tt.element,
				Current:        current,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, domain.RegenerateElement(tt.element), gen.lastElement)
			assert.Equal(t, domain.ToneCasual, gen.lastPrompt.Tone)
		})
	}

	t.Run("unknown element", func(t *testing.T) {
		gen := &fakeGenerator{}
		svc, _ := newTestListingService(gen)

		_, err := svc.Regenerate(ctx, &RegenerateRequest{
			ListingRequest: ListingRequest{Analysis: *phoneAnalysis()},
			Element:        "hashtags",
		})
		assert.ErrorIs(t, err, domain.ErrUnknownElement)
		assert.Contains(t, err.Error(), `"hashtags"`)
		assert.Zero(t, gen.calls)
	})

	t.Run("nil request", func(t *testing.T) {
		svc, _ := newTestListingService(&fakeGenerator{})
		_, err := svc.Regenerate(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

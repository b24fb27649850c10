package gemini

import (
	"context"
	"testing"

	"github.com/listinglens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testPrompt() domain.ListingPrompt {
	return domain.ListingPrompt{
		Product: domain.EnrichedProductAnalysis{
			ProductAnalysis: domain.ProductAnalysis{
				ProductType: "Smartphone",
				Category:    domain.Category{Primary: "Electronics", Secondary: "Smartphones"},
				Brand:       &domain.Brand{Name: "Apple"},
				Condition:   domain.ConditionLikeNew,
				Attributes: domain.Attributes{
					Model:            "iPhone 13",
					Color:            []string{"Blue"},
					CustomAttributes: map[string]domain.AttributeValue{"storage": domain.TextValue("128GB")},
				},
				Defects: &domain.Defects{Scratches: true},
			},
		},
		Notes:    "Includes charger",
		Tone:     domain.ToneLuxury,
		Style:    domain.StyleConcise,
		Platform: domain.PlatformPoshmark,
		Price:    450,
	}
}

func TestBuildListingPrompt(t *testing.T) {
	prompt := buildListingPrompt(testPrompt())

	for _, want := range []string{
		"Write a resale listing for Poshmark.",
		"- Product: Smartphone",
		"- Brand: Apple",
		"- Model: iPhone 13",
		"- Category: Electronics > Smartphones",
		"- Condition: Like New",
		"- Color: Blue",
		"- storage: 128GB",
		"- Defects: visible wear",
		"- Seller notes: Includes charger",
		"- Asking price: 450.00",
		domain.ToneLuxury.PromptHint(),
		domain.StyleConcise.PromptHint(),
		"50 to 80 characters",
		"200 to 500 words",
	} {
		assert.Contains(t, prompt, want)
	}
}

func TestClient_GenerateListing(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse(
			"Here you go:\n```json\n{\"title\": \" Apple iPhone 13 \", \"description\": \"Great phone.\", \"sellingPoints\": [\"Unlocked\"], \"hashtags\": [\"#iphone\"]}\n```",
		)}}
		c := newTestClient(gen)

		got, err := c.GenerateListing(context.Background(), testPrompt())
		require.NoError(t, err)
		assert.Equal(t, domain.ContentStructured, got.Kind)
		require.NotNil(t, got.Structured)
		assert.Equal(t, domain.ListingContent{
			Title:         "Apple iPhone 13",
			Description:   "Great phone.",
			SellingPoints: []string{"Unlocked"},
			Hashtags:      []string{"#iphone"},
		}, *got.Structured)
		assert.Equal(t, DefaultTextModel, gen.calls[0].model)
	})

	t.Run("raw fallback", func(t *testing.T) {
		gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse("Apple iPhone 13 - great phone")}}
		c := newTestClient(gen)

		got, err := c.GenerateListing(context.Background(), testPrompt())
		require.NoError(t, err)
		assert.Equal(t, domain.ContentRaw, got.Kind)
		assert.Nil(t, got.Structured)
		assert.Equal(t, "Apple iPhone 13 - great phone", got.Raw)
	})

	t.Run("json without copy is raw", func(t *testing.T) {
		gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse(`{"hashtags": ["#a"]}`)}}
		c := newTestClient(gen)

		got, err := c.GenerateListing(context.Background(), testPrompt())
		require.NoError(t, err)
		assert.Equal(t, domain.ContentRaw, got.Kind)
	})

	t.Run("upstream failure", func(t *testing.T) {
		gen := &fakeGenerator{err: context.DeadlineExceeded}
		c := newTestClient(gen)

		_, err := c.GenerateListing(context.Background(), testPrompt())
		assert.ErrorIs(t, err, domain.ErrTextAPIFailure)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_GenerateElement(t *testing.T) {
	current := domain.ListingContent{Title: "Old title", Description: "Old description", SellingPoints: []string{"Old"}}

	tests := []struct {
		name     string
		element  domain.RegenerateElement
		response string
		want     domain.ListingContent
	}{
		{
			name:     "title json",
			element:  domain.ElementTitle,
			response: `{"title": "Apple iPhone 13 128GB", "description": "ignored"}`,
			want:     domain.ListingContent{Title: "Apple iPhone 13 128GB"},
		},
		{
			name:     "title plain text",
			element:  domain.ElementTitle,
			response: "\n\"Apple iPhone 13 128GB\"\n",
			want:     domain.ListingContent{Title: "Apple iPhone 13 128GB"},
		},
		{
			name:     "description json",
			element:  domain.ElementDescription,
			response: `{"description": "A fresh description."}`,
			want:     domain.ListingContent{Description: "A fresh description."},
		},
		{
			name:     "selling points list",
			element:  domain.ElementSellingPoints,
			response: "- Unlocked\n2. 128GB storage\n• Battery health 91%\n",
			want:     domain.ListingContent{SellingPoints: []string{"Unlocked", "128GB storage", "Battery health 91%"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse(tt.response)}}
			c := newTestClient(gen)

			got, err := c.GenerateElement(context.Background(), tt.element, testPrompt(), current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)

			prompt := gen.calls[0].contents[0].Parts[0].Text
			assert.Contains(t, prompt, "Title: Old title")
			assert.Contains(t, prompt, "Selling points: Old")
		})
	}

	t.Run("empty element", func(t *testing.T) {
		gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse(`{"title": ""}`)}}
		c := newTestClient(gen)

		_, err := c.GenerateElement(context.Background(), domain.ElementTitle, testPrompt(), current)
		var svcErr *domain.ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, domain.CodeInvalidResponse, svcErr.Code)
		assert.ErrorIs(t, err, domain.ErrTextAPIFailure)
	})
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Sure! {\"a\":{\"b\":2}} Hope that helps", `{"a":{"b":2}}`},
		{"no object", "hello", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

package gemini

import (
	"context"

	"github.com/listinglens/backend/internal/domain"
	"google.golang.org/genai"
)

// GenerateListing writes the title, description and selling points for a
// product. Output that is not valid JSON is returned as raw text.
func (c *Client) GenerateListing(ctx context.Context, prompt domain.ListingPrompt) (*domain.GeneratedContent, error) {
	text, err := c.generate(ctx, "listing", c.config.TextModel, textContents(buildListingPrompt(prompt)), textConfig(0.7), domain.ErrTextAPIFailure)
	if err != nil {
		return nil, err
	}

	if content, ok := parseListing(text); ok {
		return &domain.GeneratedContent{Kind: domain.ContentStructured, Structured: content}, nil
	}

	c.logger.WithField("response_length", len(text)).Warn("listing response was not structured, returning raw text")
	return &domain.GeneratedContent{Kind: domain.ContentRaw, Raw: text}, nil
}

// GenerateElement rewrites a single element of an existing listing
func (c *Client) GenerateElement(ctx context.Context, element domain.RegenerateElement, prompt domain.ListingPrompt, current domain.ListingContent) (*domain.ListingContent, error) {
	text, err := c.generate(ctx, "regenerate", c.config.TextModel, textContents(buildElementPrompt(element, prompt, current)), textConfig(0.9), domain.ErrTextAPIFailure)
	if err != nil {
		return nil, err
	}

	content, ok := parseElement(element, text)
	if !ok {
		return nil, &domain.ServiceError{
			Code:    domain.CodeInvalidResponse,
			Message: "text model returned an empty " + elementName(element),
			Kind:    domain.ErrTextAPIFailure,
		}
	}
	return content, nil
}

func textContents(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

func textConfig(temperature float32) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		ResponseMIMEType: "application/json",
	}
}

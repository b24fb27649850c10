package gemini

import (
	"context"

	"github.com/listinglens/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// AnalyzeImage asks the vision model to identify the product in an image
func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*domain.ProductAnalysis, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(imageData, mimeType),
			genai.NewPartFromText(visionPrompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
	}

	text, err := c.generate(ctx, "vision", c.config.VisionModel, contents, config, domain.ErrVisionAPIFailure)
	if err != nil {
		return nil, err
	}

	analysis, err := parseAnalysis(text, c.now())
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"response_length": len(text),
		}).WithError(err).Warn("could not parse vision response")
		return nil, &domain.ServiceError{
			Code:    domain.CodeInvalidResponse,
			Message: "vision model returned malformed JSON",
			Kind:    domain.ErrVisionAPIFailure,
			Err:     err,
		}
	}

	return analysis, nil
}

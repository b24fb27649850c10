package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/listinglens/backend/internal/domain"
	"github.com/listinglens/backend/internal/infrastructure/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultVisionModel       = "gemini-2.5-flash"
	DefaultTextModel         = "gemini-2.5-flash"
	DefaultRequestsPerMinute = 60
	DefaultTimeout           = 60 * time.Second
)

// ContentGenerator is the part of the genai Models service the client uses
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Gemini client
type Config struct {
	APIKey            string
	VisionModel       string
	TextModel         string
	RequestsPerMinute int
	Timeout           time.Duration
}

func (c Config) withDefaults() Config {
	if c.VisionModel == "" {
		c.VisionModel = DefaultVisionModel
	}
	if c.TextModel == "" {
		c.TextModel = DefaultTextModel
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	return c
}

// Client talks to Gemini for both product identification and listing copy.
// It implements domain.VisionAnalyzer and domain.ListingGenerator. Calls are
// not retried; failures are returned as *domain.ServiceError so callers can
// decide.
type Client struct {
	models      ContentGenerator
	config      Config
	rateLimiter *rate.Limiter
	metrics     *metrics.Metrics
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, cfg Config, m *metrics.Metrics, logger logrus.FieldLogger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return NewClientWithGenerator(genaiClient.Models, cfg, m, logger), nil
}

// NewClientWithGenerator builds a client on top of an existing generator
func NewClientWithGenerator(models ContentGenerator, cfg Config, m *metrics.Metrics, logger logrus.FieldLogger) *Client {
	cfg = cfg.withDefaults()

	// Spread requests evenly across the minute with a small burst
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = max(1, cfg.RequestsPerMinute/10)
	}

	return &Client{
		models:      models,
		config:      cfg,
		rateLimiter: rate.NewLimiter(limit, burst),
		metrics:     m,
		logger:      logger.WithField("component", "gemini"),
		now:         time.Now,
	}
}

// generate sends one request and returns the concatenated response text.
// kind is the sentinel attached to any classified failure.
func (c *Client) generate(ctx context.Context, operation, model string, contents []*genai.Content, config *genai.GenerateContentConfig, kind error) (string, error) {
	start := time.Now()
	text, err := c.doGenerate(ctx, model, contents, config, kind)

	code := "OK"
	if err != nil {
		code = err.Code
	}
	c.metrics.ObserveModelCall(operation, code, time.Since(start))

	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"model":     model,
			"code":      err.Code,
			"retryable": err.Retryable,
		}).WithError(err.Err).Warn("model request failed")
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"operation": operation,
		"model":     model,
		"elapsed":   time.Since(start).String(),
	}).Debug("model request complete")
	return text, nil
}

func (c *Client) doGenerate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig, kind error) (string, *domain.ServiceError) {
	// Wait for rate limiter
	if err := c.rateLimiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", classifyError(ctx.Err(), kind)
		}
		return "", &domain.ServiceError{
			Code:      domain.CodeRateLimited,
			Message:   "local request rate limit reached",
			Retryable: true,
			Kind:      kind,
			Err:       err,
		}
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", classifyError(err, kind)
	}

	text, svcErr := responseText(resp, kind)
	if svcErr != nil {
		return "", svcErr
	}
	return text, nil
}

// responseText collects the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse, kind error) (string, *domain.ServiceError) {
	if resp == nil {
		return "", invalidResponse(kind, "empty response")
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", &domain.ServiceError{
				Code:    domain.CodeSafetyBlocked,
				Message: fmt.Sprintf("request blocked: %s", resp.PromptFeedback.BlockReason),
				Kind:    kind,
			}
		}
		return "", invalidResponse(kind, "response has no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", &domain.ServiceError{
			Code:    domain.CodeSafetyBlocked,
			Message: "response blocked by safety filters",
			Kind:    kind,
		}
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", invalidResponse(kind, "response has no text")
	}
	return text.String(), nil
}

func invalidResponse(kind error, message string) *domain.ServiceError {
	return &domain.ServiceError{
		Code:    domain.CodeInvalidResponse,
		Message: message,
		Kind:    kind,
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/listinglens/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// ListingServiceConfig holds configuration for the listing service
type ListingServiceConfig struct {
	MinConfidence int
	Enrichment    EnrichmentOptions
}

// ListingRequest is everything needed to write a listing for one product
type ListingRequest struct {
	Analysis      domain.ProductAnalysis      `json:"analysis"`
	Details       *domain.UserProvidedDetails `json:"details,omitempty"`
	MergeOptions  *MergeOptions               `json:"mergeOptions,omitempty"`
	Tone          domain.Tone                 `json:"tone,omitempty"`
	Style         domain.Style                `json:"style,omitempty"`
	Platform      domain.Platform             `json:"platform,omitempty"`
	Price         float64                     `json:"price,omitempty"`
	FormatOptions *domain.FormatOptions       `json:"formatOptions,omitempty"`
}

// DefaultFormatOptions are the post options used when a listing request
// carries none
func DefaultFormatOptions() domain.FormatOptions {
	return domain.FormatOptions{IncludeEmojis: true}
}

// RegenerateRequest asks for one element of an existing listing to be rewritten
type RegenerateRequest struct {
	ListingRequest
	Element string                `json:"element"`
	Current domain.ListingContent `json:"current"`
}

// ListingService runs the full pipeline: merge, enrich, generate, format
type ListingService struct {
	merger    *MergeService
	enricher  *EnrichmentService
	generator domain.ListingGenerator
	formatter *PostFormatter
	config    ListingServiceConfig
	logger    logrus.FieldLogger
}

// NewListingService creates a new listing service with dependencies
func NewListingService(
	merger *MergeService,
	enricher *EnrichmentService,
	generator domain.ListingGenerator,
	formatter *PostFormatter,
	config ListingServiceConfig,
	logger logrus.FieldLogger,
) *ListingService {
	if config.MinConfidence <= 0 {
		config.MinConfidence = DefaultMinConfidence
	}
	return &ListingService{
		merger:    merger,
		enricher:  enricher,
		generator: generator,
		formatter: formatter,
		config:    config,
		logger:    logger,
	}
}

// Generate writes a marketplace listing for an analyzed product.
// Flow: merge user details -> enrich -> apply database match -> validate -> generate -> format
func (s *ListingService) Generate(ctx context.Context, req *ListingRequest) (*domain.GeneratedListing, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}

	prompt, merged, enriched, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	validation := s.enricher.ValidateEnriched(enriched, s.config.MinConfidence)

	content, err := s.generator.GenerateListing(ctx, *prompt)
	if err != nil {
		return nil, wrapTextError(err)
	}

	listing := &domain.GeneratedListing{
		Merged:     *merged,
		Enriched:   *enriched,
		Validation: validation,
		Content:    *content,
	}

	if content.Kind == domain.ContentStructured && content.Structured != nil {
		post := s.formatter.FormatMarketplacePost(
			content.Structured.Title,
			content.Structured.Description,
			s.formatOptions(req, enriched, content.Structured),
		)
		listing.Post = &post
	} else {
		s.logger.WithField("product_type", enriched.ProductType).Warn("listing model returned unstructured content")
	}

	s.logger.WithFields(logrus.Fields{
		"product_type": enriched.ProductType,
		"platform":     prompt.Platform,
		"valid":        validation.Valid,
		"content_kind": content.Kind,
	}).Info("listing generated")

	return listing, nil
}

// Regenerate rewrites one element of a listing and returns the full content
// with that element replaced. An unrecognized element name fails with
// domain.ErrUnknownElement before any model call.
func (s *ListingService) Regenerate(ctx context.Context, req *RegenerateRequest) (*domain.ListingContent, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}

	element, err := domain.ParseRegenerateElement(req.Element)
	if err != nil {
		return nil, err
	}

	prompt, _, _, err := s.prepare(ctx, &req.ListingRequest)
	if err != nil {
		return nil, err
	}

	generated, err := s.generator.GenerateElement(ctx, element, *prompt, req.Current)
	if err != nil {
		return nil, wrapTextError(err)
	}

	updated := req.Current
	switch element {
	case domain.ElementTitle:
		updated.Title = generated.Title
	case domain.ElementDescription:
		updated.Description = generated.Description
	case domain.ElementSellingPoints:
		updated.SellingPoints = generated.SellingPoints
	}

	s.logger.WithField("element", element).Info("listing element regenerated")
	return &updated, nil
}

// prepare merges and enriches the request product and builds the model prompt
func (s *ListingService) prepare(
	ctx context.Context,
	req *ListingRequest,
) (*domain.ListingPrompt, *domain.MergedProductData, *domain.EnrichedProductAnalysis, error) {
	tone, style, platform, err := resolveVoice(req)
	if err != nil {
		return nil, nil, nil, err
	}

	mergeOpts := DefaultMergeOptions()
	if req.MergeOptions != nil {
		mergeOpts = *req.MergeOptions
	}
	merged := s.merger.Merge(&req.Analysis, req.Details, mergeOpts)

	enriched, err := s.enricher.Enrich(ctx, &merged.ProductAnalysis, s.config.Enrichment)
	if err != nil {
		return nil, nil, nil, err
	}
	s.enricher.ApplyDatabaseMatch(enriched)

	prompt := &domain.ListingPrompt{
		Product:  *enriched,
		Tone:     tone,
		Style:    style,
		Platform: platform,
		Price:    req.Price,
	}
	if req.Details != nil {
		prompt.Notes = req.Details.Notes
	}

	return prompt, merged, enriched, nil
}

// formatOptions fills the caller's format options with product defaults
func (s *ListingService) formatOptions(
	req *ListingRequest,
	enriched *domain.EnrichedProductAnalysis,
	content *domain.ListingContent,
) domain.FormatOptions {
	opts := DefaultFormatOptions()
	if req.FormatOptions != nil {
		opts = *req.FormatOptions
	}

	if opts.Category == "" {
		opts.Category = enriched.Category.Primary
	}
	if opts.Condition == "" {
		opts.Condition = enriched.Condition
	}
	if len(opts.SellingPoints) == 0 {
		opts.SellingPoints = content.SellingPoints
	}
	if opts.Price == 0 {
		opts.Price = req.Price
	}
	if opts.CallToAction == "" {
		opts.CallToAction = req.Platform.CallToAction()
	}
	return opts
}

// resolveVoice applies defaults and rejects unknown tone, style or platform
func resolveVoice(req *ListingRequest) (domain.Tone, domain.Style, domain.Platform, error) {
	tone, style, platform := req.Tone, req.Style, req.Platform
	if tone == "" {
		tone = domain.ToneProfessional
	}
	if style == "" {
		style = domain.StyleDetailed
	}
	if platform == "" {
		platform = domain.PlatformGeneric
	}

	switch {
	case !tone.Valid():
		return "", "", "", fmt.Errorf("%w: unknown tone %q", domain.ErrInvalidRequest, tone)
	case !style.Valid():
		return "", "", "", fmt.Errorf("%w: unknown style %q", domain.ErrInvalidRequest, style)
	case !platform.Valid():
		return "", "", "", fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidRequest, platform)
	}
	return tone, style, platform, nil
}

// wrapTextError tags unclassified generator failures with ErrTextAPIFailure
func wrapTextError(err error) error {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTextAPIFailure, err)
}

package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/listinglens/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 4

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	MaxUploadSize    int64
	BatchConcurrency int
}

// ImageUpload is one photo as received from the client
type ImageUpload struct {
	Filename    string
	ContentType string // as declared by the client, may be empty
	Data        []byte
}

// AnalysisResult is the vision analysis of one photo
type AnalysisResult struct {
	Analysis *domain.ProductAnalysis `json:"analysis"`
	ImageURL string                  `json:"imageUrl,omitempty"`
}

// BatchItemResult is the outcome for one photo of a batch. Exactly one of
// Result and Error is set.
type BatchItemResult struct {
	Index    int             `json:"index"`
	Filename string          `json:"filename"`
	Result   *AnalysisResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Code     string          `json:"code,omitempty"`
}

// AnalysisService validates uploads, stores them and runs vision analysis
type AnalysisService struct {
	analyzer    domain.VisionAnalyzer
	store       domain.ImageStore
	validator   *UploadValidator
	concurrency int
	logger      logrus.FieldLogger
}

// NewAnalysisService creates an analysis service. store may be nil when
// image storage is disabled.
func NewAnalysisService(
	analyzer domain.VisionAnalyzer,
	store domain.ImageStore,
	config AnalysisServiceConfig,
	logger logrus.FieldLogger,
) *AnalysisService {
	concurrency := config.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	return &AnalysisService{
		analyzer:    analyzer,
		store:       store,
		validator:   NewUploadValidator(config.MaxUploadSize),
		concurrency: concurrency,
		logger:      logger,
	}
}

// MaxUploadSize returns the per-image size limit in bytes
func (s *AnalysisService) MaxUploadSize() int64 {
	return s.validator.MaxSize()
}

// Analyze validates one photo, stores it when storage is enabled and asks the
// vision model what it shows.
// Flow: validate -> store (best effort) -> analyze -> return
func (s *AnalysisService) Analyze(ctx context.Context, upload ImageUpload) (*AnalysisResult, error) {
	if err := s.validator.ValidateDeclaredType(upload.ContentType); err != nil {
		return nil, err
	}
	image, err := s.validator.Validate(upload.Filename, upload.Data)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{}

	if s.store != nil {
		key := fmt.Sprintf("products/%s%s", uuid.New().String(), image.Extension)
		url, err := s.store.Upload(ctx, key, image.Data, image.MIMEType)
		if err != nil {
			// Storage is optional, the analysis still goes ahead
			s.logger.WithError(err).WithField("key", key).Warn("failed to store product image")
		} else {
			result.ImageURL = url
		}
	}

	analysis, err := s.analyzer.AnalyzeImage(ctx, image.Data, image.MIMEType)
	if err != nil {
		var svcErr *domain.ServiceError
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrVisionAPIFailure, err)
	}

	result.Analysis = analysis
	return result, nil
}

// AnalyzeBatch analyzes photos concurrently. Each photo fails independently
// and results keep the input order.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, uploads []ImageUpload) []BatchItemResult {
	results := make([]BatchItemResult, len(uploads))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, upload := range uploads {
		g.Go(func() error {
			item := BatchItemResult{Index: i, Filename: upload.Filename}

			result, err := s.Analyze(ctx, upload)
			if err != nil {
				item.Error = err.Error()
				var svcErr *domain.ServiceError
				if errors.As(err, &svcErr) {
					item.Code = svcErr.Code
				}
				s.logger.WithError(err).WithField("filename", upload.Filename).Warn("batch item analysis failed")
			} else {
				item.Result = result
			}

			results[i] = item
			return nil
		})
	}

	_ = g.Wait()

	s.logger.WithField("count", len(uploads)).Info("batch analysis complete")
	return results
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/listinglens/backend/internal/domain"
	"github.com/listinglens/backend/internal/infrastructure/metrics"
	"github.com/listinglens/backend/internal/usecase"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBatchSize caps the number of photos in one batch request
const DefaultMaxBatchSize = 10

// Services are the use cases exposed over HTTP
type Services struct {
	Analysis   *usecase.AnalysisService
	Listings   *usecase.ListingService
	Merge      *usecase.MergeService
	Enrichment *usecase.EnrichmentService
	Formatter  *usecase.PostFormatter
}

// HandlerConfig holds request defaults
type HandlerConfig struct {
	MinConfidence int
	Enrichment    usecase.EnrichmentOptions
	MaxBatchSize  int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	services Services
	config   HandlerConfig
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, config HandlerConfig, m *metrics.Metrics, logger logrus.FieldLogger) *Handler {
	if config.MinConfidence <= 0 {
		config.MinConfidence = usecase.DefaultMinConfidence
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = DefaultMaxBatchSize
	}
	return &Handler{
		services: services,
		config:   config,
		metrics:  m,
		logger:   logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "listinglens-backend",
		"version": "1.0.0",
	})
}

// AnalyzeImage identifies the product in one uploaded photo. An optional
// "details" form field holds UserProvidedDetails JSON; when present the
// merged record is returned as well.
func (h *Handler) AnalyzeImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	var details *domain.UserProvidedDetails
	if raw := c.PostForm("details"); raw != "" {
		details = &domain.UserProvidedDetails{}
		if err := json.Unmarshal([]byte(raw), details); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "details must be valid JSON"})
			return
		}
		if validation := h.services.Merge.ValidateUserInput(details); !validation.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product details", "details": validation.Errors})
			return
		}
	}

	upload, ok := h.readUpload(c, file)
	if !ok {
		return
	}

	result, err := h.services.Analysis.Analyze(c.Request.Context(), upload)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response := gin.H{"analysis": result.Analysis}
	if result.ImageURL != "" {
		response["imageUrl"] = result.ImageURL
	}
	if details != nil {
		response["merged"] = h.services.Merge.Merge(result.Analysis, details, usecase.DefaultMergeOptions())
	}
	c.JSON(http.StatusOK, response)
}

// AnalyzeBatch identifies the products in several photos. Each photo
// succeeds or fails on its own.
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form with images is required"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["images[]"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
		return
	}
	if len(files) > h.config.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d images can be analyzed per request", h.config.MaxBatchSize)})
		return
	}

	uploads := make([]usecase.ImageUpload, 0, len(files))
	for _, file := range files {
		upload, ok := h.readUpload(c, file)
		if !ok {
			return
		}
		uploads = append(uploads, upload)
	}

	results := h.services.Analysis.AnalyzeBatch(c.Request.Context(), uploads)

	succeeded := 0
	for _, r := range results {
		if r.Result != nil {
			succeeded++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// readUpload reads a multipart file, rejecting oversized files before
// reading them. It writes the error response itself and reports ok=false.
func (h *Handler) readUpload(c *gin.Context, file *multipart.FileHeader) (usecase.ImageUpload, bool) {
	maxSize := h.services.Analysis.MaxUploadSize()
	if file.Size > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("%s exceeds the maximum size of %d bytes", file.Filename, maxSize),
		})
		return usecase.ImageUpload{}, false
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return usecase.ImageUpload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return usecase.ImageUpload{}, false
	}

	return usecase.ImageUpload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

type mergeRequest struct {
	Analysis *domain.ProductAnalysis     `json:"analysis"`
	Details  *domain.UserProvidedDetails `json:"details"`
	Options  *usecase.MergeOptions       `json:"options"`
}

// MergeDetails applies user supplied details on top of an analysis
func (h *Handler) MergeDetails(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.Analysis == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysis is required"})
		return
	}

	opts := usecase.DefaultMergeOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	c.JSON(http.StatusOK, h.services.Merge.Merge(req.Analysis, req.Details, opts))
}

// ValidateDetails checks user supplied details without merging them
func (h *Handler) ValidateDetails(c *gin.Context) {
	var details domain.UserProvidedDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	c.JSON(http.StatusOK, h.services.Merge.ValidateUserInput(&details))
}

type enrichRequest struct {
	Analysis      *domain.ProductAnalysis    `json:"analysis"`
	Options       *usecase.EnrichmentOptions `json:"options"`
	MinConfidence int                        `json:"minConfidence"`
}

// EnrichAnalysis scores an analysis and checks it against the product cache
func (h *Handler) EnrichAnalysis(c *gin.Context) {
	// Omitted option fields keep the configured defaults
	opts := h.config.Enrichment
	req := enrichRequest{Options: &opts}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.Analysis == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysis is required"})
		return
	}

	minConfidence := h.config.MinConfidence
	if req.MinConfidence > 0 {
		minConfidence = req.MinConfidence
	}

	enriched, err := h.services.Enrichment.Enrich(c.Request.Context(), req.Analysis, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enriched":   enriched,
		"validation": h.services.Enrichment.ValidateEnriched(enriched, minConfidence),
	})
}

// GenerateListing runs the full pipeline and returns the finished listing
func (h *Handler) GenerateListing(c *gin.Context) {
	// Omitted format option fields keep their defaults
	formatOpts := usecase.DefaultFormatOptions()
	req := usecase.ListingRequest{FormatOptions: &formatOpts}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if validation := h.services.Merge.ValidateUserInput(req.Details); !validation.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product details", "details": validation.Errors})
		return
	}

	listing, err := h.services.Listings.Generate(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	platform := req.Platform
	if platform == "" {
		platform = domain.PlatformGeneric
	}
	h.metrics.ListingGenerated(string(platform), string(listing.Content.Kind))

	c.JSON(http.StatusOK, listing)
}

// RegenerateElement rewrites the title, description or selling points of
// an existing listing.
func (h *Handler) RegenerateElement(c *gin.Context) {
	var req usecase.RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	content, err := h.services.Listings.Regenerate(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"element": req.Element,
		"content": content,
	})
}

type formatRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Options     domain.FormatOptions `json:"options"`
}

// FormatPost turns a title and description into a ready to paste post
func (h *Handler) FormatPost(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.Title == "" && req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title or description is required"})
		return
	}

	c.JSON(http.StatusOK, h.services.Formatter.FormatMarketplacePost(req.Title, req.Description, req.Options))
}

// ListCachedProducts returns every product in the product cache
func (h *Handler) ListCachedProducts(c *gin.Context) {
	products, err := h.services.Enrichment.GetCachedProducts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// AddCachedProduct stores a known product so future analyses can match it
func (h *Handler) AddCachedProduct(c *gin.Context) {
	var entry domain.ProductDatabaseEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	stored, err := h.services.Enrichment.AddProductToCache(c.Request.Context(), entry)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stored)
}

// ClearCachedProducts empties the product cache
func (h *Handler) ClearCachedProducts(c *gin.Context) {
	if err := h.services.Enrichment.ClearCache(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps domain errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &svcErr):
		c.JSON(serviceErrorStatus(svcErr.Code), gin.H{
			"error":     svcErr.Message,
			"code":      svcErr.Code,
			"retryable": svcErr.Retryable,
		})
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidUpload),
		errors.Is(err, domain.ErrUnknownElement):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrVisionAPIFailure), errors.Is(err, domain.ErrTextAPIFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCacheUnavailable), errors.Is(err, domain.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func serviceErrorStatus(code string) int {
	switch code {
	case domain.CodeRateLimited, domain.CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.CodeTimeout:
		return http.StatusGatewayTimeout
	case domain.CodeSafetyBlocked:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

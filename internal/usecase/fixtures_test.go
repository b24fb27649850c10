package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/listinglens/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// newTestLogger returns a logger that records entries instead of printing them
func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

// phoneAnalysis is a well identified smartphone photo
func phoneAnalysis() *domain.ProductAnalysis {
	return &domain.ProductAnalysis{
		ProductType: "Smartphone",
		Category: domain.Category{
			Primary:    "Electronics",
			Secondary:  "Smartphones",
			Confidence: domain.ConfidenceHigh,
		},
		Brand: &domain.Brand{
			Name:       "Apple",
			Confidence: domain.ConfidenceHigh,
			Verified:   true,
		},
		Condition:           domain.ConditionGood,
		ConditionConfidence: domain.ConfidenceHigh,
		Attributes: domain.Attributes{
			Color:    []string{"Blue"},
			Material: []string{"Aluminum", "Glass"},
			Size:     "128GB",
			Model:    "iPhone 13",
		},
		ExtractedText: []domain.ExtractedText{
			{Text: "Apple iPhone", Location: "back", Confidence: domain.ConfidenceHigh},
		},
		Features: []string{"Face ID", "Dual camera"},
		VisualQuality: domain.VisualQuality{
			ImageQuality: domain.ImageQualityGood,
			Lighting:     domain.LightingGood,
			Clarity:      domain.ClaritySharp,
			Background:   domain.BackgroundClean,
		},
		Description:       "A well maintained Apple iPhone 13 in great condition with the original box.",
		SuggestedTitle:    "Apple iPhone 13 128GB Blue Unlocked Smartphone",
		SuggestedKeywords: []string{"iPhone", "Apple"},
		OverallConfidence: domain.ConfidenceHigh,
		AnalyzedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// emptyAnalysis is what the vision model returns when it recognizes nothing
func emptyAnalysis() *domain.ProductAnalysis {
	return &domain.ProductAnalysis{
		ProductType: UnknownProductType,
		Category: domain.Category{
			Primary:    UnknownCategory,
			Confidence: domain.ConfidenceLow,
		},
		Condition:           domain.ConditionUnknown,
		ConditionConfidence: domain.ConfidenceLow,
		VisualQuality: domain.VisualQuality{
			ImageQuality: domain.ImageQualityPoor,
			Lighting:     domain.LightingPoor,
			Clarity:      domain.ClarityBlurry,
			Background:   domain.BackgroundDistracting,
		},
		OverallConfidence: domain.ConfidenceLow,
	}
}

// fakeProductCache is an in-memory domain.ProductCache with error injection
type fakeProductCache struct {
	mu      sync.Mutex
	entries map[string]domain.ProductDatabaseEntry
	getErr  error
	putErr  error
}

func newFakeProductCache() *fakeProductCache {
	return &fakeProductCache{entries: make(map[string]domain.ProductDatabaseEntry)}
}

func (f *fakeProductCache) Put(ctx context.Context, keys []string, entry domain.ProductDatabaseEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	for _, k := range keys {
		f.entries[k] = entry
	}
	return nil
}

func (f *fakeProductCache) Get(ctx context.Context, key string) (*domain.ProductDatabaseEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	entry, ok := f.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return &entry, nil
}

func (f *fakeProductCache) List(ctx context.Context) ([]domain.ProductDatabaseEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	out := make([]domain.ProductDatabaseEntry, 0)
	for _, e := range f.entries {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeProductCache) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]domain.ProductDatabaseEntry)
	return nil
}

// fakeAnalyzer returns a fixed analysis or error per call
type fakeAnalyzer struct {
	mu       sync.Mutex
	analysis *domain.ProductAnalysis
	err      error
	failOn   map[int]error
	calls    int
	mimes    []string
}

func (f *fakeAnalyzer) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*domain.ProductAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.mimes = append(f.mimes, mimeType)
	if f.err != nil {
		return nil, f.err
	}
	// failOn is keyed by the first byte after the image header
	if len(data) > 8 {
		if err, ok := f.failOn[int(data[8])]; ok {
			return nil, err
		}
	}
	a := f.analysis.Clone()
	return &a, nil
}

// fakeStore records uploads
type fakeStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://images.example.com/" + key, nil
}

// fakeGenerator returns canned listing content
type fakeGenerator struct {
	content     *domain.GeneratedContent
	element     *domain.ListingContent
	err         error
	lastPrompt  domain.ListingPrompt
	lastElement domain.RegenerateElement
	calls       int
}

func (f *fakeGenerator) GenerateListing(ctx context.Context, prompt domain.ListingPrompt) (*domain.GeneratedContent, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

func (f *fakeGenerator) GenerateElement(
	ctx context.Context,
	element domain.RegenerateElement,
	prompt domain.ListingPrompt,
	current domain.ListingContent,
) (*domain.ListingContent, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastElement = element
	if f.err != nil {
		return nil, f.err
	}
	return f.element, nil
}

var errBackendDown = errors.New("backend down")

// pngHeader is enough of a PNG for content sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func pngImage(marker byte) []byte {
	return append(append([]byte{}, pngHeader...), marker, 0, 0, 0, 'I', 'H', 'D', 'R')
}

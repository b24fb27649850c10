package domain

import "context"

// ProductCache stores known product records under one or more lookup keys
// (UPC, EAN, brand:model). Implementations never evict.
type ProductCache interface {
	Put(ctx context.Context, keys []string, entry ProductDatabaseEntry) error
	Get(ctx context.Context, key string) (*ProductDatabaseEntry, error)
	List(ctx context.Context) ([]ProductDatabaseEntry, error)
	Clear(ctx context.Context) error
}

// VisionAnalyzer identifies the product shown in a photo
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*ProductAnalysis, error)
}

// ListingGenerator writes listing copy with a text generation model
type ListingGenerator interface {
	GenerateListing(ctx context.Context, prompt ListingPrompt) (*GeneratedContent, error)
	// GenerateElement rewrites one element of an existing listing. Only the
	// requested element is populated in the result.
	GenerateElement(ctx context.Context, element RegenerateElement, prompt ListingPrompt, current ListingContent) (*ListingContent, error)
}

// ImageStore persists uploaded product photos
type ImageStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

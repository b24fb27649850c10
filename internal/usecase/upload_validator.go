package usecase

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/listinglens/backend/internal/domain"
)

// DefaultMaxUploadSize is 10 MiB
const DefaultMaxUploadSize int64 = 10 << 20

// AllowedImageTypes are the MIME types accepted for product photos
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// AllowedImageExtensions are the file extensions accepted for product photos
var AllowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ValidatedImage is an upload that passed every check
type ValidatedImage struct {
	Data      []byte
	MIMEType  string
	Extension string
}

// UploadValidator checks uploaded photos against the allow-lists. The MIME
// type is sniffed from the bytes, not taken from the client header.
type UploadValidator struct {
	maxSize int64
}

// NewUploadValidator creates a validator; a maxSize of 0 or less uses
// DefaultMaxUploadSize.
func NewUploadValidator(maxSize int64) *UploadValidator {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &UploadValidator{maxSize: maxSize}
}

// MaxSize returns the upload size limit in bytes
func (v *UploadValidator) MaxSize() int64 {
	return v.maxSize
}

// Validate checks the filename extension, size and sniffed content type
func (v *UploadValidator) Validate(filename string, data []byte) (*ValidatedImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedImageExtensions[ext] {
		return nil, fmt.Errorf("%w: file extension %q is not allowed", domain.ErrInvalidUpload, ext)
	}

	if err := v.ValidateSize(int64(len(data))); err != nil {
		return nil, err
	}

	detected := mimetype.Detect(data)
	mimeType := strings.ToLower(strings.SplitN(detected.String(), ";", 2)[0])
	if !AllowedImageTypes[mimeType] {
		return nil, fmt.Errorf("%w: content type %q is not allowed", domain.ErrInvalidUpload, mimeType)
	}

	return &ValidatedImage{
		Data:      data,
		MIMEType:  mimeType,
		Extension: ext,
	}, nil
}

// ValidateDeclaredType checks the client supplied Content-Type. Empty and
// application/octet-stream mean the client did not declare a type.
func (v *UploadValidator) ValidateDeclaredType(contentType string) error {
	mimeType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if mimeType == "" || mimeType == "application/octet-stream" {
		return nil
	}
	if !AllowedImageTypes[mimeType] {
		return fmt.Errorf("%w: declared content type %q is not allowed", domain.ErrInvalidUpload, mimeType)
	}
	return nil
}

// ValidateSize rejects empty files and files over the limit
func (v *UploadValidator) ValidateSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", domain.ErrInvalidUpload)
	}
	if size > v.maxSize {
		return fmt.Errorf("%w: file size %d bytes exceeds maximum of %d bytes", domain.ErrInvalidUpload, size, v.maxSize)
	}
	return nil
}

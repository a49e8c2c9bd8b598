package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes, the ceiling the upload destination enforces
	MaxFileSize = 10 * 1024 * 1024
)

// AllowedImageFormats are the photo formats accepted for order images
var AllowedImageFormats = []string{".jpg", ".jpeg", ".png"}

// FileValidationError represents a file upload validation error
type FileValidationError struct {
	Code    string
	Message string
}

func (e *FileValidationError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxFileSize {
		return &FileValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	for _, allowed := range AllowedImageFormats {
		if ext == allowed {
			return nil
		}
	}
	return &FileValidationError{
		Code:    "INVALID_FILE_FORMAT",
		Message: fmt.Sprintf("Only %s files are allowed", strings.Join(AllowedImageFormats, ", ")),
	}
}

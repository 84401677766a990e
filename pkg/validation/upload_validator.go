package validation

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "go-produce-measure/internal/errors"
)

// UploadValidator checks uploaded image payloads before they reach the
// model pipeline.
type UploadValidator struct {
	maxBytes     int64
	allowedMIMEs []string
}

// NewUploadValidator creates a validator with the default accepted
// formats (JPEG, PNG, GIF, WEBP).
func NewUploadValidator(maxBytes int64) *UploadValidator {
	return &UploadValidator{
		maxBytes: maxBytes,
		allowedMIMEs: []string{
			"image/jpeg",
			"image/png",
			"image/gif",
			"image/webp",
		},
	}
}

// NewUploadValidatorWithMIMEs creates a validator with a custom format list.
func NewUploadValidatorWithMIMEs(maxBytes int64, mimes []string) *UploadValidator {
	return &UploadValidator{maxBytes: maxBytes, allowedMIMEs: mimes}
}

// Validate checks presence, size and sniffed content type of the payload
// and returns the detected MIME type. The declared Content-Type of the
// upload is ignored on purpose: only the bytes are trusted.
func (v *UploadValidator) Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.NewValidationError(apperrors.CodeImageRequired,
			"please attach a photo to measure", nil)
	}
	if int64(len(data)) > v.maxBytes {
		return "", apperrors.NewValidationError(apperrors.CodeImageTooLarge,
			fmt.Sprintf("photo is too large, the limit is %dMB", v.maxBytes/(1024*1024)), nil)
	}

	mime := strings.ToLower(http.DetectContentType(data))
	// DetectContentType may append parameters; compare the bare type.
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	for _, allowed := range v.allowedMIMEs {
		if mime == allowed {
			return mime, nil
		}
	}
	return "", apperrors.NewValidationError(apperrors.CodeUnsupportedFormat,
		"unsupported image format, please upload JPEG, PNG, GIF or WEBP", nil)
}

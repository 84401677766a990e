package validation

import (
	"bytes"
	"testing"

	apperrors "go-produce-measure/internal/errors"
)

func jpegBytes() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x01}, 64)...)
}

func pngBytes() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}, bytes.Repeat([]byte{0x02}, 64)...)
}

func webpBytes() []byte {
	payload := []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	return append(payload, bytes.Repeat([]byte{0x03}, 64)...)
}

func TestValidateAcceptsSupportedFormats(t *testing.T) {
	v := NewUploadValidator(10 * 1024 * 1024)

	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"jpeg", jpegBytes(), "image/jpeg"},
		{"png", pngBytes(), "image/png"},
		{"gif", append([]byte("GIF87a"), bytes.Repeat([]byte{0x04}, 64)...), "image/gif"},
		{"webp", webpBytes(), "image/webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := v.Validate(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mime != tt.mime {
				t.Errorf("mime = %q, want %q", mime, tt.mime)
			}
		})
	}
}

func TestValidateRejectsBadUploads(t *testing.T) {
	v := NewUploadValidator(1024)

	tests := []struct {
		name string
		data []byte
		code string
	}{
		{"empty", nil, apperrors.CodeImageRequired},
		{"oversized", bytes.Repeat(jpegBytes(), 100), apperrors.CodeImageTooLarge},
		{"plain text", []byte("this is definitely not an image, just some words"), apperrors.CodeUnsupportedFormat},
		{"pdf", append([]byte("%PDF-1.4"), bytes.Repeat([]byte{0x05}, 64)...), apperrors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperrors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
			if status := apperrors.GetStatusCode(err); status != 400 {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestValidateCustomMIMEList(t *testing.T) {
	v := NewUploadValidatorWithMIMEs(1024*1024, []string{"image/png"})

	if _, err := v.Validate(pngBytes()); err != nil {
		t.Fatalf("png should pass: %v", err)
	}
	if _, err := v.Validate(jpegBytes()); err == nil {
		t.Fatal("jpeg should be rejected by a png-only validator")
	}
}

package vision

import "context"

// Generator is the capability boundary to the external vision model:
// one prompt plus one image in, free-form text out. The unpredictable
// output format is handled downstream by the normalizer, and tests
// substitute a deterministic fake here.
type Generator interface {
	Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

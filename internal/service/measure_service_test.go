package service

import (
	"bytes"
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "go-produce-measure/internal/errors"
	"go-produce-measure/internal/normalize"
	"go-produce-measure/internal/observability/metrics"
	"go-produce-measure/internal/retry"
	"go-produce-measure/internal/scoring"
	"go-produce-measure/pkg/models"
	"go-produce-measure/pkg/validation"
)

type fakeGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func validImage() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x01}, 64)...)
}

func newTestService(gen *fakeGenerator) MeasurementService {
	return newTestServiceWithMetrics(gen, nil)
}

func newTestServiceWithMetrics(gen *fakeGenerator, m *metrics.ServerMetrics) MeasurementService {
	executor := retry.NewExecutor(retry.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BreakerEnabled: false,
	})
	scorer := scoring.NewScorer(scoring.DefaultScorePolicy(), scoring.DefaultTruthPolicy(), rand.New(rand.NewSource(1)))
	return NewMeasurementService("test", validation.NewUploadValidator(1024*1024), gen, executor, scorer, m)
}

const goodResponse = `{"objectType":"banana","multipleObjects":false,"lowQuality":false,` +
	`"lengthEstimate":18.2,"thicknessEstimate":3.4,"freshnessScore":8,"overallScore":7.9,` +
	`"commentText":"A very respectable banana."}`

func TestMeasureHappyPath(t *testing.T) {
	gen := &fakeGenerator{responses: []string{goodResponse}}
	svc := newTestService(gen)

	res, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != models.ObjectBanana {
		t.Errorf("type = %q, want banana", res.Type)
	}
	if res.Length != 18.2 || res.Thickness != 3.4 || res.Freshness != 8 {
		t.Errorf("unexpected measurements: %+v", res)
	}
	if res.Comment != "A very respectable banana." {
		t.Errorf("comment = %q", res.Comment)
	}
	if res.Truth != nil {
		t.Error("truth analysis must be off by default")
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

func TestMeasureTruthMode(t *testing.T) {
	gen := &fakeGenerator{responses: []string{goodResponse}}
	svc := newTestService(gen)

	res, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage(), TruthMode: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truth == nil {
		t.Fatal("truth analysis expected when requested")
	}
	if res.Truth.Message == "" {
		t.Error("truth message must be set")
	}
}

func TestMeasureRejectsInvalidUploadWithoutModelCall(t *testing.T) {
	gen := &fakeGenerator{responses: []string{goodResponse}}
	svc := newTestService(gen)

	_, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: nil})
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.GetCode(err) != apperrors.CodeImageRequired {
		t.Errorf("code = %q, want IMAGE_REQUIRED", apperrors.GetCode(err))
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be called for invalid uploads, got %d calls", gen.calls)
	}
}

func TestMeasureModelFlags(t *testing.T) {
	tests := []struct {
		name     string
		response string
		code     string
	}{
		{
			"multiple objects",
			`{"objectType":"banana","multipleObjects":true,"lowQuality":false,"lengthEstimate":18,"thicknessEstimate":3,"freshnessScore":7,"overallScore":7,"commentText":"x"}`,
			apperrors.CodeMultipleObjects,
		},
		{
			"low quality",
			`{"objectType":"banana","multipleObjects":false,"lowQuality":true,"lengthEstimate":18,"thicknessEstimate":3,"freshnessScore":7,"overallScore":7,"commentText":"x"}`,
			apperrors.CodeLowQuality,
		},
		{
			"unrecognized object",
			`{"objectType":"","multipleObjects":false,"lowQuality":false,"lengthEstimate":0,"thicknessEstimate":0,"freshnessScore":5,"overallScore":5,"commentText":"x"}`,
			apperrors.CodeUnrecognizedObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeGenerator{responses: []string{tt.response}})
			_, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage()})
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

func TestMeasureRetriesTransientFailure(t *testing.T) {
	gen := &fakeGenerator{
		errs:      []error{apperrors.NewUpstreamTimeoutError("deadline", context.DeadlineExceeded), nil},
		responses: []string{"", goodResponse},
	}
	svc := newTestService(gen)

	res, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != models.ObjectBanana {
		t.Errorf("type = %q, want banana", res.Type)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
}

func TestMeasurePropagatesUpstreamFailure(t *testing.T) {
	upstream := apperrors.NewUpstreamError("model exploded", nil)
	gen := &fakeGenerator{errs: []error{upstream, upstream, upstream}, responses: []string{""}}
	svc := newTestService(gen)

	_, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage()})
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.GetCode(err) != apperrors.CodeUpstreamFailed {
		t.Errorf("code = %q, want UPSTREAM_FAILED", apperrors.GetCode(err))
	}
	if apperrors.GetStatusCode(err) != 500 {
		t.Errorf("status = %d, want 500", apperrors.GetStatusCode(err))
	}
}

func TestMeasureGeneratesCommentWhenModelOmitsIt(t *testing.T) {
	// Valid JSON, but the model left commentText empty.
	response := `{"objectType":"banana","multipleObjects":false,"lowQuality":false,` +
		`"lengthEstimate":18.2,"thicknessEstimate":3.4,"freshnessScore":8,"overallScore":7.9,` +
		`"commentText":""}`
	svc := newTestService(&fakeGenerator{responses: []string{response}})

	res, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Comment == "" || res.Comment == normalize.FallbackComment {
		t.Fatalf("expected a template comment, got %q", res.Comment)
	}
	if !strings.Contains(res.Comment, "banana") {
		t.Errorf("template comment should mention the type, got %q", res.Comment)
	}
}

func TestMeasureRecordsRetryMetric(t *testing.T) {
	m := metrics.NewServerMetrics("test")
	gen := &fakeGenerator{
		errs:      []error{apperrors.NewUpstreamTimeoutError("deadline", context.DeadlineExceeded), nil},
		responses: []string{"", goodResponse},
	}
	svc := newTestServiceWithMetrics(gen, m)

	if _, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `produce_model_retries_total{operation="gemini.generate",service="test"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("exposition missing %q", want)
	}
}

func TestMeasureFallbackEstimateStillMeasures(t *testing.T) {
	// No JSON at all, just prose with a recognizable object and length.
	gen := &fakeGenerator{responses: []string{"這根香蕉看起來不錯, 長度約20cm, 有點彎曲。"}}
	svc := newTestService(gen)

	res, err := svc.Measure(context.Background(), models.MeasurementRequest{Image: validImage()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != models.ObjectBanana {
		t.Errorf("type = %q, want banana", res.Type)
	}
	if res.Length != 20 {
		t.Errorf("length = %v, want 20", res.Length)
	}
	if res.Freshness != 5 {
		t.Errorf("freshness = %d, want neutral 5", res.Freshness)
	}
}

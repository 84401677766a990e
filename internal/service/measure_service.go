package service

import (
	"context"
	"time"

	apperrors "go-produce-measure/internal/errors"
	"go-produce-measure/internal/logger"
	"go-produce-measure/internal/normalize"
	"go-produce-measure/internal/observability/metrics"
	"go-produce-measure/internal/retry"
	"go-produce-measure/internal/scoring"
	"go-produce-measure/internal/vision"
	"go-produce-measure/pkg/models"
	"go-produce-measure/pkg/validation"

	"github.com/sirupsen/logrus"
)

const generateOperation = "gemini.generate"

// MeasurementService runs the full measurement pipeline for one upload.
type MeasurementService interface {
	Measure(ctx context.Context, req models.MeasurementRequest) (*models.MeasurementResult, error)
}

type measurementService struct {
	serviceName string
	validator   *validation.UploadValidator
	generator   vision.Generator
	executor    *retry.Executor
	scorer      *scoring.Scorer
	metrics     *metrics.ServerMetrics
}

func NewMeasurementService(
	serviceName string,
	validator *validation.UploadValidator,
	generator vision.Generator,
	executor *retry.Executor,
	scorer *scoring.Scorer,
	serverMetrics *metrics.ServerMetrics,
) MeasurementService {
	return &measurementService{
		serviceName: serviceName,
		validator:   validator,
		generator:   generator,
		executor:    executor,
		scorer:      scorer,
		metrics:     serverMetrics,
	}
}

// Measure validates the upload, asks the vision model for an estimate,
// normalizes whatever came back and turns it into a bounded result.
func (s *measurementService) Measure(ctx context.Context, req models.MeasurementRequest) (*models.MeasurementResult, error) {
	mimeType, err := s.validator.Validate(req.Image)
	if err != nil {
		return nil, err
	}

	raw, err := s.callModel(ctx, req.Image, mimeType)
	if err != nil {
		return nil, err
	}

	est := normalize.Estimate(raw)
	if est.ParseError != "" {
		logger.WithFields(logrus.Fields{
			"raw_length": len(raw),
			"reason":     est.ParseError,
		}).Warn("Model response did not contain parseable JSON, using fallback extraction")
	}

	if err := checkEstimateFlags(est); err != nil {
		return nil, err
	}

	result := s.scorer.Score(est, req.TruthMode)

	if s.metrics != nil {
		s.metrics.RecordMeasurement(s.serviceName, string(result.Type))
		if result.Truth != nil {
			s.metrics.RecordTruthVerdict(s.serviceName, result.Truth.Suspicious)
		}
	}
	logger.WithFields(logrus.Fields{
		"object_type": result.Type,
		"length_cm":   result.Length,
		"score":       result.Score,
		"truth_mode":  req.TruthMode,
	}).Info("Measurement completed")

	return &result, nil
}

func (s *measurementService) callModel(ctx context.Context, image []byte, mimeType string) (string, error) {
	var raw string
	attempts := 0
	start := time.Now()

	err := s.executor.Execute(ctx, generateOperation, func(ctx context.Context) error {
		attempts++
		text, genErr := s.generator.Generate(ctx, vision.MeasurementPrompt, image, mimeType)
		if genErr != nil {
			return genErr
		}
		raw = text
		return nil
	}, vision.ClassifyError)

	if s.metrics != nil {
		s.metrics.RecordModelCall(s.serviceName, generateOperation, time.Since(start), err)
		s.metrics.RecordModelRetries(s.serviceName, generateOperation, attempts-1)
	}
	if err != nil {
		if retry.IsCircuitOpen(err) {
			return "", apperrors.NewUpstreamError("the measuring service is catching its breath, please retry shortly", err)
		}
		return "", err
	}
	return raw, nil
}

// checkEstimateFlags rejects estimates the model itself flagged as
// unusable before any scoring happens.
func checkEstimateFlags(est models.RawEstimate) error {
	switch {
	case est.MultipleObjects:
		return apperrors.NewValidationError(apperrors.CodeMultipleObjects,
			"we can only measure one item at a time, please retake with a single subject", nil)
	case est.LowQuality:
		return apperrors.NewValidationError(apperrors.CodeLowQuality,
			"the photo is too blurry or dark to measure, please retake it", nil)
	case est.ObjectType == "":
		return apperrors.NewValidationError(apperrors.CodeUnrecognizedObject,
			"we could not find a measurable fruit or vegetable in this photo", nil)
	}
	return nil
}

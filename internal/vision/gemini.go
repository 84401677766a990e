package vision

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	apperrors "go-produce-measure/internal/errors"
	"go-produce-measure/internal/logger"
	"go-produce-measure/internal/retry"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiConfig carries the read-only settings for the Gemini adapter.
type GeminiConfig struct {
	APIKey      string
	Model       string
	CallTimeout time.Duration
}

// GeminiClient implements Generator against the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	callTimeout time.Duration
}

// NewGeminiClient builds the adapter. The API key is injected here rather
// than read from ambient state so tests can construct fakes.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.NewInternalError("gemini API key is empty", nil)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create gemini client", err)
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &GeminiClient{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		callTimeout: timeout,
	}, nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Generate sends the prompt and image to the model and returns the raw
// response text. Every failure leaves this method as a classified
// *apperrors.AppError; nothing else escapes the adapter boundary.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	m := c.client.GenerativeModel(c.model)

	// Fixed sampling configuration: stable enough output format without
	// making the commentary repetitive.
	m.SetTemperature(0.4)
	m.SetTopK(32)
	m.SetTopP(0.95)
	m.SetMaxOutputTokens(1024)

	// The domain intentionally analyzes anatomically suggestive shapes,
	// so every safety category is set to block-none.
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := m.GenerateContent(callCtx,
		genai.Text(prompt),
		&genai.Blob{MIMEType: mimeType, Data: image},
	)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"model":       c.model,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Error("Model call failed")
		return "", c.wrapGenerateError(err, callCtx)
	}

	text := firstText(resp)
	if text == "" {
		if blockedBySafety(resp) {
			return "", apperrors.NewContentRejectedError(
				"the model declined to analyze this photo, please try a different one", nil)
		}
		return "", apperrors.NewUpstreamError("model returned an empty response", nil)
	}

	logger.WithFields(logrus.Fields{
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
		"text_len":    len(text),
	}).Debug("Model call completed")
	return text, nil
}

// wrapGenerateError converts any failure from the model call into a
// classified AppError.
func (c *GeminiClient) wrapGenerateError(err error, callCtx context.Context) error {
	if callCtx.Err() == context.DeadlineExceeded {
		return apperrors.NewUpstreamTimeoutError(
			"the measurement took too long, please try again", err)
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) || isSafetyMessage(err) {
		return apperrors.NewContentRejectedError(
			"the model declined to analyze this photo, please try a different one", err)
	}

	return apperrors.NewUpstreamError(
		"the measurement service is unavailable, please try again later", err)
}

// ClassifyError decides retryability for the retry executor. Timeouts,
// rate limits, 5xx responses and network failures are transient; safety
// rejections and other client-side API errors are permanent.
func ClassifyError(err error) retry.Classification {
	if apperrors.IsType(err, apperrors.ErrorTypeSafety) {
		return retry.Classification{Retryable: false, RecordFailure: false}
	}
	if apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		return retry.Classification{Retryable: true, RecordFailure: true}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 429 || gerr.Code >= 500 {
			return retry.Classification{Retryable: true, RecordFailure: true}
		}
		return retry.Classification{Retryable: false, RecordFailure: true}
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return retry.Classification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, context.DeadlineExceeded) || hasThrottleKeyword(err) {
		return retry.Classification{Retryable: true, RecordFailure: true}
	}

	return retry.Classification{Retryable: false, RecordFailure: true}
}

var throttleKeywords = []string{
	"rate limit",
	"quota",
	"exhausted",
	"overloaded",
	"unavailable",
	"try again",
	"throttl",
}

func hasThrottleKeyword(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range throttleKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func isSafetyMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "safety") || strings.Contains(msg, "blocked")
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func blockedBySafety(resp *genai.GenerateContentResponse) bool {
	if resp == nil {
		return false
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason == genai.BlockReasonSafety {
		return true
	}
	for _, cand := range resp.Candidates {
		if cand.FinishReason == genai.FinishReasonSafety {
			return true
		}
	}
	return false
}

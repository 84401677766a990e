package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go-produce-measure/internal/config"
	apperrors "go-produce-measure/internal/errors"
	"go-produce-measure/internal/logger"
	"go-produce-measure/internal/observability/metrics"
	"go-produce-measure/internal/service"
	"go-produce-measure/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func NewHandler(measurer service.MeasurementService, serverMetrics *metrics.ServerMetrics, cfg *config.Config) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		corsMiddleware(),
		requestSizeLimiter(cfg.MaxUploadSize+64*1024),
	)
	if serverMetrics != nil {
		r.Use(serverMetrics.Middleware("measure-api"))
		r.GET("/metrics", gin.WrapH(serverMetrics.Handler()))
	}

	r.GET("/health", healthCheck)
	r.POST("/api/measure", measureHandler(measurer, cfg))

	return r
}

func measureHandler(measurer service.MeasurementService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": requestID(c),
			"ip":         c.ClientIP(),
		}).Info("Processing measurement request")

		image, err := readImageFile(c, cfg.MaxUploadSize)
		if err != nil {
			respondError(c, err)
			return
		}
		truthMode := parseTruthMode(c.PostForm("truth_mode"))

		result, err := measurer.Measure(ctx, models.MeasurementRequest{
			Image:     image,
			TruthMode: truthMode,
		})
		if err != nil {
			respondError(c, mapContextError(ctx, err))
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id":         requestID(c),
			"object_type":        result.Type,
			"truth_mode":         truthMode,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Measurement request completed")

		c.JSON(http.StatusOK, result)
	}
}

// readImageFile pulls the uploaded file out of the multipart form. A
// missing or unreadable part maps to the same validation errors the
// service would produce for an empty payload.
func readImageFile(c *gin.Context, maxBytes int64) ([]byte, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewValidationError(apperrors.CodeImageTooLarge,
				"photo is too large", err)
		}
		return nil, apperrors.NewValidationError(apperrors.CodeImageRequired,
			"please attach a photo to measure", err)
	}
	if fileHeader.Size > maxBytes {
		return nil, apperrors.NewValidationError(apperrors.CodeImageTooLarge,
			"photo is too large", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, apperrors.NewInternalError("could not read the uploaded photo", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, apperrors.NewInternalError("could not read the uploaded photo", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.NewValidationError(apperrors.CodeImageTooLarge,
			"photo is too large", nil)
	}
	return data, nil
}

func parseTruthMode(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

// mapContextError turns a request deadline hit inside the pipeline into
// the upstream timeout error the client contract promises.
func mapContextError(ctx context.Context, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewUpstreamTimeoutError("the measurement took too long, please try again", err)
	}
	return apperrors.NewInternalError("measurement failed unexpectedly", err)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// corsMiddleware opens the API to browser clients. The app is a public
// toy, so the allow list is a wildcard.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func respondError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"error_code":  apperrors.GetCode(err),
		"request_id":  requestID(c),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error: ErrorBody{
			Code:    apperrors.GetCode(err),
			Message: apperrors.GetMessage(err),
		},
	})
}

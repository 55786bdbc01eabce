// Package http exposes the assessment service over a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"

	"betting-assessment-service/internal/app"
	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/upload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Limits caps upload sizes in bytes.
type Limits struct {
	MaxFileBytes int64
	MaxZipBytes  int64
}

// Handler translates HTTP requests into service calls.
type Handler struct {
	service  *app.AssessmentService
	importer *upload.Importer
	db       Pinger
	limits   Limits
	log      *zap.Logger
}

type HandlerOption func(*Handler)

// WithDatabase enables /api/db/health.
func WithDatabase(db Pinger) HandlerOption {
	return func(h *Handler) { h.db = db }
}

func WithLimits(l Limits) HandlerOption {
	return func(h *Handler) { h.limits = l }
}

func WithLogger(log *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

func NewHandler(service *app.AssessmentService, importer *upload.Importer, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:  service,
		importer: importer,
		limits:   Limits{MaxFileBytes: 100 << 20, MaxZipBytes: 50 << 20},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAssessmentNotFound),
		errors.Is(err, domain.ErrStudentNotFound),
		errors.Is(err, domain.ErrQuestionSetNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPersistenceDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInsufficientCoins),
		errors.Is(err, domain.ErrNoMoreQuestions),
		errors.Is(err, domain.ErrIsTeacherCode),
		errors.Is(err, domain.ErrCodeConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

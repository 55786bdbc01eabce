package http

import (
	"context"
	"time"

	"betting-assessment-service/internal/monitoring"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig carries the middleware settings.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

// NewRouter registers every route. metrics may be nil.
func NewRouter(ctx context.Context, h *Handler, metrics *monitoring.Metrics, log *zap.Logger, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), Secure(), CORS(cfg.AllowedOrigins))
	if metrics != nil {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}
	router.GET("/healthz", Liveness)

	api := router.Group("/api")
	api.Use(RateLimiter(ctx, cfg.RateLimit, cfg.RateWindow))
	{
		api.GET("/health", h.Health)
		api.GET("/db/health", h.DBHealth)

		api.GET("/template", h.Template)
		api.POST("/questions/preview", h.PreviewCSV)
		api.POST("/questions/upload_zip", h.UploadZip)
	}

	assessment := api.Group("/assessment")
	{
		assessment.POST("/create", h.CreateAssessment)
		assessment.POST("/join", h.JoinAssessment)
		assessment.GET("/check/:code", h.CheckCode)

		assessment.GET("/:code/student/:studentId/question", h.CurrentQuestion)
		assessment.POST("/:code/student/:studentId/submit", h.Submit)
		assessment.GET("/:code/student/:studentId/report", h.StudentReport)
		assessment.GET("/:code/student/:studentId/pdf", h.StudentPDF)

		assessment.GET("/:code/teacher/report", h.TeacherReport)
		assessment.GET("/:code/teacher/pdf", h.TeacherPDF)
	}
	return router
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"activeAssessments": h.service.ActiveAssessments(),
	})
}

func (h *Handler) DBHealth(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "no_database_configured"})
		return
	}
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.log.Error("database health check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func Liveness(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

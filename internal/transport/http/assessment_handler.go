package http

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strings"

	"betting-assessment-service/internal/domain"
	"betting-assessment-service/internal/report"
	"github.com/gin-gonic/gin"
)

type joinRequest struct {
	Code        string `json:"code"`
	StudentName string `json:"studentName"`
}

type submitRequest struct {
	Bets      map[string]int `json:"bets"`
	Skipped   bool           `json:"skipped"`
	NoAnswer  bool           `json:"noAnswer"`
	TimeTaken float64        `json:"timeTaken"`
}

// toSubmission validates the wire body. Skipped takes precedence over
// noAnswer, and wagers are only parsed for real bets.
func (r submitRequest) toSubmission() (domain.Submission, error) {
	sub := domain.Submission{
		Skipped:   r.Skipped,
		NoAnswer:  r.NoAnswer && !r.Skipped,
		TimeTaken: elapsedSeconds(r.TimeTaken),
	}
	if sub.Abstains() {
		return sub, nil
	}
	bets, err := domain.ParseBets(r.Bets)
	if err != nil {
		return domain.Submission{}, err
	}
	sub.Bets = bets
	return sub, nil
}

// elapsedSeconds clamps the reported time before the int conversion, which is
// undefined for out-of-range floats.
func elapsedSeconds(v float64) int {
	switch {
	case !(v > 0):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(v)
}

func (h *Handler) CreateAssessment(c *gin.Context) {
	var req domain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	res, err := h.service.CreateAssessment(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) JoinAssessment(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.StudentName) == "" {
		badRequest(c, "code and name are required")
		return
	}
	res, err := h.service.Join(c.Request.Context(), req.Code, req.StudentName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckCode(c *gin.Context) {
	res, err := h.service.CheckCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CurrentQuestion(c *gin.Context) {
	res, err := h.service.CurrentQuestion(c.Request.Context(), c.Param("code"), c.Param("studentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	sub, err := req.toSubmission()
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.service.Submit(c.Request.Context(), c.Param("code"), c.Param("studentId"), sub)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) StudentReport(c *gin.Context) {
	res, err := h.service.StudentReport(c.Request.Context(), c.Param("code"), c.Param("studentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) TeacherReport(c *gin.Context) {
	res, err := h.service.TeacherReport(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) StudentPDF(c *gin.Context) {
	res, err := h.service.StudentReport(c.Request.Context(), c.Param("code"), c.Param("studentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteStudentPDF(&buf, res); err != nil {
		h.fail(c, fmt.Errorf("render student pdf: %w", err))
		return
	}
	sendPDF(c, fileSafe(res.StudentName)+"_report.pdf", buf.Bytes())
}

func (h *Handler) TeacherPDF(c *gin.Context) {
	res, err := h.service.TeacherReport(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteTeacherPDF(&buf, res); err != nil {
		h.fail(c, fmt.Errorf("render teacher pdf: %w", err))
		return
	}
	sendPDF(c, fileSafe(res.AssessmentName)+"_class_report.pdf", buf.Bytes())
}

func sendPDF(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// fileSafe keeps letters, digits, dash and underscore for download names.
func fileSafe(name string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if out == "" {
		return "report"
	}
	return out
}

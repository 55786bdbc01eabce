package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFont       = "Helvetica"
	lineHeight    = 6.0
	maxTextLength = 70
)

type pdfWriter struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func newPDF() *pdfWriter {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()
	return &pdfWriter{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
}

func (p *pdfWriter) centered(size float64, style, text string) {
	p.doc.SetFont(pdfFont, style, size)
	p.doc.CellFormat(0, size*0.5, p.tr(text), "", 1, "C", false, 0, "")
}

func (p *pdfWriter) heading(text string) {
	p.doc.Ln(lineHeight)
	p.doc.SetFont(pdfFont, "BU", 16)
	p.doc.CellFormat(0, 9, p.tr(text), "", 1, "L", false, 0, "")
}

func (p *pdfWriter) line(size float64, format string, args ...any) {
	p.doc.SetFont(pdfFont, "", size)
	p.doc.MultiCell(0, lineHeight, p.tr(fmt.Sprintf(format, args...)), "", "L", false)
}

func (p *pdfWriter) output(w io.Writer) error {
	if err := p.doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// WriteStudentPDF renders the student report.
func WriteStudentPDF(w io.Writer, r StudentReport) error {
	p := newPDF()
	p.centered(24, "B", "Assessment Report")
	p.doc.Ln(4)
	p.centered(20, "B", r.Persona.Name)
	p.centered(12, "I", r.Persona.Message)
	p.doc.Ln(4)

	p.line(14, "Student: %s", r.StudentName)
	p.line(14, "Assessment: %s", r.AssessmentName)
	p.line(14, "Date: %s", r.Date.Format("2006-01-02"))

	p.heading("Performance Summary")
	p.line(12, "Final Coins: %d (Started: %d)", r.FinalCoins, r.InitialCoins)
	p.line(12, "Rank: %s of %d", r.Rank, r.TotalStudents)
	p.line(12, "Knowledge Score: %d/100", r.KnowledgeScore)
	p.line(12, "Accuracy: %d%%", r.Accuracy)
	p.line(12, "Average Confidence: %d%%", r.AvgConfidence)
	p.line(12, "Questions Answered: %d/%d", r.Answered, r.TotalQuestions)
	p.line(12, "Correct: %d", r.Correct)
	p.line(12, "Wrong: %d", r.Wrong)
	p.line(12, "Skipped/No Answer: %d", r.Skipped+r.NoAnswer)

	p.heading("Question Details")
	for i, resp := range r.Responses {
		p.line(10, "Q%d: %s", i+1, truncate(resp.QuestionText))
		switch {
		case resp.Skipped:
			p.line(10, "   Result: SKIPPED (Penalty: -%d coins)", resp.Penalty)
		case resp.NoAnswer:
			p.line(10, "   Result: NO ANSWER (Penalty: -%d coins)", resp.Penalty)
		default:
			verdict := "WRONG"
			if resp.Correct {
				verdict = "CORRECT"
			}
			p.line(10, "   Result: %s | Net: %+d coins", verdict, resp.NetChange)
		}
	}
	return p.output(w)
}

// WriteTeacherPDF renders the class report.
func WriteTeacherPDF(w io.Writer, r TeacherReport) error {
	p := newPDF()
	p.centered(24, "B", "Teacher Report")
	p.centered(16, "", r.AssessmentName)
	p.centered(12, "", "Date: "+r.Date.Format("2006-01-02"))

	p.heading("Class Overview")
	p.line(12, "Total Students: %d", r.ClassStats.TotalStudents)
	p.line(12, "Completed: %d", r.ClassStats.CompletedStudents)
	p.line(12, "Total Questions: %d", len(r.Questions))
	p.line(12, "Initial Coins: %d", r.Settings.InitialCoins)
	p.line(12, "Win Multiplier: %gx", r.Settings.WinMultiplier)
	p.line(12, "Total Duration: %d minutes", r.Settings.TotalDuration/60)
	p.line(12, "Average Coins: %d | Average Accuracy: %d%% | Average Knowledge Score: %d",
		r.ClassStats.AvgCoins, r.ClassStats.AvgAccuracy, r.ClassStats.AvgKnowledgeScore)

	p.heading("Student Rankings")
	for i, s := range r.StudentStats {
		p.line(10, "%d. %s - %d coins (%d%% accuracy)", i+1, s.Name, s.Coins, s.Accuracy)
	}
	if len(r.StudentsNeedingHelp) > 0 {
		p.heading("Students Needing Help")
		p.line(10, "%s", strings.Join(r.StudentsNeedingHelp, ", "))
	}

	p.heading("Question Analysis")
	for _, q := range r.QuestionAnalysis {
		answers := make([]string, len(q.CorrectAnswers))
		for i, id := range q.CorrectAnswers {
			answers[i] = string(id)
		}
		p.line(10, "Q%d: %s", q.QuestionNumber, truncate(q.QuestionText))
		p.line(10, "   Correct Answer: %s | Class Accuracy: %d%%", strings.Join(answers, ", "), q.Accuracy)
		if q.MisconceptionAlert {
			p.line(10, "   Misconception alert: many confident wrong answers")
		}
	}
	return p.output(w)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTextLength {
		return s
	}
	return string(r[:maxTextLength]) + "..."
}

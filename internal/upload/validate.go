// Package upload turns teacher-supplied question files (CSV, or a ZIP of
// questions.xlsx plus images/) into validated question rows.
package upload

import (
	"fmt"
	"strings"

	"betting-assessment-service/internal/domain"
)

// Column names shared by the CSV template and the spreadsheet import.
const (
	colQuestion       = "question"
	colQuestionImage  = "question_image"
	colOptionA        = "option_a"
	colOptionAImage   = "option_a_image"
	colOptionB        = "option_b"
	colOptionBImage   = "option_b_image"
	colOptionC        = "option_c"
	colOptionCImage   = "option_c_image"
	colOptionD        = "option_d"
	colOptionDImage   = "option_d_image"
	colCorrectAnswer  = "correct_answer"
	colCorrectAnswers = "correct_answers"
	colMultiple       = "multiple_correct"
)

var requiredFields = []string{colQuestion, colOptionA, colOptionB, colOptionC, colOptionD, colMultiple}

// RowError collects every problem found on one spreadsheet row.
type RowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(e.Errors, "; "))
}

// record is one data row keyed by lower-case header name.
type record map[string]string

func (r record) get(col string) string {
	return strings.TrimSpace(r[col])
}

func (r record) correctAnswers() string {
	if v := r.get(colCorrectAnswer); v != "" {
		return v
	}
	return r.get(colCorrectAnswers)
}

// blank reports whether every cell of the record is empty.
func (r record) blank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// validateRecord checks one row and converts it. Image columns are copied
// through untouched; the ZIP importer resolves them afterwards.
func validateRecord(rec record) (domain.QuestionRow, []string) {
	var problems []string
	for _, col := range requiredFields {
		if rec.get(col) == "" {
			problems = append(problems, fmt.Sprintf("Missing %q", col))
		}
	}

	var answers []domain.OptionID
	rawCorrect := rec.correctAnswers()
	if rawCorrect == "" {
		problems = append(problems, `Missing "correct_answer"`)
	} else {
		var invalid []string
		for _, part := range strings.Split(rawCorrect, ",") {
			id, err := domain.ParseOptionID(part)
			if err != nil {
				invalid = append(invalid, strings.TrimSpace(part))
				continue
			}
			answers = append(answers, id)
		}
		if len(invalid) > 0 {
			problems = append(problems, fmt.Sprintf("Invalid correct_answer: %q", strings.Join(invalid, ", ")))
		}
	}

	multiple := false
	if raw := rec.get(colMultiple); raw != "" {
		switch strings.ToLower(raw) {
		case "yes":
			multiple = true
		case "no":
		default:
			problems = append(problems, fmt.Sprintf("Invalid multiple_correct: %q", raw))
		}
	}

	if len(problems) > 0 {
		return domain.QuestionRow{}, problems
	}
	return domain.QuestionRow{
		Question:        rec.get(colQuestion),
		QuestionImage:   rec.get(colQuestionImage),
		OptionA:         rec.get(colOptionA),
		OptionAImage:    rec.get(colOptionAImage),
		OptionB:         rec.get(colOptionB),
		OptionBImage:    rec.get(colOptionBImage),
		OptionC:         rec.get(colOptionC),
		OptionCImage:    rec.get(colOptionCImage),
		OptionD:         rec.get(colOptionD),
		OptionDImage:    rec.get(colOptionDImage),
		CorrectAnswers:  answers,
		MultipleCorrect: multiple,
	}, nil
}

// toRecord zips a header with one row of cells. Missing trailing cells are empty.
func toRecord(header, cells []string) record {
	rec := make(record, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(cells) {
			rec[name] = cells[i]
		} else {
			rec[name] = ""
		}
	}
	return rec
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

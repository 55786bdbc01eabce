package upload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"betting-assessment-service/internal/domain"
)

// TemplateFilename is the download name of the CSV template.
const TemplateFilename = "questions_template.csv"

const template = `question,question_image,option_a,option_a_image,option_b,option_b_image,option_c,option_c_image,option_d,option_d_image,correct_answer,multiple_correct
"What is the capital of France?","images/q1.jpg","London","images/q1_a.jpg","Paris","images/q1_b.jpg","Berlin","","Madrid","","B","no"
"Which are primary colors?","","Red","","Green","","Blue","","Yellow","","A,C","yes"
"What is 5 + 7?","","10","","11","","12","","13","","C","no"
`

// Template returns the CSV template teachers fill in.
func Template() []byte {
	return []byte(template)
}

// Preview is the validation summary of an uploaded CSV.
type Preview struct {
	TotalRows       int                  `json:"totalRows"`
	ValidQuestions  int                  `json:"validQuestions"`
	Errors          []RowError           `json:"errors"`
	ParsedQuestions []domain.QuestionRow `json:"parsedQuestions"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a question CSV. Row numbers in errors are 1-based and count
// the header, so the first data row is row 2.
func ParseCSV(r io.Reader) (Preview, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Preview{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Preview{}, fmt.Errorf("%w: CSV file is empty or has no data rows", domain.ErrInvalidUpload)
	}
	if err != nil {
		return Preview{}, fmt.Errorf("%w: failed to parse CSV file: %v", domain.ErrInvalidUpload, err)
	}
	header = normalizeHeader(header)

	var records []record
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Preview{}, fmt.Errorf("%w: failed to parse CSV file: %v", domain.ErrInvalidUpload, err)
		}
		rec := toRecord(header, cells)
		if rec.blank() {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return Preview{}, fmt.Errorf("%w: CSV file is empty or has no data rows", domain.ErrInvalidUpload)
	}

	preview := Preview{
		TotalRows:       len(records),
		Errors:          []RowError{},
		ParsedQuestions: []domain.QuestionRow{},
	}
	for i, rec := range records {
		row, problems := validateRecord(rec)
		if len(problems) > 0 {
			preview.Errors = append(preview.Errors, RowError{Row: i + 2, Errors: problems})
			continue
		}
		preview.ValidQuestions++
		preview.ParsedQuestions = append(preview.ParsedQuestions, row)
	}
	return preview, nil
}

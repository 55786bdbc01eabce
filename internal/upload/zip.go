package upload

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"betting-assessment-service/internal/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const spreadsheetName = "questions.xlsx"

var requiredColumns = []string{
	colQuestion, colQuestionImage,
	colOptionA, colOptionAImage,
	colOptionB, colOptionBImage,
	colOptionC, colOptionCImage,
	colOptionD, colOptionDImage,
	colMultiple,
}

// QuestionSetWriter persists imported rows as one question set.
type QuestionSetWriter interface {
	ImportQuestionSet(ctx context.Context, name string, rows []domain.QuestionRow) (domain.ImportedSet, error)
}

// ImportResult is returned after a ZIP import. QuestionSetID is empty when
// no database is configured.
type ImportResult struct {
	Success       bool                 `json:"success"`
	Questions     []domain.QuestionRow `json:"questions"`
	QuestionSetID string               `json:"questionSetId,omitempty"`
	Inserted      []int64              `json:"inserted,omitempty"`
}

// Importer reads question archives: questions.xlsx at the root plus images/.
type Importer struct {
	images    ImageStore
	processor ImageProcessor
	writer    QuestionSetWriter
	workers   int
	log       *zap.Logger
}

type ImporterOption func(*Importer)

// WithWriter persists every successful import.
func WithWriter(w QuestionSetWriter) ImporterOption {
	return func(im *Importer) { im.writer = w }
}

func WithWorkers(n int) ImporterOption {
	return func(im *Importer) {
		if n > 0 {
			im.workers = n
		}
	}
}

func WithLogger(log *zap.Logger) ImporterOption {
	return func(im *Importer) {
		if log != nil {
			im.log = log
		}
	}
}

func NewImporter(images ImageStore, processor ImageProcessor, opts ...ImporterOption) *Importer {
	im := &Importer{
		images:    images,
		processor: processor,
		workers:   4,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// imageJob resolves one image cell into a stored reference.
type imageJob struct {
	file   *zip.File
	target *string
}

// ImportZip parses the archive, processes every referenced image and, when a
// writer is configured, stores the result as a new question set. Nothing is
// persisted unless every row and image is valid.
func (im *Importer) ImportZip(ctx context.Context, name string, data []byte) (ImportResult, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: not a zip archive: %v", domain.ErrInvalidUpload, err)
	}

	var sheet *zip.File
	images := make(map[string]*zip.File)
	for _, f := range archive.File {
		entry := strings.ReplaceAll(f.Name, "\\", "/")
		switch {
		case entry == spreadsheetName:
			sheet = f
		case strings.HasPrefix(entry, "images/") && !f.FileInfo().IsDir():
			images[path.Base(entry)] = f
		}
	}
	if sheet == nil {
		return ImportResult{}, fmt.Errorf("%w: questions.xlsx not found in zip root", domain.ErrInvalidUpload)
	}

	rows, err := readSpreadsheet(sheet)
	if err != nil {
		return ImportResult{}, err
	}

	var jobs []imageJob
	for i := range rows {
		for _, ref := range imageRefs(&rows[i].row) {
			if *ref == "" {
				continue
			}
			base := path.Base(strings.ReplaceAll(*ref, "\\", "/"))
			if _, ok := allowedImageExt[strings.ToLower(path.Ext(base))]; !ok {
				return ImportResult{}, fmt.Errorf("%w: row %d: unsupported image type %q", domain.ErrInvalidUpload, rows[i].number, *ref)
			}
			f, ok := images[base]
			if !ok {
				return ImportResult{}, fmt.Errorf("%w: row %d: missing image %q in images/", domain.ErrInvalidUpload, rows[i].number, *ref)
			}
			jobs = append(jobs, imageJob{file: f, target: ref})
		}
	}

	if err := im.processImages(ctx, jobs); err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Success: true, Questions: make([]domain.QuestionRow, len(rows))}
	for i, r := range rows {
		result.Questions[i] = r.row
	}
	im.log.Info("question archive parsed",
		zap.Int("questions", len(rows)),
		zap.Int("images", len(jobs)),
	)

	if im.writer != nil {
		set, err := im.writer.ImportQuestionSet(ctx, name, result.Questions)
		if err != nil {
			return ImportResult{}, fmt.Errorf("persist question set: %w", err)
		}
		result.QuestionSetID = set.ID
		result.Inserted = set.QuestionIDs
		im.log.Info("question set imported", zap.String("question_set_id", set.ID))
	}
	return result, nil
}

func (im *Importer) processImages(ctx context.Context, jobs []imageJob) error {
	refs := make([]string, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			data, err := readEntry(job.file)
			if err != nil {
				return err
			}
			processed, err := im.processor.Process(path.Base(job.file.Name), data)
			if err != nil {
				return err
			}
			ref, err := im.images.Store(ctx, processed)
			if err != nil {
				return fmt.Errorf("store image %s: %w", job.file.Name, err)
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, job := range jobs {
		*job.target = refs[i]
	}
	return nil
}

// numberedRow keeps the 1-based spreadsheet row for error messages.
type numberedRow struct {
	number int
	row    domain.QuestionRow
}

func readSpreadsheet(f *zip.File) ([]numberedRow, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open questions.xlsx: %v", domain.ErrInvalidUpload, err)
	}
	defer rc.Close()

	book, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read questions.xlsx: %v", domain.ErrInvalidUpload, err)
	}
	defer func() { _ = book.Close() }()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: questions.xlsx has no sheets", domain.ErrInvalidUpload)
	}
	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", domain.ErrInvalidUpload, sheets[0], err)
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("%w: questions.xlsx has no data rows", domain.ErrInvalidUpload)
	}

	header := normalizeHeader(cells[0])
	if err := checkColumns(header); err != nil {
		return nil, err
	}

	var (
		rows     []numberedRow
		problems []RowError
	)
	for i, raw := range cells[1:] {
		rec := toRecord(header, raw)
		if rec.blank() {
			continue
		}
		number := i + 2
		row, errs := validateRecord(rec)
		if len(errs) > 0 {
			problems = append(problems, RowError{Row: number, Errors: errs})
			continue
		}
		rows = append(rows, numberedRow{number: number, row: row})
	}
	if len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i, p := range problems {
			msgs[i] = p.String()
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidUpload, strings.Join(msgs, " | "))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: questions.xlsx has no data rows", domain.ErrInvalidUpload)
	}
	return rows, nil
}

func checkColumns(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if !present[colCorrectAnswer] && !present[colCorrectAnswers] {
		missing = append(missing, colCorrectAnswer)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns: %s", domain.ErrInvalidUpload, strings.Join(missing, ", "))
	}
	return nil
}

func imageRefs(r *domain.QuestionRow) []*string {
	return []*string{&r.QuestionImage, &r.OptionAImage, &r.OptionBImage, &r.OptionCImage, &r.OptionDImage}
}

// maxImageEntryBytes bounds how much of a single archive entry is inflated.
const maxImageEntryBytes = 64 << 20

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidUpload, f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxImageEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidUpload, f.Name, err)
	}
	if len(data) > maxImageEntryBytes {
		return nil, fmt.Errorf("%w: %s is too large", domain.ErrInvalidUpload, f.Name)
	}
	return data, nil
}

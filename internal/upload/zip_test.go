package upload

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"betting-assessment-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

var fullHeader = []interface{}{
	"question", "question_image",
	"option_a", "option_a_image",
	"option_b", "option_b_image",
	"option_c", "option_c_image",
	"option_d", "option_d_image",
	"correct_answer", "multiple_correct",
}

func xlsxBytes(t *testing.T, header []interface{}, rows ...[]interface{}) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()
	if err := book.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("header: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := book.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

type recordingWriter struct {
	mu   sync.Mutex
	name string
	rows []domain.QuestionRow
}

func (w *recordingWriter) ImportQuestionSet(_ context.Context, name string, rows []domain.QuestionRow) (domain.ImportedSet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.name, w.rows = name, rows
	return domain.ImportedSet{ID: "set-1", QuestionIDs: []int64{10, 11}}, nil
}

func TestImportZip(t *testing.T) {
	sheet := xlsxBytes(t, fullHeader,
		[]interface{}{"Capital of France?", "images/q1.png", "London", "", "Paris", "q1_b.png", "Berlin", "", "Madrid", "", "B", "no"},
		[]interface{}{"Primary colours?", "", "Red", "", "Green", "", "Blue", "", "Yellow", "", "A,C", "yes"},
	)
	archive := zipBytes(t, map[string][]byte{
		"questions.xlsx":   sheet,
		"images/q1.png":    pngBytes(t, 20, 20),
		"images/q1_b.png":  pngBytes(t, 10, 10),
		"images/extra.png": pngBytes(t, 5, 5),
	})

	writer := &recordingWriter{}
	im := NewImporter(InlineImageStore{}, ImageProcessor{MaxBytes: 2 << 20}, WithWriter(writer), WithWorkers(2))
	res, err := im.ImportZip(context.Background(), "Geography", archive)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !res.Success || len(res.Questions) != 2 || res.QuestionSetID != "set-1" || len(res.Inserted) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	first := res.Questions[0]
	if !strings.HasPrefix(first.QuestionImage, "data:image/png;base64,") || !strings.HasPrefix(first.OptionBImage, "data:image/png;base64,") {
		t.Fatalf("images should be resolved to data uris, got %q / %q", first.QuestionImage, first.OptionBImage)
	}
	if first.OptionAImage != "" {
		t.Fatalf("empty image cell should stay empty")
	}
	if writer.name != "Geography" || len(writer.rows) != 2 {
		t.Fatalf("writer saw %q with %d rows", writer.name, len(writer.rows))
	}
}

func TestImportZipFailures(t *testing.T) {
	goodRow := []interface{}{"Q", "", "a", "", "b", "", "c", "", "d", "", "A", "no"}
	cases := map[string]struct {
		files map[string][]byte
		want  string
	}{
		"no spreadsheet": {
			files: map[string][]byte{"images/a.png": pngBytes(t, 2, 2)},
			want:  "questions.xlsx not found",
		},
		"nested spreadsheet": {
			files: map[string][]byte{"data/questions.xlsx": xlsxBytes(t, fullHeader, goodRow)},
			want:  "questions.xlsx not found",
		},
		"missing columns": {
			files: map[string][]byte{"questions.xlsx": xlsxBytes(t, []interface{}{"question", "option_a"}, []interface{}{"Q", "a"})},
			want:  "missing columns",
		},
		"missing image": {
			files: map[string][]byte{"questions.xlsx": xlsxBytes(t, fullHeader,
				[]interface{}{"Q", "gone.png", "a", "", "b", "", "c", "", "d", "", "A", "no"})},
			want: `missing image "gone.png"`,
		},
		"bad extension": {
			files: map[string][]byte{"questions.xlsx": xlsxBytes(t, fullHeader,
				[]interface{}{"Q", "anim.gif", "a", "", "b", "", "c", "", "d", "", "A", "no"})},
			want: "unsupported image type",
		},
		"invalid row": {
			files: map[string][]byte{"questions.xlsx": xlsxBytes(t, fullHeader,
				goodRow,
				[]interface{}{"Q", "", "a", "", "b", "", "c", "", "d", "", "Z", "no"})},
			want: "row 3",
		},
	}
	for name, tc := range cases {
		writer := &recordingWriter{}
		im := NewImporter(InlineImageStore{}, ImageProcessor{}, WithWriter(writer))
		_, err := im.ImportZip(context.Background(), "x", zipBytes(t, tc.files))
		if !errors.Is(err, domain.ErrInvalidUpload) || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q upload error, got %v", name, tc.want, err)
		}
		if writer.rows != nil {
			t.Fatalf("%s: nothing should be persisted", name)
		}
	}

	if _, err := NewImporter(InlineImageStore{}, ImageProcessor{}).ImportZip(context.Background(), "x", []byte("not a zip")); !errors.Is(err, domain.ErrInvalidUpload) {
		t.Fatalf("expected invalid archive error, got %v", err)
	}
}

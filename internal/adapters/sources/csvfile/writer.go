package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Writer writes an annotated record collection to one CSV file
type Writer struct {
	path   string
	format Format
}

// NewWriter creates a writer for path
func NewWriter(path string, format Format) *Writer {
	return &Writer{path: path, format: format}
}

// Path returns the file the writer creates
func (w *Writer) Path() string {
	return w.path
}

// Write replaces the file with records in the given order
func (w *Writer) Write(ctx context.Context, records []*transaction.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.path, err)
	}

	if err := w.encode(file, records); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	return nil
}

func (w *Writer) encode(file *os.File, records []*transaction.Record) error {
	lay := layoutFor(w.format)
	header := lay.header(records)

	cw := csv.NewWriter(file)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		values := lay.encode(rec)
		values[ColumnAction] = StateLabel(rec.State)
		values[ColumnRelatedID] = rec.RelatedID

		line := make([]string, len(header))
		for i, name := range header {
			if v, ok := values[name]; ok {
				line[i] = v
				continue
			}
			line[i] = rec.Fields[name]
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("failed to write %s: %w", rec.Key(), err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	return nil
}

// OutputPath returns dir/name, or a dated variant (name-YYYY-MM-DD.csv) when
// that file already exists so an earlier run's output is never overwritten.
// Later runs on the same day get a counter (name-YYYY-MM-DD-2.csv, ...).
func OutputPath(dir, name string, today time.Time) string {
	path := filepath.Join(dir, name)
	if !exists(path) {
		return path
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if ext == "" {
		ext = ".csv"
	}
	dated := fmt.Sprintf("%s-%s", base, today.Format(transaction.DateLayout))
	path = filepath.Join(dir, dated+ext)
	for n := 2; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", dated, n, ext))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var _ sources.Writer = (*Writer)(nil)

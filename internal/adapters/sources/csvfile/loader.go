// Package csvfile reads and writes transaction sets as CSV files in the
// Lunch Money and Mint export layouts.
//
// Files written by this package carry two extra columns, action and
// related_id. Reading such a file back restores each record's resolution
// state so a rerun skips what was already decided.
package csvfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Loader reads one CSV file as a transaction source
type Loader struct {
	path   string
	format Format
	source transaction.Source
	logger *slog.Logger
}

// NewLoader creates a loader for path. Records are tagged with source.
func NewLoader(path string, format Format, source transaction.Source, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		path:   path,
		format: format,
		source: source,
		logger: logger.With(slog.String("source", string(format)), slog.String("file", path)),
	}
}

// Name returns the format name
func (l *Loader) Name() string {
	return string(l.format)
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	return l.path
}

// Load reads every row inside the date range. Rows with unparseable amount
// or date are kept with the field unset so they reach the unmapped report.
func (l *Loader) Load(ctx context.Context, opts sources.LoadOptions) ([]*transaction.Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", l.path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			l.logger.Warn("failed to close file", slog.String("error", err.Error()))
		}
	}()

	lay := layoutFor(l.format)
	seq := 0
	skipped := 0

	records, err := parseRows(file, func(r row) (*transaction.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, problems := lay.decode(r)
		for _, p := range problems {
			l.logger.Warn("invalid field in row",
				slog.Int("row", r.line),
				slog.String("id", rec.ID),
				slog.String("error", p.Error()))
		}

		if !opts.Contains(rec.Date) {
			skipped++
			return nil, nil
		}

		if r.has(ColumnAction) {
			state, err := transaction.ParseState(r.get(ColumnAction))
			if err != nil {
				l.logger.Warn("ignoring unknown action", slog.Int("row", r.line), slog.String("error", err.Error()))
				state = transaction.StateUnresolved
			}
			rec.State = state
			rec.RelatedID = r.get(ColumnRelatedID)
		} else {
			rec.State = transaction.StateUnresolved
		}

		rec.Source = l.source
		rec.Seq = seq
		rec.Fields = r.extras(lay.known)
		seq++
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", l.path, err)
	}

	l.logger.Debug("loaded transactions",
		slog.Int("count", len(records)),
		slog.Int("outside_range", skipped))
	return records, nil
}

var _ sources.Loader = (*Loader)(nil)

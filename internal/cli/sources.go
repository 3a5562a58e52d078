package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources/csvfile"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/accounts"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/logging"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/operator/scripted"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/operator/terminal"
)

// NewPrimaryLoader builds the loader for the primary transaction file
func NewPrimaryLoader(cfg *config.Config, logger *slog.Logger) (*csvfile.Loader, error) {
	format, err := csvfile.ParseFormat(cfg.Sources.PrimaryFormat)
	if err != nil {
		return nil, fmt.Errorf("sources.primary_format: %w", err)
	}
	return csvfile.NewLoader(cfg.Sources.PrimaryPath, format, transaction.SourcePrimary, logger), nil
}

// NewReferenceLoader builds the loader for the reference export
func NewReferenceLoader(cfg *config.Config, logger *slog.Logger) (*csvfile.Loader, error) {
	format, err := csvfile.ParseFormat(cfg.Sources.ReferenceFormat)
	if err != nil {
		return nil, fmt.Errorf("sources.reference_format: %w", err)
	}
	return csvfile.NewLoader(cfg.Sources.ReferencePath, format, transaction.SourceReference, logger), nil
}

// BuildMapper merges the account map file with the inline synonyms.
// Inline synonyms win on conflict. With neither configured, account names
// are compared as written.
func BuildMapper(cfg *config.Config) (accounts.Mapper, error) {
	var fromFile *accounts.Map
	if cfg.Accounts.MapFile != "" {
		m, err := accounts.LoadCSV(cfg.Accounts.MapFile)
		if err != nil {
			return nil, err
		}
		fromFile = m
	}

	inline := accounts.NewMap(cfg.Accounts.Synonyms)
	merged := accounts.Merge(fromFile, inline)
	if merged.Len() == 0 {
		return accounts.Identity, nil
	}
	return merged, nil
}

// NewOperator picks how prompts are answered: a script file when given, the
// interactive terminal when stdin is a TTY, otherwise answers piped on stdin
func NewOperator(scriptPath string, in io.Reader, out io.Writer) (disambiguate.Operator, error) {
	if scriptPath != "" {
		return scripted.FromFile(scriptPath)
	}
	if f, ok := in.(*os.File); ok && logging.IsTerminal(f) {
		return terminal.New(in, out), nil
	}
	return scripted.FromReader(in)
}

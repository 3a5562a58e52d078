package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources/csvfile"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/grouping"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/config"
)

// Output file names, before any dated variant is chosen
const (
	SelfOutputName    = "marked_as_duplicate.csv"
	IgnoredOutputName = "ignored_transactions.csv"
)

// summaryStates is the column order of the per-state counts
var summaryStates = []transaction.State{
	transaction.StateDuplicate,
	transaction.StateMatch,
	transaction.StateNotDuplicate,
	transaction.StateInvestigate,
	transaction.StateKeep,
	transaction.StateUnresolved,
}

// PrintHeader prints the application header
func PrintHeader(w io.Writer, command string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "lunchmoney-reconcile: %s (%s mode)\n", command, mode)
}

// PrintConfiguration prints the resolved run settings
func PrintConfiguration(w io.Writer, mode matcher.Mode, cfg *config.Config) {
	src := cfg.Sources
	if mode == matcher.ModeSelf {
		fmt.Fprintf(w, "Input: %s | Window: %d days", src.PrimaryPath, cfg.Reconcile.Self.WindowDays)
		if cfg.Reconcile.Self.AskUpdateNonDups {
			fmt.Fprint(w, " | Ask edit: true")
		}
	} else {
		cross := cfg.Reconcile.Cross
		fmt.Fprintf(w, "Primary: %s | Reference: %s | Window: -%d/+%d days",
			src.PrimaryPath, src.ReferencePath, cross.LookbackDays, cross.LookaheadDays)
		if cross.AutoConfirmSingle {
			fmt.Fprint(w, " | Auto-confirm: true")
		}
	}
	if src.StartDate != "" || src.EndDate != "" {
		fmt.Fprintf(w, " | Range: %s..%s", orDash(src.StartDate), orDash(src.EndDate))
	}
	fmt.Fprint(w, "\n\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// PrintSummary prints the run result summary
func PrintSummary(w io.Writer, result *reconcile.Result, written []string) {
	s := result.Summary
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Targets=%d Prompts=%d Auto=%d PreResolved=%d Decisions=%d\n",
		s.Targets, s.Prompts, s.AutoResolved, s.PreResolved, s.Decisions)

	fmt.Fprintf(w, "Primary:   %s\n", formatCounts(s.Primary))
	printExclusions(w, result.Report)
	if s.Mode == matcher.ModeCross {
		fmt.Fprintf(w, "Reference: %s\n", formatCounts(s.Reference))
		printExclusions(w, result.ReferenceReport)
		if len(result.Ignored) > 0 {
			fmt.Fprintf(w, "Ignored: %d primary records from other origins\n", len(result.Ignored))
		}
	}

	if len(written) > 0 {
		fmt.Fprintln(w, "\nWrote:")
		for _, path := range written {
			fmt.Fprintf(w, "  - %s\n", path)
		}
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "\nRun: %s\n", result.RunID)
	}
}

func formatCounts(counts reconcile.StateCounts) string {
	parts := make([]string, 0, len(summaryStates))
	for _, state := range summaryStates {
		parts = append(parts, fmt.Sprintf("%s=%d", state, counts[state]))
	}
	return strings.Join(parts, " ")
}

func printExclusions(w io.Writer, r grouping.Report) {
	if r.Pending == 0 && r.SplitParents == 0 && r.Unmapped == 0 {
		return
	}
	fmt.Fprintf(w, "  excluded: pending=%d split_parents=%d unmapped=%d\n", r.Pending, r.SplitParents, r.Unmapped)
}

// WriteOutputs writes the annotated collections under the configured output
// directory and returns the paths written. Existing files are never replaced.
func WriteOutputs(ctx context.Context, cfg *config.Config, result *reconcile.Result, today time.Time) ([]string, error) {
	primaryFormat, err := csvfile.ParseFormat(cfg.Sources.PrimaryFormat)
	if err != nil {
		return nil, err
	}

	type output struct {
		name    string
		format  csvfile.Format
		records []*transaction.Record
	}

	var outputs []output
	if result.Summary.Mode == matcher.ModeSelf {
		outputs = append(outputs, output{SelfOutputName, primaryFormat, result.Output.Primary})
	} else {
		referenceFormat, err := csvfile.ParseFormat(cfg.Sources.ReferenceFormat)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs,
			output{analyzedName(cfg.Reconcile.Cross.PrimaryOrigin), primaryFormat, result.Output.Primary},
			output{analyzedName(string(referenceFormat)), referenceFormat, result.Output.Reference},
		)
		if len(result.Ignored) > 0 {
			outputs = append(outputs, output{IgnoredOutputName, primaryFormat, result.Ignored})
		}
	}

	var written []string
	for _, o := range outputs {
		path := csvfile.OutputPath(cfg.Sources.OutputDir, o.name, today)
		if err := csvfile.NewWriter(path, o.format).Write(ctx, o.records); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func analyzedName(prefix string) string {
	if prefix == "" {
		prefix = reconcile.DefaultPrimaryOrigin
	}
	return strings.ToLower(prefix) + "_analyzed_transactions.csv"
}

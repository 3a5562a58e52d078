package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/logging"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// IO holds the streams a command talks to the operator on
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer // Logs
}

// RunSelf runs process-duplicates: the primary set compared against itself
func RunSelf(ctx context.Context, cfg *config.Config, flags SelfFlags, stdio IO) error {
	flags.Apply(cfg)
	opts, err := SelfOptions(cfg, flags.DryRun)
	if err != nil {
		return err
	}
	return execute(ctx, cfg, flags.CommonFlags, opts, matcher.ModeSelf, stdio)
}

// RunCross runs compare-sources: the primary set against the reference export
func RunCross(ctx context.Context, cfg *config.Config, flags CrossFlags, stdio IO) error {
	flags.Apply(cfg)
	opts, err := CrossOptions(cfg, flags.DryRun)
	if err != nil {
		return err
	}
	return execute(ctx, cfg, flags.CommonFlags, opts, matcher.ModeCross, stdio)
}

func execute(ctx context.Context, cfg *config.Config, flags CommonFlags, opts reconcile.Options, mode matcher.Mode, stdio IO) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLoggerTo(stdio.Err, cfg.Observability.Logging).With("system", string(mode))

	command := "process-duplicates"
	if mode == matcher.ModeCross {
		command = "compare-sources"
	}
	PrintHeader(stdio.Out, command, flags.DryRun)
	PrintConfiguration(stdio.Out, mode, cfg)

	deps, closeStore, err := buildDependencies(cfg, flags, mode, stdio, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	runner := reconcile.NewRunner(deps)
	var result *reconcile.Result
	var runErr error
	if mode == matcher.ModeSelf {
		result, runErr = runner.RunSelf(ctx, opts)
	} else {
		result, runErr = runner.RunCross(ctx, opts)
	}
	if result == nil {
		return runErr
	}

	// An aborted run still writes what was decided so far
	var written []string
	if !flags.DryRun {
		var writeErr error
		written, writeErr = WriteOutputs(context.WithoutCancel(ctx), cfg, result, time.Now())
		if writeErr != nil {
			runErr = errors.Join(runErr, fmt.Errorf("writing output: %w", writeErr))
		}
	}

	PrintSummary(stdio.Out, result, written)
	return runErr
}

func buildDependencies(cfg *config.Config, flags CommonFlags, mode matcher.Mode, stdio IO, logger *slog.Logger) (reconcile.Dependencies, func(), error) {
	noop := func() {}

	primary, err := NewPrimaryLoader(cfg, logger)
	if err != nil {
		return reconcile.Dependencies{}, noop, err
	}
	deps := reconcile.Dependencies{Primary: primary, Logger: logger}

	if mode == matcher.ModeCross {
		reference, err := NewReferenceLoader(cfg, logger)
		if err != nil {
			return reconcile.Dependencies{}, noop, err
		}
		deps.Reference = reference
	}

	if deps.Mapper, err = BuildMapper(cfg); err != nil {
		return reconcile.Dependencies{}, noop, err
	}
	if deps.Operator, err = NewOperator(flags.Script, stdio.In, stdio.Out); err != nil {
		return reconcile.Dependencies{}, noop, err
	}

	// Dry runs still read earlier decisions, they just never write
	if cfg.Storage.DatabasePath == "" {
		return deps, noop, nil
	}
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return reconcile.Dependencies{}, noop, fmt.Errorf("failed to open database: %w", err)
	}
	deps.Store = store
	return deps, func() { _ = store.Close() }, nil
}

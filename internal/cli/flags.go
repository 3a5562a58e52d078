package cli

import (
	"flag"
	"os"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/config"
)

// CommonFlags are shared by both reconcile commands
type CommonFlags struct {
	ConfigPath string
	DryRun     bool
	Verbose    bool
	OutDir     string
	Script     string // Answers file; empty means interactive or piped stdin

	set map[string]bool
}

// SelfFlags are the flags of process-duplicates
type SelfFlags struct {
	CommonFlags
	InputPath  string
	WindowDays int
	AskEdit    bool
}

// CrossFlags are the flags of compare-sources
type CrossFlags struct {
	CommonFlags
	PrimaryPath   string
	ReferencePath string
	LookbackDays  int
	LookaheadDays int
	AutoConfirm   bool
}

func (f *CommonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config.yaml (default: ./config.yaml, then environment)")
	fs.BoolVar(&f.DryRun, "dry-run", false, "Resolve without recording runs or writing output files")
	fs.BoolVar(&f.Verbose, "verbose", false, "Verbose output")
	fs.StringVar(&f.OutDir, "out", "", "Output directory (overrides sources.output_dir)")
	fs.StringVar(&f.Script, "script", "", "File of operator answers, one per line")
}

func (f *CommonFlags) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return nil
}

func (f CommonFlags) apply(cfg *config.Config) {
	if f.OutDir != "" {
		cfg.Sources.OutputDir = f.OutDir
	}
	if f.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}
}

// ParseSelfFlags parses process-duplicates flags from the command line
func ParseSelfFlags() SelfFlags {
	flags, _ := parseSelfFlags(flag.CommandLine, os.Args[1:])
	return flags
}

func parseSelfFlags(fs *flag.FlagSet, args []string) (SelfFlags, error) {
	var flags SelfFlags
	flags.register(fs)
	fs.StringVar(&flags.InputPath, "in", "", "Transactions CSV (overrides sources.primary_path)")
	fs.IntVar(&flags.WindowDays, "days", 7, "Days on each side of a transaction to search for duplicates")
	fs.BoolVar(&flags.AskEdit, "ask-edit", false, "Offer payee/notes edits on records judged distinct")
	err := flags.parse(fs, args)
	return flags, err
}

// Apply overrides config values with the flags that were given
func (f SelfFlags) Apply(cfg *config.Config) {
	f.apply(cfg)
	if f.InputPath != "" {
		cfg.Sources.PrimaryPath = f.InputPath
	}
	if f.set["days"] {
		cfg.Reconcile.Self.WindowDays = f.WindowDays
	}
	if f.set["ask-edit"] {
		cfg.Reconcile.Self.AskUpdateNonDups = f.AskEdit
	}
}

// ParseCrossFlags parses compare-sources flags from the command line
func ParseCrossFlags() CrossFlags {
	flags, _ := parseCrossFlags(flag.CommandLine, os.Args[1:])
	return flags
}

func parseCrossFlags(fs *flag.FlagSet, args []string) (CrossFlags, error) {
	var flags CrossFlags
	flags.register(fs)
	fs.StringVar(&flags.PrimaryPath, "primary", "", "Bank-feed transactions CSV (overrides sources.primary_path)")
	fs.StringVar(&flags.ReferencePath, "reference", "", "Reference export CSV (overrides sources.reference_path)")
	fs.IntVar(&flags.LookbackDays, "lookback", 1, "Days before a primary transaction to search the reference set")
	fs.IntVar(&flags.LookaheadDays, "lookahead", 7, "Days after a primary transaction to search the reference set")
	fs.BoolVar(&flags.AutoConfirm, "auto-confirm", false, "Record a lone candidate as the match without asking")
	err := flags.parse(fs, args)
	return flags, err
}

// Apply overrides config values with the flags that were given
func (f CrossFlags) Apply(cfg *config.Config) {
	f.apply(cfg)
	if f.PrimaryPath != "" {
		cfg.Sources.PrimaryPath = f.PrimaryPath
	}
	if f.ReferencePath != "" {
		cfg.Sources.ReferencePath = f.ReferencePath
	}
	if f.set["lookback"] {
		cfg.Reconcile.Cross.LookbackDays = f.LookbackDays
	}
	if f.set["lookahead"] {
		cfg.Reconcile.Cross.LookaheadDays = f.LookaheadDays
	}
	if f.set["auto-confirm"] {
		cfg.Reconcile.Cross.AutoConfirmSingle = f.AutoConfirm
	}
}

// SelfOptions converts the resolved config to runner options
func SelfOptions(cfg *config.Config, dryRun bool) (reconcile.Options, error) {
	start, end, err := cfg.Sources.DateRange()
	if err != nil {
		return reconcile.Options{}, err
	}
	return reconcile.Options{
		StartDate:       start,
		EndDate:         end,
		DryRun:          dryRun,
		WindowDays:      cfg.Reconcile.Self.WindowDays,
		AskEditOnReject: cfg.Reconcile.Self.AskUpdateNonDups,
	}, nil
}

// CrossOptions converts the resolved config to runner options
func CrossOptions(cfg *config.Config, dryRun bool) (reconcile.Options, error) {
	start, end, err := cfg.Sources.DateRange()
	if err != nil {
		return reconcile.Options{}, err
	}
	return reconcile.Options{
		StartDate:         start,
		EndDate:           end,
		DryRun:            dryRun,
		LookbackDays:      cfg.Reconcile.Cross.LookbackDays,
		LookaheadDays:     cfg.Reconcile.Cross.LookaheadDays,
		AutoConfirmSingle: cfg.Reconcile.Cross.AutoConfirmSingle,
		PrimaryOrigin:     cfg.Reconcile.Cross.PrimaryOrigin,
	}, nil
}

// LoadConfig loads an explicit config file, or config.yaml with an
// environment fallback when path is empty
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadOrEnv(), nil
	}
	return config.Load(path)
}

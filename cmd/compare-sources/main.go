package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/cli"
)

func main() {
	flags := cli.ParseCrossFlags()

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Interrupt stops the run before the next target
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stdio := cli.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	if err := cli.RunCross(ctx, cfg, flags, stdio); err != nil {
		fmt.Fprintf(os.Stderr, "compare-sources failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}

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
	flags := cli.ParseServeFlags()

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.RunServe(ctx, cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

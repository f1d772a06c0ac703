package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shanehull/cs2news/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Per-source failures are reported in the run table, not the exit code.
	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		if config.IsConfigError(err) {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

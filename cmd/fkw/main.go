// Package main provides the fkw command line tool.
//
// Usage:
//
//	fkw [flags] <command> [args]
//
// Commands:
//
//	transform - render a recording into two composite spectrogram images
//	detect    - run the whistle detector on composite images
//	run       - transform a recording, then detect
//	select    - add the recordings under a directory to a CSV worklist
//	batch     - process every pending recording of a worklist
//	config    - print the effective configuration
//
// Configuration is read from ./fkw.yaml when present, or from --config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/fkw-sonar/cmd/fkw/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// Package main provides a CLI for auditing a session's round files against
// its journal.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	platformcmd "github.com/gazelab/bluffing.eyes/internal/platform/cmd"
	"github.com/gazelab/bluffing.eyes/internal/platform/config"

	reconcilecmd "github.com/gazelab/bluffing.eyes/internal/cmd/reconcile"
)

func main() {
	cfg, err := reconcilecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix("[RECONCILE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ToolReconcile, func(ctx context.Context) error {
		return reconcilecmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}

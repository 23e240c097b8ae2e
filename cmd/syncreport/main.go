// Package main provides a CLI for building a session's sync report.
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

	syncreportcmd "github.com/gazelab/bluffing.eyes/internal/cmd/syncreport"
)

func main() {
	cfg, err := syncreportcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix("[SYNCREPORT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ToolSyncReport, func(ctx context.Context) error {
		return syncreportcmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}

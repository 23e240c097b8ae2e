// Package main provides a CLI for replaying a scripted session through the
// recording pipeline.
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

	simulatecmd "github.com/gazelab/bluffing.eyes/internal/cmd/simulate"
)

func main() {
	cfg, err := simulatecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix("[SIMULATE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ToolSimulate, func(ctx context.Context) error {
		return simulatecmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}

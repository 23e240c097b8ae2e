// Package main provides a CLI for checking tracker endpoint health.
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

	probecmd "github.com/gazelab/bluffing.eyes/internal/cmd/probe"
)

func main() {
	cfg, err := probecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix("[PROBE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ToolProbe, func(ctx context.Context) error {
		return probecmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}

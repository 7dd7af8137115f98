package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilnworks/kiln/internal/domain-adapters/gateways"
	"github.com/kilnworks/kiln/internal/external-adapters/zerolog"
)

func runSample(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	var (
		interval = fs.Duration("interval", 30*time.Second, "Time between samples")
		logPath  = fs.String("log", "kiln-resources.jsonl", "JSON-lines file to append samples to")
		diskPath = fs.String("disk-path", "/", "Filesystem path whose usage is sampled")
		duration = fs.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
		once     = fs.Bool("once", false, "Take a single sample, print it, and exit")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kiln sample [options]

Record memory, disk, and load samples to a JSON-lines log. Runs until
interrupted; "kiln build" starts the same sampler automatically for the
duration of a bake.

Examples:
  kiln sample --once
  kiln sample --interval 10s --log bake-resources.jsonl
  kiln sample --duration 2h

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	sampler := gateways.NewResourceSampler(gateways.SamplerConfig{
		Interval: *interval,
		LogPath:  *logPath,
		DiskPath: *diskPath,
		Logger:   zerolog.NewConsoleLogger(),
	})

	if *once {
		sample, err := sampler.Sample(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("mem: %d/%d MiB (%.1f%%), disk free: %d GiB (%.1f%% used), load1: %.2f\n",
			(sample.MemTotal-sample.MemAvailable)>>20, sample.MemTotal>>20, sample.MemUsedPct,
			sample.DiskFree>>30, sample.DiskUsedPct, sample.Load1)
		return
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, *duration)
		defer cancel()
	}

	fmt.Printf("Sampling every %v to %s (Ctrl-C to stop)\n", *interval, *logPath)
	err := sampler.Run(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

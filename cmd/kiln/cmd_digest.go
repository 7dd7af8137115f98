package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilnworks/kiln/internal/domain-adapters/gateways"
	"github.com/kilnworks/kiln/internal/domain/entities"
)

func runDigest(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	var (
		output = fs.String("output", "", "Write the digest record to this file instead of stdout")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kiln digest <artifact> [options]

Compute the SHA-512 digest of an artifact without comparing it to
anything. Useful for seeding a fresh digest file.

Examples:
  kiln digest installer.tar
  kiln digest installer.tar --output installer.tar.digests

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: artifact path is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	artifactPath := fs.Arg(0)
	verifier := gateways.NewIntegrityVerifier()
	result, err := verifier.Verify(ctx, artifactPath, "", entities.ModeComputeOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	record := fmt.Sprintf("%s  %s\n", result.ComputedDigest, filepath.Base(artifactPath))
	if *output != "" {
		if err := os.WriteFile(*output, []byte(record), 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *output)
		return
	}
	fmt.Print(record)
}

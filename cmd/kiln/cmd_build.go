// Package main provides the kiln CLI for baking container images that embed
// large vendor toolchain installers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kilnworks/kiln/internal/domain-adapters/gateways"
	orchestrators "github.com/kilnworks/kiln/internal/domain-orchestrators"
	"github.com/kilnworks/kiln/internal/external-adapters/gpg"
	"github.com/kilnworks/kiln/internal/external-adapters/yaml"
	"github.com/kilnworks/kiln/internal/external-adapters/zerolog"
)

func runBuild(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		recipesDir   = fs.String("recipes-dir", "recipes", "Path to recipes directory")
		version      = fs.String("version", "", "Installer version (overrides recipe)")
		mirrorURL    = fs.String("mirror-url", "", "Mirror base URL (overrides recipe)")
		verify       = fs.Bool("verify", true, "Verify the installer against its digest file")
		noVerify     = fs.Bool("no-verify", false, "Skip integrity verification")
		strict       = fs.Bool("strict", false, "Fail when no reference digests are available")
		skipEstimate = fs.Bool("skip-estimate", false, "Skip the pre-build resource check")
		sampleLog    = fs.String("sample-log", "kiln-resources.jsonl", "Resource sample log written during the bake")
		jsonLog      = fs.Bool("json-log", false, "Emit JSON logs instead of console output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kiln build <recipe> [version] [options]

Fetch the installer artifact, verify its integrity, check host resources,
and drive the container engine build.

Examples:
  kiln build vivado                       # Bake with the recipe's version
  kiln build vivado 2025.1                # Bake a specific installer version
  kiln build vivado --no-verify          # Skip digest verification
  kiln build vivado --strict             # Refuse to bake unverified artifacts
  kiln build vivado --mirror-url http://mirror.lan/xilinx

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: recipe name is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	recipeName := fs.Arg(0)
	installerVersion := *version
	if fs.NArg() >= 2 {
		installerVersion = fs.Arg(1)
	}
	if env := os.Getenv("KILN_VERSION"); env != "" && installerVersion == "" {
		installerVersion = env
	}
	mirror := *mirrorURL
	if env := os.Getenv("KILN_MIRROR_URL"); env != "" && mirror == "" {
		mirror = env
	}

	logger := zerolog.NewConsoleLogger()
	if *jsonLog {
		logger = zerolog.NewLogger(os.Stderr)
	}

	sampler := gateways.NewResourceSampler(gateways.SamplerConfig{
		LogPath: *sampleLog,
		Logger:  logger,
	})

	orch := orchestrators.NewBuildOrchestrator(
		yaml.NewRecipeRepository(*recipesDir),
		gateways.NewDownloader(),
		gateways.NewIntegrityVerifier(),
		gpg.NewVerifier(),
		gateways.NewBuildEstimator("/"),
		gateways.NewEngineRunner(),
		sampler,
		orchestrators.BuildOrchestratorConfig{
			SkipEstimate: *skipEstimate,
			Logger:       logger,
		},
	)

	result, err := orch.BakeImage(ctx, recipeName, orchestrators.BakeOptions{
		Version:    installerVersion,
		MirrorURL:  mirror,
		SkipVerify: *noVerify || !*verify,
		Strict:     *strict,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.GetBakeSummary())
}

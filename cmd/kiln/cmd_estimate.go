package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kilnworks/kiln/internal/domain-adapters/gateways"
	"github.com/kilnworks/kiln/internal/external-adapters/yaml"
)

func runEstimate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	var (
		recipesDir = fs.String("recipes-dir", "recipes", "Path to recipes directory")
		diskPath   = fs.String("disk-path", "/", "Filesystem path whose free space is checked")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kiln estimate <recipe> [version] [options]

Estimate bake duration and resource needs from the installer artifact
size and current host resources. The artifact must already be on disk
(see "kiln fetch").

Examples:
  kiln estimate vivado
  kiln estimate vivado 2025.1

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

	repo := yaml.NewRecipeRepository(*recipesDir)
	recipe, err := repo.GetRecipe(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	version := recipe.Installer.Version
	if fs.NArg() >= 2 {
		version = fs.Arg(1)
	}

	finder := gateways.NewArtifactFinder()
	artifact, err := finder.FindArtifact(recipe, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (run \"kiln fetch %s\" first)\n", err, recipe.Name)
		os.Exit(1)
	}

	estimator := gateways.NewBuildEstimator(*diskPath)
	estimate, err := estimator.Estimate(ctx, recipe, artifact)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Artifact:       %s (%d GiB)\n", artifact.Path, artifact.Size>>30)
	fmt.Printf("Estimated bake: %v\n", estimate.Duration.Round(time.Minute))
	fmt.Printf("CPUs:           %d\n", estimate.CPUCount)
	fmt.Printf("Memory free:    %d GiB\n", estimate.MemAvailable>>30)
	fmt.Printf("Disk free:      %d GiB (need %d GiB)\n", estimate.DiskFree>>30, estimate.DiskRequired>>30)

	for _, w := range estimate.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	if !estimate.DiskSufficient() {
		os.Exit(1)
	}
}

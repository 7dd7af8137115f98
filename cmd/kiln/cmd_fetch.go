package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kilnworks/kiln/internal/domain-adapters/gateways"
	"github.com/kilnworks/kiln/internal/external-adapters/yaml"
)

func runFetch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var (
		recipesDir = fs.String("recipes-dir", "recipes", "Path to recipes directory")
		mirrorURL  = fs.String("mirror-url", "", "Mirror base URL (overrides recipe)")
		noDigest   = fs.Bool("no-digest", false, "Skip fetching the digest file")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kiln fetch <recipe> [version] [options]

Download the recipe's installer artifact and its digest file without
building an image. An existing artifact on disk is reused.

Examples:
  kiln fetch vivado
  kiln fetch vivado 2025.1
  kiln fetch vivado --mirror-url http://mirror.lan/xilinx

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

	repo := yaml.NewRecipeRepository(*recipesDir)
	recipe, err := repo.GetRecipe(ctx, recipeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	version := recipe.Installer.Version
	if env := os.Getenv("KILN_VERSION"); env != "" {
		version = env
	}
	if fs.NArg() >= 2 {
		version = fs.Arg(1)
	}
	if env := os.Getenv("KILN_MIRROR_URL"); env != "" && *mirrorURL == "" {
		recipe.Download.MirrorURL = env
	}
	if *mirrorURL != "" {
		recipe.Download.MirrorURL = *mirrorURL
	}

	downloader := gateways.NewDownloader()
	artifact, err := downloader.FetchArtifact(ctx, recipe, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Artifact: %s (%d bytes)\n", artifact.Path, artifact.Size)

	if !*noDigest {
		if err := downloader.FetchDigestFile(ctx, recipe, artifact); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: no digest file available: %v\n", err)
			return
		}
		fmt.Printf("Digest file: %s\n", artifact.DigestFilePath())
	}
}

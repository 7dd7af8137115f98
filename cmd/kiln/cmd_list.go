package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kilnworks/kiln/internal/domain-adapters/gateways"
	"github.com/kilnworks/kiln/internal/external-adapters/yaml"
)

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var (
		recipesDir = fs.String("recipes-dir", "recipes", "Path to recipes directory")
		artifacts  = fs.Bool("artifacts", false, "Also list local installer artifacts")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kiln list [options]

List available recipes, and optionally the installer artifacts already
on disk.

Examples:
  kiln list
  kiln list --artifacts

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	repo := yaml.NewRecipeRepository(*recipesDir)
	recipes, err := repo.ListRecipes(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(recipes) == 0 {
		fmt.Printf("No recipes found in %s\n", *recipesDir)
		return
	}

	fmt.Printf("Recipes (%d):\n", len(recipes))
	for _, r := range recipes {
		fmt.Printf("  %-12s %s:%s  installer %s %s\n",
			r.Name, r.Image.Repository, r.EffectiveTag(),
			r.Installer.Name, r.Installer.Version)
		if r.Description != "" {
			fmt.Printf("               %s\n", r.Description)
		}
	}

	if !*artifacts {
		return
	}

	finder := gateways.NewArtifactFinder()
	seen := map[string]bool{}
	for _, r := range recipes {
		if seen[r.Installer.Dir] {
			continue
		}
		seen[r.Installer.Dir] = true

		found, err := finder.ListArtifacts(r.Installer.Dir)
		if err != nil || len(found) == 0 {
			continue
		}
		fmt.Printf("\nArtifacts in %s:\n", r.Installer.Dir)
		for _, a := range found {
			marker := " "
			if finder.HasDigestFile(a) {
				marker = "+"
			}
			fmt.Printf("  [%s] %s (%d GiB)\n", marker, a.Path, a.Size>>30)
		}
	}
	fmt.Println("\n[+] digest file present")
}

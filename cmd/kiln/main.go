package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "build":
		runBuild(ctx, os.Args[2:])
	case "fetch":
		runFetch(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "digest":
		runDigest(ctx, os.Args[2:])
	case "estimate":
		runEstimate(ctx, os.Args[2:])
	case "sample":
		runSample(ctx, os.Args[2:])
	case "list":
		runList(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`kiln - Container image baker for large vendor toolchain installers

Usage:
  kiln <command> [options]

Commands:
  build     Fetch, verify, and bake a recipe into a container image
  fetch     Download an installer artifact and its digest file
  verify    Verify an installer artifact against reference digests
  digest    Compute the SHA-512 digest of an artifact
  estimate  Estimate build duration and resource needs for a recipe
  sample    Record host resource usage to a JSON-lines log
  list      List available recipes and local artifacts

Environment:
  KILN_VERSION     Overrides the installer version for build and fetch
  KILN_MIRROR_URL  Overrides the recipe's mirror URL

Use "kiln <command> --help" for more information about a command.`)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kilnworks/kiln/internal/domain-adapters/gateways"
	"github.com/kilnworks/kiln/internal/domain/entities"
	"github.com/kilnworks/kiln/internal/external-adapters/gpg"
)

func runVerify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var (
		digestFile = fs.String("digest-file", "", "Digest file to verify against (default: <artifact>.digests)")
		strict     = fs.Bool("strict", false, "Fail when no reference digests are available")
		gpgSig     = fs.String("gpg-sig", "", "Detached signature over the digest file (.asc)")
		gpgKeyIDs  = fs.String("gpg-key-ids", "", "Comma-separated GPG key IDs to import from keyservers")
		keyring    = fs.String("keyring", "", "Keyring file with trusted public keys")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kiln verify <artifact> [options]

Compute the artifact's SHA-512 digest and compare it against the records
in the digest file. The digest file may be any text format; every 128-hex
token in it is treated as a candidate.

Exit status is 0 when the artifact is verified, or when no reference is
available and --strict is not set. A mismatch or a missing artifact
exits non-zero.

Examples:
  kiln verify installers/FPGAs_AdaptiveSoCs_Unified_2024.2.tar
  kiln verify installer.tar --digest-file digests.txt
  kiln verify installer.tar --strict
  kiln verify installer.tar --gpg-sig installer.tar.digests.asc --keyring trusted.gpg

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
	digestPath := *digestFile
	if digestPath == "" {
		digestPath = artifactPath + ".digests"
	}

	// Provenance check first: a forged digest file makes the comparison
	// meaningless
	if *gpgSig != "" {
		if err := checkProvenance(ctx, digestPath, *gpgSig, *gpgKeyIDs, *keyring); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Digest file signature verified")
	}

	verifier := gateways.NewIntegrityVerifier()
	result, err := verifier.Verify(ctx, artifactPath, digestPath, entities.ModeVerify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(result.Diagnostic())
	if !result.OK(*strict) {
		os.Exit(1)
	}
}

func checkProvenance(ctx context.Context, digestPath, sigPath, keyIDs, keyringPath string) error {
	verifier := gpg.NewVerifier()

	if keyringPath != "" {
		if err := verifier.ImportKeyringFile(keyringPath); err != nil {
			return fmt.Errorf("failed to import keyring: %w", err)
		}
	}
	if keyIDs != "" {
		if err := verifier.ImportKeys(ctx, strings.Split(keyIDs, ",")); err != nil {
			return fmt.Errorf("failed to import keys: %w", err)
		}
	}
	if verifier.KeyringSize() == 0 {
		return fmt.Errorf("no keys imported for signature verification (use --keyring or --gpg-key-ids)")
	}

	return verifier.VerifyDigestFile(digestPath, sigPath)
}

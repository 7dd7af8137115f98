package gateways

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

// ErrMissingArtifact is returned when the artifact to verify does not
// exist or is empty. Distinct from a verification failure: there is
// nothing to hash.
var ErrMissingArtifact = errors.New("artifact missing or empty")

// digestPattern matches one SHA-512 hex record. Vendor digest files are
// free-form text (labels, line breaks, prose around the hashes), so every
// 128-hex run is treated as a candidate. Unrelated hex data of the same
// width can false-positive; accepted risk.
var digestPattern = regexp.MustCompile(`[0-9a-fA-F]{128}`)

// readBufSize bounds memory while hashing; artifacts reach 100+ GB
const readBufSize = 1 << 20

// IntegrityVerifier checks installer artifacts against companion digest
// files holding one or more reference SHA-512 hashes.
// Pure Go implementation - no external sha512sum binary needed
type IntegrityVerifier struct{}

// NewIntegrityVerifier creates a new integrity verifier
func NewIntegrityVerifier() *IntegrityVerifier {
	return &IntegrityVerifier{}
}

// Verify computes the artifact's SHA-512 digest and checks it against the
// records extracted from digestFilePath, honoring the requested mode.
//
// A missing artifact is an error (wrapping ErrMissingArtifact). A missing
// digest file is not: the result degrades to StatusNoReference and the
// caller's policy decides. A mismatch is a result, never an error, so
// operators can tell a corrupted download from a filesystem problem.
func (v *IntegrityVerifier) Verify(
	ctx context.Context,
	artifactPath, digestFilePath string,
	mode entities.VerificationMode,
) (*entities.VerificationResult, error) {
	result := &entities.VerificationResult{
		ArtifactPath:   artifactPath,
		DigestFilePath: digestFilePath,
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, artifactPath)
		}
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, artifactPath)
	}

	if mode == entities.ModeSkipVerify {
		result.Status = entities.StatusSkipped
		return result, nil
	}

	computed, err := v.ComputeDigest(ctx, artifactPath)
	if err != nil {
		return nil, err
	}
	result.ComputedDigest = computed

	if mode == entities.ModeComputeOnly {
		result.Status = entities.StatusComputed
		return result, nil
	}

	candidates, err := v.ExtractDigests(digestFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Status = entities.StatusNoReference
			return result, nil
		}
		return nil, fmt.Errorf("failed to read digest file: %w", err)
	}
	result.Candidates = candidates

	for _, candidate := range candidates {
		if strings.EqualFold(computed, candidate) {
			result.Status = entities.StatusVerified
			result.MatchedDigest = candidate
			return result, nil
		}
	}

	result.Status = entities.StatusMismatch
	return result, nil
}

// ComputeDigest streams the file through SHA-512 with a bounded buffer.
// Memory use is O(1) relative to file size.
func (v *IntegrityVerifier) ComputeDigest(ctx context.Context, filePath string) (string, error) {
	//nolint:gosec // G304: File path is user-provided for digest computation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha512.New()
	if err := copyWithContext(ctx, h, f); err != nil {
		return "", fmt.Errorf("failed to hash artifact: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ExtractDigests pulls every fixed-width hex record out of a digest file,
// independent of surrounding formatting. Duplicates are dropped; order is
// preserved for diagnostics.
func (v *IntegrityVerifier) ExtractDigests(digestFilePath string) ([]string, error) {
	//nolint:gosec // G304: digest file path is user-provided for verification
	data, err := os.ReadFile(digestFilePath)
	if err != nil {
		return nil, err
	}

	matches := digestPattern.FindAllString(string(data), -1)
	seen := make(map[string]struct{}, len(matches))
	var records []string
	for _, m := range matches {
		key := strings.ToLower(m)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, m)
	}
	return records, nil
}

// copyWithContext copies r into h in bounded chunks, checking for
// cancellation between reads. Hashing a multi-hundred-gigabyte archive can
// run for a long time; the context is the only way to stop early.
func copyWithContext(ctx context.Context, h hash.Hash, r io.Reader) error {
	buf := make([]byte, readBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			// hash.Hash.Write never returns an error
			h.Write(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

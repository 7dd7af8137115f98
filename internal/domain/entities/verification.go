package entities

import (
	"fmt"
	"strings"
)

// VerificationMode controls how the integrity verifier treats an artifact
type VerificationMode int

const (
	// ModeVerify computes the digest and requires a match against the
	// reference set when one is available
	ModeVerify VerificationMode = iota

	// ModeSkipVerify bypasses hashing entirely
	ModeSkipVerify

	// ModeComputeOnly computes and reports the digest without comparison,
	// useful for populating a fresh reference file
	ModeComputeOnly
)

// String returns the CLI-facing name of the mode
func (m VerificationMode) String() string {
	switch m {
	case ModeVerify:
		return "verify"
	case ModeSkipVerify:
		return "skip"
	case ModeComputeOnly:
		return "compute-only"
	default:
		return "unknown"
	}
}

// VerificationStatus is the outcome class of a verification run
type VerificationStatus int

const (
	// StatusVerified means the computed digest matched a reference record
	StatusVerified VerificationStatus = iota

	// StatusNoReference means no digest file was available; the caller's
	// policy decides whether to proceed or abort
	StatusNoReference

	// StatusMismatch means the computed digest matched none of the
	// reference records
	StatusMismatch

	// StatusSkipped means hashing was bypassed
	StatusSkipped

	// StatusComputed means the digest was computed without comparison
	StatusComputed
)

// String returns a human-readable status label
func (s VerificationStatus) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusNoReference:
		return "no-reference"
	case StatusMismatch:
		return "mismatch"
	case StatusSkipped:
		return "skipped"
	case StatusComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// VerificationResult is the outcome of one verification run.
// It is computed once per invocation and never persisted; it only gates
// whether the pipeline proceeds.
type VerificationResult struct {
	Status         VerificationStatus
	ComputedDigest string   // lowercase hex; empty when hashing was skipped
	MatchedDigest  string   // the reference record that matched, if any
	Candidates     []string // every record extracted from the digest file
	ArtifactPath   string
	DigestFilePath string
}

// Diagnostic renders the operator-facing detail for a result. On a
// mismatch it lists the computed digest and every candidate: one
// unexplained "verification failed" is far less actionable than seeing
// the whole reference set.
func (r *VerificationResult) Diagnostic() string {
	var b strings.Builder
	fmt.Fprintf(&b, "artifact: %s\n", r.ArtifactPath)
	switch r.Status {
	case StatusVerified:
		fmt.Fprintf(&b, "verified against %s\n", r.MatchedDigest)
	case StatusNoReference:
		fmt.Fprintf(&b, "no digest file at %s; artifact is UNVERIFIED\n", r.DigestFilePath)
	case StatusMismatch:
		fmt.Fprintf(&b, "computed: %s\n", r.ComputedDigest)
		if len(r.Candidates) == 0 {
			fmt.Fprintf(&b, "digest file %s contains no reference records\n", r.DigestFilePath)
		}
		for _, c := range r.Candidates {
			fmt.Fprintf(&b, "candidate: %s\n", c)
		}
	case StatusSkipped:
		b.WriteString("verification skipped\n")
	case StatusComputed:
		fmt.Fprintf(&b, "computed: %s\n", r.ComputedDigest)
	}
	return b.String()
}

// OK reports whether the result allows the pipeline to proceed under the
// given strictness. A missing reference passes unless strict mode is on.
func (r *VerificationResult) OK(strict bool) bool {
	switch r.Status {
	case StatusVerified, StatusSkipped, StatusComputed:
		return true
	case StatusNoReference:
		return !strict
	default:
		return false
	}
}

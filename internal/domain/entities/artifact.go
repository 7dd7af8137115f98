// Package entities defines core domain models and data structures.
package entities

// Artifact represents a vendor installer archive on disk
type Artifact struct {
	Name    string
	Version string
	Path    string // path to the installer tarball
	Size    int64  // bytes; 0 until resolved
}

// DigestFilePath returns the conventional companion digest file path
// for the artifact (<path>.digests)
func (a *Artifact) DigestFilePath() string {
	return a.Path + ".digests"
}

// SignatureFilePath returns the conventional detached signature path
// for the artifact's digest file (<path>.digests.asc)
func (a *Artifact) SignatureFilePath() string {
	return a.DigestFilePath() + ".asc"
}

package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

// errNotFound marks a 404 from the mirror, which is tolerated for digest
// and signature files but fatal for the artifact itself
var errNotFound = errors.New("not found on mirror")

// Downloader fetches installer artifacts and their companion digest files
// from an official or internal mirror
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader creates a new downloader
func NewDownloader() *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			// Installer archives are tens to hundreds of gigabytes
			Timeout: 6 * time.Hour,
		},
	}
}

// FetchArtifact downloads <name>.tar into the installer directory and
// returns the resulting artifact. The internal mirror is preferred when
// configured. An existing non-empty file is reused without re-downloading.
func (d *Downloader) FetchArtifact(ctx context.Context, recipe *entities.ImageRecipe, version string) (*entities.Artifact, error) {
	fileName := recipe.ArtifactFileName(version)
	destPath := filepath.Join(recipe.Installer.Dir, fileName)

	artifact := &entities.Artifact{
		Name:    recipe.Installer.Name,
		Version: version,
		Path:    destPath,
	}

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		artifact.Size = info.Size()
		return artifact, nil
	}

	base := d.baseURL(recipe)
	if base == "" {
		return nil, fmt.Errorf("no download URL configured for %s and %s not present locally", recipe.Name, destPath)
	}

	if err := os.MkdirAll(recipe.Installer.Dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create installer directory: %w", err)
	}

	size, err := d.downloadFile(ctx, joinURL(base, fileName), destPath)
	if err != nil {
		return nil, fmt.Errorf("artifact download failed: %w", err)
	}
	artifact.Size = size

	return artifact, nil
}

// FetchDigestFile downloads the companion digest file and, when published,
// its detached signature. A 404 for either is not an error: verification
// degrades to no-reference and the caller's policy decides.
func (d *Downloader) FetchDigestFile(ctx context.Context, recipe *entities.ImageRecipe, artifact *entities.Artifact) error {
	base := d.baseURL(recipe)
	if base == "" {
		return nil
	}

	for _, destPath := range []string{artifact.DigestFilePath(), artifact.SignatureFilePath()} {
		if _, err := os.Stat(destPath); err == nil {
			continue
		}
		url := joinURL(base, filepath.Base(destPath))
		if _, err := d.downloadFile(ctx, url, destPath); err != nil {
			if errors.Is(err, errNotFound) {
				continue
			}
			return fmt.Errorf("digest file download failed: %w", err)
		}
	}

	return nil
}

// baseURL picks the internal mirror when configured, otherwise the
// official source
func (d *Downloader) baseURL(recipe *entities.ImageRecipe) string {
	if recipe.Download.MirrorURL != "" {
		return recipe.Download.MirrorURL
	}
	return recipe.Download.OfficialURL
}

// downloadFile streams a URL to disk via a .part file renamed on success,
// so an interrupted transfer never leaves a plausible-looking artifact
func (d *Downloader) downloadFile(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%s: %w", url, errNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download of %s failed with status %d", url, resp.StatusCode)
	}

	partPath := destPath + ".part"
	//nolint:gosec // G304: destination derives from recipe configuration
	out, err := os.Create(partPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", partPath, err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("failed to write %s: %w", partPath, err)
	}

	if err := os.Rename(partPath, destPath); err != nil {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("failed to finalize download: %w", err)
	}

	return written, nil
}

func joinURL(base, name string) string {
	return strings.TrimSuffix(base, "/") + "/" + name
}

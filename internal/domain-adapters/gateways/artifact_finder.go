package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

// ArtifactFinder locates installer tarballs and their companion files in
// an installer directory
type ArtifactFinder struct{}

// NewArtifactFinder creates a new artifact finder
func NewArtifactFinder() *ArtifactFinder {
	return &ArtifactFinder{}
}

// FindArtifact resolves the installer tarball for a recipe and version.
// The conventional <name>_<version>.tar is preferred; when the version is
// unknown, any <name>*.tar in the directory matches, newest version last
// in sort order winning.
func (f *ArtifactFinder) FindArtifact(recipe *entities.ImageRecipe, version string) (*entities.Artifact, error) {
	dir := recipe.Installer.Dir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("installer directory does not exist: %s", dir)
	}

	if version != "" {
		path := filepath.Join(dir, recipe.ArtifactFileName(version))
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("installer artifact not found: %s", path)
		}
		return &entities.Artifact{
			Name:    recipe.Installer.Name,
			Version: version,
			Path:    path,
			Size:    info.Size(),
		}, nil
	}

	pattern := filepath.Join(dir, recipe.Installer.Name+"*.tar")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no installer artifact matching %s", pattern)
	}

	// Version strings sort lexically (2023.2 < 2024.1 < 2024.2)
	sort.Strings(matches)
	path := matches[len(matches)-1]

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return &entities.Artifact{
		Name:    recipe.Installer.Name,
		Version: versionFromFileName(recipe.Installer.Name, path),
		Path:    path,
		Size:    info.Size(),
	}, nil
}

// ListArtifacts returns every installer tarball in a directory along with
// whether its companion digest file is present
func (f *ArtifactFinder) ListArtifacts(dir string) ([]*entities.Artifact, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tar"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	sort.Strings(matches)
	artifacts := make([]*entities.Artifact, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, &entities.Artifact{
			Name: strings.TrimSuffix(filepath.Base(path), ".tar"),
			Path: path,
			Size: info.Size(),
		})
	}
	return artifacts, nil
}

// HasDigestFile reports whether an artifact's companion digest file exists
func (f *ArtifactFinder) HasDigestFile(artifact *entities.Artifact) bool {
	_, err := os.Stat(artifact.DigestFilePath())
	return err == nil
}

// versionFromFileName extracts the version suffix from the conventional
// <name>_<version>.tar layout; empty when the file does not follow it
func versionFromFileName(installerName, path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".tar")
	rest := strings.TrimPrefix(base, installerName)
	return strings.TrimPrefix(rest, "_")
}

package gateways

import (
	"os"
	"path/filepath"
	"testing"
)

func seedArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("tar contents"), 0600); err != nil {
		t.Fatalf("Failed to seed %s: %v", name, err)
	}
	return path
}

// TestFindArtifact tests resolution by exact version and by glob fallback
func TestFindArtifact(t *testing.T) {
	dir := t.TempDir()
	seedArtifact(t, dir, "FPGAs_AdaptiveSoCs_Unified_2023.2.tar")
	latest := seedArtifact(t, dir, "FPGAs_AdaptiveSoCs_Unified_2024.2.tar")
	seedArtifact(t, dir, "unrelated.tar")

	recipe := testRecipe(dir, "")
	finder := NewArtifactFinder()

	t.Run("exact version", func(t *testing.T) {
		artifact, err := finder.FindArtifact(recipe, "2023.2")
		if err != nil {
			t.Fatalf("FindArtifact() error = %v", err)
		}
		if artifact.Version != "2023.2" {
			t.Errorf("Version = %s, want 2023.2", artifact.Version)
		}
	})

	t.Run("missing version is an error", func(t *testing.T) {
		if _, err := finder.FindArtifact(recipe, "2019.1"); err == nil {
			t.Error("FindArtifact() for absent version should error")
		}
	})

	t.Run("no version picks newest", func(t *testing.T) {
		artifact, err := finder.FindArtifact(recipe, "")
		if err != nil {
			t.Fatalf("FindArtifact() error = %v", err)
		}
		if artifact.Path != latest {
			t.Errorf("Path = %s, want %s", artifact.Path, latest)
		}
		if artifact.Version != "2024.2" {
			t.Errorf("Version = %s, want 2024.2", artifact.Version)
		}
	})

	t.Run("missing directory is an error", func(t *testing.T) {
		gone := testRecipe(filepath.Join(dir, "nope"), "")
		if _, err := finder.FindArtifact(gone, ""); err == nil {
			t.Error("FindArtifact() with missing directory should error")
		}
	})
}

// TestListArtifacts tests enumeration and digest-file detection
func TestListArtifacts(t *testing.T) {
	dir := t.TempDir()
	first := seedArtifact(t, dir, "a_installer.tar")
	seedArtifact(t, dir, "b_installer.tar")
	if err := os.WriteFile(first+".digests", []byte("refs"), 0600); err != nil {
		t.Fatalf("Failed to seed digest file: %v", err)
	}

	finder := NewArtifactFinder()
	artifacts, err := finder.ListArtifacts(dir)
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("ListArtifacts() returned %d artifacts, want 2", len(artifacts))
	}

	if !finder.HasDigestFile(artifacts[0]) {
		t.Error("First artifact should report its digest file")
	}
	if finder.HasDigestFile(artifacts[1]) {
		t.Error("Second artifact has no digest file")
	}
}

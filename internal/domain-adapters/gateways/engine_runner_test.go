package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

func engineTestRecipe() *entities.ImageRecipe {
	return &entities.ImageRecipe{
		Name: "vivado",
		Image: entities.ImageConfig{
			Repository: "kilnworks/vivado",
			BaseImage:  "ubuntu:24.04",
		},
		Installer: entities.InstallerConfig{
			Name:    "FPGAs_AdaptiveSoCs_Unified",
			Edition: "Vivado ML Standard",
		},
		Build: entities.BuildConfig{
			Dockerfile: "Dockerfile",
			Args:       map[string]string{"EXTRA": "1"},
		},
	}
}

// TestDetectEngine tests engine resolution order and preference handling
func TestDetectEngine(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		available map[string]string
		want      string
		wantErr   bool
	}{
		{
			name:      "docker preferred over podman",
			available: map[string]string{"docker": "/usr/bin/docker", "podman": "/usr/bin/podman"},
			want:      "/usr/bin/docker",
		},
		{
			name:      "podman fallback",
			available: map[string]string{"podman": "/usr/bin/podman"},
			want:      "/usr/bin/podman",
		},
		{
			name:      "explicit preference wins",
			preferred: "podman",
			available: map[string]string{"docker": "/usr/bin/docker", "podman": "/usr/bin/podman"},
			want:      "/usr/bin/podman",
		},
		{
			name:      "explicit preference missing",
			preferred: "podman",
			available: map[string]string{"docker": "/usr/bin/docker"},
			wantErr:   true,
		},
		{
			name:      "nothing installed",
			available: map[string]string{},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewEngineRunner()
			runner.lookPath = func(name string) (string, error) {
				if path, ok := tt.available[name]; ok {
					return path, nil
				}
				return "", fmt.Errorf("%s not found", name)
			}

			got, err := runner.DetectEngine(tt.preferred)
			if tt.wantErr {
				if !errors.Is(err, ErrNoEngine) {
					t.Errorf("DetectEngine() error = %v, want ErrNoEngine", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectEngine() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectEngine() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestBuildArgs tests the derived engine command line
func TestBuildArgs(t *testing.T) {
	recipe := engineTestRecipe()
	args := BuildArgs(recipe, "2024.2", true)

	joined := strings.Join(args, " ")

	if args[0] != "build" {
		t.Errorf("First arg = %s, want build", args[0])
	}
	if !strings.Contains(joined, "-t kilnworks/vivado:2024.2") {
		t.Errorf("Missing image tag in %q", joined)
	}
	if !strings.Contains(joined, "--build-arg INSTALLER_VERSION=2024.2") {
		t.Errorf("Missing installer version build arg in %q", joined)
	}
	if !strings.Contains(joined, "--build-arg VERIFY_DIGEST=true") {
		t.Errorf("Missing verify build arg in %q", joined)
	}
	if !strings.Contains(joined, "--build-arg EXTRA=1") {
		t.Errorf("Missing recipe build arg in %q", joined)
	}
	if args[len(args)-1] != "." {
		t.Errorf("Last arg = %s, want default context dir", args[len(args)-1])
	}

	// Deterministic across invocations despite the build-arg map
	again := BuildArgs(recipe, "2024.2", true)
	if strings.Join(again, " ") != joined {
		t.Error("BuildArgs() is not deterministic")
	}
}

// TestBuildArgs_TagFallback tests tag selection
func TestBuildArgs_TagFallback(t *testing.T) {
	recipe := engineTestRecipe()

	args := BuildArgs(recipe, "", false)
	if !strings.Contains(strings.Join(args, " "), "kilnworks/vivado:latest") {
		t.Error("Expected latest tag when neither recipe tag nor version is set")
	}

	recipe.Image.Tag = "2024.2-standard"
	args = BuildArgs(recipe, "2024.2", false)
	if !strings.Contains(strings.Join(args, " "), "kilnworks/vivado:2024.2-standard") {
		t.Error("Explicit recipe tag should win over version")
	}
}

// TestBuildImage tests the invocation path with a stand-in engine binary
func TestBuildImage(t *testing.T) {
	recipe := engineTestRecipe()
	runner := NewEngineRunner()

	t.Run("successful invocation", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		result := runner.BuildImage(context.Background(), BuildInvocation{
			Engine:  "echo",
			Recipe:  recipe,
			Version: "2024.2",
			Verify:  true,
			Stdout:  &stdout,
			Stderr:  &stderr,
		})

		if !result.Success {
			t.Fatalf("BuildImage() failed: %v", result.Error)
		}
		if result.ExitCode != 0 {
			t.Errorf("BuildImage() exit code = %d, want 0", result.ExitCode)
		}
		if !strings.Contains(stdout.String(), "build") {
			t.Errorf("Engine did not receive build arguments: %q", stdout.String())
		}
	})

	t.Run("failing engine", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		result := runner.BuildImage(context.Background(), BuildInvocation{
			Engine:  "false",
			Recipe:  recipe,
			Version: "2024.2",
			Stdout:  &stdout,
			Stderr:  &stderr,
		})

		if result.Success {
			t.Error("BuildImage() with failing engine should not succeed")
		}
		if result.ExitCode == 0 {
			t.Error("BuildImage() with failing engine should report non-zero exit")
		}
	})

	t.Run("missing engine binary", func(t *testing.T) {
		result := runner.BuildImage(context.Background(), BuildInvocation{
			Engine: "/nonexistent/engine",
			Recipe: recipe,
		})
		if result.Success {
			t.Error("BuildImage() with missing engine should not succeed")
		}
	})
}

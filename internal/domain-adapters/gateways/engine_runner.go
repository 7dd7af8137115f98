package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

// ErrNoEngine is returned when neither docker nor podman is on PATH
var ErrNoEngine = errors.New("no container engine found")

// EngineRunner drives container image builds through docker or podman
type EngineRunner struct {
	defaultTimeout time.Duration
	lookPath       func(string) (string, error)
}

// NewEngineRunner creates a new engine runner
func NewEngineRunner() *EngineRunner {
	return &EngineRunner{
		// Vendor installer extraction plus package installs routinely
		// run for hours
		defaultTimeout: 8 * time.Hour,
		lookPath:       exec.LookPath,
	}
}

// RunResult contains the result of an engine invocation
type RunResult struct {
	Success  bool
	ExitCode int
	Duration time.Duration
	Error    error
}

// BuildInvocation configures one image build
type BuildInvocation struct {
	Engine  string // resolved engine binary, from DetectEngine
	Recipe  *entities.ImageRecipe
	Version string
	Verify  bool // forwarded to the build as a build arg
	Stdout  io.Writer
	Stderr  io.Writer
}

// DetectEngine resolves the container engine binary. An explicit
// preference is honored; otherwise docker wins over podman.
func (er *EngineRunner) DetectEngine(preferred string) (string, error) {
	candidates := []string{"docker", "podman"}
	if preferred != "" {
		candidates = []string{preferred}
	}

	for _, name := range candidates {
		if path, err := er.lookPath(name); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: tried %v", ErrNoEngine, candidates)
}

// BuildImage runs `<engine> build` with arguments derived from the recipe.
// Output streams to the invocation's writers; image builds run far too
// long to buffer.
func (er *EngineRunner) BuildImage(ctx context.Context, inv BuildInvocation) *RunResult {
	startTime := time.Now()
	result := &RunResult{}

	timeout := er.defaultTimeout
	if inv.Recipe.Build.TimeoutMinutes > 0 {
		timeout = time.Duration(inv.Recipe.Build.TimeoutMinutes) * time.Minute
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := BuildArgs(inv.Recipe, inv.Version, inv.Verify)
	//nolint:gosec // G204: Engine invocation is intentional and controlled by recipe configuration
	cmd := exec.CommandContext(execCtx, inv.Engine, args...)

	cmd.Stdout = inv.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = inv.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	result.Duration = time.Since(startTime)

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else if execCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Errorf("image build timeout after %v", timeout)
			result.ExitCode = -1
		} else {
			result.ExitCode = -1
		}
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// Build runs an image build with default output streams, converting the
// result to an error for orchestration
func (er *EngineRunner) Build(ctx context.Context, engine string, recipe *entities.ImageRecipe, version string, verify bool) error {
	result := er.BuildImage(ctx, BuildInvocation{
		Engine:  engine,
		Recipe:  recipe,
		Version: version,
		Verify:  verify,
	})
	if result.Success {
		return nil
	}
	if result.Error != nil {
		return fmt.Errorf("engine build failed (exit %d): %w", result.ExitCode, result.Error)
	}
	return fmt.Errorf("engine build failed (exit %d)", result.ExitCode)
}

// BuildArgs assembles the engine build command line for a recipe.
// Build args are emitted in sorted order so invocations are reproducible
// and engine layer caching is not defeated by map iteration order.
func BuildArgs(recipe *entities.ImageRecipe, version string, verify bool) []string {
	args := []string{"build",
		"-t", fmt.Sprintf("%s:%s", recipe.Image.Repository, tagOrVersion(recipe, version)),
	}

	if recipe.Build.Dockerfile != "" {
		args = append(args, "-f", recipe.Build.Dockerfile)
	}

	buildArgs := map[string]string{
		"BASE_IMAGE":        recipe.Image.BaseImage,
		"INSTALLER_NAME":    recipe.Installer.Name,
		"INSTALLER_VERSION": version,
		"INSTALLER_EDITION": recipe.Installer.Edition,
		"VERIFY_DIGEST":     fmt.Sprintf("%t", verify),
	}
	for k, v := range recipe.Build.Args {
		buildArgs[k] = v
	}

	keys := make([]string, 0, len(buildArgs))
	for k := range buildArgs {
		if buildArgs[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, buildArgs[k]))
	}

	contextDir := recipe.Build.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	return append(args, contextDir)
}

func tagOrVersion(recipe *entities.ImageRecipe, version string) string {
	if recipe.Image.Tag != "" {
		return recipe.Image.Tag
	}
	if version != "" {
		return version
	}
	return "latest"
}

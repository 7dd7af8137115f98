package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

const computedDigest = "9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca72323c3d99ba5c11d7c7acc6e14b8c5da0c4663475c2e5c3adef46f73bcdec043"

type fakeRepo struct {
	recipe *entities.ImageRecipe
}

func (f *fakeRepo) GetRecipe(_ context.Context, name string) (*entities.ImageRecipe, error) {
	if f.recipe == nil || f.recipe.Name != name {
		return nil, errors.New("recipe not found")
	}
	// Copy so per-test overrides do not leak between runs
	recipe := *f.recipe
	return &recipe, nil
}

func (f *fakeRepo) ListRecipes(_ context.Context) ([]*entities.ImageRecipe, error) {
	return []*entities.ImageRecipe{f.recipe}, nil
}

type fakeDownloader struct {
	artifact     *entities.Artifact
	digestFetches int
	fetchedVer   string
}

func (f *fakeDownloader) FetchArtifact(_ context.Context, _ *entities.ImageRecipe, version string) (*entities.Artifact, error) {
	f.fetchedVer = version
	return f.artifact, nil
}

func (f *fakeDownloader) FetchDigestFile(_ context.Context, _ *entities.ImageRecipe, _ *entities.Artifact) error {
	f.digestFetches++
	return nil
}

type fakeVerifier struct {
	result   *entities.VerificationResult
	gotMode  entities.VerificationMode
	verified int
}

func (f *fakeVerifier) Verify(_ context.Context, _, _ string, mode entities.VerificationMode) (*entities.VerificationResult, error) {
	f.gotMode = mode
	f.verified++
	return f.result, nil
}

type fakeEstimator struct {
	estimate *entities.BuildEstimate
}

func (f *fakeEstimator) Estimate(_ context.Context, _ *entities.ImageRecipe, _ *entities.Artifact) (*entities.BuildEstimate, error) {
	return f.estimate, nil
}

type fakeEngine struct {
	buildErr error
	builds   int
}

func (f *fakeEngine) DetectEngine(_ string) (string, error) {
	return "/usr/bin/docker", nil
}

func (f *fakeEngine) Build(_ context.Context, _ string, _ *entities.ImageRecipe, _ string, _ bool) error {
	f.builds++
	return f.buildErr
}

type fakeSampler struct {
	started   bool
	cancelled bool
}

func (f *fakeSampler) Run(ctx context.Context) error {
	f.started = true
	<-ctx.Done()
	f.cancelled = true
	return ctx.Err()
}

func bakeRecipe() *entities.ImageRecipe {
	return &entities.ImageRecipe{
		Name: "vivado",
		Image: entities.ImageConfig{
			Repository: "kilnworks/vivado",
			BaseImage:  "ubuntu:24.04",
		},
		Installer: entities.InstallerConfig{
			Name:    "FPGAs_AdaptiveSoCs_Unified",
			Version: "2024.2",
			Dir:     "installers",
		},
	}
}

func verifiedResult() *entities.VerificationResult {
	return &entities.VerificationResult{
		Status:         entities.StatusVerified,
		ComputedDigest: computedDigest,
		MatchedDigest:  computedDigest,
	}
}

func goodEstimate() *entities.BuildEstimate {
	return &entities.BuildEstimate{CPUCount: 8, DiskFree: 1 << 40, DiskRequired: 300 << 30}
}

func newTestOrchestrator(verifier *fakeVerifier, engine *fakeEngine, sampler *fakeSampler, estimate *entities.BuildEstimate) (*BuildOrchestrator, *fakeDownloader) {
	downloader := &fakeDownloader{
		artifact: &entities.Artifact{
			Name:    "FPGAs_AdaptiveSoCs_Unified",
			Version: "2024.2",
			Path:    "installers/FPGAs_AdaptiveSoCs_Unified_2024.2.tar",
			Size:    100 << 30,
		},
	}
	orch := NewBuildOrchestrator(
		&fakeRepo{recipe: bakeRecipe()},
		downloader,
		verifier,
		nil,
		&fakeEstimator{estimate: estimate},
		engine,
		sampler,
		BuildOrchestratorConfig{},
	)
	return orch, downloader
}

// TestBakeImage_Success tests the full happy path and sampler lifecycle
func TestBakeImage_Success(t *testing.T) {
	verifier := &fakeVerifier{result: verifiedResult()}
	engine := &fakeEngine{}
	sampler := &fakeSampler{}
	orch, downloader := newTestOrchestrator(verifier, engine, sampler, goodEstimate())

	result, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{})
	if err != nil {
		t.Fatalf("BakeImage() error = %v", err)
	}

	if !result.Success {
		t.Error("BakeImage() did not report success")
	}
	if engine.builds != 1 {
		t.Errorf("Engine builds = %d, want 1", engine.builds)
	}
	if downloader.digestFetches != 1 {
		t.Errorf("Digest fetches = %d, want 1", downloader.digestFetches)
	}
	if !sampler.started || !sampler.cancelled {
		t.Errorf("Sampler started=%v cancelled=%v, want both", sampler.started, sampler.cancelled)
	}

	var names []string
	for _, s := range result.Steps {
		names = append(names, s.Name)
	}
	want := []string{"fetch", "verify", "estimate", "bake"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Steps = %v, want %v", names, want)
	}

	if !strings.Contains(result.GetBakeSummary(), "Bake successful") {
		t.Errorf("Unexpected summary: %s", result.GetBakeSummary())
	}
}

// TestBakeImage_Mismatch tests that a digest mismatch stops the pipeline
// before the engine runs, with full diagnostics in the error
func TestBakeImage_Mismatch(t *testing.T) {
	candidate := strings.Repeat("ab", 64)
	verifier := &fakeVerifier{result: &entities.VerificationResult{
		Status:         entities.StatusMismatch,
		ComputedDigest: computedDigest,
		Candidates:     []string{candidate},
	}}
	engine := &fakeEngine{}
	orch, _ := newTestOrchestrator(verifier, engine, &fakeSampler{}, goodEstimate())

	_, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{})
	if err == nil {
		t.Fatal("BakeImage() with mismatch should fail")
	}
	if engine.builds != 0 {
		t.Error("Engine must not run after a mismatch")
	}
	if !strings.Contains(err.Error(), computedDigest) || !strings.Contains(err.Error(), candidate) {
		t.Errorf("Mismatch error lacks diagnostics: %v", err)
	}
}

// TestBakeImage_NoReferencePolicy tests default-proceed vs strict-abort
// for a missing digest file
func TestBakeImage_NoReferencePolicy(t *testing.T) {
	noRef := &entities.VerificationResult{
		Status:         entities.StatusNoReference,
		ComputedDigest: computedDigest,
	}

	t.Run("default proceeds with warning", func(t *testing.T) {
		engine := &fakeEngine{}
		orch, _ := newTestOrchestrator(&fakeVerifier{result: noRef}, engine, &fakeSampler{}, goodEstimate())

		result, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{})
		if err != nil {
			t.Fatalf("BakeImage() error = %v", err)
		}
		if !result.Success || engine.builds != 1 {
			t.Error("Default policy should proceed unverified")
		}
	})

	t.Run("strict aborts", func(t *testing.T) {
		engine := &fakeEngine{}
		orch, _ := newTestOrchestrator(&fakeVerifier{result: noRef}, engine, &fakeSampler{}, goodEstimate())

		_, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{Strict: true})
		if err == nil {
			t.Fatal("Strict mode with no reference should fail")
		}
		if engine.builds != 0 {
			t.Error("Engine must not run when strict verification fails")
		}
	})
}

// TestBakeImage_SkipVerify tests the bypass path
func TestBakeImage_SkipVerify(t *testing.T) {
	verifier := &fakeVerifier{result: &entities.VerificationResult{Status: entities.StatusSkipped}}
	engine := &fakeEngine{}
	orch, downloader := newTestOrchestrator(verifier, engine, &fakeSampler{}, goodEstimate())

	result, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{SkipVerify: true})
	if err != nil {
		t.Fatalf("BakeImage() error = %v", err)
	}
	if verifier.gotMode != entities.ModeSkipVerify {
		t.Errorf("Verifier mode = %v, want skip", verifier.gotMode)
	}
	if downloader.digestFetches != 0 {
		t.Error("Digest file should not be fetched when verification is skipped")
	}
	if !result.Success {
		t.Error("Skipped verification should still succeed")
	}
}

// TestBakeImage_InsufficientDisk tests the pre-build resource gate
func TestBakeImage_InsufficientDisk(t *testing.T) {
	engine := &fakeEngine{}
	starved := &entities.BuildEstimate{
		CPUCount:     8,
		DiskFree:     100 << 30,
		DiskRequired: 300 << 30,
		Warnings:     []string{"insufficient disk"},
	}
	orch, _ := newTestOrchestrator(&fakeVerifier{result: verifiedResult()}, engine, &fakeSampler{}, starved)

	_, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{})
	if err == nil {
		t.Fatal("BakeImage() with insufficient disk should fail")
	}
	if engine.builds != 0 {
		t.Error("Engine must not run without enough disk")
	}
}

// TestBakeImage_VersionOverride tests that the option wins over the recipe
func TestBakeImage_VersionOverride(t *testing.T) {
	verifier := &fakeVerifier{result: verifiedResult()}
	orch, downloader := newTestOrchestrator(verifier, &fakeEngine{}, &fakeSampler{}, goodEstimate())

	if _, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{Version: "2025.1"}); err != nil {
		t.Fatalf("BakeImage() error = %v", err)
	}
	if downloader.fetchedVer != "2025.1" {
		t.Errorf("Fetched version = %s, want override 2025.1", downloader.fetchedVer)
	}
}

// TestBakeImage_EngineFailure tests that build failures surface with the
// bake step attributed
func TestBakeImage_EngineFailure(t *testing.T) {
	engine := &fakeEngine{buildErr: errors.New("engine exited 125")}
	orch, _ := newTestOrchestrator(&fakeVerifier{result: verifiedResult()}, engine, &fakeSampler{}, goodEstimate())

	result, err := orch.BakeImage(context.Background(), "vivado", BakeOptions{})
	if err == nil {
		t.Fatal("BakeImage() with failing engine should fail")
	}
	if result.Success {
		t.Error("Result must not report success")
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Name != "bake" || last.Err == nil {
		t.Errorf("Last step = %+v, want failed bake", last)
	}
}

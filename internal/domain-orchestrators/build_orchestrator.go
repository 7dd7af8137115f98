// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kilnworks/kiln/internal/domain/entities"
	"github.com/kilnworks/kiln/internal/domain/interfaces"
	"github.com/kilnworks/kiln/internal/domain/interfaces/repositories"
	"github.com/kilnworks/kiln/internal/domain/services"
)

// Downloader interface for fetching installer artifacts and digest files
type Downloader interface {
	FetchArtifact(ctx context.Context, recipe *entities.ImageRecipe, version string) (*entities.Artifact, error)
	FetchDigestFile(ctx context.Context, recipe *entities.ImageRecipe, artifact *entities.Artifact) error
}

// Verifier interface for artifact integrity verification
type Verifier interface {
	Verify(ctx context.Context, artifactPath, digestFilePath string, mode entities.VerificationMode) (*entities.VerificationResult, error)
}

// SignatureVerifier interface for digest-file provenance checks
type SignatureVerifier interface {
	ImportKeys(ctx context.Context, keyIDs []string) error
	ImportKeyringFile(keyringPath string) error
	VerifyDigestFile(digestPath, sigPath string) error
	KeyringSize() int
}

// Estimator interface for build-time prediction
type Estimator interface {
	Estimate(ctx context.Context, recipe *entities.ImageRecipe, artifact *entities.Artifact) (*entities.BuildEstimate, error)
}

// BakeEngine interface for driving the container engine
type BakeEngine interface {
	DetectEngine(preferred string) (string, error)
	Build(ctx context.Context, engine string, recipe *entities.ImageRecipe, version string, verify bool) error
}

// Sampler interface for the background resource monitor
type Sampler interface {
	Run(ctx context.Context) error
}

// BuildOrchestrator coordinates the complete image bake workflow
type BuildOrchestrator struct {
	recipeRepo   repositories.RecipeRepository
	downloader   Downloader
	verifier     Verifier
	sigVerifier  SignatureVerifier
	estimator    Estimator
	engine       BakeEngine
	sampler      Sampler
	logger       interfaces.Logger
	skipEstimate bool
}

// BuildOrchestratorConfig holds configuration for the orchestrator
type BuildOrchestratorConfig struct {
	// SkipEstimate disables the pre-build resource check
	SkipEstimate bool
	Logger       interfaces.Logger
}

// NewBuildOrchestrator creates a new build orchestrator
func NewBuildOrchestrator(
	recipeRepo repositories.RecipeRepository,
	downloader Downloader,
	verifier Verifier,
	sigVerifier SignatureVerifier,
	estimator Estimator,
	engine BakeEngine,
	sampler Sampler,
	config BuildOrchestratorConfig,
) *BuildOrchestrator {
	logger := config.Logger
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &BuildOrchestrator{
		recipeRepo:   recipeRepo,
		downloader:   downloader,
		verifier:     verifier,
		sigVerifier:  sigVerifier,
		estimator:    estimator,
		engine:       engine,
		sampler:      sampler,
		logger:       logger,
		skipEstimate: config.SkipEstimate,
	}
}

// BakeOptions are per-invocation overrides on top of the recipe
type BakeOptions struct {
	Version    string // overrides recipe installer version
	MirrorURL  string // overrides recipe mirror
	SkipVerify bool
	Strict     bool
}

// BakeResult contains the result of a bake operation
type BakeResult struct {
	Recipe        *entities.ImageRecipe
	Artifact      *entities.Artifact
	Verification  *entities.VerificationResult
	Estimate      *entities.BuildEstimate
	Steps         []services.StepRecord
	TotalDuration time.Duration
	Success       bool
	Error         error
}

// BakeImage executes the complete workflow for one recipe: fetch the
// installer, verify its integrity, check host resources, and drive the
// container engine build with background resource sampling.
func (o *BuildOrchestrator) BakeImage(ctx context.Context, recipeName string, opts BakeOptions) (*BakeResult, error) {
	startTime := time.Now()
	tracker := services.NewStepTracker()
	result := &BakeResult{}

	fail := func(err error) (*BakeResult, error) {
		tracker.End(err)
		result.Steps = tracker.Steps()
		result.TotalDuration = time.Since(startTime)
		result.Error = err
		return result, err
	}

	// Step 1: Load recipe and apply overrides
	recipe, err := o.recipeRepo.GetRecipe(ctx, recipeName)
	if err != nil {
		return fail(fmt.Errorf("failed to load recipe: %w", err))
	}
	applyOverrides(recipe, opts)
	result.Recipe = recipe
	version := recipe.Installer.Version

	// Step 2: Fetch artifact and digest file
	tracker.Start("fetch")
	artifact, err := o.downloader.FetchArtifact(ctx, recipe, version)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch artifact: %w", err))
	}
	result.Artifact = artifact
	if !recipe.Verify.Skip {
		if err := o.downloader.FetchDigestFile(ctx, recipe, artifact); err != nil {
			return fail(fmt.Errorf("failed to fetch digest file: %w", err))
		}
	}
	tracker.End(nil)

	// Step 3: Digest-file provenance, when keys are configured and a
	// signature is present
	if !recipe.Verify.Skip && o.sigVerifier != nil {
		if err := o.checkDigestSignature(ctx, tracker, recipe, artifact); err != nil {
			return fail(err)
		}
	}

	// Step 4: Integrity verification
	tracker.Start("verify")
	mode := entities.ModeVerify
	if recipe.Verify.Skip {
		mode = entities.ModeSkipVerify
	}
	verification, err := o.verifier.Verify(ctx, artifact.Path, artifact.DigestFilePath(), mode)
	if err != nil {
		return fail(fmt.Errorf("verification error: %w", err))
	}
	result.Verification = verification
	if !verification.OK(recipe.Verify.Strict) {
		return fail(fmt.Errorf("integrity verification failed (%s):\n%s",
			verification.Status, verification.Diagnostic()))
	}
	if verification.Status == entities.StatusNoReference {
		o.logger.Warn("proceeding without integrity verification",
			interfaces.F("artifact", artifact.Path))
	}
	tracker.End(nil)

	// Step 5: Resource check and estimate
	if !o.skipEstimate {
		tracker.Start("estimate")
		estimate, err := o.estimator.Estimate(ctx, recipe, artifact)
		if err != nil {
			return fail(fmt.Errorf("failed to estimate build: %w", err))
		}
		result.Estimate = estimate
		for _, w := range estimate.Warnings {
			o.logger.Warn(w)
		}
		if !estimate.DiskSufficient() {
			return fail(fmt.Errorf("refusing to start: installer needs %d GiB free, host has %d GiB",
				estimate.DiskRequired>>30, estimate.DiskFree>>30))
		}
		o.logger.Info("estimated bake duration",
			interfaces.F("duration", estimate.Duration.String()))
		tracker.End(nil)
	}

	// Step 6: Engine build with background resource sampling
	tracker.Start("bake")
	engine, err := o.engine.DetectEngine(recipe.Build.Engine)
	if err != nil {
		return fail(err)
	}

	sampleCtx, stopSampler := context.WithCancel(ctx)
	samplerDone := make(chan struct{})
	if o.sampler != nil {
		go func() {
			defer close(samplerDone)
			// Cancellation is the expected way the loop ends
			_ = o.sampler.Run(sampleCtx)
		}()
	} else {
		close(samplerDone)
	}

	buildErr := o.engine.Build(ctx, engine, recipe, version, !recipe.Verify.Skip)
	stopSampler()
	<-samplerDone

	if buildErr != nil {
		return fail(buildErr)
	}
	tracker.End(nil)

	result.Steps = tracker.Steps()
	result.TotalDuration = time.Since(startTime)
	result.Success = true
	return result, nil
}

// checkDigestSignature verifies the digest file's detached signature when
// the recipe configures keys and the signature file exists
func (o *BuildOrchestrator) checkDigestSignature(ctx context.Context, tracker *services.StepTracker, recipe *entities.ImageRecipe, artifact *entities.Artifact) error {
	hasKeys := recipe.Verify.KeyringFile != "" || len(recipe.Verify.GPGKeyIDs) > 0
	if !hasKeys {
		return nil
	}
	if _, err := os.Stat(artifact.SignatureFilePath()); os.IsNotExist(err) {
		o.logger.Warn("digest file signature not found, skipping provenance check",
			interfaces.F("path", artifact.SignatureFilePath()))
		return nil
	}

	tracker.Start("signature")
	if recipe.Verify.KeyringFile != "" {
		if err := o.sigVerifier.ImportKeyringFile(recipe.Verify.KeyringFile); err != nil {
			err = fmt.Errorf("failed to import keyring: %w", err)
			tracker.End(err)
			return err
		}
	}
	if len(recipe.Verify.GPGKeyIDs) > 0 && o.sigVerifier.KeyringSize() == 0 {
		if err := o.sigVerifier.ImportKeys(ctx, recipe.Verify.GPGKeyIDs); err != nil {
			err = fmt.Errorf("failed to import keys: %w", err)
			tracker.End(err)
			return err
		}
	}
	if err := o.sigVerifier.VerifyDigestFile(artifact.DigestFilePath(), artifact.SignatureFilePath()); err != nil {
		err = fmt.Errorf("digest file provenance check failed: %w", err)
		tracker.End(err)
		return err
	}
	tracker.End(nil)
	return nil
}

// applyOverrides folds per-invocation options into the loaded recipe so
// later steps see a single effective configuration
func applyOverrides(recipe *entities.ImageRecipe, opts BakeOptions) {
	if opts.Version != "" {
		recipe.Installer.Version = opts.Version
	}
	if opts.MirrorURL != "" {
		recipe.Download.MirrorURL = opts.MirrorURL
	}
	if opts.SkipVerify {
		recipe.Verify.Skip = true
		recipe.Verify.Strict = false
	}
	if opts.Strict {
		recipe.Verify.Strict = true
		recipe.Verify.Skip = false
	}
}

// GetBakeSummary returns a human-readable summary of the bake
func (r *BakeResult) GetBakeSummary() string {
	if !r.Success {
		return fmt.Sprintf("Bake failed: %v", r.Error)
	}

	summary := fmt.Sprintf(`Bake successful!
Image: %s:%s
Artifact: %s
Verification: %s
Total: %v`,
		r.Recipe.Image.Repository,
		r.Recipe.EffectiveTag(),
		r.Artifact.Path,
		r.Verification.Status,
		r.TotalDuration.Round(time.Second),
	)

	if r.Estimate != nil {
		summary += fmt.Sprintf("\nEstimated: %v", r.Estimate.Duration.Round(time.Minute))
	}

	return summary
}

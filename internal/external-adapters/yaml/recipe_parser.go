// Package yaml provides YAML-based image recipe parsing and repository
// implementations.
package yaml

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

// yamlRecipe represents the raw YAML structure
type yamlRecipe struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Image       yamlImage     `yaml:"image"`
	Installer   yamlInstaller `yaml:"installer"`
	Download    yamlDownload  `yaml:"download"`
	Verify      yamlVerify    `yaml:"verify"`
	Build       yamlBuild     `yaml:"build"`
}

type yamlImage struct {
	Repository string   `yaml:"repository"`
	Tag        string   `yaml:"tag"`
	BaseImage  string   `yaml:"base_image"`
	Packages   []string `yaml:"packages"`
}

type yamlInstaller struct {
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Edition      string            `yaml:"edition"`
	BatchOptions map[string]string `yaml:"batch_options"`
	Dir          string            `yaml:"dir"`
	DiskFactor   int               `yaml:"disk_factor"`
}

type yamlDownload struct {
	OfficialURL string `yaml:"official_url"`
	MirrorURL   string `yaml:"mirror_url"`
}

type yamlVerify struct {
	Skip        bool     `yaml:"skip"`
	Strict      bool     `yaml:"strict"`
	GPGKeyIDs   []string `yaml:"gpg_key_ids"`
	KeyringFile string   `yaml:"keyring_file"`
}

type yamlBuild struct {
	Engine         string            `yaml:"engine"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
	Args           map[string]string `yaml:"args"`
	ContextDir     string            `yaml:"context_dir"`
	Dockerfile     string            `yaml:"dockerfile"`
}

// RecipeParser parses YAML image recipe files
type RecipeParser struct{}

// NewRecipeParser creates a new YAML parser
func NewRecipeParser() *RecipeParser {
	return &RecipeParser{}
}

// ParseFile parses a YAML recipe file into an ImageRecipe entity
func (p *RecipeParser) ParseFile(filePath string) (*entities.ImageRecipe, error) {
	//nolint:gosec // G304: filePath is recipe definition path from repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into an ImageRecipe entity
func (p *RecipeParser) Parse(data []byte) (*entities.ImageRecipe, error) {
	var raw yamlRecipe
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate required fields
	if raw.Name == "" {
		return nil, fmt.Errorf("recipe must have a name")
	}
	if raw.Installer.Name == "" {
		return nil, fmt.Errorf("recipe %s must name its installer", raw.Name)
	}
	if raw.Image.Repository == "" {
		return nil, fmt.Errorf("recipe %s must name its image repository", raw.Name)
	}
	if raw.Verify.Skip && raw.Verify.Strict {
		return nil, fmt.Errorf("recipe %s cannot both skip and require verification", raw.Name)
	}

	recipe := &entities.ImageRecipe{
		Name:        raw.Name,
		Description: raw.Description,
		Image: entities.ImageConfig{
			Repository: raw.Image.Repository,
			Tag:        raw.Image.Tag,
			BaseImage:  raw.Image.BaseImage,
			Packages:   raw.Image.Packages,
		},
		Installer: entities.InstallerConfig{
			Name:         raw.Installer.Name,
			Version:      raw.Installer.Version,
			Edition:      raw.Installer.Edition,
			BatchOptions: raw.Installer.BatchOptions,
			Dir:          raw.Installer.Dir,
			DiskFactor:   raw.Installer.DiskFactor,
		},
		Download: entities.DownloadConfig{
			OfficialURL: raw.Download.OfficialURL,
			MirrorURL:   raw.Download.MirrorURL,
		},
		Verify: entities.VerifyConfig{
			Skip:        raw.Verify.Skip,
			Strict:      raw.Verify.Strict,
			GPGKeyIDs:   raw.Verify.GPGKeyIDs,
			KeyringFile: raw.Verify.KeyringFile,
		},
		Build: entities.BuildConfig{
			Engine:         raw.Build.Engine,
			TimeoutMinutes: raw.Build.TimeoutMinutes,
			Args:           raw.Build.Args,
			ContextDir:     raw.Build.ContextDir,
			Dockerfile:     raw.Build.Dockerfile,
		},
	}

	if recipe.Installer.Dir == "" {
		recipe.Installer.Dir = "installers"
	}

	return recipe, nil
}

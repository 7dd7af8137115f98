package entities

// ImageRecipe describes how to bake one container image embedding a
// vendor toolchain installer
type ImageRecipe struct {
	Name        string
	Description string
	Image       ImageConfig
	Installer   InstallerConfig
	Download    DownloadConfig
	Verify      VerifyConfig
	Build       BuildConfig
}

// ImageConfig names the image to produce and its base
type ImageConfig struct {
	Repository string // e.g. "kilnworks/vivado"
	Tag        string // defaults to the installer version
	BaseImage  string // e.g. "ubuntu:24.04"
	Packages   []string
}

// InstallerConfig identifies the vendor installer artifact and how to
// drive it in batch mode
type InstallerConfig struct {
	Name         string // artifact base name, e.g. "Xilinx_Vivado_2024.2"
	Version      string
	Edition      string
	BatchOptions map[string]string
	Dir          string // installer directory holding <Name>.tar and friends
	// Free disk needed as a multiple of artifact size; the vendor
	// installer unpacks and installs alongside the archive.
	DiskFactor int
}

// DownloadConfig locates the artifact on official or internal mirrors
type DownloadConfig struct {
	OfficialURL string // base URL for the vendor download site
	MirrorURL   string // optional internal mirror, preferred when set
}

// VerifyConfig is the integrity policy for the installer artifact
type VerifyConfig struct {
	Skip        bool // bypass hashing entirely
	Strict      bool // missing digest file aborts instead of warning
	GPGKeyIDs   []string
	KeyringFile string // local armored keyring for digest-file signatures
}

// BuildConfig controls the container engine invocation
type BuildConfig struct {
	Engine         string // "docker", "podman", or "" for auto-detect
	TimeoutMinutes int
	Args           map[string]string // extra --build-arg values
	ContextDir     string            // build context; defaults to "."
	Dockerfile     string            // defaults to "Dockerfile"
}

// EffectiveTag returns the image tag, falling back to the installer version
func (r *ImageRecipe) EffectiveTag() string {
	if r.Image.Tag != "" {
		return r.Image.Tag
	}
	return r.Installer.Version
}

// ArtifactFileName returns the conventional tarball file name for the
// installer at a given version
func (r *ImageRecipe) ArtifactFileName(version string) string {
	name := r.Installer.Name
	if version != "" {
		name = name + "_" + version
	}
	return name + ".tar"
}

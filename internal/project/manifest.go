// Package project locates and parses the carbide.toml project manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the manifest file carbide looks for.
const ManifestName = "carbide.toml"

// Manifest is the parsed carbide.toml plus its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the TOML structure of carbide.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
}

// PackageConfig is the [package] section.
type PackageConfig struct {
	Name string `toml:"name"`
}

// BuildConfig is the [build] section.
type BuildConfig struct {
	Main     string `toml:"main"`
	MaxDepth int    `toml:"max_depth"`
}

// FindManifest walks up from startDir to locate carbide.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses the manifest at startDir or any parent. ok is false when no
// manifest exists, which is not an error.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// LoadConfig parses one manifest file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package] section", path)
	}
	if cfg.Package.Name == "" {
		return Config{}, fmt.Errorf("%s: package.name must be set", path)
	}
	if cfg.Build.Main == "" {
		cfg.Build.Main = "main.cb"
	}
	return cfg, nil
}

// Package config provides layered configuration management for git-pm.
// Settings merge from built-in defaults, then the user config file, then the
// project config file, with later layers winning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	gitpmerrors "gitpm.dev/gitpm/internal/errors"
)

const (
	// ProjectConfigName is the project-level config file, next to the manifest.
	ProjectConfigName = "git-pm.config.yaml"
	// UserConfigName is the file name inside the user config directory.
	UserConfigName = "config.yaml"
	// DefaultPackagesDir is where packages are materialized when unconfigured.
	DefaultPackagesDir = ".git-packages"
)

// Config is the merged git-pm configuration.
type Config struct {
	PackagesDir        string            `yaml:"packages_dir,omitempty"`
	CacheDir           string            `yaml:"cache_dir,omitempty"`
	AutoUpdateBranches *bool             `yaml:"auto_update_branches,omitempty"`
	GitProtocol        map[string]string `yaml:"git_protocol,omitempty"`
	URLPatterns        map[string]string `yaml:"url_patterns,omitempty"`
	AzureDevOpsPAT     string            `yaml:"azure_devops_pat,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	auto := true
	return &Config{
		PackagesDir:        DefaultPackagesDir,
		CacheDir:           UserCacheDir(),
		AutoUpdateBranches: &auto,
		GitProtocol: map[string]string{
			"github.com":    "ssh",
			"gitlab.com":    "ssh",
			"dev.azure.com": "ssh",
		},
		URLPatterns: map[string]string{},
	}
}

// UserConfigDir returns the per-user configuration directory.
func UserConfigDir() string {
	if runtime.GOOS == "windows" {
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base, _ = os.UserHomeDir()
		}
		return filepath.Join(base, "git-pm")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".git-pm")
}

// UserCacheDir returns the per-user cache directory (XDG-aware on Unix).
func UserCacheDir() string {
	if runtime.GOOS == "windows" {
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base, _ = os.UserHomeDir()
		}
		return filepath.Join(base, "git-pm", "cache")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "git-pm")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "git-pm")
}

// Load reads and merges configuration for the project rooted at projectRoot.
// Missing files are fine; a file that exists but does not parse is fatal.
func Load(projectRoot string) (*Config, error) {
	cfg := Defaults()

	userPath := filepath.Join(UserConfigDir(), UserConfigName)
	if err := mergeFile(cfg, userPath); err != nil {
		return nil, err
	}

	projectPath := filepath.Join(projectRoot, ProjectConfigName)
	if err := mergeFile(cfg, projectPath); err != nil {
		return nil, err
	}

	cfg.CacheDir = ExpandHome(cfg.CacheDir)
	return cfg, nil
}

func mergeFile(into *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", gitpmerrors.ErrConfig, path, err)
	}

	var layer Config
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", gitpmerrors.ErrConfig, path, err)
	}

	merge(into, &layer)
	return nil
}

// merge overlays non-empty fields of layer onto base. Map-valued settings
// merge key-by-key so a project can override one domain without restating all.
func merge(base, layer *Config) {
	if layer.PackagesDir != "" {
		base.PackagesDir = layer.PackagesDir
	}
	if layer.CacheDir != "" {
		base.CacheDir = layer.CacheDir
	}
	if layer.AutoUpdateBranches != nil {
		base.AutoUpdateBranches = layer.AutoUpdateBranches
	}
	if layer.AzureDevOpsPAT != "" {
		base.AzureDevOpsPAT = layer.AzureDevOpsPAT
	}
	for k, v := range layer.GitProtocol {
		if base.GitProtocol == nil {
			base.GitProtocol = map[string]string{}
		}
		base.GitProtocol[k] = v
	}
	for k, v := range layer.URLPatterns {
		if base.URLPatterns == nil {
			base.URLPatterns = map[string]string{}
		}
		base.URLPatterns[k] = v
	}
}

// ShouldAutoUpdateBranches reports whether branch refs refresh on install.
func (c *Config) ShouldAutoUpdateBranches() bool {
	return c.AutoUpdateBranches == nil || *c.AutoUpdateBranches
}

// ExpandHome expands a leading ~ or ~/ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

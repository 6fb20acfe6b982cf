package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	gitpmerrors "gitpm.dev/gitpm/internal/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, DefaultPackagesDir, cfg.PackagesDir)
	require.NotEmpty(t, cfg.CacheDir)
	require.True(t, cfg.ShouldAutoUpdateBranches())
	require.Equal(t, "ssh", cfg.GitProtocol["github.com"])
	require.Equal(t, "ssh", cfg.GitProtocol["dev.azure.com"])
}

func TestMergeOverlaysNonEmptyFields(t *testing.T) {
	base := Defaults()
	off := false
	layer := &Config{
		PackagesDir:        "vendor/pkgs",
		AutoUpdateBranches: &off,
		GitProtocol:        map[string]string{"github.com": "https"},
		URLPatterns:        map[string]string{"mirror.io": "https://mirror.io/{path}"},
	}

	merge(base, layer)

	require.Equal(t, "vendor/pkgs", base.PackagesDir)
	require.False(t, base.ShouldAutoUpdateBranches())
	require.Equal(t, "https", base.GitProtocol["github.com"])
	// Untouched map keys survive a partial overlay.
	require.Equal(t, "ssh", base.GitProtocol["gitlab.com"])
	require.Equal(t, "https://mirror.io/{path}", base.URLPatterns["mirror.io"])
	// Empty fields never clobber.
	require.NotEmpty(t, base.CacheDir)
}

func TestMergeFileMissingIsFine(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, mergeFile(cfg, filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestMergeFileMalformedIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigName)
	require.NoError(t, os.WriteFile(path, []byte("packages_dir: [broken"), 0o644))

	cfg := Defaults()
	err := mergeFile(cfg, path)
	require.ErrorIs(t, err, gitpmerrors.ErrConfig)
}

func TestProjectConfigOverlaysDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectConfigName), []byte(`
packages_dir: third_party
git_protocol:
  git.internal.example: https
`), 0o644))

	cfg := Defaults()
	require.NoError(t, mergeFile(cfg, filepath.Join(root, ProjectConfigName)))
	require.Equal(t, "third_party", cfg.PackagesDir)
	require.Equal(t, "https", cfg.GitProtocol["git.internal.example"])
	require.Equal(t, "ssh", cfg.GitProtocol["github.com"])
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, home, ExpandHome("~"))
	require.Equal(t, filepath.Join(home, ".cache", "git-pm"), ExpandHome("~/.cache/git-pm"))
	require.Equal(t, "/opt/cache", ExpandHome("/opt/cache"))
	require.Equal(t, "relative/path", ExpandHome("relative/path"))
}

// Package runtime provides the execution context for git-pm commands.
//
// It encapsulates shared dependencies needed by commands: the logger, the
// layered configuration, and the resolved project paths. This avoids passing
// multiple parameters through every command.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"gitpm.dev/gitpm/internal/config"
	"gitpm.dev/gitpm/internal/manifest"
	"gitpm.dev/gitpm/internal/tui"
)

// Context provides access to configuration, paths and output for commands
type Context struct {
	Splog       *tui.Splog
	Config      *config.Config
	ProjectRoot string
	// PackagesDir is the absolute install directory, derived from config.
	PackagesDir string
	// CacheDir is the absolute cache root, derived from config.
	CacheDir string
}

// FindProjectRoot walks up from dir looking for a manifest file. Returns an
// error when no manifest exists anywhere up the tree.
func FindProjectRoot(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if manifest.Exists(current) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no %s found in %s or any parent directory", manifest.FileName, dir)
		}
		current = parent
	}
}

// NewContext builds the context for a command run: locates the project root
// from the working directory, loads layered configuration and opens the
// rotating log file under the cache root.
func NewContext() (*Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return NewContextAt(cwd)
}

// NewContextAt builds the context with discovery starting at dir.
func NewContextAt(dir string) (*Context, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	packagesDir := cfg.PackagesDir
	if !filepath.IsAbs(packagesDir) {
		packagesDir = filepath.Join(root, packagesDir)
	}
	cacheDir := config.ExpandHome(cfg.CacheDir)

	splog, err := tui.NewSplogWithLogFile(filepath.Join(cacheDir, "logs", "git-pm.log"))
	if err != nil {
		// Logging to file is best effort; fall back to console only.
		splog = tui.NewSplog()
	}

	return &Context{
		Splog:       splog,
		Config:      cfg,
		ProjectRoot: root,
		PackagesDir: packagesDir,
		CacheDir:    cacheDir,
	}, nil
}

// Close releases resources held by the context.
func (c *Context) Close() error {
	if c.Splog != nil {
		return c.Splog.Close()
	}
	return nil
}

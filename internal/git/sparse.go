package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Runner defines the collaborator operations git-pm needs from the VCS tool.
// The interface exists so the cache and discovery layers can be exercised in
// tests with a recording fake instead of a real git binary.
type Runner interface {
	// Init initializes an empty repository in dir.
	Init(ctx context.Context, dir string) error
	// SetRemote adds the origin remote, or updates its URL when it already exists.
	SetRemote(ctx context.Context, dir, url string) error
	// EnableSparseCheckout turns on core.sparseCheckout for the repository.
	EnableSparseCheckout(ctx context.Context, dir string) error
	// WriteSparsePattern writes the sparse-checkout pattern file for subpath.
	WriteSparsePattern(dir, subpath string) error
	// Fetch fetches ref from origin; shallow restricts history to depth 1.
	Fetch(ctx context.Context, dir, ref string, shallow bool) error
	// FetchAll fetches everything reachable from origin.
	FetchAll(ctx context.Context, dir string) error
	// Checkout checks out the given ref.
	Checkout(ctx context.Context, dir, ref string) error
	// HeadCommit reports the commit the working tree currently points at.
	HeadCommit(ctx context.Context, dir string) (string, error)
	// LsRemoteHead returns the commit a remote branch points at, or "" when
	// the branch does not exist on the remote.
	LsRemoteHead(ctx context.Context, url, branch string) (string, error)
}

// CLIRunner implements Runner by invoking the git binary.
type CLIRunner struct {
	runner *CommandRunner
}

// NewCLIRunner creates a Runner backed by the git binary.
func NewCLIRunner() *CLIRunner {
	return &CLIRunner{runner: NewCommandRunner("")}
}

// AddExtraConfig forwards a per-invocation git config setting, used for
// auth headers that must stay out of remote URLs.
func (c *CLIRunner) AddExtraConfig(key, value string) {
	c.runner.AddExtraConfig(key, value)
}

// Init initializes an empty repository in dir.
func (c *CLIRunner) Init(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	_, err := c.runner.RunInDir(ctx, dir, "init")
	return err
}

// SetRemote adds the origin remote, falling back to set-url when it exists.
func (c *CLIRunner) SetRemote(ctx context.Context, dir, url string) error {
	if _, err := c.runner.RunInDir(ctx, dir, "remote", "add", "origin", url); err != nil {
		_, err = c.runner.RunInDir(ctx, dir, "remote", "set-url", "origin", url)
		return err
	}
	return nil
}

// EnableSparseCheckout turns on core.sparseCheckout for the repository.
func (c *CLIRunner) EnableSparseCheckout(ctx context.Context, dir string) error {
	_, err := c.runner.RunInDir(ctx, dir, "config", "core.sparseCheckout", "true")
	return err
}

// WriteSparsePattern writes .git/info/sparse-checkout restricting the working
// tree to subpath. An empty subpath selects the whole tree.
func (c *CLIRunner) WriteSparsePattern(dir, subpath string) error {
	pattern := "/*\n"
	if subpath != "" {
		pattern = fmt.Sprintf("%s/*\n", strings.TrimSuffix(subpath, "/"))
	}
	infoDir := filepath.Join(dir, ".git", "info")
	if err := os.MkdirAll(infoDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(infoDir, "sparse-checkout"), []byte(pattern), 0o644)
}

// Fetch fetches a single ref from origin, shallow when requested.
func (c *CLIRunner) Fetch(ctx context.Context, dir, ref string, shallow bool) error {
	args := []string{"fetch"}
	if shallow {
		args = append(args, "--depth=1")
	}
	args = append(args, "origin", ref)
	_, err := c.runner.RunInDir(ctx, dir, args...)
	return err
}

// FetchAll fetches everything reachable from origin.
func (c *CLIRunner) FetchAll(ctx context.Context, dir string) error {
	_, err := c.runner.RunInDir(ctx, dir, "fetch", "origin")
	return err
}

// Checkout checks out the given ref.
func (c *CLIRunner) Checkout(ctx context.Context, dir, ref string) error {
	_, err := c.runner.RunInDir(ctx, dir, "checkout", ref)
	return err
}

// HeadCommit reports the commit HEAD points at.
func (c *CLIRunner) HeadCommit(ctx context.Context, dir string) (string, error) {
	return c.runner.RunInDir(ctx, dir, "rev-parse", "HEAD")
}

// LsRemoteHead lists the single remote branch head for url. Returns the
// commit sha, or "" when the branch does not exist.
func (c *CLIRunner) LsRemoteHead(ctx context.Context, url, branch string) (string, error) {
	out, err := c.runner.Run(ctx, "ls-remote", "--heads", url, branch)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", nil
	}
	// Output: "<sha>\trefs/heads/<branch>"; first line wins.
	line := out
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		line = out[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}

// Package git wraps the git binary for repository operations. git-pm never
// reimplements version control: every clone, fetch, checkout and ref query is
// delegated to the installed git tool as a subprocess, and this package is the
// only place that subprocess boundary lives.
package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	gitpmerrors "gitpm.dev/gitpm/internal/errors"
)

// DefaultCommandTimeout is the default timeout for git commands
const DefaultCommandTimeout = 5 * time.Minute

// CommandRunner handles execution of git commands
type CommandRunner struct {
	workingDir string

	// extraConfig holds -c key=value settings applied to every invocation,
	// used for side-channel auth headers that must not appear in URLs.
	extraConfig []string
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(workingDir string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir}
}

// SetWorkingDir sets the working directory for subsequent commands.
func (r *CommandRunner) SetWorkingDir(dir string) {
	r.workingDir = dir
}

// AddExtraConfig registers a git config key=value applied via -c on every
// subsequent invocation of this runner.
func (r *CommandRunner) AddExtraConfig(key, value string) {
	r.extraConfig = append(r.extraConfig, key+"="+value)
}

// Run executes a git command with the given context and returns trimmed stdout
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, r.workingDir, args...)
}

// RunInDir executes a git command in a specific directory
func (r *CommandRunner) RunInDir(ctx context.Context, dir string, args ...string) (string, error) {
	return r.runInternal(ctx, dir, args...)
}

func (r *CommandRunner) runInternal(ctx context.Context, dir string, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	full := make([]string, 0, len(args)+2*len(r.extraConfig))
	for _, kv := range r.extraConfig {
		full = append(full, "-c", kv)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, "git", full...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", gitpmerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", gitpmerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// ProbeSSH tests whether an SSH connection to git@<domain> is accepted.
// GitHub and GitLab close the session with exit code 1 but a success banner,
// so both 0 and 1 count as reachable.
func ProbeSSH(ctx context.Context, domain string) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ssh", "-T",
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout=3",
		"git@"+domain)
	cmd.Stdout = nil
	cmd.Stderr = nil

	err := cmd.Run()
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 1
	}
	return false
}

// Version reports the installed git version, or an error when git is not on PATH.
func Version(ctx context.Context) (string, error) {
	r := &CommandRunner{}
	return r.Run(ctx, "--version")
}

// IsInstalled reports whether the git binary is available.
func IsInstalled(ctx context.Context) bool {
	_, err := Version(ctx)
	return err == nil
}

// InstallHint returns platform-appropriate instructions for installing git.
func InstallHint() string {
	switch {
	case strings.Contains(strings.ToLower(os.Getenv("OS")), "windows"):
		return "Install git from https://git-scm.com/download/win or via 'winget install Git.Git'"
	default:
		return "Install git via your package manager (e.g. 'apt-get install git', 'dnf install git', 'brew install git')"
	}
}

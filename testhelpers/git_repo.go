// Package testhelpers provides scratch git repository builders used as
// package fixtures in tests.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitRepo is a throwaway git repository acting as a remote package source.
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a repository in dir with a main branch and a
// configured test identity. Global git config is ignored for isolation.
func NewGitRepo(dir string) (*GitRepo, error) {
	repo := &GitRepo{Dir: dir}

	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "-c", "core.fileMode=false", "init", dir, "-b", "main")
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}

	if err := repo.runGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.runGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}

	return repo, nil
}

// runGitCommand executes a git command in the repository directory.
// Uses GIT_CONFIG_GLOBAL=/dev/null to avoid reading global git config.
func (r *GitRepo) runGitCommand(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if os.Getenv("DEBUG") == "" {
		cmd.Stdout = nil
		cmd.Stderr = nil
	}
	return cmd.Run()
}

// RunGitCommand executes a git command and returns an error if it fails.
func (r *GitRepo) RunGitCommand(args ...string) error {
	return r.runGitCommand(args...)
}

// RunGitCommandAndGetOutput executes a git command and returns trimmed output.
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// WriteFile writes a file inside the repository, creating parent directories.
func (r *GitRepo) WriteFile(relPath, content string) error {
	full := filepath.Join(r.Dir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0o644)
}

// CommitAll stages everything and commits with the given message, returning
// the resulting commit sha.
func (r *GitRepo) CommitAll(message string) (string, error) {
	if err := r.runGitCommand("add", "-A"); err != nil {
		return "", err
	}
	if err := r.runGitCommand("commit", "-m", message); err != nil {
		return "", err
	}
	return r.HeadCommit()
}

// Tag creates a lightweight tag at HEAD.
func (r *GitRepo) Tag(name string) error {
	return r.runGitCommand("tag", name)
}

// HeadCommit returns the sha HEAD points at.
func (r *GitRepo) HeadCommit() (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", "HEAD")
}

// BranchHead returns the sha a branch points at.
func (r *GitRepo) BranchHead(branch string) (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", branch)
}

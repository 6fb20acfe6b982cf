// Package errors provides sentinel errors and custom error types for the git-pm application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrConfig indicates malformed configuration; aborts the whole operation
	ErrConfig = errors.New("invalid configuration")

	// ErrManifest indicates a malformed manifest; aborts the whole operation
	ErrManifest = errors.New("invalid manifest")

	// ErrMissingRepo indicates a package declaration without a repository
	ErrMissingRepo = errors.New("missing repository")

	// ErrLocalPathNotFound indicates a local package path that does not exist
	ErrLocalPathNotFound = errors.New("local path not found")

	// ErrCircularDependency indicates a dependency edge back to an ancestor
	ErrCircularDependency = errors.New("circular dependency")

	// ErrFetch indicates a failed fetch of a remote package
	ErrFetch = errors.New("fetch failed")

	// ErrBranchResolution indicates a branch that could not be pinned to a commit
	ErrBranchResolution = errors.New("branch resolution failed")

	// ErrIntegrity indicates a verify-time mismatch between lockfile and disk
	ErrIntegrity = errors.New("integrity check failed")

	// ErrGraphCycle indicates a cycle surviving into the sorted graph.
	// Discovery drops cyclic edges, so hitting this is a defect, not an input error.
	ErrGraphCycle = errors.New("cycle in discovered graph")
)

// MissingRepoError reports a package declaration with no usable repository field
type MissingRepoError struct {
	Package string
}

func (e *MissingRepoError) Error() string {
	return fmt.Sprintf("package %s has no 'repo' in its declaration", e.Package)
}

// Is returns true if the target error is ErrMissingRepo
func (e *MissingRepoError) Is(target error) bool {
	return target == ErrMissingRepo
}

// NewMissingRepoError creates a new MissingRepoError
func NewMissingRepoError(pkg string) *MissingRepoError {
	return &MissingRepoError{Package: pkg}
}

// LocalPathNotFoundError reports a local package declaration pointing at a missing path
type LocalPathNotFoundError struct {
	Package string
	Path    string
}

func (e *LocalPathNotFoundError) Error() string {
	return fmt.Sprintf("package %s: local path does not exist: %s", e.Package, e.Path)
}

// Is returns true if the target error is ErrLocalPathNotFound
func (e *LocalPathNotFoundError) Is(target error) bool {
	return target == ErrLocalPathNotFound
}

// NewLocalPathNotFoundError creates a new LocalPathNotFoundError
func NewLocalPathNotFoundError(pkg, path string) *LocalPathNotFoundError {
	return &LocalPathNotFoundError{Package: pkg, Path: path}
}

// CircularDependencyError reports a declared edge pointing back at an ancestor
// on the current discovery path. The edge is dropped; discovery continues.
type CircularDependencyError struct {
	Package string
	Chain   []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s -> %s", strings.Join(e.Chain, " -> "), e.Package)
}

// Is returns true if the target error is ErrCircularDependency
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// NewCircularDependencyError creates a new CircularDependencyError.
// The chain is copied so callers may keep mutating their path slice.
func NewCircularDependencyError(pkg string, chain []string) *CircularDependencyError {
	c := make([]string, len(chain))
	copy(c, chain)
	return &CircularDependencyError{Package: pkg, Chain: c}
}

// FetchError reports a failed population of a cache entry
type FetchError struct {
	Package string
	Repo    string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("package %s: fetch from %s failed: %v", e.Package, e.Repo, e.Err)
}

// Is returns true if the target error is ErrFetch
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(pkg, repo string, err error) *FetchError {
	return &FetchError{Package: pkg, Repo: repo, Err: err}
}

// BranchResolutionError reports a branch that could not be resolved to a commit
type BranchResolutionError struct {
	Package string
	Branch  string
	Err     error
}

func (e *BranchResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("package %s: cannot resolve branch %s: %v", e.Package, e.Branch, e.Err)
	}
	return fmt.Sprintf("package %s: branch %s not found on remote", e.Package, e.Branch)
}

// Is returns true if the target error is ErrBranchResolution
func (e *BranchResolutionError) Is(target error) bool {
	return target == ErrBranchResolution
}

func (e *BranchResolutionError) Unwrap() error {
	return e.Err
}

// NewBranchResolutionError creates a new BranchResolutionError
func NewBranchResolutionError(pkg, branch string, err error) *BranchResolutionError {
	return &BranchResolutionError{Package: pkg, Branch: branch, Err: err}
}

// IntegrityError reports one verify-time mismatch. Verify collects all of
// them before reporting; a single mismatch never aborts the scan.
type IntegrityError struct {
	Package string
	Reason  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("package %s: %s", e.Package, e.Reason)
}

// Is returns true if the target error is ErrIntegrity
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// NewIntegrityError creates a new IntegrityError
func NewIntegrityError(pkg, reason string) *IntegrityError {
	return &IntegrityError{Package: pkg, Reason: reason}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

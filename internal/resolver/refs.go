package resolver

import (
	"context"

	gitpmerrors "gitpm.dev/gitpm/internal/errors"
	"gitpm.dev/gitpm/internal/git"
)

// RefResolver pins mutable branch names to commits by asking the remote for
// its branch head. Results are memoized for the lifetime of the resolver, so
// every package referencing the same (url, branch) within one run pins to the
// same commit without a second network round-trip.
type RefResolver struct {
	runner git.Runner
	memo   map[string]string
}

// NewRefResolver creates a RefResolver backed by the given runner.
func NewRefResolver(runner git.Runner) *RefResolver {
	return &RefResolver{
		runner: runner,
		memo:   map[string]string{},
	}
}

// Seed pre-loads a (url, branch) pin so ResolveBranch answers without asking
// the remote. Used to reuse lockfile pins when branch auto-update is off.
func (r *RefResolver) Seed(url, branch, commit string) {
	r.memo[url+"\x00"+branch] = commit
}

// ResolveBranch returns the commit the remote branch currently points at.
func (r *RefResolver) ResolveBranch(ctx context.Context, pkg, url, branch string) (string, error) {
	key := url + "\x00" + branch
	if commit, ok := r.memo[key]; ok {
		return commit, nil
	}

	commit, err := r.runner.LsRemoteHead(ctx, url, branch)
	if err != nil {
		return "", gitpmerrors.NewBranchResolutionError(pkg, branch, err)
	}
	if commit == "" {
		return "", gitpmerrors.NewBranchResolutionError(pkg, branch, nil)
	}

	r.memo[key] = commit
	return commit, nil
}

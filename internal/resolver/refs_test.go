package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	gitpmerrors "gitpm.dev/gitpm/internal/errors"
)

// fakeLsRemote implements git.Runner for branch-pinning tests; only
// LsRemoteHead is exercised.
type fakeLsRemote struct {
	heads map[string]string // url\x00branch -> sha
	calls int
	err   error
}

func (f *fakeLsRemote) LsRemoteHead(_ context.Context, url, branch string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.heads[url+"\x00"+branch], nil
}

func (f *fakeLsRemote) Init(context.Context, string) error               { return nil }
func (f *fakeLsRemote) SetRemote(context.Context, string, string) error  { return nil }
func (f *fakeLsRemote) EnableSparseCheckout(context.Context, string) error {
	return nil
}
func (f *fakeLsRemote) WriteSparsePattern(string, string) error         { return nil }
func (f *fakeLsRemote) Fetch(context.Context, string, string, bool) error {
	return nil
}
func (f *fakeLsRemote) FetchAll(context.Context, string) error          { return nil }
func (f *fakeLsRemote) Checkout(context.Context, string, string) error  { return nil }
func (f *fakeLsRemote) HeadCommit(context.Context, string) (string, error) {
	return "", nil
}

func TestResolveBranchMemoizesPerURLAndBranch(t *testing.T) {
	runner := &fakeLsRemote{heads: map[string]string{
		"url-a\x00main": "sha-a",
		"url-b\x00main": "sha-b",
	}}
	refs := NewRefResolver(runner)

	for i := 0; i < 3; i++ {
		commit, err := refs.ResolveBranch(context.Background(), "pkg", "url-a", "main")
		require.NoError(t, err)
		require.Equal(t, "sha-a", commit)
	}
	require.Equal(t, 1, runner.calls, "same (url, branch) must hit the remote once")

	commit, err := refs.ResolveBranch(context.Background(), "pkg2", "url-b", "main")
	require.NoError(t, err)
	require.Equal(t, "sha-b", commit)
	require.Equal(t, 2, runner.calls)
}

func TestResolveBranchMissingBranch(t *testing.T) {
	refs := NewRefResolver(&fakeLsRemote{heads: map[string]string{}})

	_, err := refs.ResolveBranch(context.Background(), "pkg", "url", "gone")
	require.Error(t, err)
	require.ErrorIs(t, err, gitpmerrors.ErrBranchResolution)
}

func TestResolveBranchRemoteFailure(t *testing.T) {
	refs := NewRefResolver(&fakeLsRemote{err: errors.New("network down")})

	_, err := refs.ResolveBranch(context.Background(), "pkg", "url", "main")
	require.ErrorIs(t, err, gitpmerrors.ErrBranchResolution)
}

func TestSeedShortCircuitsRemoteLookup(t *testing.T) {
	runner := &fakeLsRemote{heads: map[string]string{"url\x00main": "fresh"}}
	refs := NewRefResolver(runner)
	refs.Seed("url", "main", "locked")

	commit, err := refs.ResolveBranch(context.Background(), "pkg", "url", "main")
	require.NoError(t, err)
	require.Equal(t, "locked", commit)
	require.Zero(t, runner.calls, "seeded pins must not hit the remote")
}

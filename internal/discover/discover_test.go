package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitpm.dev/gitpm/internal/cache"
	"gitpm.dev/gitpm/internal/config"
	gitpmerrors "gitpm.dev/gitpm/internal/errors"
	"gitpm.dev/gitpm/internal/manifest"
	"gitpm.dev/gitpm/internal/resolver"
)

// fakeRunner satisfies git.Runner without a git binary. Remote heads and
// checkout commits are canned; Init leaves a .git marker so cache population
// can tell fresh directories from reused ones.
type fakeRunner struct {
	branchHeads map[string]string // branch -> sha
	headCommit  string
}

func (f *fakeRunner) Init(_ context.Context, dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".git"), 0o755)
}
func (f *fakeRunner) SetRemote(context.Context, string, string) error      { return nil }
func (f *fakeRunner) EnableSparseCheckout(context.Context, string) error   { return nil }
func (f *fakeRunner) WriteSparsePattern(string, string) error              { return nil }
func (f *fakeRunner) Fetch(context.Context, string, string, bool) error    { return nil }
func (f *fakeRunner) FetchAll(context.Context, string) error               { return nil }
func (f *fakeRunner) Checkout(context.Context, string, string) error       { return nil }
func (f *fakeRunner) HeadCommit(context.Context, string) (string, error) {
	return f.headCommit, nil
}
func (f *fakeRunner) LsRemoteHead(_ context.Context, _, branch string) (string, error) {
	return f.branchHeads[branch], nil
}

// newTestDiscoverer wires a Discoverer against a temp project root with local
// filesystem packages and a fake collaborator for anything remote.
func newTestDiscoverer(t *testing.T, root string, runner *fakeRunner) *Discoverer {
	t.Helper()
	if runner == nil {
		runner = &fakeRunner{headCommit: "deadbeef"}
	}
	res := resolver.New(config.Defaults(), root).
		WithEnv(func(string) string { return "" }).
		WithProbe(func(context.Context, string) bool { return false })
	refs := resolver.NewRefResolver(runner)
	store := cache.NewStore(filepath.Join(root, "cache"), runner)
	return New(res, refs, store, nil)
}

func writeLocalPackage(t *testing.T, root, name, manifestYAML string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content.txt"), []byte(name), 0o644))
	if manifestYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(manifestYAML), 0o644))
	}
}

func decl(repo string) manifest.Declaration {
	return manifest.Declaration{Repo: repo}
}

func TestDiscoverDiamondDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeLocalPackage(t, root, "pkgC", "")
	writeLocalPackage(t, root, "pkgA", "packages:\n  packageC:\n    repo: ./pkgC\n")
	writeLocalPackage(t, root, "pkgB", "packages:\n  packageC:\n    repo: ./pkgC\n")

	d := newTestDiscoverer(t, root, nil)
	graph, err := d.Discover(context.Background(), map[string]manifest.Declaration{
		"packageA": decl("./pkgA"),
		"packageB": decl("./pkgB"),
	}, nil)
	require.NoError(t, err)
	require.Empty(t, d.Failures())

	require.Equal(t, 3, graph.Len(), "packageC must be discovered exactly once")
	require.Equal(t, []string{"packageC"}, graph.Get("packageA").Dependencies)
	require.Equal(t, []string{"packageC"}, graph.Get("packageB").Dependencies)
	require.Equal(t, 1, graph.Get("packageC").Depth)
}

func TestDiscoverCycleDropsEdgeAndContinues(t *testing.T) {
	root := t.TempDir()
	writeLocalPackage(t, root, "pkgA", "packages:\n  packageB:\n    repo: ./pkgB\n")
	writeLocalPackage(t, root, "pkgB", "packages:\n  packageA:\n    repo: ./pkgA\n")

	d := newTestDiscoverer(t, root, nil)
	graph, err := d.Discover(context.Background(), map[string]manifest.Declaration{
		"packageA": decl("./pkgA"),
	}, nil)
	require.NoError(t, err)

	require.True(t, graph.Has("packageA"))
	require.True(t, graph.Has("packageB"))
	require.Empty(t, graph.Get("packageB").Dependencies, "the back-edge must be dropped")
	require.Equal(t, []string{"packageB"}, graph.Get("packageA").Dependencies)

	require.Len(t, d.Failures(), 1)
	require.ErrorIs(t, d.Failures()[0], gitpmerrors.ErrCircularDependency)
}

func TestDiscoverSelfCycle(t *testing.T) {
	root := t.TempDir()
	writeLocalPackage(t, root, "pkgA", "packages:\n  packageA:\n    repo: ./pkgA\n")

	d := newTestDiscoverer(t, root, nil)
	graph, err := d.Discover(context.Background(), map[string]manifest.Declaration{
		"packageA": decl("./pkgA"),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, graph.Len())
	require.Empty(t, graph.Get("packageA").Dependencies)
	require.Len(t, d.Failures(), 1)
}

func TestDiscoverOverrideReplacesWholesale(t *testing.T) {
	root := t.TempDir()
	writeLocalPackage(t, root, "local-lib", "")

	d := newTestDiscoverer(t, root, nil)
	graph, err := d.Discover(context.Background(),
		map[string]manifest.Declaration{
			"lib": {Repo: "github.com/org/lib", Path: "libs/core"},
		},
		map[string]manifest.Declaration{
			"lib": {Repo: "./local-lib"},
		})
	require.NoError(t, err)
	require.Empty(t, d.Failures())

	pkg := graph.Get("lib")
	require.True(t, pkg.IsLocal)
	require.Equal(t, filepath.Join(root, "local-lib"), pkg.LocalPath)
	require.Empty(t, pkg.Declaration.Path, "override replaces the declaration, never merges")
}

func TestDiscoverOverrideAppliesToNestedDeclarations(t *testing.T) {
	root := t.TempDir()
	writeLocalPackage(t, root, "pkgA", "packages:\n  dep:\n    repo: github.com/org/dep\n")
	writeLocalPackage(t, root, "local-dep", "")

	d := newTestDiscoverer(t, root, nil)
	graph, err := d.Discover(context.Background(),
		map[string]manifest.Declaration{"packageA": decl("./pkgA")},
		map[string]manifest.Declaration{"dep": {Repo: "./local-dep"}})
	require.NoError(t, err)
	require.Empty(t, d.Failures())
	require.True(t, graph.Get("dep").IsLocal, "override must win at every discovery level")
}

func TestDiscoverRemoteBranchIsPinned(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{
		branchHeads: map[string]string{"main": "feedface"},
		headCommit:  "feedface",
	}
	d := newTestDiscoverer(t, root, runner)

	graph, err := d.Discover(context.Background(), map[string]manifest.Declaration{
		"remote-pkg": {Repo: "github.com/org/repo", Path: "libs/core"},
	}, nil)
	require.NoError(t, err)
	require.Empty(t, d.Failures())

	pkg := graph.Get("remote-pkg")
	require.Equal(t, manifest.Ref{Type: manifest.RefBranch, Value: "main"}, pkg.OriginalRef)
	require.Equal(t, manifest.Ref{Type: manifest.RefCommit, Value: "feedface"}, pkg.Ref)
	require.Equal(t, cache.Key("github.com/org/repo", "libs/core", manifest.RefCommit, "feedface"), pkg.CacheKey,
		"cache key must be derived from the pinned ref, not the branch name")
	require.Equal(t, "feedface", pkg.ResolvedCommit)
}

func TestDiscoverBranchResolutionFailureSkipsPackage(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{branchHeads: map[string]string{}, headCommit: "x"}
	writeLocalPackage(t, root, "pkgB", "")

	d := newTestDiscoverer(t, root, runner)
	graph, err := d.Discover(context.Background(), map[string]manifest.Declaration{
		"broken": {Repo: "github.com/org/gone"},
		"good":   decl("./pkgB"),
	}, nil)
	require.NoError(t, err)

	require.False(t, graph.Has("broken"))
	require.True(t, graph.Has("good"), "one package's failure must not abort the others")
	require.Len(t, d.Failures(), 1)
	require.ErrorIs(t, d.Failures()[0], gitpmerrors.ErrBranchResolution)
}

func TestDiscoverMissingRepoAndMissingLocalPath(t *testing.T) {
	root := t.TempDir()
	d := newTestDiscoverer(t, root, nil)

	graph, err := d.Discover(context.Background(), map[string]manifest.Declaration{
		"no-repo":   {},
		"bad-local": decl("./does-not-exist"),
	}, nil)
	require.NoError(t, err)
	require.Zero(t, graph.Len())

	require.Len(t, d.Failures(), 2)
	var missing, notFound bool
	for _, f := range d.Failures() {
		switch {
		case errors.Is(f, gitpmerrors.ErrMissingRepo):
			missing = true
		case errors.Is(f, gitpmerrors.ErrLocalPathNotFound):
			notFound = true
		}
	}
	require.True(t, missing)
	require.True(t, notFound)
}

package cli

import (
	"context"
	"fmt"

	"gitpm.dev/gitpm/internal/cache"
	"gitpm.dev/gitpm/internal/discover"
	"gitpm.dev/gitpm/internal/git"
	"gitpm.dev/gitpm/internal/lockfile"
	"gitpm.dev/gitpm/internal/manifest"
	"gitpm.dev/gitpm/internal/runtime"
)

// requireGit fails early with an install hint when the git binary is missing.
func requireGit(ctx context.Context) error {
	if !git.IsInstalled(ctx) {
		return fmt.Errorf("git is not installed or not on PATH. %s", git.InstallHint())
	}
	return nil
}

// newRunContext builds the runtime context for a command run.
func newRunContext() (*runtime.Context, error) {
	return runtime.NewContext()
}

// graphFromLockfile reconstructs a discovery graph from locked records, for
// replay installs that must not re-discover anything. Packages appear in
// installation order so dependency links resolve the same way.
func graphFromLockfile(f *lockfile.File, store *cache.Store) *discover.Graph {
	g := discover.NewGraph()
	for _, name := range f.InstallationOrder {
		rec, ok := f.Packages[name]
		if !ok {
			continue
		}

		pkg := &discover.Package{
			Name: name,
			Declaration: manifest.Declaration{
				Repo: rec.Repo,
				Path: rec.Path,
			},
			Dependencies: rec.Dependencies,
		}
		if rec.Type == lockfile.TypeLocal {
			pkg.IsLocal = true
			pkg.LocalPath = rec.LocalPath
		} else {
			pkg.Ref = manifest.Ref{Type: rec.Ref.Type, Value: rec.Ref.Value}
			pkg.OriginalRef = pkg.Ref
			if rec.Ref.Branch != "" {
				pkg.OriginalRef = manifest.Ref{Type: manifest.RefBranch, Value: rec.Ref.Branch}
			}
			pkg.CacheKey = rec.CacheKey
			pkg.CachePath = store.Path(rec.CacheKey)
			pkg.ResolvedCommit = rec.ResolvedCommit
		}
		g.Add(pkg)
	}
	return g
}

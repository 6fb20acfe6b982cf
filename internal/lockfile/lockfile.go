// Package lockfile reads and writes git-pm.lock, the committed record of a
// fully resolved install: every package pinned to an exact commit, plus the
// order they were installed in.
package lockfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gitpm.dev/gitpm/internal/discover"
	gitpmerrors "gitpm.dev/gitpm/internal/errors"
	"gitpm.dev/gitpm/internal/git"
	"gitpm.dev/gitpm/internal/manifest"
)

// FileName is the lockfile name at the project root. Unlike the override and
// env files it is meant to be committed.
const FileName = "git-pm.lock"

// Version is the current lockfile schema version.
const Version = 1

// replayWorkers caps concurrent cache populations during Replay. Entries are
// independent cache keys, so populations never contend on a directory.
const replayWorkers = 4

// PackageType values for Record.Type.
const (
	TypeRemote = "remote"
	TypeLocal  = "local"
)

// RefRecord is the locked ref: the exact ref the cache entry was built from,
// with branch provenance kept when the declaration named a branch.
type RefRecord struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	// Branch is the declared branch name when Type is commit because a
	// branch was pinned at resolution time. Empty otherwise.
	Branch string `json:"branch,omitempty"`
}

// Record is one locked package.
type Record struct {
	Type string `json:"type"`

	// Remote packages.
	Repo           string     `json:"repo,omitempty"`
	Path           string     `json:"path,omitempty"`
	Ref            *RefRecord `json:"ref,omitempty"`
	ResolvedCommit string     `json:"resolved_commit,omitempty"`
	CacheKey       string     `json:"cache_key,omitempty"`
	Dependencies   []string   `json:"dependencies,omitempty"`

	// Local packages.
	LocalPath string `json:"local_path,omitempty"`
	Symlinked bool   `json:"symlinked,omitempty"`

	InstalledAt time.Time `json:"installed_at"`
}

// File is the lockfile document.
type File struct {
	Version           int               `json:"version"`
	GeneratedAt       time.Time         `json:"generated_at"`
	Packages          map[string]Record `json:"packages"`
	InstallationOrder []string          `json:"installation_order"`
}

// Path returns the lockfile path for a project root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, FileName)
}

// Exists reports whether projectRoot has a lockfile.
func Exists(projectRoot string) bool {
	_, err := os.Stat(Path(projectRoot))
	return err == nil
}

// Build assembles a lockfile from a discovery graph, the install order, and
// the set of packages that materialized via a link. Packages missing from the
// graph (failed discovery) are left out; the lockfile only records what was
// actually installed.
func Build(g *discover.Graph, order []string, symlinked map[string]bool) *File {
	f := &File{
		Version:           Version,
		GeneratedAt:       time.Now().UTC(),
		Packages:          make(map[string]Record, len(order)),
		InstallationOrder: order,
	}

	recorded := make(map[string]bool, len(order))
	for _, name := range order {
		recorded[name] = true
	}

	for _, name := range order {
		pkg := g.Get(name)
		if pkg == nil {
			continue
		}

		rec := Record{InstalledAt: time.Now().UTC()}
		if pkg.IsLocal {
			rec.Type = TypeLocal
			rec.LocalPath = pkg.LocalPath
			rec.Symlinked = symlinked[name]
		} else {
			rec.Type = TypeRemote
			rec.Repo = pkg.Declaration.Repo
			rec.Path = pkg.Declaration.Path
			rec.ResolvedCommit = pkg.ResolvedCommit
			rec.CacheKey = pkg.CacheKey
			rec.Dependencies = filterDependencies(pkg.Dependencies, recorded)
			ref := &RefRecord{Type: pkg.Ref.Type, Value: pkg.Ref.Value}
			if pkg.OriginalRef.Type == manifest.RefBranch && pkg.Ref.Type == manifest.RefCommit {
				ref.Branch = pkg.OriginalRef.Value
			}
			rec.Ref = ref
		}
		f.Packages[name] = rec
	}
	return f
}

// filterDependencies drops dependency edges pointing at packages the lockfile
// carries no record for. An edge can dangle when the dependency's own
// discovery or install failed and was skipped.
func filterDependencies(deps []string, recorded map[string]bool) []string {
	var out []string
	for _, dep := range deps {
		if recorded[dep] {
			out = append(out, dep)
		}
	}
	return out
}

// Write persists the lockfile at projectRoot.
func Write(projectRoot string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lockfile: %w", err)
	}
	return os.WriteFile(Path(projectRoot), append(data, '\n'), 0o644)
}

// Read loads the lockfile at projectRoot.
func Read(projectRoot string) (*File, error) {
	data, err := os.ReadFile(Path(projectRoot))
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("unsupported lockfile version %d", f.Version)
	}
	return &f, nil
}

// Ensurer is the cache operation Replay needs.
type Ensurer interface {
	Ensure(ctx context.Context, key, url, subpath string, ref manifest.Ref) (string, error)
}

// URLResolver maps a locked repo spec to a fetchable URL.
type URLResolver func(repo string) (string, error)

// Replay makes every remote cache entry the lockfile records present, without
// re-reading manifests or consulting remotes for branch tips: each entry is
// fetched at its locked commit, so two replays of the same lockfile produce
// identical trees. Entries populate in parallel; distinct cache keys never
// share a directory.
//
// Failures stay scoped to their package: an unreachable repository never
// interrupts the population of the others. The result maps each failed
// package name to its error; an empty map means every entry is present.
func Replay(ctx context.Context, f *File, store Ensurer, resolve URLResolver) map[string]error {
	var (
		eg       errgroup.Group
		mu       sync.Mutex
		failures = map[string]error{}
	)
	eg.SetLimit(replayWorkers)

	fail := func(name string, err error) {
		mu.Lock()
		failures[name] = err
		mu.Unlock()
	}

	for name, rec := range f.Packages {
		if rec.Type != TypeRemote {
			continue
		}
		eg.Go(func() error {
			url, err := resolve(rec.Repo)
			if err != nil {
				fail(name, gitpmerrors.NewFetchError(name, rec.Repo, err))
				return nil
			}
			ref := manifest.Ref{Type: rec.Ref.Type, Value: rec.Ref.Value}
			commit, err := store.Ensure(ctx, rec.CacheKey, url, rec.Path, ref)
			if err != nil {
				fail(name, gitpmerrors.NewFetchError(name, rec.Repo, err))
				return nil
			}
			if rec.ResolvedCommit != "" && commit != rec.ResolvedCommit {
				fail(name, gitpmerrors.NewIntegrityError(name,
					fmt.Sprintf("cache entry is at %s, lockfile expects %s", commit, rec.ResolvedCommit)))
			}
			return nil
		})
	}
	_ = eg.Wait() // workers never return errors; failures carry them
	return failures
}

// CachePather maps a cache key to its on-disk directory.
type CachePather interface {
	Path(key string) string
}

// Verify checks the installed tree against the lockfile and returns every
// mismatch found. A mismatch never stops the scan; the caller gets the full
// picture in one run.
func Verify(f *File, packagesDir string, cache CachePather) []error {
	var problems []error

	for name, rec := range f.Packages {
		dest := filepath.Join(packagesDir, name)
		info, err := os.Lstat(dest)
		if err != nil {
			problems = append(problems, gitpmerrors.NewIntegrityError(name, "not installed"))
			continue
		}

		if rec.Type == TypeLocal {
			if !rec.Symlinked {
				continue
			}
			if info.Mode()&os.ModeSymlink == 0 {
				problems = append(problems, gitpmerrors.NewIntegrityError(name, "expected a symlink"))
				continue
			}
			target, err := os.Readlink(dest)
			if err != nil || target != rec.LocalPath {
				problems = append(problems, gitpmerrors.NewIntegrityError(name,
					fmt.Sprintf("symlink points at %s, lockfile expects %s", target, rec.LocalPath)))
			}
			continue
		}

		entry := cache.Path(rec.CacheKey)
		if _, err := os.Stat(entry); err != nil {
			// The shared cache may have been purged since the install; the
			// installed tree is the contract, so an absent entry is fine.
			continue
		}
		commit, err := git.ReadHeadCommit(entry)
		if err != nil {
			problems = append(problems, gitpmerrors.NewIntegrityError(name, "cache entry unreadable"))
			continue
		}
		if commit != rec.ResolvedCommit {
			problems = append(problems, gitpmerrors.NewIntegrityError(name,
				fmt.Sprintf("cache entry is at %s, lockfile expects %s", commit, rec.ResolvedCommit)))
		}
	}
	return problems
}

package discover

import (
	"context"
	"os"
	"slices"
	"sort"

	"gitpm.dev/gitpm/internal/cache"
	gitpmerrors "gitpm.dev/gitpm/internal/errors"
	"gitpm.dev/gitpm/internal/manifest"
	"gitpm.dev/gitpm/internal/resolver"
)

// AuthFunc configures a side-channel auth header on the collaborator before
// any fetch against base. It is invoked at most once per base per run.
type AuthFunc func(base, token string)

// Discoverer walks manifests recursively and accumulates the global package
// graph. All state lives on the Discoverer itself — the graph-node table and
// the branch memo travel with it instead of hiding in package globals — so a
// run is a single, testable ownership path.
type Discoverer struct {
	resolver *resolver.Resolver
	refs     *resolver.RefResolver
	store    *cache.Store

	configureAuth AuthFunc
	authDone      map[string]bool

	graph    *Graph
	failures []error
}

// New creates a Discoverer.
func New(res *resolver.Resolver, refs *resolver.RefResolver, store *cache.Store, auth AuthFunc) *Discoverer {
	return &Discoverer{
		resolver:      res,
		refs:          refs,
		store:         store,
		configureAuth: auth,
		authDone:      map[string]bool{},
		graph:         NewGraph(),
	}
}

// Failures returns the per-package errors collected during discovery.
// A failed package is skipped; it never aborts unrelated packages.
func (d *Discoverer) Failures() []error {
	return d.failures
}

// Discover walks the root declarations and every nested manifest they lead
// to, returning the global graph. Overrides replace same-name declarations
// wholesale at every level of the walk. Only malformed nested manifests are
// fatal; everything package-scoped is collected via Failures.
func (d *Discoverer) Discover(ctx context.Context, packages, overrides map[string]manifest.Declaration) (*Graph, error) {
	finalized := manifest.ApplyOverrides(packages, overrides)
	if _, err := d.discover(ctx, finalized, 0, nil, overrides); err != nil {
		return nil, err
	}
	return d.graph, nil
}

// discover processes one declaration table, returning the names discovered
// by this call (the global graph accumulates across the whole tree).
func (d *Discoverer) discover(ctx context.Context, decls map[string]manifest.Declaration, depth int, chain []string, overrides map[string]manifest.Declaration) ([]string, error) {
	var discovered []string

	for _, name := range sortedNames(decls) {
		if slices.Contains(chain, name) {
			// A dependency edge back onto the current discovery path: drop
			// the edge, report, keep going. Never recurse into it.
			d.report(gitpmerrors.NewCircularDependencyError(name, chain))
			continue
		}
		if d.graph.Has(name) {
			// Diamond: someone already discovered this name; first wins.
			continue
		}

		decl := decls[name]
		if o, ok := overrides[name]; ok {
			decl = o
		}

		pkg, children, err := d.resolveOne(ctx, name, decl, depth)
		if err != nil {
			return nil, err
		}
		if pkg == nil {
			continue // reported and skipped
		}

		if len(children) > 0 {
			childChain := append(slices.Clone(chain), name)
			if _, err := d.discover(ctx, children, depth+1, childChain, overrides); err != nil {
				return nil, err
			}
			pkg.Dependencies = d.dependencyNames(children, childChain)
		}

		d.graph.Add(pkg)
		discovered = append(discovered, name)
	}

	return discovered, nil
}

// resolveOne resolves and (for remotes) caches a single declaration. It
// returns the package plus the declaration table of its nested manifest, a
// nil package when the declaration failed and was reported, or an error for
// fatal conditions only.
func (d *Discoverer) resolveOne(ctx context.Context, name string, decl manifest.Declaration, depth int) (*Package, map[string]manifest.Declaration, error) {
	if decl.Repo == "" {
		d.report(gitpmerrors.NewMissingRepoError(name))
		return nil, nil, nil
	}

	resolved, err := d.resolver.Resolve(ctx, decl.Repo)
	if err != nil {
		d.report(gitpmerrors.NewMissingRepoError(name))
		return nil, nil, nil
	}

	originalRef := decl.EffectiveRef()

	if resolved.IsLocal() {
		if info, err := os.Stat(resolved.LocalPath); err != nil || !info.IsDir() {
			d.report(gitpmerrors.NewLocalPathNotFoundError(name, resolved.LocalPath))
			return nil, nil, nil
		}
		children, err := d.nestedDeclarations(resolved.LocalPath)
		if err != nil {
			return nil, nil, err
		}
		return &Package{
			Name:        name,
			Declaration: decl,
			OriginalRef: originalRef,
			Ref:         originalRef,
			Depth:       depth,
			IsLocal:     true,
			LocalPath:   resolved.LocalPath,
		}, children, nil
	}

	if resolved.BearerAuth != "" {
		d.authorize(resolved.BearerBase, resolved.BearerAuth)
	}

	// Pin a mutable branch to the commit it points at right now. The pinned
	// ref keys the cache and lands in the lockfile; the branch name survives
	// as provenance.
	pinned := originalRef
	if originalRef.IsMutable() {
		commit, err := d.refs.ResolveBranch(ctx, name, resolved.URL, originalRef.Value)
		if err != nil {
			d.report(err)
			return nil, nil, nil
		}
		pinned = manifest.Ref{Type: manifest.RefCommit, Value: commit}
	}

	key := cache.Key(decl.Repo, decl.Path, pinned.Type, pinned.Value)
	commit, err := d.store.Ensure(ctx, key, resolved.URL, decl.Path, originalRef)
	if err != nil {
		d.report(gitpmerrors.NewFetchError(name, decl.Repo, err))
		return nil, nil, nil
	}

	pkg := &Package{
		Name:           name,
		Declaration:    decl,
		OriginalRef:    originalRef,
		Ref:            pinned,
		Depth:          depth,
		CacheKey:       key,
		CachePath:      d.store.Path(key),
		ResolvedCommit: commit,
	}

	children, err := d.nestedDeclarations(pkg.ContentRoot())
	if err != nil {
		return nil, nil, err
	}
	return pkg, children, nil
}

// nestedDeclarations reads the manifest inside a package's content root.
// No manifest means no dependencies; a manifest that fails to parse is fatal.
func (d *Discoverer) nestedDeclarations(dir string) (map[string]manifest.Declaration, error) {
	if !manifest.Exists(dir) {
		return nil, nil
	}
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}
	return m.Packages, nil
}

// dependencyNames returns the declared dependency edges that survived the
// cycle guard, in deterministic order.
func (d *Discoverer) dependencyNames(decls map[string]manifest.Declaration, chain []string) []string {
	var names []string
	for _, name := range sortedNames(decls) {
		if slices.Contains(chain, name) {
			continue // dropped cyclic edge
		}
		names = append(names, name)
	}
	return names
}

func (d *Discoverer) authorize(base, token string) {
	if d.configureAuth == nil || d.authDone[base] {
		return
	}
	d.configureAuth(base, token)
	d.authDone[base] = true
}

func (d *Discoverer) report(err error) {
	d.failures = append(d.failures, err)
}

func sortedNames(decls map[string]manifest.Declaration) []string {
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

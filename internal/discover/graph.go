// Package discover builds the global package graph by recursively walking
// manifests, and orders it so dependencies install before their dependents.
package discover

import (
	"path/filepath"

	"gitpm.dev/gitpm/internal/manifest"
)

// Package is one discovered package. Created once per unique name; after
// creation only its dependency set is attached, nothing else is mutated.
type Package struct {
	Name string

	// Declaration is the effective declaration after override replacement.
	Declaration manifest.Declaration

	// OriginalRef is the ref as declared, kept for provenance when a branch
	// was pinned to a commit.
	OriginalRef manifest.Ref

	// Ref is the immutable ref the package resolved to: the pinned commit
	// for branch declarations, the declared ref otherwise.
	Ref manifest.Ref

	// Dependencies are the names declared in the package's own manifest,
	// minus edges dropped by the cycle guard.
	Dependencies []string

	Depth   int
	IsLocal bool

	// Remote packages only.
	CacheKey       string
	CachePath      string
	ResolvedCommit string

	// Local packages only.
	LocalPath string
}

// ContentRoot is the directory the package's content lives at: the cache
// checkout subpath for remote packages, the local path otherwise.
func (p *Package) ContentRoot() string {
	if p.IsLocal {
		return p.LocalPath
	}
	if p.Declaration.Path != "" {
		return filepath.Join(p.CachePath, filepath.FromSlash(p.Declaration.Path))
	}
	return p.CachePath
}

// Graph is the global discovery result. Packages register in discovery
// completion order, which is deterministic for a given input, and lookups
// are by name.
type Graph struct {
	packages map[string]*Package
	order    []string
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{packages: map[string]*Package{}}
}

// Has reports whether name is already discovered.
func (g *Graph) Has(name string) bool {
	_, ok := g.packages[name]
	return ok
}

// Get returns the package for name, or nil.
func (g *Graph) Get(name string) *Package {
	return g.packages[name]
}

// Add registers a package. The first registration for a name wins; a
// duplicate is ignored so diamond discoveries stay single.
func (g *Graph) Add(p *Package) {
	if g.Has(p.Name) {
		return
	}
	g.packages[p.Name] = p
	g.order = append(g.order, p.Name)
}

// Names returns package names in registration order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of discovered packages.
func (g *Graph) Len() int {
	return len(g.order)
}

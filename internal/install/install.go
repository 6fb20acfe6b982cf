// Package install materializes resolved packages into the project's packages
// directory and wires the per-package dependency link graph.
package install

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gitpm.dev/gitpm/internal/discover"
)

// Record describes one materialized package.
type Record struct {
	Package     *discover.Package
	Symlinked   bool
	LinkMethod  LinkMethod
	InstalledAt time.Time
}

// Installer materializes packages under packagesDir.
type Installer struct {
	packagesDir string
}

// New creates an Installer rooted at packagesDir (absolute).
func New(packagesDir string) *Installer {
	return &Installer{packagesDir: packagesDir}
}

// Destination returns the install destination for a package name.
func (i *Installer) Destination(name string) string {
	return filepath.Join(i.packagesDir, name)
}

// Install materializes one package. The destination is removed wholesale
// first so stale and fresh content never mix. Local packages are linked so
// edits at the source show up live; remote packages are copied in full — the
// cache is shared and mutable and must never be exposed through a link.
func (i *Installer) Install(pkg *discover.Package) (Record, error) {
	dest := i.Destination(pkg.Name)

	if err := os.MkdirAll(i.packagesDir, 0o755); err != nil {
		return Record{}, err
	}
	// Lstat so a dangling symlink destination still gets cleaned up.
	if _, err := os.Lstat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return Record{}, fmt.Errorf("removing stale destination %s: %w", dest, err)
		}
	}

	rec := Record{Package: pkg, InstalledAt: time.Now().UTC()}

	if pkg.IsLocal {
		method, err := linkDir(pkg.LocalPath, dest)
		if method == LinkNone {
			// Degraded mode: no link mechanism available. Copy the content
			// so the install still works; the absolute source path stays
			// published in the env file for tooling that needs it.
			if cerr := copyTree(pkg.LocalPath, dest); cerr != nil {
				return Record{}, fmt.Errorf("link and copy both failed for %s: link: %v, copy: %w", pkg.Name, err, cerr)
			}
			return rec, nil
		}
		rec.Symlinked = true
		rec.LinkMethod = method
		return rec, nil
	}

	src := pkg.ContentRoot()
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return Record{}, fmt.Errorf("path %q not found in repository %s", pkg.Declaration.Path, pkg.Declaration.Repo)
	}
	if err := copyTree(src, dest); err != nil {
		return Record{}, fmt.Errorf("copying %s: %w", pkg.Name, err)
	}
	return rec, nil
}

// LinkDependencies builds the second symlink graph: inside every installed
// package that recorded dependencies, one link per dependency pointing at the
// sibling install destination, under the conventional packages directory
// name. A package's own build tooling can then resolve its dependencies
// without consulting the top-level manifest.
//
// Link failures are degraded mode, not errors: they are returned for the
// caller to warn about, and consumers fall back to the published absolute
// paths in the env file.
func (i *Installer) LinkDependencies(g *discover.Graph, installed map[string]bool) []error {
	var failures []error
	base := filepath.Base(i.packagesDir)

	for name := range installed {
		pkg := g.Get(name)
		if pkg == nil || len(pkg.Dependencies) == 0 {
			continue
		}

		linkRoot := filepath.Join(i.Destination(name), base)
		for _, dep := range pkg.Dependencies {
			if !installed[dep] {
				continue // dependency failed install; nothing to point at
			}
			if err := os.MkdirAll(linkRoot, 0o755); err != nil {
				failures = append(failures, fmt.Errorf("package %s: %w", name, err))
				break
			}
			linkPath := filepath.Join(linkRoot, dep)
			if _, err := os.Lstat(linkPath); err == nil {
				_ = os.RemoveAll(linkPath)
			}
			if method, err := linkDir(i.Destination(dep), linkPath); method == LinkNone {
				failures = append(failures, fmt.Errorf("package %s: cannot link dependency %s: %w", name, dep, err))
			}
		}
	}
	return failures
}
